package service

import (
	"context"
	"errors"
	"time"

	"go_5_vocab_practice/internal/config"
	"go_5_vocab_practice/internal/logging"
	"go_5_vocab_practice/internal/model"
	"go_5_vocab_practice/internal/repository"
	"go_5_vocab_practice/internal/textutil"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubmitInput は学習者の回答です。SubmissionID はクライアントが再送しても変わらない値です。
type SubmitInput struct {
	LearnerID    uuid.UUID
	ExerciseID   uuid.UUID
	SubmissionID uuid.UUID
	Answer       string
	AsOf         time.Time
}

// OutcomeProcessor は回答を採点し、必ず進捗に記録してから結果を返します。
type OutcomeProcessor interface {
	Submit(ctx context.Context, in SubmitInput) (*model.OutcomeResult, error)
	Grade(exercise *model.Exercise, answer string) (model.Outcome, float64)
	History(ctx context.Context, learnerID, wordID uuid.UUID, limit int) ([]*model.ExerciseSubmission, error)
}

type outcomeProcessor struct {
	db      *gorm.DB
	subRepo repository.SubmissionRepository
	store   repository.PendingExerciseStore
	tracker ProgressTracker
	cfg     *config.Config
}

func NewOutcomeProcessor(db *gorm.DB, subRepo repository.SubmissionRepository, store repository.PendingExerciseStore, tracker ProgressTracker, cfg *config.Config) OutcomeProcessor {
	return &outcomeProcessor{
		db:      db,
		subRepo: subRepo,
		store:   store,
		tracker: tracker,
		cfg:     cfg,
	}
}

func unknownSubmission(msg string) error {
	return model.NewAppError("UNKNOWN_SUBMISSION", msg, "exercise_id", model.ErrUnknownSubmission)
}

func (s *outcomeProcessor) Submit(ctx context.Context, in SubmitInput) (*model.OutcomeResult, error) {
	logger := logging.GetLogger(ctx).With("learner_id", in.LearnerID, "exercise_id", in.ExerciseID, "submission_id", in.SubmissionID)

	if in.LearnerID == uuid.Nil || in.ExerciseID == uuid.Nil || in.SubmissionID == uuid.Nil {
		return nil, model.NewAppError("INVALID_SUBMISSION", "学習者・演習・提出のIDは必須です。", "submission_id", model.ErrInvalidInput)
	}

	// 再送なら保存済みの結果を返す。演習は採点後に破棄されているため先に確認する
	if res, err := s.replayRecorded(ctx, in); res != nil || err != nil {
		return res, err
	}

	ex, err := s.store.Get(ctx, in.ExerciseID)
	if errors.Is(err, model.ErrNotFound) {
		// 同じ提出が並行して記録され、演習が破棄された直後の場合がある
		if res, err := s.replayRecorded(ctx, in); res != nil || err != nil {
			return res, err
		}
		logger.Info("Submission for unknown or expired exercise")
		return nil, unknownSubmission("採点待ちの演習が見つかりません。")
	}
	if err != nil {
		return nil, err
	}
	if ex.LearnerID != in.LearnerID {
		logger.Warn("Submission from a learner who does not own the exercise")
		return nil, unknownSubmission("採点待ちの演習が見つかりません。")
	}

	// ここまではキャンセルしても何も記録されない
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	outcome, similarity := s.Grade(ex, in.Answer)
	committed, err := s.tracker.Commit(ctx, CommitInput{
		LearnerID: in.LearnerID,
		WordID:    ex.WordID,
		Outcome:   outcome,
		AsOf:      in.AsOf,
		Submission: &model.ExerciseSubmission{
			ExerciseID:   ex.ExerciseID,
			SubmissionID: in.SubmissionID,
			Kind:         ex.Kind,
			Relation:     ex.Relation,
			Answer:       in.Answer,
			Similarity:   similarity,
		},
	})
	if err != nil {
		logger.Error("Failed to commit outcome", "error", err, "outcome", outcome)
		return nil, err
	}

	// 記録後の削除は失敗しても結果に影響しない。残った演習は TTL で消える
	if err := s.store.Delete(context.WithoutCancel(ctx), ex.ExerciseID); err != nil {
		logger.Warn("Failed to delete graded exercise", "error", err)
	}

	if committed.Replayed {
		return resultFromSubmission(committed.Submission, &committed.After, true), nil
	}
	logger.Info("Submission graded", "outcome", outcome, "similarity", similarity)
	return resultFromSubmission(committed.Submission, &committed.After, false), nil
}

// replayRecorded は提出が記録済みならその結果を返します。未記録なら nil, nil です。
func (s *outcomeProcessor) replayRecorded(ctx context.Context, in SubmitInput) (*model.OutcomeResult, error) {
	logger := logging.GetLogger(ctx).With("learner_id", in.LearnerID, "exercise_id", in.ExerciseID, "submission_id", in.SubmissionID)

	prev, err := s.subRepo.FindBySubmissionID(ctx, s.db, in.SubmissionID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if prev.ExerciseID != in.ExerciseID || prev.LearnerID != in.LearnerID {
		logger.Warn("Submission id reused for a different exercise")
		return nil, unknownSubmission("この提出IDは別の演習で使われています。")
	}
	progress, err := s.tracker.Get(ctx, prev.LearnerID, prev.WordID)
	if err != nil {
		return nil, err
	}
	logger.Info("Replayed submission")
	return resultFromSubmission(prev, progress, true), nil
}

func resultFromSubmission(sub *model.ExerciseSubmission, progress *model.ProgressRecord, replayed bool) *model.OutcomeResult {
	p := *progress
	p.Word = nil
	return &model.OutcomeResult{
		ExerciseID:   sub.ExerciseID,
		SubmissionID: sub.SubmissionID,
		Outcome:      sub.Outcome,
		Similarity:   sub.Similarity,
		StateBefore:  sub.StateBefore,
		StateAfter:   sub.StateAfter,
		Progress:     p,
		Replayed:     replayed,
	}
}

// Grade は形式ごとに回答を判定します。
// 選択式は正規化した表記の一致だけを見ます。記述式は類似度が閾値以上なら Partial です。
func (s *outcomeProcessor) Grade(exercise *model.Exercise, answer string) (model.Outcome, float64) {
	if textutil.Normalize(answer) == "" {
		return model.OutcomeSkipped, 0
	}

	if exercise.Kind.IsChoice() {
		for _, expected := range exercise.ExpectedAnswers {
			if textutil.Equivalent(answer, expected) {
				return model.OutcomeCorrect, 1
			}
		}
		return model.OutcomeIncorrect, 0
	}

	best := 0.0
	for _, expected := range exercise.ExpectedAnswers {
		if textutil.Equivalent(answer, expected) {
			return model.OutcomeCorrect, 1
		}
		best = max(best, textutil.Similarity(answer, expected))
	}
	if best >= s.cfg.Grading.PartialThreshold {
		return model.OutcomePartial, best
	}
	return model.OutcomeIncorrect, best
}

// History は単語の採点履歴を新しい順に返します。
func (s *outcomeProcessor) History(ctx context.Context, learnerID, wordID uuid.UUID, limit int) ([]*model.ExerciseSubmission, error) {
	return s.subRepo.ListByWord(ctx, s.db, learnerID, wordID, limit)
}
