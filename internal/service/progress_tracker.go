package service

import (
	"context"
	"errors"
	"time"

	"go_5_vocab_practice/internal/config"
	"go_5_vocab_practice/internal/logging"
	"go_5_vocab_practice/internal/model"
	"go_5_vocab_practice/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CommitInput は1回の採点結果です。Submission があれば同じトランザクションで履歴に残し、
// ExerciseID ごとに一度だけ反映します。
type CommitInput struct {
	LearnerID  uuid.UUID
	WordID     uuid.UUID
	Outcome    model.Outcome
	AsOf       time.Time
	Submission *model.ExerciseSubmission
}

type CommitResult struct {
	Before     model.ProgressRecord
	After      model.ProgressRecord
	Replayed   bool // 同じ提出が既に反映済みだった
	Submission *model.ExerciseSubmission
	Attempts   int
}

// ProgressTracker は (学習者, 単語) ごとの進捗を管理します。
// 書き込みは Commit だけで、version による楽観ロックで直列化します。
type ProgressTracker interface {
	Get(ctx context.Context, learnerID, wordID uuid.UUID) (*model.ProgressRecord, error)
	Commit(ctx context.Context, in CommitInput) (*CommitResult, error)
	DueWords(ctx context.Context, learnerID uuid.UUID, asOf time.Time, limit int) ([]*model.ProgressRecord, error)
	DueWordsAmong(ctx context.Context, learnerID uuid.UUID, asOf time.Time, limit int, wordIDs []uuid.UUID) ([]*model.ProgressRecord, error)
}

// errCommitRetry はトランザクションを巻き戻して次の試行に進むための内部エラーです。
var errCommitRetry = errors.New("progress commit lost a race")

type progressTracker struct {
	db       *gorm.DB
	progRepo repository.ProgressRepository
	subRepo  repository.SubmissionRepository
	policy   *SpacedRepetition
	cfg      *config.Config
}

func NewProgressTracker(db *gorm.DB, progRepo repository.ProgressRepository, subRepo repository.SubmissionRepository, policy *SpacedRepetition, cfg *config.Config) ProgressTracker {
	return &progressTracker{
		db:       db,
		progRepo: progRepo,
		subRepo:  subRepo,
		policy:   policy,
		cfg:      cfg,
	}
}

// Get は記録が無ければ未保存の初期値を返します。読み取りでは作成しません。
func (s *progressTracker) Get(ctx context.Context, learnerID, wordID uuid.UUID) (*model.ProgressRecord, error) {
	rec, err := s.progRepo.FindByKey(ctx, s.db, learnerID, wordID)
	if errors.Is(err, model.ErrNotFound) {
		return model.NewProgressRecord(learnerID, wordID, s.cfg.Scheduler.EaseInitial), nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *progressTracker) DueWords(ctx context.Context, learnerID uuid.UUID, asOf time.Time, limit int) ([]*model.ProgressRecord, error) {
	return s.progRepo.FindDue(ctx, s.db, repository.DueFilter{LearnerID: learnerID, AsOf: asOf, Limit: limit})
}

func (s *progressTracker) DueWordsAmong(ctx context.Context, learnerID uuid.UUID, asOf time.Time, limit int, wordIDs []uuid.UUID) ([]*model.ProgressRecord, error) {
	if len(wordIDs) == 0 {
		return nil, nil
	}
	return s.progRepo.FindDue(ctx, s.db, repository.DueFilter{LearnerID: learnerID, AsOf: asOf, Limit: limit, WordIDs: wordIDs})
}

// Commit は version の比較で競合を検出し、上限回数まで読み直して再試行します。
// 開始後は呼び出し元のキャンセルに影響されず、1回のトランザクションで全て反映されるか何も反映されません。
func (s *progressTracker) Commit(ctx context.Context, in CommitInput) (*CommitResult, error) {
	logger := logging.GetLogger(ctx).With("learner_id", in.LearnerID, "word_id", in.WordID)

	if !in.Outcome.IsValid() {
		return nil, model.NewAppError("INVALID_OUTCOME", "不明な採点結果です。", "outcome", model.ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	commitCtx := context.WithoutCancel(ctx)
	asOf := in.AsOf.UTC().Truncate(time.Second)

	attempts := s.cfg.Scheduler.MaxCommitAttempts
	for attempt := 1; attempt <= attempts; attempt++ {
		var result *CommitResult
		err := s.db.WithContext(commitCtx).Transaction(func(tx *gorm.DB) error {
			var err error
			result, err = s.commitOnce(commitCtx, tx, in, asOf)
			return err
		})
		if errors.Is(err, errCommitRetry) {
			logger.Debug("Progress commit conflicted, retrying", "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, err
		}
		result.Attempts = attempt
		if result.Replayed {
			logger.Info("Submission already committed, returning stored result", "exercise_id", in.Submission.ExerciseID)
		} else {
			logger.Info("Progress committed",
				"outcome", in.Outcome,
				"state_before", result.Before.State,
				"state_after", result.After.State,
				"interval_days", result.After.CurrentIntervalDays,
				"attempts", attempt)
		}
		return result, nil
	}

	logger.Warn("Progress commit gave up after repeated conflicts", "attempts", attempts)
	return nil, model.NewAppError("CONCURRENT_UPDATE_CONFLICT", "学習進捗が同時に更新されました。時間をおいて再試行してください。", "", model.ErrConcurrentUpdateConflict)
}

func (s *progressTracker) commitOnce(ctx context.Context, tx *gorm.DB, in CommitInput, asOf time.Time) (*CommitResult, error) {
	if in.Submission != nil {
		existing, err := s.subRepo.FindByExerciseID(ctx, tx, in.Submission.ExerciseID)
		switch {
		case err == nil:
			if existing.SubmissionID != in.Submission.SubmissionID {
				return nil, model.NewAppError("UNKNOWN_SUBMISSION", "この演習は別の提出で採点済みです。", "submission_id", model.ErrUnknownSubmission)
			}
			return s.replay(ctx, tx, in, existing)
		case !errors.Is(err, model.ErrNotFound):
			return nil, err
		}
	}

	current, err := s.progRepo.FindByKey(ctx, tx, in.LearnerID, in.WordID)
	if errors.Is(err, model.ErrNotFound) {
		current = model.NewProgressRecord(in.LearnerID, in.WordID, s.cfg.Scheduler.EaseInitial)
	} else if err != nil {
		return nil, err
	}
	before := *current
	before.Word = nil

	after := s.policy.Apply(before, in.Outcome, asOf)
	after.UpdatedAt = asOf

	if !before.IsPersisted() {
		after.Version = 1
		after.CreatedAt = asOf
		if err := s.progRepo.Create(ctx, tx, &after); err != nil {
			if errors.Is(err, model.ErrConflict) {
				return nil, errCommitRetry
			}
			return nil, err
		}
	} else {
		ok, err := s.progRepo.UpdateIfVersion(ctx, tx, &after, before.Version)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errCommitRetry
		}
	}

	result := &CommitResult{Before: before, After: after}
	if in.Submission != nil {
		sub := *in.Submission
		sub.LearnerID = in.LearnerID
		sub.WordID = in.WordID
		sub.Outcome = in.Outcome
		sub.StateBefore = before.State
		sub.StateAfter = after.State
		if s.policy.IsLapse(before, in.Outcome) {
			sub.StateAfter = model.StateLapsed
		}
		sub.IntervalDays = after.CurrentIntervalDays
		sub.SubmittedAt = asOf
		if err := s.subRepo.Create(ctx, tx, &sub); err != nil {
			if errors.Is(err, model.ErrConflict) {
				// 同じ演習の提出が先に反映された。次の試行で再送として扱う
				return nil, errCommitRetry
			}
			return nil, err
		}
		result.Submission = &sub
	}
	return result, nil
}

// replay は反映済みの提出に対して、現在の進捗をそのまま返します。
func (s *progressTracker) replay(ctx context.Context, tx *gorm.DB, in CommitInput, existing *model.ExerciseSubmission) (*CommitResult, error) {
	current, err := s.progRepo.FindByKey(ctx, tx, existing.LearnerID, existing.WordID)
	if err != nil {
		return nil, err
	}
	current.Word = nil
	return &CommitResult{
		Before:     *current,
		After:      *current,
		Replayed:   true,
		Submission: existing,
	}, nil
}
