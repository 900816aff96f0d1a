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
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Scheduler は出題する単語を選び、演習を作って採点待ちとして保存します。
// 時刻は必ず asOf で受け取ります。
type Scheduler interface {
	NextBatch(ctx context.Context, learnerID uuid.UUID, asOf time.Time, limit int) ([]*model.Exercise, error)
	NextCollectionBatch(ctx context.Context, learnerID, collectionID uuid.UUID, asOf time.Time, limit int) ([]*model.Exercise, error)
}

type scheduler struct {
	db             *gorm.DB
	wordRepo       repository.WordRepository
	edgeRepo       repository.EdgeRepository
	collectionRepo repository.CollectionRepository
	tracker        ProgressTracker
	generator      ExerciseGenerator
	store          repository.PendingExerciseStore
	cfg            *config.Config
}

func NewScheduler(
	db *gorm.DB,
	wordRepo repository.WordRepository,
	edgeRepo repository.EdgeRepository,
	collectionRepo repository.CollectionRepository,
	tracker ProgressTracker,
	generator ExerciseGenerator,
	store repository.PendingExerciseStore,
	cfg *config.Config,
) Scheduler {
	return &scheduler{
		db:             db,
		wordRepo:       wordRepo,
		edgeRepo:       edgeRepo,
		collectionRepo: collectionRepo,
		tracker:        tracker,
		generator:      generator,
		store:          store,
		cfg:            cfg,
	}
}

func (s *scheduler) limitOrDefault(limit int) int {
	if limit <= 0 {
		return s.cfg.App.ReviewLimit
	}
	return limit
}

// NextBatch は期限切れの単語を先に、残りを未学習の単語で埋めます。
// 演習を作れない単語は飛ばし、その分は次の未学習の単語で埋めます。
func (s *scheduler) NextBatch(ctx context.Context, learnerID uuid.UUID, asOf time.Time, limit int) ([]*model.Exercise, error) {
	limit = s.limitOrDefault(limit)

	due, err := s.tracker.DueWords(ctx, learnerID, asOf, limit)
	if err != nil {
		return nil, err
	}
	exercises, err := s.buildExercises(ctx, learnerID, dueToWords(due))
	if err != nil {
		return nil, err
	}
	for offset := 0; len(exercises) < limit; {
		want := limit - len(exercises)
		fresh, err := s.wordRepo.FindUnscheduledByLearner(ctx, s.db, learnerID, offset, want)
		if err != nil {
			return nil, err
		}
		offset += len(fresh)
		built, err := s.buildExercises(ctx, learnerID, fresh)
		if err != nil {
			return nil, err
		}
		exercises = append(exercises, built...)
		if len(fresh) < want {
			break
		}
	}
	return s.storeBatch(ctx, learnerID, asOf, limit, exercises)
}

// NextCollectionBatch は NextBatch をコレクションの単語に限定したものです。未学習の単語は並び順に出題します。
func (s *scheduler) NextCollectionBatch(ctx context.Context, learnerID, collectionID uuid.UUID, asOf time.Time, limit int) ([]*model.Exercise, error) {
	limit = s.limitOrDefault(limit)

	if _, err := s.collectionRepo.FindByID(ctx, s.db, learnerID, collectionID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.NewAppError("COLLECTION_NOT_FOUND", "コレクションが見つかりません。", "collection_id", err)
		}
		return nil, err
	}
	members, err := s.edgeRepo.FindBySource(ctx, s.db, collectionID, model.RelationCollectionMember)
	if err != nil {
		return nil, err
	}
	memberIDs := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		memberIDs = append(memberIDs, m.TargetWordID)
	}
	if len(memberIDs) == 0 {
		return []*model.Exercise{}, nil
	}

	due, err := s.tracker.DueWordsAmong(ctx, learnerID, asOf, limit, memberIDs)
	if err != nil {
		return nil, err
	}
	exercises, err := s.buildExercises(ctx, learnerID, dueToWords(due))
	if err != nil {
		return nil, err
	}
	if len(exercises) < limit {
		fresh, err := s.wordRepo.FindUnscheduledAmong(ctx, s.db, learnerID, memberIDs)
		if err != nil {
			return nil, err
		}
		byID := make(map[uuid.UUID]*model.Word, len(fresh))
		for _, w := range fresh {
			byID[w.WordID] = w
		}
		ordered := make([]*model.Word, 0, len(fresh))
		for _, id := range memberIDs {
			if w, ok := byID[id]; ok {
				ordered = append(ordered, w)
			}
		}
		for start := 0; start < len(ordered) && len(exercises) < limit; {
			end := min(start+limit-len(exercises), len(ordered))
			built, err := s.buildExercises(ctx, learnerID, ordered[start:end])
			if err != nil {
				return nil, err
			}
			exercises = append(exercises, built...)
			start = end
		}
	}
	return s.storeBatch(ctx, learnerID, asOf, limit, exercises)
}

func dueToWords(due []*model.ProgressRecord) []*model.Word {
	words := make([]*model.Word, 0, len(due))
	for _, p := range due {
		if p.Word != nil {
			words = append(words, p.Word)
		}
	}
	return words
}

// buildExercises は演習を並行して作り、単語の順序のまま返します。
// 関連が足りない単語は飛ばします。
func (s *scheduler) buildExercises(ctx context.Context, learnerID uuid.UUID, words []*model.Word) ([]*model.Exercise, error) {
	logger := logging.GetLogger(ctx).With("learner_id", learnerID)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	built := make([]*model.Exercise, len(words))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.cfg.Scheduler.BuildConcurrency)
	for i, w := range words {
		eg.Go(func() error {
			ex, err := s.generator.Build(egCtx, learnerID, w, nil)
			if isNoExercise(err) {
				logger.Debug("Skipping word without usable relations", "word_id", w.WordID)
				return nil
			}
			if err != nil {
				return err
			}
			built[i] = ex
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		logger.Error("Failed to build exercise batch", "error", err)
		return nil, err
	}

	exercises := make([]*model.Exercise, 0, len(built))
	for _, ex := range built {
		if ex != nil {
			exercises = append(exercises, ex)
		}
	}
	return exercises, nil
}

// storeBatch は演習を採点待ちとして保存します。
func (s *scheduler) storeBatch(ctx context.Context, learnerID uuid.UUID, asOf time.Time, limit int, exercises []*model.Exercise) ([]*model.Exercise, error) {
	logger := logging.GetLogger(ctx).With("learner_id", learnerID)

	createdAt := asOf.UTC().Truncate(time.Second)
	for _, ex := range exercises {
		ex.CreatedAt = createdAt
		if err := s.store.Put(ctx, ex); err != nil {
			logger.Error("Failed to store pending exercise", "error", err, "exercise_id", ex.ExerciseID)
			return nil, err
		}
	}
	logger.Info("Exercise batch scheduled", "requested", limit, "count", len(exercises))
	return exercises, nil
}
