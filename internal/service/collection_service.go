package service

import (
	"context"
	"errors"

	"go_5_vocab_practice/internal/logging"
	"go_5_vocab_practice/internal/model"
	"go_5_vocab_practice/internal/repository"
	"go_5_vocab_practice/internal/validation"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CollectionService は学習者の単語コレクションを管理します。
// メンバーは collection-member エッジで、追加した順に rank を振ります。
type CollectionService interface {
	Create(ctx context.Context, req *model.CreateCollectionRequest) (*model.Collection, error)
	AddWord(ctx context.Context, learnerID, collectionID, wordID uuid.UUID) (*model.RelationEdge, error)
	Members(ctx context.Context, learnerID, collectionID uuid.UUID) ([]model.Word, error)
	List(ctx context.Context, learnerID uuid.UUID) ([]*model.Collection, error)
}

type collectionService struct {
	db             *gorm.DB
	collectionRepo repository.CollectionRepository
	edgeRepo       repository.EdgeRepository
	wordRepo       repository.WordRepository
	locks          *pairLocker
}

func NewCollectionService(db *gorm.DB, collectionRepo repository.CollectionRepository, edgeRepo repository.EdgeRepository, wordRepo repository.WordRepository) CollectionService {
	return &collectionService{
		db:             db,
		collectionRepo: collectionRepo,
		edgeRepo:       edgeRepo,
		wordRepo:       wordRepo,
		locks:          newPairLocker(),
	}
}

func (s *collectionService) Create(ctx context.Context, req *model.CreateCollectionRequest) (*model.Collection, error) {
	logger := logging.GetLogger(ctx).With("learner_id", req.LearnerID)

	if err := validation.Struct(req); err != nil {
		logger.Warn("Validation failed", "error", err)
		return nil, err
	}
	collection := &model.Collection{
		CollectionID: uuid.New(),
		LearnerID:    req.LearnerID,
		Name:         req.Name,
	}
	if err := s.collectionRepo.Create(ctx, s.db, collection); err != nil {
		if errors.Is(err, model.ErrConflict) {
			return nil, model.NewAppError("COLLECTION_EXISTS", "同じ名前のコレクションが既に存在します。", "name", err)
		}
		logger.Error("Error creating collection", "error", err)
		return nil, err
	}
	logger.Info("Collection created", "collection_id", collection.CollectionID)
	return collection, nil
}

func (s *collectionService) AddWord(ctx context.Context, learnerID, collectionID, wordID uuid.UUID) (*model.RelationEdge, error) {
	logger := logging.GetLogger(ctx).With("learner_id", learnerID, "collection_id", collectionID, "word_id", wordID)

	// rank の採番はコレクション単位で直列化する
	unlock := s.locks.Lock(collectionID, collectionID)
	defer unlock()

	var edge *model.RelationEdge
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.collectionRepo.FindByID(ctx, tx, learnerID, collectionID); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.NewAppError("COLLECTION_NOT_FOUND", "コレクションが見つかりません。", "collection_id", err)
			}
			return err
		}
		word, err := s.wordRepo.FindByID(ctx, tx, wordID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.NewAppError("WORD_NOT_FOUND", "単語が見つかりません。", "word_id", err)
			}
			return err
		}
		if !visibleTo(word, learnerID) || word.WordType.IsContent() {
			return model.NewAppError("INVALID_EDGE", "この単語はコレクションに追加できません。", "word_id", model.ErrInvalidEdge)
		}

		if _, err := s.edgeRepo.Find(ctx, tx, collectionID, wordID, model.RelationCollectionMember); err == nil {
			return model.NewAppError("DUPLICATE_EDGE", "この単語は既にコレクションに含まれています。", "word_id", model.ErrDuplicateEdge)
		} else if !errors.Is(err, model.ErrNotFound) {
			return err
		}

		maxRank, err := s.edgeRepo.MaxRank(ctx, tx, collectionID, model.RelationCollectionMember)
		if err != nil {
			return err
		}
		edge = &model.RelationEdge{
			EdgeID:       uuid.New(),
			SourceWordID: collectionID,
			TargetWordID: wordID,
			Kind:         model.RelationCollectionMember,
			Rank:         maxRank + 1,
		}
		if err := s.edgeRepo.Create(ctx, tx, edge); err != nil {
			if errors.Is(err, model.ErrConflict) {
				return model.NewAppError("DUPLICATE_EDGE", "この単語は既にコレクションに含まれています。", "word_id", model.ErrDuplicateEdge)
			}
			return err
		}
		return nil
	})
	if err != nil {
		logger.Info("Failed to add word to collection", "error", err)
		return nil, err
	}
	logger.Info("Word added to collection", "rank", edge.Rank)
	return edge, nil
}

// Members は rank 順に単語を返します。
func (s *collectionService) Members(ctx context.Context, learnerID, collectionID uuid.UUID) ([]model.Word, error) {
	if _, err := s.collectionRepo.FindByID(ctx, s.db, learnerID, collectionID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.NewAppError("COLLECTION_NOT_FOUND", "コレクションが見つかりません。", "collection_id", err)
		}
		return nil, err
	}
	edges, err := s.edgeRepo.FindBySource(ctx, s.db, collectionID, model.RelationCollectionMember)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.TargetWordID)
	}
	if len(ids) == 0 {
		return []model.Word{}, nil
	}
	words, err := s.wordRepo.FindByIDs(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	members := make([]model.Word, 0, len(ids))
	for _, id := range ids {
		if w, ok := words[id]; ok {
			members = append(members, *w)
		}
	}
	return members, nil
}

// List は学習者のコレクションを名前順に返します。
func (s *collectionService) List(ctx context.Context, learnerID uuid.UUID) ([]*model.Collection, error) {
	return s.collectionRepo.FindByLearner(ctx, s.db, learnerID)
}
