//go:generate mockery --name EdgeRepository --output ./mocks --outpkg mocks --case=underscore
package repository

import (
	"context"
	"errors"
	"fmt"

	"go_5_vocab_practice/internal/logging"
	"go_5_vocab_practice/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EdgeRepository は relation_edges テーブルへのアクセスです。
// 対称な種類の向きの正規化は呼び出し側 (GraphStore) の責務です。
type EdgeRepository interface {
	Create(ctx context.Context, tx *gorm.DB, edge *model.RelationEdge) error
	Find(ctx context.Context, db *gorm.DB, source, target uuid.UUID, kind model.RelationKind) (*model.RelationEdge, error)
	Delete(ctx context.Context, tx *gorm.DB, source, target uuid.UUID, kind model.RelationKind) error
	// FindAdjacent は wordIDs に接するエッジを返します。対称な種類は両方向、それ以外は出る向きのみ。
	FindAdjacent(ctx context.Context, db *gorm.DB, wordIDs []uuid.UUID, kind model.RelationKind) ([]*model.RelationEdge, error)
	// FindBySource は source から出る kind のエッジを rank 順に返します。
	FindBySource(ctx context.Context, db *gorm.DB, source uuid.UUID, kind model.RelationKind) ([]*model.RelationEdge, error)
	// FindAllForWord は単語から出る全エッジと、単語に入る対称エッジを返します。
	FindAllForWord(ctx context.Context, db *gorm.DB, wordID uuid.UUID) ([]*model.RelationEdge, error)
	CountForWord(ctx context.Context, db *gorm.DB, wordID uuid.UUID, kind model.RelationKind) (int64, error)
	MaxRank(ctx context.Context, db *gorm.DB, source uuid.UUID, kind model.RelationKind) (int, error)
}

type gormEdgeRepository struct{}

func NewGormEdgeRepository() EdgeRepository {
	return &gormEdgeRepository{}
}

func (r *gormEdgeRepository) Create(ctx context.Context, tx *gorm.DB, edge *model.RelationEdge) error {
	result := tx.WithContext(ctx).Create(edge)
	if result.Error != nil {
		err := translateError(result.Error)
		if !errors.Is(err, model.ErrConflict) {
			logging.GetLogger(ctx).Error("Error creating relation edge in DB",
				"error", result.Error,
				"source_word_id", edge.SourceWordID.String(),
				"target_word_id", edge.TargetWordID.String(),
				"kind", edge.Kind,
			)
		}
		return fmt.Errorf("gormEdgeRepository.Create: %w", err)
	}
	return nil
}

func (r *gormEdgeRepository) Find(ctx context.Context, db *gorm.DB, source, target uuid.UUID, kind model.RelationKind) (*model.RelationEdge, error) {
	var edge model.RelationEdge
	result := db.WithContext(ctx).
		Where("source_word_id = ? AND target_word_id = ? AND kind = ?", source, target, kind).
		First(&edge)
	if result.Error != nil {
		err := translateError(result.Error)
		if errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("gormEdgeRepository.Find: %w", err)
	}
	return &edge, nil
}

func (r *gormEdgeRepository) Delete(ctx context.Context, tx *gorm.DB, source, target uuid.UUID, kind model.RelationKind) error {
	result := tx.WithContext(ctx).
		Where("source_word_id = ? AND target_word_id = ? AND kind = ?", source, target, kind).
		Delete(&model.RelationEdge{})
	if result.Error != nil {
		logging.GetLogger(ctx).Error("Error deleting relation edge in DB", "error", result.Error, "kind", kind)
		return fmt.Errorf("gormEdgeRepository.Delete: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *gormEdgeRepository) FindAdjacent(ctx context.Context, db *gorm.DB, wordIDs []uuid.UUID, kind model.RelationKind) ([]*model.RelationEdge, error) {
	var edges []*model.RelationEdge
	if len(wordIDs) == 0 {
		return edges, nil
	}
	q := db.WithContext(ctx).Where("kind = ?", kind)
	if kind.IsSymmetric() {
		q = q.Where("(source_word_id IN ? OR target_word_id IN ?)", wordIDs, wordIDs)
	} else {
		q = q.Where("source_word_id IN ?", wordIDs)
	}
	if err := q.Order("position ASC, created_at ASC, edge_id ASC").Find(&edges).Error; err != nil {
		logging.GetLogger(ctx).Error("Error finding adjacent edges in DB", "error", err, "kind", kind)
		return nil, fmt.Errorf("gormEdgeRepository.FindAdjacent: %w", err)
	}
	return edges, nil
}

func (r *gormEdgeRepository) FindBySource(ctx context.Context, db *gorm.DB, source uuid.UUID, kind model.RelationKind) ([]*model.RelationEdge, error) {
	var edges []*model.RelationEdge
	result := db.WithContext(ctx).
		Where("source_word_id = ? AND kind = ?", source, kind).
		Order("position ASC, created_at ASC, edge_id ASC").
		Find(&edges)
	if result.Error != nil {
		return nil, fmt.Errorf("gormEdgeRepository.FindBySource: %w", result.Error)
	}
	return edges, nil
}

func (r *gormEdgeRepository) FindAllForWord(ctx context.Context, db *gorm.DB, wordID uuid.UUID) ([]*model.RelationEdge, error) {
	symmetric := make([]model.RelationKind, 0, 4)
	for _, k := range model.AllRelationKinds {
		if k.IsSymmetric() {
			symmetric = append(symmetric, k)
		}
	}
	var edges []*model.RelationEdge
	result := db.WithContext(ctx).
		Where("source_word_id = ? OR (target_word_id = ? AND kind IN ?)", wordID, wordID, symmetric).
		Order("kind ASC, position ASC, created_at ASC, edge_id ASC").
		Find(&edges)
	if result.Error != nil {
		logging.GetLogger(ctx).Error("Error finding edges for word in DB", "error", result.Error, "word_id", wordID.String())
		return nil, fmt.Errorf("gormEdgeRepository.FindAllForWord: %w", result.Error)
	}
	return edges, nil
}

// CountForWord は単語に接する kind のエッジ数を返します。対称な種類は両方向を数えます。
func (r *gormEdgeRepository) CountForWord(ctx context.Context, db *gorm.DB, wordID uuid.UUID, kind model.RelationKind) (int64, error) {
	var count int64
	q := db.WithContext(ctx).Model(&model.RelationEdge{}).Where("kind = ?", kind)
	if kind.IsSymmetric() {
		q = q.Where("(source_word_id = ? OR target_word_id = ?)", wordID, wordID)
	} else {
		q = q.Where("source_word_id = ?", wordID)
	}
	if err := q.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("gormEdgeRepository.CountForWord: %w", err)
	}
	return count, nil
}

// MaxRank は source から出る kind のエッジの最大 rank を返します。エッジが無ければ 0。
func (r *gormEdgeRepository) MaxRank(ctx context.Context, db *gorm.DB, source uuid.UUID, kind model.RelationKind) (int, error) {
	var maxRank int64
	err := db.WithContext(ctx).Model(&model.RelationEdge{}).
		Select("COALESCE(MAX(position), 0)").
		Where("source_word_id = ? AND kind = ?", source, kind).
		Row().Scan(&maxRank)
	if err != nil {
		return 0, fmt.Errorf("gormEdgeRepository.MaxRank: %w", err)
	}
	return int(maxRank), nil
}
