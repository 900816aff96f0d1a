package repository

import (
	"context"
	"errors"
	"fmt"

	"go_5_vocab_practice/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CollectionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, collection *model.Collection) error
	FindByID(ctx context.Context, db *gorm.DB, learnerID, collectionID uuid.UUID) (*model.Collection, error)
	FindByLearner(ctx context.Context, db *gorm.DB, learnerID uuid.UUID) ([]*model.Collection, error)
}

type gormCollectionRepository struct{}

func NewGormCollectionRepository() CollectionRepository {
	return &gormCollectionRepository{}
}

func (r *gormCollectionRepository) Create(ctx context.Context, tx *gorm.DB, collection *model.Collection) error {
	if err := tx.WithContext(ctx).Create(collection).Error; err != nil {
		return fmt.Errorf("gormCollectionRepository.Create: %w", translateError(err))
	}
	return nil
}

func (r *gormCollectionRepository) FindByID(ctx context.Context, db *gorm.DB, learnerID, collectionID uuid.UUID) (*model.Collection, error) {
	var collection model.Collection
	err := db.WithContext(ctx).
		Where("learner_id = ? AND collection_id = ?", learnerID, collectionID).
		First(&collection).Error
	if err != nil {
		err = translateError(err)
		if errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("gormCollectionRepository.FindByID: %w", err)
	}
	return &collection, nil
}

func (r *gormCollectionRepository) FindByLearner(ctx context.Context, db *gorm.DB, learnerID uuid.UUID) ([]*model.Collection, error) {
	var collections []*model.Collection
	if err := db.WithContext(ctx).Where("learner_id = ?", learnerID).Order("name ASC").Find(&collections).Error; err != nil {
		return nil, fmt.Errorf("gormCollectionRepository.FindByLearner: %w", err)
	}
	return collections, nil
}
