// internal/model/collection.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// Collection は学習者が作る名前付きの単語リストです。
// メンバーは collection-member エッジ (Source=CollectionID, Target=WordID, Rank) で表します。
type Collection struct {
	CollectionID uuid.UUID `gorm:"type:uuid;primaryKey" json:"collection_id"`
	LearnerID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_collection_learner_name" json:"learner_id"`
	Name         string    `gorm:"not null;uniqueIndex:idx_collection_learner_name" json:"name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Collection) TableName() string {
	return "collections"
}

type CreateCollectionRequest struct {
	LearnerID uuid.UUID `json:"learner_id" validate:"required"`
	Name      string    `json:"name" validate:"required,max=255"`
}
