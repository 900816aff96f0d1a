//go:generate mockery --name ProgressRepository --output ./mocks --outpkg mocks --case=underscore
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go_5_vocab_practice/internal/logging"
	"go_5_vocab_practice/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DueFilter は出題対象の検索条件です。WordIDs が空でなければその単語に限定します。
type DueFilter struct {
	LearnerID uuid.UUID
	AsOf      time.Time
	Limit     int
	WordIDs   []uuid.UUID
}

type ProgressRepository interface {
	FindByKey(ctx context.Context, db *gorm.DB, learnerID, wordID uuid.UUID) (*model.ProgressRecord, error)
	Create(ctx context.Context, tx *gorm.DB, progress *model.ProgressRecord) error
	// UpdateIfVersion は保存済みの version が expectedVersion の場合だけ更新し、更新できたかを返します。
	UpdateIfVersion(ctx context.Context, tx *gorm.DB, progress *model.ProgressRecord, expectedVersion int64) (bool, error)
	FindDue(ctx context.Context, db *gorm.DB, filter DueFilter) ([]*model.ProgressRecord, error) // WordはPreloadする
}

type gormProgressRepository struct{}

func NewGormProgressRepository() ProgressRepository {
	return &gormProgressRepository{}
}

func (r *gormProgressRepository) FindByKey(ctx context.Context, db *gorm.DB, learnerID, wordID uuid.UUID) (*model.ProgressRecord, error) {
	var progress model.ProgressRecord
	result := db.WithContext(ctx).Where("learner_id = ? AND word_id = ?", learnerID, wordID).First(&progress)
	if result.Error != nil {
		err := translateError(result.Error)
		if errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
		logging.GetLogger(ctx).Error("Error finding progress in DB",
			"error", result.Error,
			"learner_id", learnerID.String(),
			"word_id", wordID.String(),
		)
		return nil, fmt.Errorf("gormProgressRepository.FindByKey: %w", err)
	}
	return &progress, nil
}

// Create は初回の採点で記録を作成します。同じキーの記録が既にあれば ErrConflict。
func (r *gormProgressRepository) Create(ctx context.Context, tx *gorm.DB, progress *model.ProgressRecord) error {
	result := tx.WithContext(ctx).Omit("Word").Create(progress)
	if result.Error != nil {
		return fmt.Errorf("gormProgressRepository.Create: %w", translateError(result.Error))
	}
	return nil
}

func (r *gormProgressRepository) UpdateIfVersion(ctx context.Context, tx *gorm.DB, progress *model.ProgressRecord, expectedVersion int64) (bool, error) {
	// map で渡してゼロ値 (streak=0 など) も確実に書き込む
	updates := map[string]interface{}{
		"state":                 progress.State,
		"repetition_count":      progress.RepetitionCount,
		"consecutive_correct":   progress.ConsecutiveCorrect,
		"current_interval_days": progress.CurrentIntervalDays,
		"ease_factor":           progress.EaseFactor,
		"last_reviewed_at":      progress.LastReviewedAt,
		"next_due_at":           progress.NextDueAt,
		"lapse_count":           progress.LapseCount,
		"version":               expectedVersion + 1,
		"updated_at":            progress.UpdatedAt,
	}
	result := tx.WithContext(ctx).Model(&model.ProgressRecord{}).
		Where("learner_id = ? AND word_id = ? AND version = ?", progress.LearnerID, progress.WordID, expectedVersion).
		Updates(updates)
	if result.Error != nil {
		logging.GetLogger(ctx).Error("Error updating progress in DB",
			"error", result.Error,
			"learner_id", progress.LearnerID.String(),
			"word_id", progress.WordID.String(),
		)
		return false, fmt.Errorf("gormProgressRepository.UpdateIfVersion: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return false, nil
	}
	progress.Version = expectedVersion + 1
	return true, nil
}

// FindDue は next_due_at <= asOf の記録を next_due_at 昇順、同時刻なら lapse_count 降順で返します。
func (r *gormProgressRepository) FindDue(ctx context.Context, db *gorm.DB, filter DueFilter) ([]*model.ProgressRecord, error) {
	var progresses []*model.ProgressRecord
	q := db.WithContext(ctx).
		Preload("Word").
		Where("progress_records.learner_id = ? AND progress_records.next_due_at IS NOT NULL AND progress_records.next_due_at <= ?", filter.LearnerID, filter.AsOf.UTC())
	if len(filter.WordIDs) > 0 {
		q = q.Where("progress_records.word_id IN ?", filter.WordIDs)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	result := q.
		Order("progress_records.next_due_at ASC, progress_records.lapse_count DESC, progress_records.word_id ASC").
		Find(&progresses)
	if result.Error != nil {
		logging.GetLogger(ctx).Error("Error finding due progress in DB", "error", result.Error, "learner_id", filter.LearnerID.String())
		return nil, fmt.Errorf("gormProgressRepository.FindDue: %w", result.Error)
	}
	return progresses, nil
}
