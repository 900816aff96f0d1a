//go:generate mockery --name SubmissionRepository --output ./mocks --outpkg mocks --case=underscore
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

// SubmissionRepository は採点済み提出の履歴です。冪等性の判定にも使います。
type SubmissionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, submission *model.ExerciseSubmission) error
	FindBySubmissionID(ctx context.Context, db *gorm.DB, submissionID uuid.UUID) (*model.ExerciseSubmission, error)
	FindByExerciseID(ctx context.Context, db *gorm.DB, exerciseID uuid.UUID) (*model.ExerciseSubmission, error)
	ListByWord(ctx context.Context, db *gorm.DB, learnerID, wordID uuid.UUID, limit int) ([]*model.ExerciseSubmission, error)
}

type gormSubmissionRepository struct{}

func NewGormSubmissionRepository() SubmissionRepository {
	return &gormSubmissionRepository{}
}

func (r *gormSubmissionRepository) Create(ctx context.Context, tx *gorm.DB, submission *model.ExerciseSubmission) error {
	result := tx.WithContext(ctx).Create(submission)
	if result.Error != nil {
		return fmt.Errorf("gormSubmissionRepository.Create: %w", translateError(result.Error))
	}
	return nil
}

func (r *gormSubmissionRepository) FindBySubmissionID(ctx context.Context, db *gorm.DB, submissionID uuid.UUID) (*model.ExerciseSubmission, error) {
	return r.findOne(ctx, db, "submission_id = ?", submissionID)
}

func (r *gormSubmissionRepository) FindByExerciseID(ctx context.Context, db *gorm.DB, exerciseID uuid.UUID) (*model.ExerciseSubmission, error) {
	return r.findOne(ctx, db, "exercise_id = ?", exerciseID)
}

func (r *gormSubmissionRepository) findOne(ctx context.Context, db *gorm.DB, cond string, id uuid.UUID) (*model.ExerciseSubmission, error) {
	var submission model.ExerciseSubmission
	result := db.WithContext(ctx).Where(cond, id).First(&submission)
	if result.Error != nil {
		err := translateError(result.Error)
		if errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
		logging.GetLogger(ctx).Error("Error finding submission in DB", "error", result.Error, "id", id.String())
		return nil, fmt.Errorf("gormSubmissionRepository.findOne: %w", err)
	}
	return &submission, nil
}

// ListByWord は新しい順に履歴を返します。
func (r *gormSubmissionRepository) ListByWord(ctx context.Context, db *gorm.DB, learnerID, wordID uuid.UUID, limit int) ([]*model.ExerciseSubmission, error) {
	var submissions []*model.ExerciseSubmission
	q := db.WithContext(ctx).
		Where("learner_id = ? AND word_id = ?", learnerID, wordID).
		Order("submitted_at DESC, exercise_id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&submissions).Error; err != nil {
		logging.GetLogger(ctx).Error("Error listing submissions in DB", "error", err, "word_id", wordID.String())
		return nil, fmt.Errorf("gormSubmissionRepository.ListByWord: %w", err)
	}
	return submissions, nil
}
