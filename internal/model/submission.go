// internal/model/submission.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// ExerciseSubmission は採点済みの提出履歴です。
// ExerciseID を主キーにして、1つの演習には1回だけ採点が反映されるようにしています。
type ExerciseSubmission struct {
	ExerciseID   uuid.UUID     `gorm:"type:uuid;primaryKey" json:"exercise_id"`
	SubmissionID uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex" json:"submission_id"`
	LearnerID    uuid.UUID     `gorm:"type:uuid;not null;index:idx_submission_learner_word,priority:1" json:"learner_id"`
	WordID       uuid.UUID     `gorm:"type:uuid;not null;index:idx_submission_learner_word,priority:2" json:"word_id"`
	Kind         ExerciseKind  `gorm:"type:varchar(32);not null" json:"kind"`
	Relation     RelationKind  `gorm:"type:varchar(32)" json:"relation"`
	Answer       string        `json:"answer"`
	Outcome      Outcome       `gorm:"type:varchar(16);not null" json:"outcome"`
	Similarity   float64       `json:"similarity"`
	StateBefore  LearningState `gorm:"not null" json:"state_before"`
	StateAfter   LearningState `gorm:"not null" json:"state_after"`
	IntervalDays int           `gorm:"not null" json:"interval_days"`
	SubmittedAt  time.Time     `gorm:"not null;index" json:"submitted_at"`
}

func (ExerciseSubmission) TableName() string {
	return "exercise_submissions"
}
