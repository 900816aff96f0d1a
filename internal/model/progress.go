// internal/model/progress.go
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LearningState は (学習者, 単語) ごとの間隔反復の状態です。
type LearningState int

const (
	StateNew LearningState = iota
	StateLearning
	StateReview
	StateLapsed // 採点結果の遷移としてのみ使う。保存される状態は Learning
)

func (s LearningState) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateLearning:
		return "learning"
	case StateReview:
		return "review"
	case StateLapsed:
		return "lapsed"
	default:
		return fmt.Sprintf("LearningState(%d)", int(s))
	}
}

func (s LearningState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *LearningState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "new":
		*s = StateNew
	case "learning":
		*s = StateLearning
	case "review":
		*s = StateReview
	case "lapsed":
		*s = StateLapsed
	default:
		return fmt.Errorf("%w: unknown learning state %q", ErrInvalidInput, string(text))
	}
	return nil
}

// ActivityStatus は単語一覧に表示する大まかな習熟度です。
type ActivityStatus string

const (
	ActivityInactive ActivityStatus = "inactive"
	ActivityActive   ActivityStatus = "active"
	ActivityMastered ActivityStatus = "mastered"
)

// ProgressRecord は (学習者, 単語) ごとの習熟記録です。
// 初回の採点コミット時に作成され、読み取りでは作成しません。
type ProgressRecord struct {
	LearnerID           uuid.UUID     `gorm:"type:uuid;primaryKey;index:idx_progress_learner_due,priority:1" json:"learner_id"`
	WordID              uuid.UUID     `gorm:"type:uuid;primaryKey" json:"word_id"`
	State               LearningState `gorm:"not null;default:0" json:"state"`
	RepetitionCount     int           `gorm:"not null;default:0" json:"repetition_count"`
	ConsecutiveCorrect  int           `gorm:"not null;default:0" json:"consecutive_correct"`
	CurrentIntervalDays int           `gorm:"not null;default:0" json:"current_interval_days"`
	EaseFactor          float64       `gorm:"not null" json:"ease_factor"`
	LastReviewedAt      *time.Time    `json:"last_reviewed_at,omitempty"`
	NextDueAt           *time.Time    `gorm:"index:idx_progress_learner_due,priority:2" json:"next_due_at,omitempty"`
	LapseCount          int           `gorm:"not null;default:0" json:"lapse_count"`
	Version             int64         `gorm:"not null;default:0" json:"version"` // 楽観ロック用
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`

	// 関連 (Preload用)
	Word *Word `gorm:"foreignKey:WordID;references:WordID" json:"-"`
}

func (ProgressRecord) TableName() string {
	return "progress_records"
}

// NewProgressRecord は未保存のゼロ値レコードを返します。
func NewProgressRecord(learnerID, wordID uuid.UUID, initialEase float64) *ProgressRecord {
	return &ProgressRecord{
		LearnerID:  learnerID,
		WordID:     wordID,
		State:      StateNew,
		EaseFactor: initialEase,
	}
}

// IsPersisted は DB に保存済みかどうかを返します。Version は初回保存で 1 になります。
func (p *ProgressRecord) IsPersisted() bool {
	return p.Version > 0
}

// IsDue は asOf 時点で出題対象かどうかを返します。
func (p *ProgressRecord) IsDue(asOf time.Time) bool {
	return p.NextDueAt != nil && !p.NextDueAt.After(asOf)
}

// ActivityStatus は Review で間隔が masteredIntervalDays 以上なら Mastered を返します。
func (p *ProgressRecord) ActivityStatus(masteredIntervalDays int) ActivityStatus {
	switch {
	case p.State == StateNew:
		return ActivityInactive
	case p.State == StateReview && p.CurrentIntervalDays >= masteredIntervalDays:
		return ActivityMastered
	default:
		return ActivityActive
	}
}

// IsProblematic は忘却回数が閾値に達しているかどうかを返します。
func (p *ProgressRecord) IsProblematic(lapseThreshold int) bool {
	return lapseThreshold > 0 && p.LapseCount >= lapseThreshold
}
