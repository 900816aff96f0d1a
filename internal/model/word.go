// internal/model/word.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// WordType は品詞、またはコンテンツノードの種類です。
type WordType string

const (
	WordTypeNoun      WordType = "noun"
	WordTypeVerb      WordType = "verb"
	WordTypeAdjective WordType = "adjective"
	WordTypeAdverb    WordType = "adverb"
	WordTypePhrase    WordType = "phrase"
	WordTypeOther     WordType = "other"

	// 以下は単語から属性エッジで参照されるコンテンツノード
	WordTypeDefinition   WordType = "definition"
	WordTypeUsageExample WordType = "usage-example"
	WordTypeImage        WordType = "image"
	WordTypeQuote        WordType = "quote"
	WordTypeFormGroup    WordType = "form-group"
)

// IsContent はコンテンツノード (定義・例文・画像・引用・語形グループ) かどうかを返します。
func (t WordType) IsContent() bool {
	switch t {
	case WordTypeDefinition, WordTypeUsageExample, WordTypeImage, WordTypeQuote, WordTypeFormGroup:
		return true
	}
	return false
}

// Word は語彙グラフのノードです。
// Text はリレーションや演習履歴から参照された後は変更せず、新しいバージョンを作成します。
type Word struct {
	WordID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"word_id"`
	LearnerID         *uuid.UUID `gorm:"type:uuid;index" json:"learner_id,omitempty"` // nil は共有 (システム) 単語
	Text              string     `gorm:"not null" json:"text"`
	Language          string     `gorm:"type:varchar(16);not null;index" json:"language"`
	WordType          WordType   `gorm:"type:varchar(32);not null;default:other" json:"word_type"`
	Version           int        `gorm:"not null;default:1" json:"version"`
	PreviousVersionID *uuid.UUID `gorm:"type:uuid" json:"previous_version_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

func (Word) TableName() string {
	return "words"
}

// IsShared は学習者に属さない共有単語かどうかを返します。
func (w *Word) IsShared() bool {
	return w.LearnerID == nil
}

// AddWordRequest は単語作成の入力です。
type AddWordRequest struct {
	LearnerID *uuid.UUID `json:"learner_id"`
	Text      string     `json:"text" validate:"required,max=512"`
	Language  string     `json:"language" validate:"required,min=2,max=16"`
	WordType  WordType   `json:"word_type" validate:"required"`
}
