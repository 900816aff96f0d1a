// internal/model/exercise.go
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ExerciseKind は演習の形式です。閉じた集合で、採点は種類ごとに分岐します。
type ExerciseKind string

const (
	ExerciseRecall          ExerciseKind = "recall"
	ExerciseMultipleChoice  ExerciseKind = "multiple-choice"
	ExerciseFillIn          ExerciseKind = "fill-in"
	ExerciseDefinitionMatch ExerciseKind = "definition-match"
)

func (k ExerciseKind) IsValid() bool {
	switch k {
	case ExerciseRecall, ExerciseMultipleChoice, ExerciseFillIn, ExerciseDefinitionMatch:
		return true
	}
	return false
}

// IsChoice は選択肢から選ぶ形式かどうかを返します。
func (k ExerciseKind) IsChoice() bool {
	return k == ExerciseMultipleChoice || k == ExerciseDefinitionMatch
}

// Outcome は採点結果です。
type Outcome string

const (
	OutcomeCorrect   Outcome = "correct"
	OutcomePartial   Outcome = "partial"
	OutcomeIncorrect Outcome = "incorrect"
	OutcomeSkipped   Outcome = "skipped"
)

// IsPositive は間隔を伸ばす側の結果かどうかを返します。
func (o Outcome) IsPositive() bool {
	return o == OutcomeCorrect || o == OutcomePartial
}

func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeCorrect, OutcomePartial, OutcomeIncorrect, OutcomeSkipped:
		return true
	}
	return false
}

// RecallPayload は自由記述で答える演習の問題文です。
type RecallPayload struct {
	Prompt         string `json:"prompt"`
	PromptLanguage string `json:"prompt_language,omitempty"`
	AnswerLanguage string `json:"answer_language,omitempty"`
}

// ChoicePayload は選択式の演習です。Options には正解と誤答が混在します。
type ChoicePayload struct {
	Prompt      string      `json:"prompt"`
	Options     []string    `json:"options"`
	Distractors []uuid.UUID `json:"distractors"`
}

// FillInPayload は例文の穴埋めです。
type FillInPayload struct {
	Sentence string `json:"sentence"` // 対象語を空欄にした例文
	Original string `json:"-"`
}

// Exercise は出題中の演習です。永続化せず、採点後に破棄されます。
// Kind に対応するペイロードだけが非 nil になります。
type Exercise struct {
	ExerciseID      uuid.UUID      `json:"exercise_id"`
	LearnerID       uuid.UUID      `json:"learner_id"`
	WordID          uuid.UUID      `json:"word_id"`
	WordText        string         `json:"word_text"`
	Kind            ExerciseKind   `json:"kind"`
	Relation        RelationKind   `json:"relation"` // 出題に使った関係
	Recall          *RecallPayload `json:"recall,omitempty"`
	Choice          *ChoicePayload `json:"choice,omitempty"`
	FillIn          *FillInPayload `json:"fill_in,omitempty"`
	ExpectedAnswers []string       `json:"expected_answers"`
	Progress        ProgressRecord `json:"progress"`
	CreatedAt       time.Time      `json:"created_at"`
}

// Validate はペイロードが Kind と整合しているか検査します。
func (e *Exercise) Validate() error {
	var ok bool
	switch e.Kind {
	case ExerciseRecall:
		ok = e.Recall != nil && e.Choice == nil && e.FillIn == nil
	case ExerciseMultipleChoice, ExerciseDefinitionMatch:
		ok = e.Choice != nil && e.Recall == nil && e.FillIn == nil
	case ExerciseFillIn:
		ok = e.FillIn != nil && e.Recall == nil && e.Choice == nil
	default:
		return fmt.Errorf("%w: unknown exercise kind %q", ErrInvalidInput, e.Kind)
	}
	if !ok {
		return fmt.Errorf("%w: payload does not match exercise kind %q", ErrInvalidInput, e.Kind)
	}
	if len(e.ExpectedAnswers) == 0 {
		return fmt.Errorf("%w: exercise has no expected answers", ErrInvalidInput)
	}
	return nil
}

// OutcomeResult は採点と記録の結果です。
type OutcomeResult struct {
	ExerciseID   uuid.UUID      `json:"exercise_id"`
	SubmissionID uuid.UUID      `json:"submission_id"`
	Outcome      Outcome        `json:"outcome"`
	Similarity   float64        `json:"similarity"`
	StateBefore  LearningState  `json:"state_before"`
	StateAfter   LearningState  `json:"state_after"`
	Progress     ProgressRecord `json:"progress"`
	Replayed     bool           `json:"replayed"` // 同じ提出の再送で、状態は変更していない
}
