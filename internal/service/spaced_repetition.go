package service

import (
	"math"
	"time"

	"go_5_vocab_practice/internal/config"
	"go_5_vocab_practice/internal/model"
)

// SpacedRepetition は採点結果から次の進捗を計算する純粋な方針です。時刻は asOf だけを使います。
type SpacedRepetition struct {
	cfg config.SchedulerConfig
}

func NewSpacedRepetition(cfg config.SchedulerConfig) *SpacedRepetition {
	return &SpacedRepetition{cfg: cfg}
}

// Apply は rec を変更せず、outcome を反映した新しいレコードを返します。
// Skipped は不正解と同じ扱いです。
func (p *SpacedRepetition) Apply(rec model.ProgressRecord, outcome model.Outcome, asOf time.Time) model.ProgressRecord {
	asOf = asOf.UTC().Truncate(time.Second)
	next := rec
	if next.EaseFactor == 0 {
		next.EaseFactor = p.cfg.EaseInitial
	}
	positive := outcome.IsPositive()

	switch rec.State {
	case model.StateNew:
		next.State = model.StateLearning
		next.RepetitionCount = 1
		next.ConsecutiveCorrect = 0
		if positive {
			next.ConsecutiveCorrect = 1
		}
		next.CurrentIntervalDays = p.cfg.MinIntervalDays

	case model.StateReview:
		if positive {
			next.RepetitionCount++
			next.ConsecutiveCorrect++
			grown := int(math.Round(float64(rec.CurrentIntervalDays) * next.EaseFactor))
			next.CurrentIntervalDays = max(rec.CurrentIntervalDays+1, grown)
			if outcome == model.OutcomeCorrect {
				next.EaseFactor += p.cfg.CorrectEaseBonus
			} else {
				next.EaseFactor += p.cfg.PartialEaseBonus
			}
		} else {
			// 忘却: Learning からやり直す
			next.LapseCount++
			next.EaseFactor -= p.cfg.LapsePenalty
			next.State = model.StateLearning
			next.RepetitionCount = 0
			next.ConsecutiveCorrect = 0
			next.CurrentIntervalDays = p.cfg.MinIntervalDays
		}

	default: // Learning
		next.State = model.StateLearning
		if positive {
			next.RepetitionCount++
			next.ConsecutiveCorrect++
			if next.ConsecutiveCorrect >= p.cfg.GraduationStreak {
				next.State = model.StateReview
			}
			next.CurrentIntervalDays = p.learningStep(next.ConsecutiveCorrect)
		} else {
			next.ConsecutiveCorrect = 0
			next.CurrentIntervalDays = p.cfg.MinIntervalDays
		}
	}

	next.EaseFactor = p.clampEase(next.EaseFactor)
	next.LastReviewedAt = &asOf
	due := asOf.AddDate(0, 0, next.CurrentIntervalDays)
	next.NextDueAt = &due
	return next
}

// IsLapse は rec から outcome への遷移が忘却にあたるかを返します。
func (p *SpacedRepetition) IsLapse(rec model.ProgressRecord, outcome model.Outcome) bool {
	return rec.State == model.StateReview && !outcome.IsPositive()
}

// learningStep は連続正解数に対応する固定間隔です。段を超えたら最後の段を使います。
func (p *SpacedRepetition) learningStep(streak int) int {
	steps := p.cfg.LearningSteps
	if len(steps) == 0 {
		return p.cfg.MinIntervalDays
	}
	i := min(max(streak-1, 0), len(steps)-1)
	return steps[i]
}

func (p *SpacedRepetition) clampEase(ease float64) float64 {
	return math.Min(p.cfg.EaseCeiling, math.Max(p.cfg.EaseFloor, ease))
}
