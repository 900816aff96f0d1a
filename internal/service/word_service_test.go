package service

import (
	"context"
	"errors"
	"testing"

	"go_5_vocab_practice/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_wordService_AddWord(t *testing.T) {
	ctx := context.Background()
	learner := uuid.New()

	tests := []struct {
		name      string
		req       *model.AddWordRequest
		wantErr   error
		wantField string
	}{
		{
			name: "正常系: 学習者の単語",
			req:  &model.AddWordRequest{LearnerID: &learner, Text: " perro ", Language: "ES", WordType: model.WordTypeNoun},
		},
		{
			name: "正常系: 共有の単語",
			req:  &model.AddWordRequest{Text: "dog", Language: "en", WordType: model.WordTypeNoun},
		},
		{
			name:      "異常系: テキストが空",
			req:       &model.AddWordRequest{LearnerID: &learner, Language: "es", WordType: model.WordTypeNoun},
			wantErr:   model.ErrInvalidInput,
			wantField: "text",
		},
		{
			name:      "異常系: 言語が短すぎる",
			req:       &model.AddWordRequest{LearnerID: &learner, Text: "perro", Language: "e", WordType: model.WordTypeNoun},
			wantErr:   model.ErrInvalidInput,
			wantField: "language",
		},
		{
			name:      "異常系: 品詞が無い",
			req:       &model.AddWordRequest{LearnerID: &learner, Text: "perro", Language: "es"},
			wantErr:   model.ErrInvalidInput,
			wantField: "word_type",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			word, err := env.engine.Words.AddWord(ctx, tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				var appErr *model.AppError
				require.True(t, errors.As(err, &appErr))
				assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
				assert.Equal(t, tt.wantField, appErr.Field)
				assert.NotEmpty(t, appErr.Message)
				return
			}
			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, word.WordID)
			assert.Equal(t, 1, word.Version)

			got, err := env.engine.Words.GetWord(ctx, word.WordID)
			require.NoError(t, err)
			assert.Equal(t, word.Text, got.Text)
			assert.Equal(t, word.Language, got.Language)
			assert.Equal(t, tt.req.LearnerID == nil, got.IsShared())
		})
	}
}

func Test_wordService_GetWord_NotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.engine.Words.GetWord(context.Background(), uuid.New())
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func Test_wordService_ReviseWord(t *testing.T) {
	ctx := context.Background()
	learner := uuid.New()

	t.Run("正常系: 参照されていなければその場で書き換える", func(t *testing.T) {
		env := newTestEnv(t)
		w := env.addWord(t, &learner, "pero", "es", model.WordTypeNoun)

		revised, err := env.engine.Words.ReviseWord(ctx, w.WordID, "perro")
		require.NoError(t, err)
		assert.Equal(t, w.WordID, revised.WordID)
		assert.Equal(t, "perro", revised.Text)
		assert.Equal(t, 1, revised.Version)

		got, err := env.engine.Words.GetWord(ctx, w.WordID)
		require.NoError(t, err)
		assert.Equal(t, "perro", got.Text)
	})

	t.Run("正常系: 参照済みなら新しい版を作り元は残す", func(t *testing.T) {
		env := newTestEnv(t)
		w := env.addTranslated(t, learner, "pero", "dog")

		revised, err := env.engine.Words.ReviseWord(ctx, w.WordID, "perro")
		require.NoError(t, err)
		assert.NotEqual(t, w.WordID, revised.WordID)
		assert.Equal(t, 2, revised.Version)
		require.NotNil(t, revised.PreviousVersionID)
		assert.Equal(t, w.WordID, *revised.PreviousVersionID)
		assert.Equal(t, w.Language, revised.Language)
		assert.Equal(t, w.LearnerID, revised.LearnerID)

		old, err := env.engine.Words.GetWord(ctx, w.WordID)
		require.NoError(t, err)
		assert.Equal(t, "pero", old.Text)
	})

	t.Run("正常系: 同じテキストなら何もしない", func(t *testing.T) {
		env := newTestEnv(t)
		w := env.addTranslated(t, learner, "perro", "dog")

		revised, err := env.engine.Words.ReviseWord(ctx, w.WordID, " perro ")
		require.NoError(t, err)
		assert.Equal(t, w.WordID, revised.WordID)
	})

	t.Run("異常系: 空のテキストと存在しない単語", func(t *testing.T) {
		env := newTestEnv(t)
		w := env.addWord(t, &learner, "perro", "es", model.WordTypeNoun)

		_, err := env.engine.Words.ReviseWord(ctx, w.WordID, "  ")
		assert.ErrorIs(t, err, model.ErrInvalidInput)

		_, err = env.engine.Words.ReviseWord(ctx, uuid.New(), "gato")
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}

func Test_wordService_WordStatus(t *testing.T) {
	ctx := context.Background()
	learner := uuid.New()
	cfg := testConfig()
	cfg.Scheduler.MasteredIntervalDays = 3
	cfg.Scheduler.ProblematicLapses = 1
	env := newTestEnvWith(t, cfg)
	w := env.addWord(t, &learner, "perro", "es", model.WordTypeNoun)

	commit := func(outcome model.Outcome, n int) {
		_, err := env.engine.Progress.Commit(ctx, CommitInput{LearnerID: learner, WordID: w.WordID, Outcome: outcome, AsOf: day(n)})
		require.NoError(t, err)
	}
	status := func() *WordStatus {
		s, err := env.engine.Words.WordStatus(ctx, learner, w.WordID)
		require.NoError(t, err)
		return s
	}

	s := status()
	assert.Equal(t, model.StateNew, s.State)
	assert.Equal(t, model.ActivityInactive, s.Activity)
	assert.False(t, s.Problematic)

	commit(model.OutcomeCorrect, 0)
	assert.Equal(t, model.ActivityActive, status().Activity)

	commit(model.OutcomeCorrect, 1)
	s = status()
	assert.Equal(t, model.StateReview, s.State)
	assert.Equal(t, model.ActivityMastered, s.Activity)

	commit(model.OutcomeIncorrect, 4)
	s = status()
	assert.Equal(t, model.ActivityActive, s.Activity)
	assert.True(t, s.Problematic)
	assert.Equal(t, 1, s.LapseCount)
}
