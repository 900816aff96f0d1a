package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go_5_vocab_practice/internal/model"
	"go_5_vocab_practice/internal/repository/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// addTranslated は学習者の単語と共有の訳語を作り、翻訳で結びます。
func (e *testEnv) addTranslated(t *testing.T, learnerID uuid.UUID, text, translation string) *model.Word {
	t.Helper()
	w := e.addWord(t, &learnerID, text, "es", model.WordTypeNoun)
	tr := e.addWord(t, nil, translation, "en", model.WordTypeNoun)
	e.relate(t, w, tr, model.RelationTranslation)
	return w
}

func exerciseWordIDs(exercises []*model.Exercise) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(exercises))
	for _, ex := range exercises {
		out = append(out, ex.WordID)
	}
	return out
}

func Test_scheduler_PerroScenario(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	learner := uuid.New()
	perro := env.addTranslated(t, learner, "perro", "dog")

	answer := func(asOf time.Time, text string) *model.OutcomeResult {
		t.Helper()
		batch, err := env.engine.Scheduler.NextBatch(ctx, learner, asOf, 10)
		require.NoError(t, err)
		require.Len(t, batch, 1)
		require.Equal(t, perro.WordID, batch[0].WordID)
		res, err := env.engine.Outcomes.Submit(ctx, SubmitInput{
			LearnerID:    learner,
			ExerciseID:   batch[0].ExerciseID,
			SubmissionID: uuid.New(),
			Answer:       text,
			AsOf:         asOf,
		})
		require.NoError(t, err)
		return res
	}

	// 1日目: 正解で Learning、翌日に再出題
	res := answer(day(0), "dog")
	assert.Equal(t, model.OutcomeCorrect, res.Outcome)
	assert.Equal(t, model.StateNew, res.StateBefore)
	assert.Equal(t, model.StateLearning, res.StateAfter)
	assert.True(t, day(1).Equal(*res.Progress.NextDueAt))

	batch, err := env.engine.Scheduler.NextBatch(ctx, learner, day(0).Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, batch, "期限前は出題しない")

	// 2日目: 2回連続の正解で Review
	res = answer(day(1), "Dog")
	assert.Equal(t, model.OutcomeCorrect, res.Outcome)
	assert.Equal(t, model.StateReview, res.StateAfter)
	assert.GreaterOrEqual(t, res.Progress.CurrentIntervalDays, 3)
	assert.LessOrEqual(t, res.Progress.CurrentIntervalDays, 6)

	// 期限の日: 不正解で忘却
	due := *res.Progress.NextDueAt
	res = answer(due, "cat")
	assert.Equal(t, model.OutcomeIncorrect, res.Outcome)
	assert.Equal(t, model.StateReview, res.StateBefore)
	assert.Equal(t, model.StateLapsed, res.StateAfter)
	assert.Equal(t, model.StateLearning, res.Progress.State)
	assert.Equal(t, 1, res.Progress.LapseCount)
	assert.Equal(t, 1, res.Progress.CurrentIntervalDays)

	history, err := env.engine.Outcomes.History(ctx, learner, perro.WordID, 0)
	require.NoError(t, err)
	assert.Len(t, history, 3)
}

func Test_scheduler_NextBatch(t *testing.T) {
	ctx := context.Background()
	learner := uuid.New()

	t.Run("正常系: 期限切れを先に、未学習で埋める", func(t *testing.T) {
		env := newTestEnv(t)
		fresh := env.addTranslated(t, learner, "gato", "cat")
		env.addWord(t, &learner, "solo", "es", model.WordTypeAdjective) // 関連が無いので飛ばす
		dueWord := env.addTranslated(t, learner, "casa", "house")
		_, err := env.engine.Progress.Commit(ctx, CommitInput{LearnerID: learner, WordID: dueWord.WordID, Outcome: model.OutcomeCorrect, AsOf: day(-1)})
		require.NoError(t, err)

		batch, err := env.engine.Scheduler.NextBatch(ctx, learner, day(0), 10)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{dueWord.WordID, fresh.WordID}, exerciseWordIDs(batch))

		for _, ex := range batch {
			assert.Equal(t, day(0), ex.CreatedAt)
			stored, err := env.store.Get(ctx, ex.ExerciseID)
			require.NoError(t, err, "出題した演習は採点待ちとして保存される")
			assert.Equal(t, ex.WordID, stored.WordID)
		}
		assert.Equal(t, model.StateLearning, batch[0].Progress.State)
		assert.Equal(t, model.StateNew, batch[1].Progress.State)
	})

	t.Run("正常系: 演習を作れない古い単語があっても件数まで埋める", func(t *testing.T) {
		env := newTestEnv(t)
		env.addWord(t, &learner, "solo", "es", model.WordTypeAdjective)
		gato := env.addWord(t, &learner, "gato", "es", model.WordTypeNoun)
		example := env.addWord(t, &learner, "Los gatos duermen.", "es", model.WordTypeUsageExample)
		env.relate(t, gato, example, model.RelationUsageExample) // 例文に gato が現れないので演習にならない
		perro := env.addTranslated(t, learner, "perro", "dog")
		casa := env.addTranslated(t, learner, "casa", "house")

		batch, err := env.engine.Scheduler.NextBatch(ctx, learner, day(0), 1)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{perro.WordID}, exerciseWordIDs(batch))

		batch, err = env.engine.Scheduler.NextBatch(ctx, learner, day(0), 2)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{perro.WordID, casa.WordID}, exerciseWordIDs(batch))
	})

	t.Run("正常系: limit が0以下なら設定の件数", func(t *testing.T) {
		cfg := testConfig()
		cfg.App.ReviewLimit = 2
		env := newTestEnvWith(t, cfg)
		for _, pair := range [][2]string{{"uno", "one"}, {"dos", "two"}, {"tres", "three"}} {
			env.addTranslated(t, learner, pair[0], pair[1])
		}

		batch, err := env.engine.Scheduler.NextBatch(ctx, learner, day(0), 0)
		require.NoError(t, err)
		assert.Len(t, batch, 2)
	})

	t.Run("正常系: 他の学習者の単語は出題しない", func(t *testing.T) {
		env := newTestEnv(t)
		env.addTranslated(t, uuid.New(), "árbol", "tree")

		batch, err := env.engine.Scheduler.NextBatch(ctx, learner, day(0), 10)
		require.NoError(t, err)
		assert.Empty(t, batch)
	})

	t.Run("異常系: キャンセル済みのコンテキスト", func(t *testing.T) {
		env := newTestEnv(t)
		env.addTranslated(t, learner, "gato", "cat")
		canceled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := env.engine.Scheduler.NextBatch(canceled, learner, day(0), 10)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("異常系: 採点待ちの保存に失敗", func(t *testing.T) {
		db := setupTestDB(t)
		cfg := testConfig()
		store := mocks.NewPendingExerciseStore(t)
		storeErr := errors.New("store unavailable")
		store.On("Put", mock.Anything, mock.AnythingOfType("*model.Exercise")).Return(storeErr).Once()
		env := &testEnv{db: db, cfg: cfg, store: store, engine: NewEngine(db, store, cfg)}
		env.addTranslated(t, learner, "gato", "cat")

		_, err := env.engine.Scheduler.NextBatch(ctx, learner, day(0), 10)
		assert.ErrorIs(t, err, storeErr)
	})
}

func Test_scheduler_NextCollectionBatch(t *testing.T) {
	ctx := context.Background()
	learner := uuid.New()
	env := newTestEnv(t)

	a := env.addTranslated(t, learner, "manzana", "apple")
	b := env.addTranslated(t, learner, "pera", "pear")
	c := env.addTranslated(t, learner, "uva", "grape")
	env.addTranslated(t, learner, "coche", "car") // コレクション外

	coll, err := env.engine.Collections.Create(ctx, &model.CreateCollectionRequest{LearnerID: learner, Name: "frutas"})
	require.NoError(t, err)
	for _, w := range []*model.Word{c, a, b} {
		_, err := env.engine.Collections.AddWord(ctx, learner, coll.CollectionID, w.WordID)
		require.NoError(t, err)
	}

	t.Run("正常系: 未学習はコレクションの並び順", func(t *testing.T) {
		batch, err := env.engine.Scheduler.NextCollectionBatch(ctx, learner, coll.CollectionID, day(0), 10)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{c.WordID, a.WordID, b.WordID}, exerciseWordIDs(batch))

		batch, err = env.engine.Scheduler.NextCollectionBatch(ctx, learner, coll.CollectionID, day(0), 2)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{c.WordID, a.WordID}, exerciseWordIDs(batch))
	})

	t.Run("正常系: 期限切れのメンバーが先", func(t *testing.T) {
		_, err := env.engine.Progress.Commit(ctx, CommitInput{LearnerID: learner, WordID: b.WordID, Outcome: model.OutcomeCorrect, AsOf: day(-1)})
		require.NoError(t, err)

		batch, err := env.engine.Scheduler.NextCollectionBatch(ctx, learner, coll.CollectionID, day(0), 10)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{b.WordID, c.WordID, a.WordID}, exerciseWordIDs(batch))
	})

	t.Run("正常系: 演習を作れないメンバーは飛ばして並び順で埋める", func(t *testing.T) {
		env := newTestEnv(t)
		solo := env.addWord(t, &learner, "solo", "es", model.WordTypeAdjective)
		x := env.addTranslated(t, learner, "rojo", "red")
		y := env.addTranslated(t, learner, "azul", "blue")
		colores, err := env.engine.Collections.Create(ctx, &model.CreateCollectionRequest{LearnerID: learner, Name: "colores"})
		require.NoError(t, err)
		for _, w := range []*model.Word{solo, y, x} {
			_, err := env.engine.Collections.AddWord(ctx, learner, colores.CollectionID, w.WordID)
			require.NoError(t, err)
		}

		batch, err := env.engine.Scheduler.NextCollectionBatch(ctx, learner, colores.CollectionID, day(0), 1)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{y.WordID}, exerciseWordIDs(batch))
	})

	t.Run("正常系: メンバーがいなければ空", func(t *testing.T) {
		empty, err := env.engine.Collections.Create(ctx, &model.CreateCollectionRequest{LearnerID: learner, Name: "vacía"})
		require.NoError(t, err)
		batch, err := env.engine.Scheduler.NextCollectionBatch(ctx, learner, empty.CollectionID, day(0), 10)
		require.NoError(t, err)
		assert.Empty(t, batch)
	})

	t.Run("異常系: 存在しないか他の学習者のコレクション", func(t *testing.T) {
		_, err := env.engine.Scheduler.NextCollectionBatch(ctx, learner, uuid.New(), day(0), 10)
		assert.ErrorIs(t, err, model.ErrNotFound)

		_, err = env.engine.Scheduler.NextCollectionBatch(ctx, uuid.New(), coll.CollectionID, day(0), 10)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}
