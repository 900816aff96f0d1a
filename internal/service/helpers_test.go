package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go_5_vocab_practice/internal/config"
	"go_5_vocab_practice/internal/model"
	"go_5_vocab_practice/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB はテストごとに独立したインメモリ SQLite を用意します。
// 接続は1本なので、トランザクション中に外側の db を使うとデッドロックします。
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, repository.AutoMigrate(db))
	return db
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Exercise.RandomSeed = 42
	return &cfg
}

// day0 は 2024-03-01 09:00 UTC です。
var day0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func day(n int) time.Time {
	return day0.AddDate(0, 0, n)
}

type testEnv struct {
	db     *gorm.DB
	cfg    *config.Config
	store  repository.PendingExerciseStore
	engine *Engine
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWith(t, testConfig())
}

func newTestEnvWith(t *testing.T, cfg *config.Config) *testEnv {
	t.Helper()
	db := setupTestDB(t)
	store := repository.NewMemoryExerciseStore(time.Hour)
	return &testEnv{db: db, cfg: cfg, store: store, engine: NewEngine(db, store, cfg)}
}

// addWord は学習者 learnerID (nil なら共有) の単語を追加します。
// 作成日時は追加順に1分ずつずらし、未学習の単語の並びを固定します。
func (e *testEnv) addWord(t *testing.T, learnerID *uuid.UUID, text, lang string, wt model.WordType) *model.Word {
	t.Helper()
	var count int64
	require.NoError(t, e.db.Model(&model.Word{}).Count(&count).Error)
	w := &model.Word{
		LearnerID: learnerID,
		Text:      text,
		Language:  lang,
		WordType:  wt,
		CreatedAt: day0.Add(time.Duration(count) * time.Minute),
	}
	require.NoError(t, e.engine.Graph.AddWord(context.Background(), w))
	return w
}

func (e *testEnv) relate(t *testing.T, source, target *model.Word, kind model.RelationKind) {
	t.Helper()
	require.NoError(t, e.engine.Relations.AddRelation(context.Background(), &model.RelationEdge{
		SourceWordID: source.WordID,
		TargetWordID: target.WordID,
		Kind:         kind,
	}))
}

func (e *testEnv) countEdges(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, e.db.Model(&model.RelationEdge{}).Count(&count).Error)
	return count
}

func wordTextsOf(words []model.Word) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		out = append(out, w.Text)
	}
	return out
}
