package repository

import (
	"fmt"
	"testing"
	"time"

	"go_5_vocab_practice/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB はテストごとに独立したインメモリ SQLite を用意します。
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent), // テスト中はログを抑制
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, AutoMigrate(db))
	return db
}

var baseTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func newWord(learnerID *uuid.UUID, text, lang string, wt model.WordType, createdAt time.Time) *model.Word {
	return &model.Word{
		WordID:    uuid.New(),
		LearnerID: learnerID,
		Text:      text,
		Language:  lang,
		WordType:  wt,
		Version:   1,
		CreatedAt: createdAt,
	}
}
