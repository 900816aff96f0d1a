package repository

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"go_5_vocab_practice/internal/model"

	slogGorm "github.com/orandin/slog-gorm" // slogGormはエイリアス
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Models はマイグレーション対象のモデルです。
var Models = []any{
	&model.Word{},
	&model.RelationEdge{},
	&model.Collection{},
	&model.ProgressRecord{},
	&model.ExerciseSubmission{},
}

// dialectorFor は URL のスキームからドライバを選びます。
// "sqlite:" 接頭辞 (またはファイルパス) は SQLite、それ以外は PostgreSQL。
func dialectorFor(databaseURL string) gorm.Dialector {
	switch {
	case strings.HasPrefix(databaseURL, "sqlite:"):
		return sqlite.Open(strings.TrimPrefix(databaseURL, "sqlite:"))
	case strings.HasPrefix(databaseURL, "file:"), databaseURL == ":memory:":
		return sqlite.Open(databaseURL)
	default:
		return postgres.Open(databaseURL)
	}
}

func isSQLite(databaseURL string) bool {
	return strings.HasPrefix(databaseURL, "sqlite:") || strings.HasPrefix(databaseURL, "file:") || databaseURL == ":memory:"
}

// NewDB は slog-gorm をロガーにした gorm.DB を返します。
func NewDB(databaseURL string, appLogger *slog.Logger) (*gorm.DB, error) {
	var gormLogLevel gormlogger.LogLevel
	if strings.ToLower(os.Getenv("APP_ENV")) == "dev" {
		gormLogLevel = gormlogger.Info
	} else {
		gormLogLevel = gormlogger.Warn
	}

	slogGormLogger := slogGorm.New(
		slogGorm.WithHandler(appLogger.Handler()),
		slogGorm.WithTraceAll(),
		slogGorm.WithSlowThreshold(500*time.Millisecond), // 遅いクエリの閾値
	)

	db, err := gorm.Open(dialectorFor(databaseURL), &gorm.Config{
		Logger:         slogGormLogger.LogMode(gormLogLevel),
		TranslateError: true, // 一意制約違反を gorm.ErrDuplicatedKey に変換
	})
	if err != nil {
		appLogger.Error("Failed to connect to database with GORM", slog.Any("error", err))
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		appLogger.Error("Error getting underlying sql.DB from GORM", slog.Any("error", err))
		return nil, err
	}

	if err = sqlDB.Ping(); err != nil {
		appLogger.Error("Error pinging database", slog.Any("error", err))
		sqlDB.Close()
		return nil, err
	}

	if isSQLite(databaseURL) {
		// SQLite は書き込みが単一接続なので、プールを1本にしてロック待ちを避ける
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	appLogger.Info("Database connection established with GORM", slog.String("dialect", db.Dialector.Name()))
	return db, nil
}

// AutoMigrate はテーブルとインデックスを作成します。
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("repository.AutoMigrate: %w", err)
	}
	return nil
}
