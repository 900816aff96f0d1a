package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o600))
	return dir
}

func TestLoad(t *testing.T) {
	t.Run("正常系: ファイルが無ければ既定値", func(t *testing.T) {
		cfg, err := Load(t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, DefaultAppReviewLimit, cfg.App.ReviewLimit)
		assert.Equal(t, []int{1, 3}, cfg.Scheduler.LearningSteps)
		assert.Equal(t, 24*time.Hour, cfg.Session.ExerciseTTL)
		assert.Equal(t, 20, cfg.Graph.RelationLimit("synonym"))
		assert.Equal(t, 0, cfg.Graph.RelationLimit("quote"))
	})

	t.Run("正常系: YAMLの値で上書き", func(t *testing.T) {
		dir := writeConfig(t, `
app:
  review_limit: 5
scheduler:
  learning_steps: [1, 2, 4]
  ease_initial: 2.0
grading:
  partial_threshold: 0.7
session:
  backend: redis
  redis_addr: "localhost:6379"
  exercise_ttl: 30m
`)
		cfg, err := Load(dir)
		require.NoError(t, err)
		assert.Equal(t, 5, cfg.App.ReviewLimit)
		assert.Equal(t, []int{1, 2, 4}, cfg.Scheduler.LearningSteps)
		assert.InDelta(t, 2.0, cfg.Scheduler.EaseInitial, 1e-9)
		assert.InDelta(t, DefaultEaseFloor, cfg.Scheduler.EaseFloor, 1e-9)
		assert.InDelta(t, 0.7, cfg.Grading.PartialThreshold, 1e-9)
		assert.Equal(t, "redis", cfg.Session.Backend)
		assert.Equal(t, 30*time.Minute, cfg.Session.ExerciseTTL)
	})

	t.Run("正常系: 環境変数で上書き", func(t *testing.T) {
		t.Setenv("APP_APP_REVIEW_LIMIT", "7")
		t.Setenv("DATABASE_URL", "postgres://localhost/vocab")
		cfg, err := Load(t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, 7, cfg.App.ReviewLimit)
		assert.Equal(t, "postgres://localhost/vocab", cfg.Database.URL)
	})

	t.Run("異常系: ease の範囲が不正", func(t *testing.T) {
		dir := writeConfig(t, `
scheduler:
  ease_initial: 3.0
`)
		_, err := Load(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ease")
	})

	t.Run("異常系: redis バックエンドでアドレス未設定", func(t *testing.T) {
		dir := writeConfig(t, `
session:
  backend: redis
`)
		_, err := Load(dir)
		require.Error(t, err)
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "正常系: 既定値は有効", mutate: func(c *Config) {}},
		{name: "異常系: 学習ステップが空", mutate: func(c *Config) { c.Scheduler.LearningSteps = nil }, wantErr: true},
		{name: "異常系: 閾値が1を超える", mutate: func(c *Config) { c.Grading.PartialThreshold = 1.5 }, wantErr: true},
		{name: "異常系: max_hops が default_hops 未満", mutate: func(c *Config) { c.Graph.MaxHops = 1; c.Graph.DefaultHops = 2 }, wantErr: true},
		{name: "異常系: 不明なバックエンド", mutate: func(c *Config) { c.Session.Backend = "memcached" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
