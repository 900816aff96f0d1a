//go:build integration

package repository

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"testing"
	"time"

	"go_5_vocab_practice/internal/model"

	"github.com/google/uuid"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var pgDB *gorm.DB

func TestMain(m *testing.M) {
	testLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Fatalf("Could not construct pool: %s", err)
	}
	pool.MaxWait = 120 * time.Second

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "15-alpine",
		Env: []string{
			"POSTGRES_USER=user",
			"POSTGRES_PASSWORD=secret",
			"POSTGRES_DB=vocab_practice",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		log.Fatalf("Could not start PostgreSQL resource: %s", err)
	}

	databaseURL := fmt.Sprintf("postgres://user:secret@%s/vocab_practice?sslmode=disable", resource.GetHostPort("5432/tcp"))
	testLogger.Info("PostgreSQL container started", slog.String("host_port", resource.GetHostPort("5432/tcp")))

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := pool.Retry(func() error {
		var openErr error
		pgDB, openErr = NewDB(databaseURL, quiet)
		return openErr
	}); err != nil {
		_ = pool.Purge(resource)
		log.Fatalf("Could not connect to PostgreSQL: %s", err)
	}
	if err := AutoMigrate(pgDB); err != nil {
		_ = pool.Purge(resource)
		log.Fatalf("Could not migrate: %s", err)
	}

	code := m.Run()

	if err := pool.Purge(resource); err != nil {
		log.Printf("Could not purge resource: %s", err)
	}
	os.Exit(code)
}

func TestPostgres_UniqueViolationIsConflict(t *testing.T) {
	ctx := context.Background()
	edges := NewGormEdgeRepository()
	a, b := uuid.New(), uuid.New()
	e := &model.RelationEdge{EdgeID: uuid.New(), SourceWordID: a, TargetWordID: b, Kind: model.RelationAntonym}
	e.Normalize()
	require.NoError(t, edges.Create(ctx, pgDB, e))

	dup := *e
	dup.EdgeID = uuid.New()
	err := edges.Create(ctx, pgDB, &dup)
	assert.ErrorIs(t, err, model.ErrConflict)
}

func TestPostgres_ProgressCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	words := NewGormWordRepository()
	progress := NewGormProgressRepository()
	learnerID := uuid.New()

	w := newWord(&learnerID, "perro", "es", model.WordTypeNoun, baseTime)
	require.NoError(t, words.Create(ctx, pgDB, w))

	due := baseTime.Add(24 * time.Hour)
	rec := model.NewProgressRecord(learnerID, w.WordID, 2.5)
	rec.State = model.StateLearning
	rec.NextDueAt = &due
	rec.Version = 1
	require.NoError(t, progress.Create(ctx, pgDB, rec))

	err := progress.Create(ctx, pgDB, rec)
	assert.ErrorIs(t, err, model.ErrConflict)

	ok, err := progress.UpdateIfVersion(ctx, pgDB, rec, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = progress.UpdateIfVersion(ctx, pgDB, rec, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := progress.FindDue(ctx, pgDB, DueFilter{LearnerID: learnerID, AsOf: due, Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "perro", got[0].Word.Text)
}
