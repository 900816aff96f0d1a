//go:generate mockery --name PendingExerciseStore --output ./mocks --outpkg mocks --case=underscore
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go_5_vocab_practice/internal/model"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// PendingExerciseStore は出題済みで未採点の演習を保持します。
// 演習は永続化しないので、TTL が切れたものは採点できません。
type PendingExerciseStore interface {
	Put(ctx context.Context, exercise *model.Exercise) error
	Get(ctx context.Context, exerciseID uuid.UUID) (*model.Exercise, error)
	Delete(ctx context.Context, exerciseID uuid.UUID) error
}

// --- メモリ実装 ---

type memoryEntry struct {
	exercise  model.Exercise
	expiresAt time.Time
}

type memoryExerciseStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[uuid.UUID]memoryEntry
}

// NewMemoryExerciseStore は単一プロセス用のストアを返します。
func NewMemoryExerciseStore(ttl time.Duration) PendingExerciseStore {
	return newMemoryExerciseStore(ttl, time.Now)
}

func newMemoryExerciseStore(ttl time.Duration, now func() time.Time) *memoryExerciseStore {
	return &memoryExerciseStore{
		ttl:     ttl,
		now:     now,
		entries: make(map[uuid.UUID]memoryEntry),
	}
}

func (s *memoryExerciseStore) Put(ctx context.Context, exercise *model.Exercise) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	// 期限切れの掃除は書き込み時にまとめて行う
	for id, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, id)
		}
	}
	s.entries[exercise.ExerciseID] = memoryEntry{exercise: *exercise, expiresAt: now.Add(s.ttl)}
	return nil
}

func (s *memoryExerciseStore) Get(ctx context.Context, exerciseID uuid.UUID) (*model.Exercise, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[exerciseID]
	if !ok || s.now().After(e.expiresAt) {
		return nil, model.ErrNotFound
	}
	ex := e.exercise
	return &ex, nil
}

func (s *memoryExerciseStore) Delete(ctx context.Context, exerciseID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, exerciseID)
	return nil
}

// --- Redis 実装 ---

type redisExerciseStore struct {
	rdb    goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisExerciseStore は複数プロセスで共有するストアを返します。
func NewRedisExerciseStore(rdb goredis.UniversalClient, prefix string, ttl time.Duration) PendingExerciseStore {
	return &redisExerciseStore{rdb: rdb, prefix: prefix, ttl: ttl}
}

// NewRedisClient は接続確認済みのクライアントを返します。
func NewRedisClient(ctx context.Context, addr string, db int) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func (s *redisExerciseStore) key(id uuid.UUID) string {
	return s.prefix + id.String()
}

func (s *redisExerciseStore) Put(ctx context.Context, exercise *model.Exercise) error {
	raw, err := json.Marshal(exercise)
	if err != nil {
		return fmt.Errorf("redisExerciseStore.Put: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key(exercise.ExerciseID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redisExerciseStore.Put: %w", err)
	}
	return nil
}

func (s *redisExerciseStore) Get(ctx context.Context, exerciseID uuid.UUID) (*model.Exercise, error) {
	raw, err := s.rdb.Get(ctx, s.key(exerciseID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("redisExerciseStore.Get: %w", err)
	}
	var ex model.Exercise
	if err := json.Unmarshal(raw, &ex); err != nil {
		return nil, fmt.Errorf("redisExerciseStore.Get: %w", err)
	}
	return &ex, nil
}

func (s *redisExerciseStore) Delete(ctx context.Context, exerciseID uuid.UUID) error {
	if err := s.rdb.Del(ctx, s.key(exerciseID)).Err(); err != nil {
		return fmt.Errorf("redisExerciseStore.Delete: %w", err)
	}
	return nil
}
