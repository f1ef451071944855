package interview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	liveKeyPrefix = "interview:live:"
	lockKeyPrefix = "interview:lock:"
)

// RedisStore keeps live sessions in Redis so several API instances can serve one interview.
// Idle sessions expire through the key TTL, refreshed on every read and write.
type RedisStore struct {
	rdb     *redis.Client
	idle    time.Duration
	lockTTL time.Duration
}

// NewRedisStore wraps a client. lockTTL bounds how long a crashed turn can hold a session.
func NewRedisStore(rdb *redis.Client, idle, lockTTL time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, idle: idle, lockTTL: lockTTL}
}

func liveKey(id uuid.UUID) string { return liveKeyPrefix + id.String() }
func lockKey(id uuid.UUID) string { return lockKeyPrefix + id.String() }

func (s *RedisStore) Load(ctx context.Context, id uuid.UUID) (Live, error) {
	data, err := s.rdb.GetEx(ctx, liveKey(id), s.idle).Bytes()
	if errors.Is(err, redis.Nil) {
		return Live{}, ErrNotCached
	}
	if err != nil {
		return Live{}, fmt.Errorf("redis get live session: %w", err)
	}
	var live Live
	if err := json.Unmarshal(data, &live); err != nil {
		return Live{}, fmt.Errorf("decode live session: %w", err)
	}
	return live, nil
}

func (s *RedisStore) Save(ctx context.Context, live Live) error {
	data, err := json.Marshal(live)
	if err != nil {
		return fmt.Errorf("encode live session: %w", err)
	}
	if err := s.rdb.Set(ctx, liveKey(live.ID), data, s.idle).Err(); err != nil {
		return fmt.Errorf("redis set live session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.rdb.Del(ctx, liveKey(id), lockKey(id)).Err(); err != nil {
		return fmt.Errorf("redis delete live session: %w", err)
	}
	return nil
}

func (s *RedisStore) Lock(ctx context.Context, id uuid.UUID) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, lockKey(id), "evaluating", s.lockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("redis lock session: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) Unlock(ctx context.Context, id uuid.UUID) error {
	if err := s.rdb.Del(ctx, lockKey(id)).Err(); err != nil {
		return fmt.Errorf("redis unlock session: %w", err)
	}
	return nil
}
