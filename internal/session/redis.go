package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/amishk599/upwatch/internal/model"
)

const keyPrefix = "upwatch:pending:"

var _ model.PendingStore = (*RedisStore)(nil)

// RedisStore keeps pending actions in Redis so several bot instances can share
// a conversation. Keys expire after the configured TTL.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore connects to redisURL and verifies the connection.
func NewRedisStore(ctx context.Context, redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}, nil
}

func key(userID int64) string {
	return keyPrefix + strconv.FormatInt(userID, 10)
}

func (s *RedisStore) Get(ctx context.Context, userID int64) (model.PendingAction, error) {
	raw, err := s.rdb.Get(ctx, key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.PendingAction{}, nil
	}
	if err != nil {
		return model.PendingAction{}, fmt.Errorf("reading pending action for %d: %w", userID, err)
	}

	var action model.PendingAction
	if err := json.Unmarshal(raw, &action); err != nil {
		return model.PendingAction{}, fmt.Errorf("decoding pending action for %d: %w", userID, err)
	}
	return action, nil
}

func (s *RedisStore) Set(ctx context.Context, userID int64, action model.PendingAction) error {
	if action.State == model.PendingNone {
		return s.Clear(ctx, userID)
	}
	raw, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("encoding pending action: %w", err)
	}
	if err := s.rdb.Set(ctx, key(userID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("saving pending action for %d: %w", userID, err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, userID int64) error {
	if err := s.rdb.Del(ctx, key(userID)).Err(); err != nil {
		return fmt.Errorf("clearing pending action for %d: %w", userID, err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
