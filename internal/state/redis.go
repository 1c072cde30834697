package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists pipeline state in Redis under a fixed key
// namespace: beacon:<namespace>:state and beacon:<namespace>:optout.
type RedisStore struct {
	client    *redis.Client
	namespace string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(redisURL, namespace string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	if namespace == "" {
		namespace = "default"
	}

	return &RedisStore{client: client, namespace: namespace}, nil
}

func (s *RedisStore) snapshotKey() string {
	return fmt.Sprintf("beacon:%s:state", s.namespace)
}

func (s *RedisStore) optOutKey() string {
	return fmt.Sprintf("beacon:%s:optout", s.namespace)
}

// LoadSnapshot implements Store.
func (s *RedisStore) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	data, err := s.client.Get(ctx, s.snapshotKey()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// SaveSnapshot implements Store.
func (s *RedisStore) SaveSnapshot(ctx context.Context, snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.snapshotKey(), data, 0).Err(); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// LoadOptOut implements Store.
func (s *RedisStore) LoadOptOut(ctx context.Context) (bool, error) {
	val, err := s.client.Get(ctx, s.optOutKey()).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load optout: %w", err)
	}
	return val == "1", nil
}

// SaveOptOut implements Store.
func (s *RedisStore) SaveOptOut(ctx context.Context, optedOut bool) error {
	val := "0"
	if optedOut {
		val = "1"
	}
	if err := s.client.Set(ctx, s.optOutKey(), val, 0).Err(); err != nil {
		return fmt.Errorf("save optout: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
