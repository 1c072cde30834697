package dlq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/telhawk-systems/telhawk-beacon/internal/logging"
	"github.com/telhawk-systems/telhawk-beacon/internal/state"
)

// RedisQueue keeps dropped events in a capped Redis list under
// beacon:<namespace>:dlq.
type RedisQueue struct {
	client    *redis.Client
	namespace string
	maxLen    int64
	log       *logging.Logger
	written   uint64
}

// NewRedisQueue creates a DLQ on an existing Redis connection. maxLen
// caps the list; older entries fall off first.
func NewRedisQueue(redisURL, namespace string, maxLen int64, log *logging.Logger) (*RedisQueue, error) {
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
	if maxLen <= 0 {
		maxLen = 1000
	}
	if log == nil {
		log = logging.Discard()
	}

	return &RedisQueue{
		client:    client,
		namespace: namespace,
		maxLen:    maxLen,
		log:       log.With(logging.Component("dlq")),
	}, nil
}

func (q *RedisQueue) key() string {
	return fmt.Sprintf("beacon:%s:dlq", q.namespace)
}

// Write implements Writer.
func (q *RedisQueue) Write(ctx context.Context, rec state.EntryRecord, reason string) error {
	if q == nil {
		return nil
	}

	dropped := DroppedEvent{
		Timestamp: time.Now().UTC(),
		Reason:    reason,
		Attempts:  rec.Attempts,
		Entry:     rec,
	}

	data, err := json.Marshal(dropped)
	if err != nil {
		return fmt.Errorf("marshal dlq entry: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.RPush(ctx, q.key(), data)
	pipe.LTrim(ctx, q.key(), -q.maxLen, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish dlq entry: %w", err)
	}

	atomic.AddUint64(&q.written, 1)
	q.log.Debug("recorded dropped event", logging.EventID(rec.ID), "reason", reason)
	return nil
}

// List returns up to limit dropped events, oldest first.
func (q *RedisQueue) List(ctx context.Context, limit int) ([]DroppedEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	raw, err := q.client.LRange(ctx, q.key(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read dlq: %w", err)
	}

	events := make([]DroppedEvent, 0, len(raw))
	for _, item := range raw {
		var dropped DroppedEvent
		if err := json.Unmarshal([]byte(item), &dropped); err != nil {
			q.log.Warn("skipping unparseable dlq entry", logging.Error(err))
			continue
		}
		events = append(events, dropped)
	}
	return events, nil
}

// Stats returns DLQ metrics.
func (q *RedisQueue) Stats(ctx context.Context) map[string]interface{} {
	stats := map[string]interface{}{
		"backend":       "redis",
		"written_local": atomic.LoadUint64(&q.written),
	}

	length, err := q.client.LLen(ctx, q.key()).Result()
	if err != nil {
		stats["error"] = err.Error()
		return stats
	}
	stats["total_entries"] = length
	return stats
}

// Purge removes all dropped events.
func (q *RedisQueue) Purge(ctx context.Context) error {
	if err := q.client.Del(ctx, q.key()).Err(); err != nil {
		return fmt.Errorf("purge dlq: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (q *RedisQueue) Close() error {
	return q.client.Close()
}
