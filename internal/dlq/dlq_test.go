package dlq

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/telhawk-systems/telhawk-beacon/internal/state"
)

func newTestQueue(t *testing.T) *RedisQueue {
	t.Helper()

	mr := miniredis.RunT(t)
	q, err := NewRedisQueue("redis://"+mr.Addr(), "test", 5, nil)
	if err != nil {
		t.Fatalf("NewRedisQueue() error = %v", err)
	}
	t.Cleanup(func() { q.Close() })
	return q
}

func testRecord(id uint64) state.EntryRecord {
	return state.EntryRecord{
		ID:         id,
		Collection: "PAGEVIEW",
		Payload:    map[string]interface{}{"path": "/broken"},
		CreatedAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Attempts:   3,
		State:      state.EntryPending,
	}
}

func TestWrite_List(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	if err := q.Write(ctx, testRecord(1), "encoding"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := q.Write(ctx, testRecord(2), "retry_exhausted"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	events, err := q.List(ctx, 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}

	if events[0].Entry.ID != 1 || events[0].Reason != "encoding" {
		t.Errorf("events[0] = %+v, want ID 1 reason encoding", events[0])
	}
	if events[1].Entry.ID != 2 || events[1].Reason != "retry_exhausted" {
		t.Errorf("events[1] = %+v, want ID 2 reason retry_exhausted", events[1])
	}
	if events[0].Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", events[0].Attempts)
	}
	if events[0].Timestamp.IsZero() {
		t.Error("Timestamp not set")
	}
}

func TestWrite_CapsLength(t *testing.T) {
	q := newTestQueue(t) // maxLen 5
	ctx := context.Background()

	for i := 1; i <= 8; i++ {
		if err := q.Write(ctx, testRecord(uint64(i)), "capacity"); err != nil {
			t.Fatalf("Write(%d) error = %v", i, err)
		}
	}

	events, err := q.List(ctx, 100)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(events) != 5 {
		t.Fatalf("len(events) = %d, want 5 (capped)", len(events))
	}
	if events[0].Entry.ID != 4 {
		t.Errorf("oldest surviving entry ID = %d, want 4", events[0].Entry.ID)
	}
}

func TestStats(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	if err := q.Write(ctx, testRecord(1), "permanent"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	stats := q.Stats(ctx)
	if stats["backend"] != "redis" {
		t.Errorf("backend = %v, want redis", stats["backend"])
	}
	if stats["written_local"] != uint64(1) {
		t.Errorf("written_local = %v, want 1", stats["written_local"])
	}
	if stats["total_entries"] != int64(1) {
		t.Errorf("total_entries = %v, want 1", stats["total_entries"])
	}
}

func TestPurge(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	if err := q.Write(ctx, testRecord(1), "permanent"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := q.Purge(ctx); err != nil {
		t.Fatalf("Purge() error = %v", err)
	}

	events, err := q.List(ctx, 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(events) != 0 {
		t.Errorf("len(events) = %d after purge, want 0", len(events))
	}
}
