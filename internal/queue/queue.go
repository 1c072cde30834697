// Package queue holds pending events between ingestion and dispatch.
//
// The queue is the only owner of entry state. Every mutation is written
// through to the durable store so a restarted session resumes where the
// previous one stopped.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/telhawk-systems/telhawk-beacon/internal/backoff"
	"github.com/telhawk-systems/telhawk-beacon/internal/logging"
	"github.com/telhawk-systems/telhawk-beacon/internal/metrics"
	"github.com/telhawk-systems/telhawk-beacon/internal/model"
	"github.com/telhawk-systems/telhawk-beacon/internal/state"
)

// Drop reasons recorded on the diagnostics counters and the drop sink.
const (
	DropReasonEncoding  = "encoding"
	DropReasonPermanent = "permanent"
	DropReasonExhausted = "retry_exhausted"
	DropReasonCapacity  = "capacity"
)

// DropSink receives entries the queue discards. Purely diagnostic;
// nothing written to a sink ever re-enters the queue.
type DropSink interface {
	Write(ctx context.Context, rec state.EntryRecord, reason string) error
}

// Config tunes the queue's batching, capacity, and retry policy.
type Config struct {
	// BatchSize is the pending-entry count that makes a flush ready.
	BatchSize int

	// Linger is the maximum time the oldest eligible pending entry
	// waits before a flush becomes ready regardless of batch size.
	Linger time.Duration

	// MaxEntries bounds the queue. Beyond it the oldest pending
	// entries are evicted: recency over completeness.
	MaxEntries int

	// RetryCeiling is the attempt count after which a transient
	// failure is treated as final and the entry is dropped.
	RetryCeiling int

	// BackoffBase and BackoffCap shape the retry delay curve.
	BackoffBase time.Duration
	BackoffCap  time.Duration
}

// Stats is a point-in-time diagnostic summary.
type Stats struct {
	Pending   int
	InFlight  int
	Delivered uint64
	Dropped   uint64
	Evicted   uint64
}

// Queue is the ordered buffer of pending events.
type Queue struct {
	mu      sync.Mutex
	cfg     Config
	store   state.Store
	sink    DropSink
	log     *logging.Logger
	entries []*Entry // ID order; pending and in-flight only
	seq     uint64
	bootAt  time.Time

	delivered uint64
	dropped   uint64
	evicted   uint64

	flushCh chan struct{}
	now     func() time.Time
}

// New creates an empty queue. sink may be nil.
func New(cfg Config, store state.Store, sink DropSink, log *logging.Logger) *Queue {
	if log == nil {
		log = logging.Discard()
	}
	return &Queue{
		cfg:     cfg,
		store:   store,
		sink:    sink,
		log:     log.With(logging.Component("queue")),
		flushCh: make(chan struct{}, 1),
		now:     time.Now,
	}
}

// Restore rebuilds the queue from the persisted snapshot. Entries that
// were in flight when the previous session died re-enter as pending so
// each is dispatched exactly once.
func (q *Queue) Restore(ctx context.Context) error {
	snap, err := q.store.LoadSnapshot(ctx)
	if err != nil {
		return err
	}
	if snap == nil {
		return nil
	}

	q.mu.Lock()
	q.seq = snap.SequenceCounter
	q.bootAt = snap.BootCompletedAt
	q.entries = q.entries[:0]
	for _, rec := range snap.Entries {
		q.entries = append(q.entries, entryFromRecord(rec))
	}
	restored := len(q.entries)
	metrics.QueueDepth.Set(float64(restored))
	q.mu.Unlock()

	if restored > 0 {
		q.log.Info("restored persisted queue", "entries", restored, "sequence", snap.SequenceCounter)
		q.signalFlush()
	}
	return nil
}

// Enqueue creates a pending entry for a new event and persists it.
// Never blocks on the network path; the only I/O is the snapshot write.
func (q *Queue) Enqueue(ctx context.Context, collection string, payload, ctxSnap map[string]interface{}) *Entry {
	q.mu.Lock()

	q.evictLocked(ctx)

	q.seq++
	entry := &Entry{
		Event: &model.Event{
			ID:         q.seq,
			Collection: collection,
			Payload:    payload,
			Context:    ctxSnap,
			CreatedAt:  q.now(),
		},
		State: StatePending,
	}
	q.entries = append(q.entries, entry)
	metrics.QueueDepth.Set(float64(len(q.entries)))

	q.persistLocked(ctx)
	ready := q.readyLocked()
	q.mu.Unlock()

	metrics.EventsRecorded.WithLabelValues(collection).Inc()
	if ready {
		q.signalFlush()
	}
	return entry
}

// NextBatch selects up to maxSize eligible pending entries in strict ID
// order, marks them in flight, and counts the attempt. Returns an empty
// batch when nothing is eligible.
func (q *Queue) NextBatch(ctx context.Context, maxSize int) []*Entry {
	if maxSize <= 0 {
		return nil
	}

	now := q.now()

	q.mu.Lock()
	defer q.mu.Unlock()

	var batch []*Entry
	for _, e := range q.entries {
		if len(batch) >= maxSize {
			break
		}
		if e.State != StatePending || e.NextEligibleAt.After(now) {
			continue
		}
		e.State = StateInFlight
		e.Attempts++
		batch = append(batch, e)
	}

	if len(batch) > 0 {
		q.persistLocked(ctx)
	}
	return batch
}

// Complete returns ownership of a borrowed entry with its attempt
// outcome. reason labels drops on the diagnostics counters.
func (q *Queue) Complete(ctx context.Context, id uint64, outcome Outcome, reason string) {
	q.mu.Lock()

	idx := -1
	for i, e := range q.entries {
		if e.Event.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		q.mu.Unlock()
		return
	}
	entry := q.entries[idx]
	if entry.State != StateInFlight {
		q.mu.Unlock()
		return
	}

	switch outcome {
	case OutcomeAck:
		entry.State = StateDone
		q.removeLocked(idx)
		q.delivered++
		metrics.EntriesDelivered.Inc()
		q.persistLocked(ctx)
		q.mu.Unlock()
		return

	case OutcomeRetry:
		if entry.Attempts >= q.cfg.RetryCeiling {
			// Ceiling reached: the retry is forced into a drop.
			q.dropLocked(ctx, idx, DropReasonExhausted)
			q.persistLocked(ctx)
			q.mu.Unlock()
			return
		}
		entry.State = StatePending
		entry.NextEligibleAt = q.now().Add(backoff.Next(q.cfg.BackoffBase, q.cfg.BackoffCap, entry.Attempts))
		q.persistLocked(ctx)
		q.mu.Unlock()
		metrics.EntriesRetried.Inc()
		return

	case OutcomeDrop:
		if reason == "" {
			reason = DropReasonPermanent
		}
		q.dropLocked(ctx, idx, reason)
		q.persistLocked(ctx)
		q.mu.Unlock()
		return
	}

	q.mu.Unlock()
}

// Ready reports whether a flush should fire: the pending count reached
// the batch threshold, or the oldest eligible pending entry outwaited
// the linger window.
func (q *Queue) Ready() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.readyLocked()
}

// Flushes signals when enqueue or restore makes a flush ready. The pump
// drains this alongside its linger ticker.
func (q *Queue) Flushes() <-chan struct{} {
	return q.flushCh
}

// PendingCount returns the number of pending entries.
func (q *Queue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for _, e := range q.entries {
		if e.State == StatePending {
			n++
		}
	}
	return n
}

// Stats returns a diagnostic summary.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	s := Stats{Delivered: q.delivered, Dropped: q.dropped, Evicted: q.evicted}
	for _, e := range q.entries {
		switch e.State {
		case StatePending:
			s.Pending++
		case StateInFlight:
			s.InFlight++
		}
	}
	return s
}

// SetBootCompleted stamps the boot marker into the persisted snapshot.
func (q *Queue) SetBootCompleted(ctx context.Context, at time.Time) {
	q.mu.Lock()
	q.bootAt = at
	q.persistLocked(ctx)
	q.mu.Unlock()
}

// Persist forces a snapshot write. Used at shutdown.
func (q *Queue) Persist(ctx context.Context) {
	q.mu.Lock()
	q.persistLocked(ctx)
	q.mu.Unlock()
}

func (q *Queue) readyLocked() bool {
	now := q.now()
	eligible := 0
	var oldest time.Time

	for _, e := range q.entries {
		if e.State != StatePending || e.NextEligibleAt.After(now) {
			continue
		}
		eligible++
		if oldest.IsZero() || e.Event.CreatedAt.Before(oldest) {
			oldest = e.Event.CreatedAt
		}
	}

	if eligible == 0 {
		return false
	}
	if eligible >= q.cfg.BatchSize {
		return true
	}
	return now.Sub(oldest) >= q.cfg.Linger
}

// evictLocked makes room for one more entry by discarding the oldest
// pending entries. In-flight entries are never evicted.
func (q *Queue) evictLocked(ctx context.Context) {
	if q.cfg.MaxEntries <= 0 {
		return
	}
	for len(q.entries) >= q.cfg.MaxEntries {
		idx := -1
		for i, e := range q.entries {
			if e.State == StatePending {
				idx = i
				break
			}
		}
		if idx < 0 {
			return
		}
		evicted := q.entries[idx]
		q.dropLocked(ctx, idx, DropReasonCapacity)
		q.evicted++
		metrics.QueueEvictions.Inc()
		q.log.Warn("queue at capacity, evicted oldest pending entry",
			logging.EventID(evicted.Event.ID), logging.Collection(evicted.Event.Collection))
	}
}

// dropLocked removes entry idx, counts the drop, and hands the entry to
// the sink. Callers persist afterwards.
func (q *Queue) dropLocked(ctx context.Context, idx int, reason string) {
	entry := q.entries[idx]
	entry.State = StateDropped
	q.removeLocked(idx)
	q.dropped++
	metrics.EntriesDropped.WithLabelValues(reason).Inc()

	q.log.Debug("dropped entry",
		logging.EventID(entry.Event.ID), logging.Attempts(entry.Attempts), "reason", reason)

	if q.sink != nil {
		if err := q.sink.Write(ctx, entry.record(), reason); err != nil {
			q.log.Warn("drop sink write failed", logging.Error(err))
		}
	}
}

func (q *Queue) removeLocked(idx int) {
	q.entries = append(q.entries[:idx], q.entries[idx+1:]...)
	metrics.QueueDepth.Set(float64(len(q.entries)))
}

// persistTimeout bounds one snapshot write. Enqueue runs on the
// producer's goroutine, so a stalled store must not hold it for the
// full client timeout.
const persistTimeout = time.Second

// persistLocked writes the snapshot through to the store. Persistence
// failures degrade to in-memory operation; telemetry never takes the
// host down.
func (q *Queue) persistLocked(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()

	snap := &state.Snapshot{
		Entries:         make([]state.EntryRecord, 0, len(q.entries)),
		SequenceCounter: q.seq,
		BootCompletedAt: q.bootAt,
	}
	for _, e := range q.entries {
		snap.Entries = append(snap.Entries, e.record())
	}

	if err := q.store.SaveSnapshot(ctx, snap); err != nil {
		metrics.PersistErrors.Inc()
		q.log.Warn("snapshot write failed", logging.Error(err))
	}
}

func (q *Queue) signalFlush() {
	select {
	case q.flushCh <- struct{}{}:
	default:
	}
}
