package beacon

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/telhawk-systems/telhawk-beacon/config"
	"github.com/telhawk-systems/telhawk-beacon/internal/dispatch"
	"github.com/telhawk-systems/telhawk-beacon/internal/dlq"
	"github.com/telhawk-systems/telhawk-beacon/internal/gate"
	"github.com/telhawk-systems/telhawk-beacon/internal/logging"
	"github.com/telhawk-systems/telhawk-beacon/internal/metrics"
	"github.com/telhawk-systems/telhawk-beacon/internal/model"
	"github.com/telhawk-systems/telhawk-beacon/internal/queue"
	"github.com/telhawk-systems/telhawk-beacon/internal/state"
	"github.com/telhawk-systems/telhawk-beacon/internal/transport"
)

// Phase is the pipeline lifecycle state. The opt-out gate is orthogonal
// to the phase: a pipeline can be Active and opted out at once.
type Phase int32

const (
	PhaseUninitialized Phase = iota
	PhaseBooting
	PhaseActive
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseBooting:
		return "booting"
	case PhaseActive:
		return "active"
	default:
		return "unknown"
	}
}

// ContextProvider supplies the environment snapshot attached to each
// event at enqueue time. The pipeline treats the snapshot as
// already-validated opaque data.
type ContextProvider interface {
	Snapshot() map[string]interface{}
}

// DNTSignal reports a platform-level do-not-track setting. Consulted
// once at boot; a true result activates the persisted opt-out gate.
type DNTSignal func() bool

// Sender is the transport boundary: one attempt per Send, plus the
// boot-time liveness probe.
type Sender interface {
	transport.Sender
	Ping(ctx context.Context, endpoint string) error
}

// Pipeline is the session-scoped entry point. Construct one per
// session with New, call Boot once, then Record from anywhere in the
// host process.
type Pipeline struct {
	cfg      *config.Config
	log      *logging.Logger
	store    state.Store
	ownStore bool
	gate     *gate.Gate
	queue    *queue.Queue
	pool     *dispatch.Pool
	sender   Sender
	provider ContextProvider
	dnt      DNTSignal

	sessionID string
	phase     atomic.Int32

	stopCh   chan struct{}
	pumpDone chan struct{}
	stopOnce sync.Once
}

// New wires a pipeline from configuration. The pipeline stays inert
// until Boot.
func New(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	p := &Pipeline{
		cfg:       cfg,
		sessionID: uuid.New().String(),
		stopCh:    make(chan struct{}),
		pumpDone:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.log == nil {
		p.log = logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	}
	p.log = p.log.With(logging.SessionID(p.sessionID))

	if p.store == nil {
		if cfg.Redis.Enabled {
			store, err := state.NewRedisStore(cfg.Redis.URL, cfg.State.Namespace)
			if err != nil {
				return nil, fmt.Errorf("connect state store: %w", err)
			}
			p.store = store
		} else {
			p.store = state.NewMemoryStore()
			p.log.Info("no durable store configured, state will not survive restarts")
		}
		p.ownStore = true
	}

	var sink queue.DropSink
	if cfg.DLQ.Enabled && cfg.Redis.Enabled {
		redisDLQ, err := dlq.NewRedisQueue(cfg.Redis.URL, cfg.State.Namespace, cfg.DLQ.MaxLen, p.log)
		if err != nil {
			// The sink is diagnostics; losing it is not worth failing boot.
			p.log.Warn("drop sink unavailable", logging.Error(err))
		} else {
			sink = redisDLQ
		}
	}

	p.gate = gate.New(p.store, p.log)
	p.queue = queue.New(queue.Config{
		BatchSize:    cfg.Queue.BatchSize,
		Linger:       cfg.Queue.Linger,
		MaxEntries:   cfg.Queue.MaxEntries,
		RetryCeiling: cfg.Queue.RetryCeiling,
		BackoffBase:  cfg.Backoff.Base,
		BackoffCap:   cfg.Backoff.Cap,
	}, p.store, sink, p.log)

	if p.sender == nil {
		p.sender = transport.NewHTTPSender(cfg.Transport.Timeout, cfg.Transport.Correlation)
	}

	p.pool = dispatch.NewPool(dispatch.Config{
		MaxInFlight: cfg.Dispatch.MaxInFlight,
		BatchSize:   cfg.Queue.BatchSize,
		Endpoint:    cfg.Endpoint.CollectURL(),
	}, p.queue, p.sender, p.gate, p.log)

	return p, nil
}

// Boot restores persisted state, consults the do-not-track signal,
// probes the collector, and starts the dispatch pump. A failed probe
// logs and continues in degraded mode: delivery then leans on the
// queue's own retry policy instead of blocking the session on one
// request. Calling Boot on an already-booted pipeline is a no-op.
func (p *Pipeline) Boot(ctx context.Context) error {
	if !p.phase.CompareAndSwap(int32(PhaseUninitialized), int32(PhaseBooting)) {
		return nil
	}

	if err := p.gate.Restore(ctx); err != nil {
		p.log.Warn("opt-out restore failed, assuming tracking allowed", logging.Error(err))
	}
	if p.dnt != nil {
		if err := p.gate.ApplySignal(ctx, p.dnt()); err != nil {
			p.log.Warn("do-not-track signal not persisted", logging.Error(err))
		}
	}

	if err := p.queue.Restore(ctx); err != nil {
		p.log.Warn("queue restore failed, starting empty", logging.Error(err))
	}

	if !p.gate.OptedOut() {
		if err := p.sender.Ping(ctx, p.cfg.Endpoint.PingURL()); err != nil {
			p.log.Warn("liveness probe failed, continuing degraded", logging.Error(err))
		}
	}

	p.queue.SetBootCompleted(ctx, time.Now())
	p.phase.Store(int32(PhaseActive))
	go p.pump()

	p.log.Info("pipeline active",
		"endpoint", p.cfg.Endpoint.CollectURL(),
		"opted_out", p.gate.OptedOut(),
		"pending", p.queue.PendingCount(),
	)
	return nil
}

// Record accepts one event. Returns immediately, never blocks on the
// network, and never surfaces an error: an unhealthy pipeline degrades
// to dropped telemetry, not a broken host.
func (p *Pipeline) Record(collection string, payload map[string]interface{}) {
	if p.Phase() == PhaseUninitialized {
		p.log.Debug("event before boot discarded", logging.Collection(collection))
		return
	}
	if p.gate.OptedOut() {
		metrics.EventsSuppressed.Inc()
		return
	}

	var ctxSnap map[string]interface{}
	if p.provider != nil {
		ctxSnap = p.provider.Snapshot()
	}

	p.queue.Enqueue(context.Background(), collection, payload, ctxSnap)
}

// Ping records a liveness event.
func (p *Pipeline) Ping() {
	p.Record(model.CollectionPing, nil)
}

// SetOptedOut flips the persisted opt-out gate. While active, new
// events are silently discarded and pending entries freeze in place;
// clearing the gate resumes delivery of everything still queued.
func (p *Pipeline) SetOptedOut(ctx context.Context, optedOut bool) error {
	return p.gate.SetOptedOut(ctx, optedOut)
}

// OptedOut reports the gate state.
func (p *Pipeline) OptedOut() bool {
	return p.gate.OptedOut()
}

// Phase returns the lifecycle phase.
func (p *Pipeline) Phase() Phase {
	return Phase(p.phase.Load())
}

// SessionID returns the identifier attached to this pipeline's logs.
func (p *Pipeline) SessionID() string {
	return p.sessionID
}

// Stats returns a diagnostic summary of the queue.
func (p *Pipeline) Stats() queue.Stats {
	return p.queue.Stats()
}

// Flush triggers an immediate drive cycle outside the pump schedule.
// Useful right before the host process expects to be torn down.
func (p *Pipeline) Flush(ctx context.Context) {
	if p.Phase() != PhaseActive {
		return
	}
	p.pool.Drive(ctx)
}

// Shutdown stops the pump, waits for in-flight attempts (bounded by
// ctx), and persists a final snapshot.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	if p.Phase() == PhaseUninitialized {
		return nil
	}

	p.stopOnce.Do(func() {
		close(p.stopCh)
	})

	select {
	case <-p.pumpDone:
	case <-ctx.Done():
	}

	waited := make(chan struct{})
	go func() {
		p.pool.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-ctx.Done():
		p.log.Warn("shutdown deadline hit with attempts still in flight")
	}

	p.queue.Persist(ctx)
	if p.ownStore {
		if err := p.store.Close(); err != nil {
			return fmt.Errorf("close store: %w", err)
		}
	}

	p.log.Info("pipeline stopped", "stats", p.queue.Stats())
	return ctx.Err()
}

// pump is the scheduling loop: it drives the pool when the queue
// reports a flush ready, and on a timer so linger deadlines and retry
// backoffs are honored without producer traffic.
func (p *Pipeline) pump() {
	defer close(p.pumpDone)

	interval := p.cfg.Queue.Linger / 2
	if interval < 50*time.Millisecond {
		interval = 50 * time.Millisecond
	}
	if interval > time.Second {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx := context.Background()
	for {
		select {
		case <-p.stopCh:
			return
		case <-p.queue.Flushes():
			p.pool.Drive(ctx)
		case <-ticker.C:
			if p.queue.Ready() {
				p.pool.Drive(ctx)
			}
		}
	}
}
