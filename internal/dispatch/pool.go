// Package dispatch drains the queue through the transport under a
// bounded concurrency budget.
package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/telhawk-systems/telhawk-beacon/internal/codec"
	"github.com/telhawk-systems/telhawk-beacon/internal/logging"
	"github.com/telhawk-systems/telhawk-beacon/internal/metrics"
	"github.com/telhawk-systems/telhawk-beacon/internal/model"
	"github.com/telhawk-systems/telhawk-beacon/internal/queue"
	"github.com/telhawk-systems/telhawk-beacon/internal/transport"
)

// OptOutChecker is the slice of the gate the pool consults.
type OptOutChecker interface {
	OptedOut() bool
}

// Config tunes the pool.
type Config struct {
	// MaxInFlight bounds concurrent transport attempts. With 1 the
	// pool dispatches fully sequentially, which is the only way to get
	// strict cross-batch delivery ordering.
	MaxInFlight int

	// BatchSize caps entries per transport attempt.
	BatchSize int

	// Endpoint is the collector URL batches are posted to.
	Endpoint string
}

// Pool pumps batches from the queue to the transport. One drive cycle
// runs at a time; each in-flight attempt holds one permit, released on
// every exit path.
type Pool struct {
	cfg     Config
	queue   *queue.Queue
	sender  transport.Sender
	gate    OptOutChecker
	log     *logging.Logger
	permits chan struct{}
	driving atomic.Bool
	wg      sync.WaitGroup
}

// NewPool creates a pool around the queue and sender.
func NewPool(cfg Config, q *queue.Queue, sender transport.Sender, g OptOutChecker, log *logging.Logger) *Pool {
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = 1
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Pool{
		cfg:     cfg,
		queue:   q,
		sender:  sender,
		gate:    g,
		log:     log.With(logging.Component("dispatch")),
		permits: make(chan struct{}, cfg.MaxInFlight),
	}
}

// Drive runs one pump cycle: while permits are available and the queue
// has a flush ready, take a batch, serialize it, and launch the
// attempt. Not re-entrant; a second concurrent call returns at once.
func (p *Pool) Drive(ctx context.Context) {
	if !p.driving.CompareAndSwap(false, true) {
		return
	}
	defer p.driving.Store(false)

	for {
		if p.gate.OptedOut() {
			return
		}

		select {
		case p.permits <- struct{}{}:
		default:
			return
		}

		batch := p.queue.NextBatch(ctx, p.cfg.BatchSize)
		if len(batch) == 0 {
			<-p.permits
			return
		}

		// Serialization happens here, at transmission time, never
		// ahead of it. Entries the wire schema cannot represent are
		// dropped individually; the rest of the batch still goes out.
		events := make([]*model.Event, 0, len(batch))
		sendable := batch[:0]
		for _, e := range batch {
			if err := codec.Validate(e.Event); err != nil {
				p.log.Warn("unencodable event dropped",
					logging.EventID(e.Event.ID), logging.Error(err))
				p.queue.Complete(ctx, e.Event.ID, queue.OutcomeDrop, queue.DropReasonEncoding)
				continue
			}
			events = append(events, e.Event)
			sendable = append(sendable, e)
		}

		if len(sendable) == 0 {
			<-p.permits
			continue
		}

		payload, err := codec.EncodeBatch(events)
		if err != nil {
			for _, e := range sendable {
				p.queue.Complete(ctx, e.Event.ID, queue.OutcomeDrop, queue.DropReasonEncoding)
			}
			<-p.permits
			continue
		}

		p.wg.Add(1)
		metrics.DispatchInFlight.Inc()
		go p.attempt(ctx, sendable, payload)

		if !p.queue.Ready() {
			return
		}
	}
}

// attempt issues one transport call for one batch and routes the
// outcome back to the queue. The permit is returned on every path.
func (p *Pool) attempt(ctx context.Context, batch []*queue.Entry, payload codec.Payload) {
	defer p.wg.Done()
	defer func() {
		<-p.permits
		metrics.DispatchInFlight.Dec()
	}()

	start := time.Now()
	result := p.sender.Send(ctx, payload, p.cfg.Endpoint)
	metrics.DispatchDuration.Observe(time.Since(start).Seconds())

	switch result.Class {
	case transport.ClassOK:
		p.log.Debug("batch delivered",
			logging.BatchSize(len(batch)), logging.Status(result.StatusCode),
			logging.Duration(result.Latency.Milliseconds()))
		for _, e := range batch {
			p.queue.Complete(ctx, e.Event.ID, queue.OutcomeAck, "")
		}

	case transport.ClassTransient:
		p.log.Warn("transient delivery failure, batch requeued",
			logging.BatchSize(len(batch)), logging.Status(result.StatusCode))
		for _, e := range batch {
			p.queue.Complete(ctx, e.Event.ID, queue.OutcomeRetry, "")
		}

	case transport.ClassPermanent:
		p.log.Warn("collector rejected batch, dropping",
			logging.BatchSize(len(batch)), logging.Status(result.StatusCode))
		for _, e := range batch {
			p.queue.Complete(ctx, e.Event.ID, queue.OutcomeDrop, queue.DropReasonPermanent)
		}
	}
}

// Wait blocks until all in-flight attempts have completed.
func (p *Pool) Wait() {
	p.wg.Wait()
}
