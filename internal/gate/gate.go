// Package gate implements the persisted opt-out switch. Every public
// pipeline operation consults the gate first; when active, the pipeline
// freezes without surfacing errors to producers.
package gate

import (
	"context"
	"fmt"
	"sync"

	"github.com/telhawk-systems/telhawk-beacon/internal/logging"
	"github.com/telhawk-systems/telhawk-beacon/internal/state"
)

// Gate is the opt-out switch. The flag is cached in memory and written
// through to the durable store immediately on every change.
type Gate struct {
	mu       sync.RWMutex
	optedOut bool
	store    state.Store
	log      *logging.Logger
}

// New creates a Gate backed by the given store. The flag starts inactive
// until Restore or SetOptedOut says otherwise.
func New(store state.Store, log *logging.Logger) *Gate {
	if log == nil {
		log = logging.Discard()
	}
	return &Gate{
		store: store,
		log:   log.With(logging.Component("gate")),
	}
}

// Restore loads the persisted flag. Called once at boot, before any
// producer traffic is admitted.
func (g *Gate) Restore(ctx context.Context) error {
	optedOut, err := g.store.LoadOptOut(ctx)
	if err != nil {
		return fmt.Errorf("restore opt-out flag: %w", err)
	}

	g.mu.Lock()
	g.optedOut = optedOut
	g.mu.Unlock()

	if optedOut {
		g.log.Info("opt-out gate restored active")
	}
	return nil
}

// OptedOut reports whether the gate is active.
func (g *Gate) OptedOut() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.optedOut
}

// SetOptedOut flips the gate and persists the change immediately.
// Idempotent: repeated calls with the same value are no-ops that skip
// the store write.
func (g *Gate) SetOptedOut(ctx context.Context, optedOut bool) error {
	g.mu.Lock()
	if g.optedOut == optedOut {
		g.mu.Unlock()
		return nil
	}
	g.optedOut = optedOut
	g.mu.Unlock()

	if err := g.store.SaveOptOut(ctx, optedOut); err != nil {
		return fmt.Errorf("persist opt-out flag: %w", err)
	}

	g.log.Info("opt-out gate changed", "opted_out", optedOut)
	return nil
}

// ApplySignal merges a platform do-not-track signal into the gate at
// boot. The signal can only activate the gate, never clear it: an
// explicit earlier opt-out always wins over a missing platform signal.
func (g *Gate) ApplySignal(ctx context.Context, doNotTrack bool) error {
	if !doNotTrack {
		return nil
	}
	return g.SetOptedOut(ctx, true)
}
