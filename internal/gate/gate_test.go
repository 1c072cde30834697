package gate

import (
	"context"
	"testing"

	"github.com/telhawk-systems/telhawk-beacon/internal/state"
)

func TestGate_DefaultsInactive(t *testing.T) {
	g := New(state.NewMemoryStore(), nil)
	if g.OptedOut() {
		t.Error("new gate reports opted out")
	}
}

func TestGate_SetOptedOut_Persists(t *testing.T) {
	store := state.NewMemoryStore()
	g := New(store, nil)
	ctx := context.Background()

	if err := g.SetOptedOut(ctx, true); err != nil {
		t.Fatalf("SetOptedOut() error = %v", err)
	}
	if !g.OptedOut() {
		t.Error("gate not active after SetOptedOut(true)")
	}

	persisted, err := store.LoadOptOut(ctx)
	if err != nil {
		t.Fatalf("LoadOptOut() error = %v", err)
	}
	if !persisted {
		t.Error("opt-out flag not written through to the store")
	}
}

func TestGate_SetOptedOut_Idempotent(t *testing.T) {
	g := New(state.NewMemoryStore(), nil)
	ctx := context.Background()

	if err := g.SetOptedOut(ctx, true); err != nil {
		t.Fatalf("first SetOptedOut() error = %v", err)
	}
	if err := g.SetOptedOut(ctx, true); err != nil {
		t.Fatalf("second SetOptedOut() error = %v", err)
	}
	if !g.OptedOut() {
		t.Error("gate not active after repeated SetOptedOut(true)")
	}

	if err := g.SetOptedOut(ctx, false); err != nil {
		t.Fatalf("SetOptedOut(false) error = %v", err)
	}
	if g.OptedOut() {
		t.Error("gate still active after SetOptedOut(false)")
	}
}

func TestGate_Restore(t *testing.T) {
	store := state.NewMemoryStore()
	ctx := context.Background()

	if err := store.SaveOptOut(ctx, true); err != nil {
		t.Fatalf("SaveOptOut() error = %v", err)
	}

	g := New(store, nil)
	if err := g.Restore(ctx); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if !g.OptedOut() {
		t.Error("gate not active after restoring persisted opt-out")
	}
}

func TestGate_ApplySignal(t *testing.T) {
	store := state.NewMemoryStore()
	g := New(store, nil)
	ctx := context.Background()

	// An inactive signal never touches the gate.
	if err := g.ApplySignal(ctx, false); err != nil {
		t.Fatalf("ApplySignal(false) error = %v", err)
	}
	if g.OptedOut() {
		t.Error("ApplySignal(false) activated the gate")
	}

	if err := g.ApplySignal(ctx, true); err != nil {
		t.Fatalf("ApplySignal(true) error = %v", err)
	}
	if !g.OptedOut() {
		t.Error("ApplySignal(true) did not activate the gate")
	}

	// The signal cannot clear an existing opt-out.
	if err := g.ApplySignal(ctx, false); err != nil {
		t.Fatalf("ApplySignal(false) error = %v", err)
	}
	if !g.OptedOut() {
		t.Error("ApplySignal(false) cleared an active gate")
	}
}
