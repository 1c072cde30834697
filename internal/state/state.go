// Package state persists pipeline state so a session survives host
// process restarts.
package state

import (
	"context"
	"time"
)

// EntryState mirrors the queue entry lifecycle in serialized form.
type EntryState string

const (
	EntryPending  EntryState = "pending"
	EntryInFlight EntryState = "in_flight"
)

// EntryRecord is the durable form of one queue entry. Done and dropped
// entries are removed from the snapshot, never written.
type EntryRecord struct {
	ID             uint64                 `json:"id"`
	Collection     string                 `json:"collection"`
	Payload        map[string]interface{} `json:"payload,omitempty"`
	Context        map[string]interface{} `json:"context,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	Attempts       int                    `json:"attempts"`
	NextEligibleAt time.Time              `json:"next_eligible_at"`
	State          EntryState             `json:"state"`
}

// Snapshot is the durable record of a session: every entry acknowledged
// as enqueued to a producer, the sequence counter, and the boot marker.
// The snapshot on disk is always a superset-or-equal of the in-memory
// pending set.
type Snapshot struct {
	Entries         []EntryRecord `json:"entries"`
	SequenceCounter uint64        `json:"sequence_counter"`
	BootCompletedAt time.Time     `json:"boot_completed_at,omitempty"`
}

// Store is the durable key-value boundary. Implementations hold one
// snapshot and one opt-out flag under a fixed key namespace. The
// snapshot is read once at boot and written on every mutating queue
// operation; the opt-out flag is written immediately on change.
type Store interface {
	// LoadSnapshot returns the persisted snapshot, or (nil, nil) when
	// no snapshot exists yet.
	LoadSnapshot(ctx context.Context) (*Snapshot, error)

	// SaveSnapshot replaces the persisted snapshot.
	SaveSnapshot(ctx context.Context, snap *Snapshot) error

	// LoadOptOut returns the persisted opt-out flag. Missing means false.
	LoadOptOut(ctx context.Context) (bool, error)

	// SaveOptOut persists the opt-out flag.
	SaveOptOut(ctx context.Context, optedOut bool) error

	// Close releases the underlying connection, if any.
	Close() error
}
