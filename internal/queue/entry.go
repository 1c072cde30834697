package queue

import (
	"time"

	"github.com/telhawk-systems/telhawk-beacon/internal/model"
	"github.com/telhawk-systems/telhawk-beacon/internal/state"
)

// EntryState is the delivery lifecycle of one queued event.
type EntryState int

const (
	StatePending EntryState = iota
	StateInFlight
	StateDone
	StateDropped
)

func (s EntryState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateInFlight:
		return "in_flight"
	case StateDone:
		return "done"
	case StateDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Outcome is the result the dispatch pool reports for one attempt.
type Outcome int

const (
	// OutcomeAck: the collector accepted the batch. Entry removed.
	OutcomeAck Outcome = iota

	// OutcomeRetry: transient failure. Entry returns to pending with a
	// backoff deadline, unless the retry ceiling forces a drop.
	OutcomeRetry

	// OutcomeDrop: permanent failure. Entry removed, counted, never
	// resurrected.
	OutcomeDrop
)

// Entry wraps an Event with delivery metadata. Owned exclusively by the
// Queue; the dispatch pool borrows entries for the duration of one
// transport attempt and returns ownership via Complete.
type Entry struct {
	Event          *model.Event
	Attempts       int
	NextEligibleAt time.Time
	State          EntryState
}

func (e *Entry) record() state.EntryRecord {
	st := state.EntryPending
	if e.State == StateInFlight {
		st = state.EntryInFlight
	}
	return state.EntryRecord{
		ID:             e.Event.ID,
		Collection:     e.Event.Collection,
		Payload:        e.Event.Payload,
		Context:        e.Event.Context,
		CreatedAt:      e.Event.CreatedAt,
		Attempts:       e.Attempts,
		NextEligibleAt: e.NextEligibleAt,
		State:          st,
	}
}

func entryFromRecord(rec state.EntryRecord) *Entry {
	// An in-flight entry from a dead session never completed its
	// attempt; it re-enters as pending so it is dispatched exactly once.
	return &Entry{
		Event: &model.Event{
			ID:         rec.ID,
			Collection: rec.Collection,
			Payload:    rec.Payload,
			Context:    rec.Context,
			CreatedAt:  rec.CreatedAt,
		},
		Attempts:       rec.Attempts,
		NextEligibleAt: rec.NextEligibleAt,
		State:          StatePending,
	}
}
