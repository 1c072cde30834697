// Package dlq records events the pipeline gave up on. The sink is
// diagnostic only: entries written here are never fed back into the
// queue.
package dlq

import (
	"context"
	"time"

	"github.com/telhawk-systems/telhawk-beacon/internal/state"
)

// DroppedEvent is one discarded entry with the context of its failure.
type DroppedEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	Reason    string            `json:"reason"`
	Attempts  int               `json:"attempts"`
	Entry     state.EntryRecord `json:"entry"`
}

// Writer is the sink interface the queue writes drops to.
type Writer interface {
	Write(ctx context.Context, rec state.EntryRecord, reason string) error
}
