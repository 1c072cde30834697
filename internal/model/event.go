package model

import "time"

// Well-known collection tags. Producers may pass any non-empty string;
// these are the ones the SDK itself emits.
const (
	CollectionPageView   = "PAGEVIEW"
	CollectionPing       = "PING"
	CollectionEnrollment = "ENROLLMENT"
)

// Event is a single telemetry record. Events are immutable once created:
// the pipeline never modifies Payload or Context after Enqueue accepts them.
type Event struct {
	// ID is the session-unique sequence number. Strictly increasing,
	// never reused within a session.
	ID uint64 `json:"id"`

	// Collection classifies the event (PAGEVIEW, PING, ...).
	Collection string `json:"collection"`

	// Payload is the producer-supplied event body. Opaque to the pipeline.
	Payload map[string]interface{} `json:"payload,omitempty"`

	// Context is the environment snapshot attached at enqueue time.
	Context map[string]interface{} `json:"context,omitempty"`

	// CreatedAt is the enqueue timestamp.
	CreatedAt time.Time `json:"created_at"`
}
