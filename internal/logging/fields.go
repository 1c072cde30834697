package logging

import "log/slog"

// Common field names for consistent logging across the pipeline.
const (
	FieldComponent  = "component"
	FieldSessionID  = "session_id"
	FieldEventID    = "event_id"
	FieldCollection = "collection"
	FieldAttempts   = "attempts"
	FieldBatchSize  = "batch_size"
	FieldStatus     = "status"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
)

// Component returns a slog attribute for the pipeline component name.
func Component(name string) slog.Attr {
	return slog.String(FieldComponent, name)
}

// SessionID returns a slog attribute for the session ID.
func SessionID(id string) slog.Attr {
	return slog.String(FieldSessionID, id)
}

// EventID returns a slog attribute for an event sequence number.
func EventID(id uint64) slog.Attr {
	return slog.Uint64(FieldEventID, id)
}

// Collection returns a slog attribute for an event collection tag.
func Collection(name string) slog.Attr {
	return slog.String(FieldCollection, name)
}

// Attempts returns a slog attribute for a delivery attempt count.
func Attempts(n int) slog.Attr {
	return slog.Int(FieldAttempts, n)
}

// BatchSize returns a slog attribute for the number of entries in a batch.
func BatchSize(n int) slog.Attr {
	return slog.Int(FieldBatchSize, n)
}

// Status returns a slog attribute for an HTTP status code.
func Status(code int) slog.Attr {
	return slog.Int(FieldStatus, code)
}

// Duration returns a slog attribute for duration in milliseconds.
func Duration(ms int64) slog.Attr {
	return slog.Int64(FieldDuration, ms)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}
