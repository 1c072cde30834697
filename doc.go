// Package beacon is a client-side telemetry delivery pipeline for
// long-lived, interruption-prone host processes.
//
// Producers hand the pipeline opaque events; the pipeline queues them
// durably, batches them by size or time, and posts them to a collector
// with bounded concurrency, capped exponential retry, and a persisted
// opt-out gate. Every failure degrades to "event not delivered":
// nothing the pipeline does is ever fatal to the host.
package beacon
