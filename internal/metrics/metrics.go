package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Producer-side metrics
	EventsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beacon_events_recorded_total",
			Help: "Total number of events accepted from producers",
		},
		[]string{"collection"},
	)

	EventsSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "beacon_events_suppressed_total",
			Help: "Total number of events silently dropped by the opt-out gate",
		},
	)

	// Queue metrics
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "beacon_queue_depth",
			Help: "Current number of entries held by the queue, pending and in flight",
		},
	)

	QueueEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "beacon_queue_evictions_total",
			Help: "Total number of oldest-first evictions under the capacity bound",
		},
	)

	EntriesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beacon_entries_dropped_total",
			Help: "Total number of entries dropped without delivery",
		},
		[]string{"reason"},
	)

	EntriesDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "beacon_entries_delivered_total",
			Help: "Total number of entries acknowledged by the collector",
		},
	)

	EntriesRetried = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "beacon_entries_retried_total",
			Help: "Total number of transient failures returned to the queue",
		},
	)

	// Dispatch metrics
	DispatchInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "beacon_dispatch_in_flight",
			Help: "Number of transport attempts currently holding a permit",
		},
	)

	DispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "beacon_dispatch_duration_seconds",
			Help:    "Duration of transport attempts in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// State persistence metrics
	PersistErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "beacon_persist_errors_total",
			Help: "Total number of failed snapshot writes to the durable store",
		},
	)
)
