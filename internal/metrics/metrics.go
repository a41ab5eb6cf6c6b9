package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Skip reasons for EventsSkipped.
const (
	ReasonUndecoded        = "undecoded"
	ReasonDecodeError      = "decode_error"
	ReasonUnknownAggregate = "unknown_aggregate"
	ReasonDanglingReturn   = "dangling_return"
	ReasonDuplicate        = "duplicate"
)

// Throughput
var (
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transform_cycles_total",
			Help: "Poll cycles by outcome",
		},
		[]string{"transformer", "status"},
	)

	TransactionsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transform_transactions_processed_total",
			Help: "Raw transactions handed to a transformer",
		},
		[]string{"transformer"},
	)

	EventsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transform_events_applied_total",
			Help: "Domain events applied to aggregates by type",
		},
		[]string{"transformer", "event"},
	)

	EventsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transform_events_skipped_total",
			Help: "Log events dropped before or during reduction",
		},
		[]string{"transformer", "reason"},
	)

	StoreRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transform_store_retries_total",
			Help: "Retried store reads",
		},
		[]string{"operation"},
	)
)

// Latency
var (
	CycleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "transform_cycle_duration_seconds",
			Help:    "Time taken by one poll cycle",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"transformer"},
	)

	FlushDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "transform_flush_duration_seconds",
			Help:    "Time taken to upsert the aggregate table",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"transformer"},
	)
)

// State
var (
	CheckpointHeight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "transform_checkpoint_block_height",
			Help: "Last persisted checkpoint block height",
		},
		[]string{"transformer"},
	)

	AggregatesCached = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "transform_aggregates_cached",
			Help: "Aggregates held in the in-memory table",
		},
		[]string{"transformer"},
	)
)
