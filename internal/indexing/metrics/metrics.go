package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsReceived tracks stream records per update kind
	RecordsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenwatch_records_received_total",
			Help: "Total number of stream records received",
		},
		[]string{"kind"},
	)

	// TransactionsAdmitted tracks transactions that touched an allow-listed program
	TransactionsAdmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tokenwatch_transactions_admitted_total",
			Help: "Total number of transactions admitted by the program filter",
		},
	)

	// PipelineErrors tracks per-record failures that were isolated
	PipelineErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenwatch_pipeline_errors_total",
			Help: "Total number of per-record processing failures",
		},
		[]string{"stage"},
	)

	// SessionsTotal tracks subscription sessions by outcome
	SessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenwatch_sessions_total",
			Help: "Total number of subscription sessions by outcome",
		},
		[]string{"outcome"},
	)

	// RetryCount tracks the current consecutive failure count
	RetryCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tokenwatch_retry_count",
			Help: "Current number of consecutive session failures",
		},
	)

	// BackoffDelay tracks the last backoff delay
	BackoffDelay = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tokenwatch_backoff_delay_seconds",
			Help: "Last reconnect backoff delay in seconds",
		},
	)

	// EmitLatency tracks emitter latency
	EmitLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tokenwatch_emit_latency_seconds",
			Help:    "Emitter latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"emitter"},
	)

	// LastSlot tracks the latest slot seen on the stream
	LastSlot = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tokenwatch_last_slot",
			Help: "Latest slot observed on the subscription stream",
		},
	)
)
