// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec
	PipelineDuration  *prometheus.HistogramVec
	DecisionsTotal    *prometheus.CounterVec

	// Chain metrics
	RPCCallLatency    *prometheus.HistogramVec
	InvokesSubmitted  prometheus.Counter
	InvokesFailed     prometheus.Counter
	ReceiptsConfirmed prometheus.Counter

	// Prediction metrics
	PredictionLatency  prometheus.Histogram
	PredictionFailures prometheus.Counter

	// Storage metrics
	LedgerAppends        prometheus.Counter
	ArchiveWrites        prometheus.Counter
	ArchiveWriteFailures prometheus.Counter

	// Session metrics
	SessionKeysCreated    prometheus.Counter
	SessionKeysRevoked    prometheus.Counter
	AuthorizationFailures *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "starknet_pilot"
	}

	return &Metrics{
		// Pipeline metrics
		PipelineRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by outcome",
		}, []string{"outcome"}),
		PipelineDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline run duration in seconds by outcome",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		DecisionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "decisions_total",
			Help:      "Total number of gate decisions by recommended action and outcome",
		}, []string{"action", "outcome"}),

		// Chain metrics
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "starknet",
			Name:      "rpc_call_latency_seconds",
			Help:      "Starknet RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		InvokesSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "starknet",
			Name:      "invokes_submitted_total",
			Help:      "Total number of invoke transactions submitted",
		}),
		InvokesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "starknet",
			Name:      "invokes_failed_total",
			Help:      "Total number of invoke submissions that failed",
		}),
		ReceiptsConfirmed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "starknet",
			Name:      "receipts_confirmed_total",
			Help:      "Total number of transactions confirmed by receipt",
		}),

		// Prediction metrics
		PredictionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "predict",
			Name:      "latency_seconds",
			Help:      "Model prediction latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		PredictionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "predict",
			Name:      "failures_total",
			Help:      "Total number of predictions that degraded to the hold fallback",
		}),

		// Storage metrics
		LedgerAppends: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "ledger_appends_total",
			Help:      "Total number of transaction ledger rows appended",
		}),
		ArchiveWrites: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "archive_writes_total",
			Help:      "Total number of decision snapshots archived",
		}),
		ArchiveWriteFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "archive_write_failures_total",
			Help:      "Total number of failed decision snapshot writes",
		}),

		// Session metrics
		SessionKeysCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "keys_created_total",
			Help:      "Total number of session keys created",
		}),
		SessionKeysRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "keys_revoked_total",
			Help:      "Total number of session keys revoked",
		}),
		AuthorizationFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "authorization_failures_total",
			Help:      "Total number of authorization failures by reason",
		}, []string{"reason"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordPipelineRun records a completed pipeline run.
func RecordPipelineRun(outcome string, durationSeconds float64) {
	DefaultMetrics.PipelineRunsTotal.WithLabelValues(outcome).Inc()
	DefaultMetrics.PipelineDuration.WithLabelValues(outcome).Observe(durationSeconds)
}

// RecordDecision records a gate decision.
func RecordDecision(action, outcome string) {
	DefaultMetrics.DecisionsTotal.WithLabelValues(action, outcome).Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordInvoke records an invoke submission attempt.
func RecordInvoke(err error) {
	if err != nil {
		DefaultMetrics.InvokesFailed.Inc()
		return
	}
	DefaultMetrics.InvokesSubmitted.Inc()
}

// RecordReceiptConfirmed increments the confirmed receipts counter.
func RecordReceiptConfirmed() {
	DefaultMetrics.ReceiptsConfirmed.Inc()
}

// RecordPrediction records prediction latency and fallback use.
func RecordPrediction(seconds float64, degraded bool) {
	DefaultMetrics.PredictionLatency.Observe(seconds)
	if degraded {
		DefaultMetrics.PredictionFailures.Inc()
	}
}

// RecordLedgerAppend increments the ledger append counter.
func RecordLedgerAppend() {
	DefaultMetrics.LedgerAppends.Inc()
}

// RecordArchiveWrite records a decision archive write.
func RecordArchiveWrite(err error) {
	if err != nil {
		DefaultMetrics.ArchiveWriteFailures.Inc()
		return
	}
	DefaultMetrics.ArchiveWrites.Inc()
}

// RecordSessionKeyCreated increments the keys created counter.
func RecordSessionKeyCreated() {
	DefaultMetrics.SessionKeysCreated.Inc()
}

// RecordSessionKeyRevoked increments the keys revoked counter.
func RecordSessionKeyRevoked() {
	DefaultMetrics.SessionKeysRevoked.Inc()
}

// RecordAuthorizationFailure records an authorization failure.
func RecordAuthorizationFailure(reason string) {
	DefaultMetrics.AuthorizationFailures.WithLabelValues(reason).Inc()
}
