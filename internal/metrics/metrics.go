package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry          *prometheus.Registry
	batchSubmissions  *prometheus.CounterVec   // batches submitted by outcome
	batchOperations   *prometheus.CounterVec   // operations submitted
	batchSize         prometheus.Histogram     // operations per batch
	apiRequests       *prometheus.CounterVec   // remote api requests
	connectorAttempts *prometheus.CounterVec   // connector construction attempts
	pipelineStages    *prometheus.CounterVec   // pipeline stage outcomes
	workflowDuration  *prometheus.HistogramVec // time to run a workflow
	journalRequests   *prometheus.CounterVec   // badgerdb journal requests
}

// Public interface for metrics operations
func (m *Metrics) IncBatchSubmission(status string) {
	if !isValidBatchStatus(status) {
		return
	}
	m.batchSubmissions.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveBatchSize(n int) {
	m.batchSize.Observe(float64(n))
}

func (m *Metrics) IncOperation(kind, resource string) {
	if !isValidKind(kind) || resource == "" {
		return
	}
	m.batchOperations.WithLabelValues(kind, resource).Inc()
}

func (m *Metrics) IncAPIRequest(method string, success bool) {
	if !isValidMethod(method) {
		return
	}
	status := boolToResult(success)
	m.apiRequests.WithLabelValues(method, status).Inc()
}

func (m *Metrics) IncConnectorAttempt(success bool) {
	status := boolToResult(success)
	m.connectorAttempts.WithLabelValues(status).Inc()
}

func (m *Metrics) IncPipelineStage(stage, status string) {
	if stage == "" || !isValidStageStatus(status) {
		return
	}
	m.pipelineStages.WithLabelValues(stage, status).Inc()
}

func (m *Metrics) ObserveWorkflow(workflow string, duration time.Duration) {
	if workflow == "" {
		return
	}
	m.workflowDuration.WithLabelValues(workflow).Observe(duration.Seconds())
}

func (m *Metrics) IncJournalRequest(operation string, success bool) {
	if !isValidJournalOperation(operation) {
		return
	}
	status := boolToResult(success)
	m.journalRequests.WithLabelValues(operation, status).Inc()
}

// Validation helpers
func boolToResult(b bool) string {
	if b {
		return "success"
	}
	return "failure"
}

func isValidBatchStatus(s string) bool {
	switch s {
	case "success", "partial", "failure", "rejected":
		return true
	}
	return false
}

func isValidKind(k string) bool {
	switch k {
	case "create", "update", "remove":
		return true
	}
	return false
}

func isValidMethod(m string) bool {
	switch m {
	case "mutate", "search":
		return true
	}
	return false
}

func isValidStageStatus(s string) bool {
	switch s {
	case "completed", "partial", "failed", "skipped":
		return true
	}
	return false
}

func isValidJournalOperation(op string) bool {
	switch op {
	case "create", "read", "list":
		return true
	}
	return false
}

func New(register bool) *Metrics {
	registry := prometheus.NewRegistry()
	namespace := "adsmutate"

	m := &Metrics{
		registry: registry,

		batchSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_submissions_total",
			Help:      "Total mutate batches submitted, by outcome",
		}, []string{"status"}),

		batchOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_operations_total",
			Help:      "Total operations submitted in mutate batches",
		}, []string{"kind", "resource"}),

		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Operations per submitted batch",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 500, 1000, 5000},
		}),

		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Total advertising api requests",
		}, []string{"method", "status"}),

		connectorAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connector_attempts_total",
			Help:      "Total connector construction attempts",
		}, []string{"status"}),

		pipelineStages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_stages_total",
			Help:      "Total staged pipeline stages run, by outcome",
		}, []string{"stage", "status"}),

		workflowDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_duration_seconds",
			Help:      "Duration of workflow runs in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"workflow"}),

		journalRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "journal_requests_total",
			Help:      "Total badgerdb journal requests",
		}, []string{"operation", "status"}),
	}

	if register {
		registry.MustRegister(
			m.batchSubmissions,
			m.batchOperations,
			m.batchSize,
			m.apiRequests,
			m.connectorAttempts,
			m.pipelineStages,
			m.workflowDuration,
			m.journalRequests,
		)
	}
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
