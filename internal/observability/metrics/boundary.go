package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// BoundaryMetrics tracks outbound calls to the classification and
// chat-completion services. The operation label doubles as the service name.
type BoundaryMetrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ErrorsTotal     *prometheus.CounterVec
	Suggestions     *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewBoundaryMetrics creates and registers the outbound service collectors.
func NewBoundaryMetrics(registry *prometheus.Registry) (*BoundaryMetrics, error) {
	m := &BoundaryMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register boundary metrics: %w", err)
	}
	return m, nil
}

func (m *BoundaryMetrics) initMetrics() {
	m.RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boundary_requests_total",
			Help: "Total number of outbound service requests",
		},
		[]string{"operation", "status"}, // operation: classify, ask
	)

	m.RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "boundary_request_duration_seconds",
			Help:    "Duration of outbound service requests in seconds",
			Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount12),
		},
		[]string{"operation"},
	)

	m.ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boundary_errors_total",
			Help: "Total number of outbound service errors by category",
		},
		[]string{"operation", "error_type"}, // error_type: network, response-shape, configuration
	)

	m.Suggestions = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "boundary_suggestion_probability",
			Help:    "Probability of the top species suggestion",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
		},
		[]string{"operation"},
	)
}

// RecordOperation implements Recorder.
func (m *BoundaryMetrics) RecordOperation(operation, status string) {
	m.RequestsTotal.WithLabelValues(operation, status).Inc()
}

// RecordDuration implements Recorder.
func (m *BoundaryMetrics) RecordDuration(operation string, seconds float64) {
	m.RequestDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordError implements Recorder.
func (m *BoundaryMetrics) RecordError(operation, errorType string) {
	m.ErrorsTotal.WithLabelValues(operation, errorType).Inc()
}

// ObserveSuggestion records the probability of a returned suggestion.
func (m *BoundaryMetrics) ObserveSuggestion(probability float64) {
	m.Suggestions.WithLabelValues(OpClassify).Observe(probability)
}

// Collect implements the prometheus.Collector interface.
func (m *BoundaryMetrics) Collect(ch chan<- prometheus.Metric) {
	m.RequestsTotal.Collect(ch)
	m.RequestDuration.Collect(ch)
	m.ErrorsTotal.Collect(ch)
	m.Suggestions.Collect(ch)
}

// Describe implements the prometheus.Collector interface.
func (m *BoundaryMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.RequestsTotal.Describe(ch)
	m.RequestDuration.Describe(ch)
	m.ErrorsTotal.Describe(ch)
	m.Suggestions.Describe(ch)
}
