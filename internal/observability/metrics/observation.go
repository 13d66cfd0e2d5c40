package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// ObservationMetrics tracks observation log and image store operations.
type ObservationMetrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	ErrorsTotal       *prometheus.CounterVec
	RecordCount       prometheus.Gauge
	ImageSize         prometheus.Histogram

	registry *prometheus.Registry
}

// NewObservationMetrics creates and registers the observation collectors.
func NewObservationMetrics(registry *prometheus.Registry) (*ObservationMetrics, error) {
	m := &ObservationMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register observation metrics: %w", err)
	}
	return m, nil
}

func (m *ObservationMetrics) initMetrics() {
	m.OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "observation_operations_total",
			Help: "Total number of observation log operations",
		},
		[]string{"operation", "status"}, // operation: load, append, image_save
	)

	m.OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "observation_operation_duration_seconds",
			Help:    "Duration of observation log operations in seconds",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount12),
		},
		[]string{"operation"},
	)

	m.ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "observation_errors_total",
			Help: "Total number of observation log errors by category",
		},
		[]string{"operation", "error_type"},
	)

	m.RecordCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "observation_records",
		Help: "Number of records in the observation log at the last load or append",
	})

	m.ImageSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "observation_image_size_bytes",
		Help:    "Size of stored observation images in bytes",
		Buckets: prometheus.ExponentialBuckets(BucketStart1KB, BucketFactor4, BucketCount10),
	})
}

// RecordOperation implements Recorder.
func (m *ObservationMetrics) RecordOperation(operation, status string) {
	m.OperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordDuration implements Recorder.
func (m *ObservationMetrics) RecordDuration(operation string, seconds float64) {
	m.OperationDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordError implements Recorder.
func (m *ObservationMetrics) RecordError(operation, errorType string) {
	m.ErrorsTotal.WithLabelValues(operation, errorType).Inc()
}

// SetRecordCount records the current size of the log.
func (m *ObservationMetrics) SetRecordCount(n int) {
	m.RecordCount.Set(float64(n))
}

// ObserveImageSize records the size of a stored image.
func (m *ObservationMetrics) ObserveImageSize(sizeBytes int) {
	m.ImageSize.Observe(float64(sizeBytes))
}

// Collect implements the prometheus.Collector interface.
func (m *ObservationMetrics) Collect(ch chan<- prometheus.Metric) {
	m.OperationsTotal.Collect(ch)
	m.OperationDuration.Collect(ch)
	m.ErrorsTotal.Collect(ch)
	m.RecordCount.Collect(ch)
	m.ImageSize.Collect(ch)
}

// Describe implements the prometheus.Collector interface.
func (m *ObservationMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.OperationsTotal.Describe(ch)
	m.OperationDuration.Describe(ch)
	m.ErrorsTotal.Describe(ch)
	m.RecordCount.Describe(ch)
	m.ImageSize.Describe(ch)
}
