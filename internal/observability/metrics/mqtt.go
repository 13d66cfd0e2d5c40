package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MQTT error operation label values.
const (
	MQTTOpConnect        = "connect"
	MQTTOpPublish        = "publish"
	MQTTOpConnectionLost = "connection_lost"
)

// MQTTMetrics tracks observation events published to the MQTT broker.
type MQTTMetrics struct {
	Connected       prometheus.Gauge
	PublishesTotal  *prometheus.CounterVec
	ErrorsTotal     *prometheus.CounterVec
	Reconnects      prometheus.Counter
	PayloadSize     prometheus.Histogram
	PublishDuration prometheus.Histogram
}

// NewMQTTMetrics creates and registers the MQTT collectors.
func NewMQTTMetrics(registry *prometheus.Registry) (*MQTTMetrics, error) {
	m := &MQTTMetrics{
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mqtt_connected",
			Help: "1 while the broker connection is up",
		}),
		PublishesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mqtt_publishes_total",
				Help: "Observation events published, by status",
			},
			[]string{"status"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mqtt_errors_total",
				Help: "MQTT failures, by operation",
			},
			[]string{"operation"},
		),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mqtt_reconnects_total",
			Help: "Automatic reconnection attempts",
		}),
		PayloadSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mqtt_payload_size_bytes",
			Help:    "Size of published observation events",
			Buckets: prometheus.ExponentialBuckets(BucketStart64B, BucketFactor2, BucketCount10),
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mqtt_publish_duration_seconds",
			Help:    "Time until the broker acknowledged a publish",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount10),
		}),
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register MQTT metrics: %w", err)
	}
	return m, nil
}

// SetConnected updates the connection gauge.
func (m *MQTTMetrics) SetConnected(connected bool) {
	if connected {
		m.Connected.Set(1)
		return
	}
	m.Connected.Set(0)
}

// RecordPublish records a completed publish of size bytes.
func (m *MQTTMetrics) RecordPublish(size int, elapsed time.Duration) {
	m.PublishesTotal.WithLabelValues(StatusSuccess).Inc()
	m.PayloadSize.Observe(float64(size))
	m.PublishDuration.Observe(elapsed.Seconds())
}

// RecordError counts a failure of operation. Failed publishes are also
// counted in PublishesTotal.
func (m *MQTTMetrics) RecordError(operation string) {
	m.ErrorsTotal.WithLabelValues(operation).Inc()
	if operation == MQTTOpPublish {
		m.PublishesTotal.WithLabelValues(StatusError).Inc()
	}
}

// RecordReconnect counts a reconnection attempt.
func (m *MQTTMetrics) RecordReconnect() {
	m.Reconnects.Inc()
}

// Collect implements the prometheus.Collector interface.
func (m *MQTTMetrics) Collect(ch chan<- prometheus.Metric) {
	m.Connected.Collect(ch)
	m.PublishesTotal.Collect(ch)
	m.ErrorsTotal.Collect(ch)
	m.Reconnects.Collect(ch)
	m.PayloadSize.Collect(ch)
	m.PublishDuration.Collect(ch)
}

// Describe implements the prometheus.Collector interface.
func (m *MQTTMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.Connected.Describe(ch)
	m.PublishesTotal.Describe(ch)
	m.ErrorsTotal.Describe(ch)
	m.Reconnects.Describe(ch)
	m.PayloadSize.Describe(ch)
	m.PublishDuration.Describe(ch)
}
