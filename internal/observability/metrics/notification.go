package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// NotificationMetrics tracks push notification deliveries.
type NotificationMetrics struct {
	DeliveriesTotal  *prometheus.CounterVec
	DeliveryDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewNotificationMetrics creates and registers the notification collectors.
func NewNotificationMetrics(registry *prometheus.Registry) (*NotificationMetrics, error) {
	m := &NotificationMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register notification metrics: %w", err)
	}
	return m, nil
}

func (m *NotificationMetrics) initMetrics() {
	m.DeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_deliveries_total",
			Help: "Total number of push notification deliveries by provider and status",
		},
		[]string{"provider", "status"},
	)

	m.DeliveryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notification_delivery_duration_seconds",
			Help:    "Duration of push notification deliveries in seconds",
			Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount10),
		},
		[]string{"provider"},
	)
}

// RecordDelivery records one delivery attempt to provider.
func (m *NotificationMetrics) RecordDelivery(provider, status string, seconds float64) {
	m.DeliveriesTotal.WithLabelValues(provider, status).Inc()
	m.DeliveryDuration.WithLabelValues(provider).Observe(seconds)
}

// Collect implements the prometheus.Collector interface.
func (m *NotificationMetrics) Collect(ch chan<- prometheus.Metric) {
	m.DeliveriesTotal.Collect(ch)
	m.DeliveryDuration.Collect(ch)
}

// Describe implements the prometheus.Collector interface.
func (m *NotificationMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.DeliveriesTotal.Describe(ch)
	m.DeliveryDuration.Describe(ch)
}
