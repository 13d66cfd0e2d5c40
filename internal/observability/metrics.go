// Package observability provides Prometheus metrics for BioScout.
// Sentry error telemetry is handled in the telemetry package.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bioscout/bioscout/internal/logger"
	"github.com/bioscout/bioscout/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry     *prometheus.Registry
	Observation  *metrics.ObservationMetrics
	Boundary     *metrics.BoundaryMetrics
	HTTP         *metrics.HTTPMetrics
	MQTT         *metrics.MQTTMetrics
	Notification *metrics.NotificationMetrics
}

// NewMetrics creates a registry and initializes every collector on it.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("failed to register Go collector: %w", err)
	}

	observationMetrics, err := metrics.NewObservationMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create observation metrics: %w", err)
	}

	boundaryMetrics, err := metrics.NewBoundaryMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create boundary metrics: %w", err)
	}

	httpMetrics, err := metrics.NewHTTPMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP metrics: %w", err)
	}

	mqttMetrics, err := metrics.NewMQTTMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create MQTT metrics: %w", err)
	}

	notificationMetrics, err := metrics.NewNotificationMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification metrics: %w", err)
	}

	return &Metrics{
		registry:     registry,
		Observation:  observationMetrics,
		Boundary:     boundaryMetrics,
		HTTP:         httpMetrics,
		MQTT:         mqttMetrics,
		Notification: notificationMetrics,
	}, nil
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      promErrorLog{log: GetLogger()},
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}

// promErrorLog routes promhttp errors into the module logger.
type promErrorLog struct {
	log logger.Logger
}

func (p promErrorLog) Println(v ...any) {
	p.log.Error("metrics handler error", logger.String("detail", fmt.Sprint(v...)))
}
