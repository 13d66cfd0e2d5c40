// Package notification fans out "observation submitted" events to the
// configured push providers. Delivery failures are logged and counted but
// never reported back to the submitter.
package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/bioscout/bioscout/internal/logger"
	"github.com/bioscout/bioscout/internal/observability/metrics"
	"github.com/bioscout/bioscout/internal/observation"
)

// Event describes one appended observation.
type Event struct {
	Observation observation.Observation `json:"observation"`
	SubmittedAt time.Time               `json:"submitted_at"`
}

// Title returns a short headline for the event.
func (e Event) Title() string {
	species := e.Observation.SpeciesName
	if species == "" {
		species = "Unknown species"
	}
	return "New observation: " + species
}

// Message returns the event body used by text providers.
func (e Event) Message() string {
	o := e.Observation
	msg := fmt.Sprintf("Observation #%d on %s", o.ID, o.DateObserved)
	if o.Location != "" {
		msg += " at " + o.Location
	}
	if o.Notes != "" {
		msg += "\n" + o.Notes
	}
	return msg
}

// Provider delivers events to one destination.
type Provider interface {
	Name() string
	Publish(ctx context.Context, event Event) error
}

// Dispatcher sends each event to every provider in turn.
type Dispatcher struct {
	providers []Provider
	metrics   *metrics.NotificationMetrics
	log       logger.Logger
	now       func() time.Time
}

// NewDispatcher returns a dispatcher for providers. m may be nil.
func NewDispatcher(providers []Provider, m *metrics.NotificationMetrics, log logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.Global().Module("notification")
	}
	return &Dispatcher{providers: providers, metrics: m, log: log, now: time.Now}
}

// Len returns the number of configured providers.
func (d *Dispatcher) Len() int { return len(d.providers) }

// ObservationSubmitted publishes o to every provider and returns the number
// of providers that failed.
func (d *Dispatcher) ObservationSubmitted(ctx context.Context, o observation.Observation) int {
	if d == nil || len(d.providers) == 0 {
		return 0
	}

	event := Event{Observation: o, SubmittedAt: d.now().UTC()}
	failed := 0
	for _, p := range d.providers {
		start := time.Now()
		err := p.Publish(ctx, event)
		elapsed := time.Since(start)

		status := metrics.StatusSuccess
		if err != nil {
			status = metrics.StatusError
			failed++
			d.log.Warn("notification delivery failed",
				logger.String("provider", p.Name()),
				logger.Int("observation_id", o.ID),
				logger.Error(err))
		} else {
			d.log.Debug("notification delivered",
				logger.String("provider", p.Name()),
				logger.Int("observation_id", o.ID),
				logger.Duration("elapsed", elapsed))
		}
		if d.metrics != nil {
			d.metrics.RecordDelivery(p.Name(), status, elapsed.Seconds())
		}
	}
	return failed
}
