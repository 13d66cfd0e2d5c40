// Package telemetry provides opt-in, privacy-filtered error reporting to Sentry.
package telemetry

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/bioscout/bioscout/internal/buildinfo"
	"github.com/bioscout/bioscout/internal/conf"
	"github.com/bioscout/bioscout/internal/errors"
	"github.com/bioscout/bioscout/internal/logger"
)

var sentryInitialized atomic.Bool

// InitSentry initializes the Sentry SDK when enabled in settings and routes
// EnhancedErrors to it. It is a no-op when Sentry is disabled.
func InitSentry(settings *conf.Settings, build *buildinfo.Context) error {
	if !settings.Sentry.Enabled {
		GetLogger().Debug("error reporting disabled")
		return nil
	}
	return initWithOptions(sentry.ClientOptions{
		Dsn:              settings.Sentry.DSN,
		Environment:      settings.Sentry.Environment,
		Release:          build.Release(),
		SampleRate:       1.0,
		AttachStacktrace: false,
		ServerName:       "",
	})
}

func initWithOptions(opts sentry.ClientOptions) error {
	opts.BeforeSend = func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
		return applyPrivacyFilters(event)
	}

	if err := sentry.Init(opts); err != nil {
		return errors.New(fmt.Errorf("sentry initialization failed: %w", err)).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	sentryInitialized.Store(true)
	GetLogger().Info("error reporting enabled", logger.String("environment", opts.Environment))
	return nil
}

// applyPrivacyFilters removes host and user identifying data from event.
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""
	event.Message = errors.ScrubMessage(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = errors.ScrubMessage(event.Exception[i].Value)
	}

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}
	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}
	return event
}

// Enabled reports whether InitSentry configured a client.
func Enabled() bool {
	return sentryInitialized.Load()
}

// Flush waits for buffered events to be delivered.
func Flush(timeout time.Duration) {
	if !Enabled() {
		return
	}
	if !sentry.Flush(timeout) {
		GetLogger().Warn("timed out flushing error reports", logger.Duration("timeout", timeout))
	}
}

// Shutdown flushes and detaches the reporter from the errors package.
func Shutdown(timeout time.Duration) {
	Flush(timeout)
	errors.SetTelemetryReporter(nil)
	sentryInitialized.Store(false)
}
