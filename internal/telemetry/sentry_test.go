package telemetry

import (
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bioscout/bioscout/internal/buildinfo"
	"github.com/bioscout/bioscout/internal/conf"
	"github.com/bioscout/bioscout/internal/errors"
)

// These tests share the global Sentry hub and must not run in parallel.

func setupCapture(t *testing.T) *captureTransport {
	t.Helper()
	transport := newCaptureTransport()
	require.NoError(t, initWithOptions(sentry.ClientOptions{
		Dsn:       "",
		Transport: transport,
	}))
	t.Cleanup(func() { Shutdown(time.Second) })
	return transport
}

func TestInitSentryDisabled(t *testing.T) {
	settings := &conf.Settings{}
	require.NoError(t, InitSentry(settings, buildinfo.NewContext("1.0.0", "")))
	assert.False(t, Enabled())
}

func TestEnhancedErrorsAreReported(t *testing.T) {
	transport := setupCapture(t)
	assert.True(t, Enabled())

	_ = errors.Newf("request to https://openrouter.ai/api?key=abc failed with Bearer sk-or-v1-secretsecret").
		Component("qna").
		Category(errors.CategoryNetwork).
		Context("operation", "ask").
		Build()

	require.True(t, transport.waitForEvents(1, time.Second))
	events := transport.Events()
	event := events[len(events)-1]

	assert.Equal(t, sentry.LevelWarning, event.Level)
	assert.Equal(t, "qna", event.Tags["component"])
	assert.Equal(t, "network", event.Tags["category"])
	assert.NotContains(t, event.Message, "sk-or-v1-secretsecret")
	assert.NotContains(t, event.Message, "key=abc")
	assert.Empty(t, event.ServerName)
}

func TestShutdownDetachesReporter(t *testing.T) {
	transport := setupCapture(t)
	Shutdown(time.Second)

	_ = errors.Newf("after shutdown").Category(errors.CategoryStorage).Build()
	assert.Empty(t, transport.Events())
	assert.Nil(t, errors.GetTelemetryReporter())
}

func TestApplyPrivacyFilters(t *testing.T) {
	event := &sentry.Event{
		Message:    "failed at https://example.com/x?token=1",
		ServerName: "scout-host",
		User:       sentry.User{ID: "42"},
		Contexts:   map[string]sentry.Context{"os": {"name": "linux"}, "error": {"value": "x"}},
		Tags:       map[string]string{"hostname": "scout-host", "component": "api"},
	}

	filtered := applyPrivacyFilters(event)
	assert.Empty(t, filtered.ServerName)
	assert.Empty(t, filtered.User.ID)
	assert.NotContains(t, filtered.Contexts, "os")
	assert.Contains(t, filtered.Contexts, "error")
	assert.NotContains(t, filtered.Tags, "hostname")
	assert.Equal(t, "failed at https://example.com/x?[REDACTED]", filtered.Message)
}
