package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
)

// captureTransport keeps every event in memory instead of sending it.
type captureTransport struct {
	mu     sync.Mutex
	events []*sentry.Event
	added  chan struct{}
}

func newCaptureTransport() *captureTransport {
	return &captureTransport{added: make(chan struct{}, 64)}
}

//nolint:gocritic // signature fixed by sentry.Transport
func (t *captureTransport) Configure(sentry.ClientOptions) {}

func (t *captureTransport) SendEvent(event *sentry.Event) {
	t.mu.Lock()
	t.events = append(t.events, event)
	t.mu.Unlock()
	select {
	case t.added <- struct{}{}:
	default:
	}
}

func (t *captureTransport) Flush(time.Duration) bool { return true }

func (t *captureTransport) FlushWithContext(ctx context.Context) bool { return ctx.Err() == nil }

func (t *captureTransport) Close() {}

func (t *captureTransport) Events() []*sentry.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*sentry.Event(nil), t.events...)
}

// waitForEvents blocks until at least n events arrived or timeout elapses.
func (t *captureTransport) waitForEvents(n int, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for len(t.Events()) < n {
		select {
		case <-t.added:
		case <-deadline:
			return false
		}
	}
	return true
}
