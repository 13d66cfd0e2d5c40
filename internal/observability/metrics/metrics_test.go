package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Recorder = (*ObservationMetrics)(nil)
	_ Recorder = (*BoundaryMetrics)(nil)
	_ Recorder = (*NoOpRecorder)(nil)
)

func TestObservationMetrics(t *testing.T) {
	t.Parallel()
	registry := prometheus.NewRegistry()
	m, err := NewObservationMetrics(registry)
	require.NoError(t, err)

	m.RecordOperation(OpAppend, StatusSuccess)
	m.RecordOperation(OpAppend, StatusSuccess)
	m.RecordOperation(OpLoad, StatusError)
	m.RecordError(OpLoad, "storage")
	m.SetRecordCount(2)
	m.RecordDuration(OpAppend, 0.004)
	m.ObserveImageSize(2048)

	assert.InDelta(t, 2, testutil.ToFloat64(m.OperationsTotal.WithLabelValues(OpAppend, StatusSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.OperationsTotal.WithLabelValues(OpLoad, StatusError)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues(OpLoad, "storage")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.RecordCount), 0)

	expected := `
# HELP observation_records Number of records in the observation log at the last load or append
# TYPE observation_records gauge
observation_records 2
`
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "observation_records"))
}

func TestBoundaryMetrics(t *testing.T) {
	t.Parallel()
	registry := prometheus.NewRegistry()
	m, err := NewBoundaryMetrics(registry)
	require.NoError(t, err)

	m.RecordOperation(OpClassify, StatusSuccess)
	m.RecordOperation(OpAsk, StatusError)
	m.RecordError(OpAsk, "network")
	m.RecordDuration(OpAsk, 1.2)
	m.ObserveSuggestion(0.81)

	assert.InDelta(t, 1, testutil.ToFloat64(m.RequestsTotal.WithLabelValues(OpClassify, StatusSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues(OpAsk, "network")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.RequestDuration))
}

func TestMQTTMetrics(t *testing.T) {
	t.Parallel()
	m, err := NewMQTTMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.SetConnected(true)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Connected), 0)
	m.SetConnected(false)
	assert.InDelta(t, 0, testutil.ToFloat64(m.Connected), 0)

	m.RecordPublish(180, 15*time.Millisecond)
	m.RecordError(MQTTOpPublish)
	m.RecordError(MQTTOpConnect)
	m.RecordReconnect()

	assert.InDelta(t, 1, testutil.ToFloat64(m.PublishesTotal.WithLabelValues(StatusSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.PublishesTotal.WithLabelValues(StatusError)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues(MQTTOpConnect)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Reconnects), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.PublishDuration))
}

func TestHTTPAndNotificationMetrics(t *testing.T) {
	t.Parallel()
	registry := prometheus.NewRegistry()
	h, err := NewHTTPMetrics(registry)
	require.NoError(t, err)
	n, err := NewNotificationMetrics(registry)
	require.NoError(t, err)

	h.RecordRequest("GET", "/api/v1/observations", 200, 0.01)
	h.RecordRateLimited("/api/v1/ask")
	n.RecordDelivery("telegram", StatusSuccess, 0.2)

	assert.InDelta(t, 1, testutil.ToFloat64(h.requestsTotal.WithLabelValues("GET", "/api/v1/observations", "200")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(h.rateLimited.WithLabelValues("/api/v1/ask")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(n.DeliveriesTotal.WithLabelValues("telegram", StatusSuccess)), 0)
}

func TestDuplicateRegistrationFails(t *testing.T) {
	t.Parallel()
	registry := prometheus.NewRegistry()
	_, err := NewObservationMetrics(registry)
	require.NoError(t, err)
	_, err = NewObservationMetrics(registry)
	assert.Error(t, err)
}
