package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const classifyURL = "http://classifier.test/api/v1/classify"

// newMockedClient returns a client whose requests never leave the process.
func newMockedClient(t *testing.T, cfg Config) (*Client, *httpmock.MockTransport) {
	t.Helper()
	transport := httpmock.NewMockTransport()
	cfg.Transport = transport
	client := New(&cfg)
	t.Cleanup(client.Close)
	return client, transport
}

func drain(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer func() { assert.NoError(t, resp.Body.Close()) }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestNewAppliesDefaults(t *testing.T) {
	tests := []struct {
		name        string
		cfg         *Config
		wantTimeout time.Duration
		wantAgent   string
	}{
		{"nil config", nil, DefaultTimeout, defaultUserAgent},
		{"zero config", &Config{}, DefaultTimeout, defaultUserAgent},
		{"custom values", &Config{DefaultTimeout: 5 * time.Second, UserAgent: "BioScout-test"}, 5 * time.Second, "BioScout-test"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := New(tt.cfg)
			assert.Equal(t, tt.wantTimeout, client.defaultTimeout)
			assert.Equal(t, tt.wantAgent, client.userAgent)
		})
	}
}

func TestDoSetsUserAgent(t *testing.T) {
	client, transport := newMockedClient(t, Config{UserAgent: "BioScout/1.0"})
	transport.RegisterResponder(http.MethodGet, classifyURL,
		func(req *http.Request) (*http.Response, error) {
			return httpmock.NewStringResponse(http.StatusOK, req.Header.Get("User-Agent")), nil
		})

	resp, err := client.Get(t.Context(), classifyURL)
	require.NoError(t, err)
	assert.Equal(t, "BioScout/1.0", drain(t, resp))
}

func TestDoKeepsExplicitUserAgent(t *testing.T) {
	client, transport := newMockedClient(t, Config{})
	transport.RegisterResponder(http.MethodGet, classifyURL,
		func(req *http.Request) (*http.Response, error) {
			return httpmock.NewStringResponse(http.StatusOK, req.Header.Get("User-Agent")), nil
		})

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, classifyURL, http.NoBody)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "field-app")

	resp, err := client.Do(t.Context(), req)
	require.NoError(t, err)
	assert.Equal(t, "field-app", drain(t, resp))
}

func TestDoRejectsNilRequest(t *testing.T) {
	client := New(nil)
	_, err := client.Do(t.Context(), nil)
	assert.Error(t, err)
}

func TestDoCanceledContext(t *testing.T) {
	client, transport := newMockedClient(t, Config{})
	transport.RegisterResponder(http.MethodGet, classifyURL, httpmock.NewStringResponder(http.StatusOK, "late"))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := client.Get(ctx, classifyURL)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, transport.GetTotalCallCount(), "canceled requests are not sent")
}

func TestDoAppliesDefaultTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(release) })

	client := New(&Config{DefaultTimeout: 50 * time.Millisecond})
	t.Cleanup(client.Close)

	start := time.Now()
	_, err := client.Get(context.Background(), server.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestDoCallerDeadlineWins(t *testing.T) {
	client, transport := newMockedClient(t, Config{DefaultTimeout: time.Millisecond})
	transport.RegisterResponder(http.MethodGet, classifyURL,
		func(req *http.Request) (*http.Response, error) {
			deadline, ok := req.Context().Deadline()
			if !ok || time.Until(deadline) < time.Minute {
				return httpmock.NewStringResponse(http.StatusInternalServerError, "default timeout applied"), nil
			}
			return httpmock.NewStringResponse(http.StatusOK, "caller deadline"), nil
		})

	ctx, cancel := context.WithTimeout(t.Context(), time.Hour)
	defer cancel()

	resp, err := client.Get(ctx, classifyURL)
	require.NoError(t, err)
	assert.Equal(t, "caller deadline", drain(t, resp))
}

func TestBodyReadableUntilClosed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}
		time.Sleep(20 * time.Millisecond)
		_, _ = w.Write([]byte(`{"predictions":{"predictions":[]}}`))
	}))
	t.Cleanup(server.Close)

	client := New(&Config{DefaultTimeout: time.Second})
	t.Cleanup(client.Close)

	resp, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)
	assert.JSONEq(t, `{"predictions":{"predictions":[]}}`, drain(t, resp))
}

func TestHooks(t *testing.T) {
	client, transport := newMockedClient(t, Config{})
	transport.RegisterResponder(http.MethodGet, classifyURL, httpmock.NewStringResponder(http.StatusOK, "ok"))
	transport.RegisterResponder(http.MethodGet, "http://down.test/", httpmock.ConnectionFailure)

	var before []string
	var afterStatus []int
	var afterErrs []error
	client.SetBeforeRequestHook(func(r *http.Request) { before = append(before, r.URL.Host) })
	client.SetAfterResponseHook(func(_ *http.Request, resp *http.Response, err error) {
		if resp != nil {
			afterStatus = append(afterStatus, resp.StatusCode)
		}
		afterErrs = append(afterErrs, err)
	})

	resp, err := client.Get(t.Context(), classifyURL)
	require.NoError(t, err)
	drain(t, resp)

	_, err = client.Get(t.Context(), "http://down.test/")
	require.Error(t, err)

	assert.Equal(t, []string{"classifier.test", "down.test"}, before)
	assert.Equal(t, []int{http.StatusOK}, afterStatus)
	require.Len(t, afterErrs, 2)
	assert.NoError(t, afterErrs[0])
	assert.Error(t, afterErrs[1])
}

func TestPostBodies(t *testing.T) {
	const chatURL = "http://qa.test/api/v1/chat/completions"

	tests := []struct {
		name        string
		contentType string
		body        any
		wantType    string
		wantBody    string
	}{
		{"struct marshals to JSON", "", map[string]string{"question": "Which owls live in Punjab?"}, "application/json", `{"question":"Which owls live in Punjab?"}`},
		{"bytes are sent as is", "image/png", []byte("png-bytes"), "image/png", "png-bytes"},
		{"string is sent as is", "text/plain", "hello", "text/plain", "hello"},
		{"reader is streamed", "application/octet-stream", strings.NewReader("stream"), "application/octet-stream", "stream"},
		{"nil sends no body", "", nil, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, transport := newMockedClient(t, Config{})
			transport.RegisterResponder(http.MethodPost, chatURL,
				func(req *http.Request) (*http.Response, error) {
					body, err := io.ReadAll(req.Body)
					if err != nil {
						return nil, err
					}
					assert.Equal(t, tt.wantType, req.Header.Get("Content-Type"))
					assert.Equal(t, "Bearer sk-test", req.Header.Get("Authorization"))
					return httpmock.NewBytesResponse(http.StatusOK, body), nil
				})

			resp, err := client.Post(t.Context(), chatURL, tt.contentType, tt.body, BearerAuth("sk-test"))
			require.NoError(t, err)
			assert.Equal(t, tt.wantBody, drain(t, resp))
		})
	}
}

func TestPostRejectsUnmarshalableBody(t *testing.T) {
	client, transport := newMockedClient(t, Config{})

	_, err := client.Post(t.Context(), classifyURL, "", map[string]any{"bad": make(chan int)})
	require.Error(t, err)
	assert.Zero(t, transport.GetTotalCallCount())
}

func TestCheckStatus(t *testing.T) {
	client, transport := newMockedClient(t, Config{})
	transport.RegisterResponder(http.MethodGet, "http://qa.test/ok", httpmock.NewStringResponder(http.StatusOK, ""))
	transport.RegisterResponder(http.MethodGet, "=~^http://qa\\.test/chat",
		httpmock.NewStringResponder(http.StatusUnauthorized, `{"error":"invalid key"}`))

	resp, err := client.Get(t.Context(), "http://qa.test/ok")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.NoError(t, CheckStatus(resp))
	assert.NoError(t, CheckStatus(resp, http.StatusOK))
	assert.Error(t, CheckStatus(resp, http.StatusCreated))

	resp, err = client.Get(t.Context(), "http://qa.test/chat")
	require.NoError(t, err)
	defer resp.Body.Close()

	var statusErr *StatusError
	require.ErrorAs(t, CheckStatus(resp), &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.Code)
	assert.Contains(t, statusErr.Body, "invalid key")
	assert.Contains(t, statusErr.Error(), "401 Unauthorized")
	assert.Equal(t, "http://qa.test/chat", statusErr.URL)
}

func TestCloseIsIdempotent(t *testing.T) {
	client := New(nil)
	client.Close()
	client.Close()
}
