package qna

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bioscout/bioscout/internal/errors"
	"github.com/bioscout/bioscout/internal/httpclient"
	"github.com/bioscout/bioscout/internal/logger"
)

const testEndpoint = "https://openrouter.ai/api/v1/chat/completions"

func setupQnA(t *testing.T, apiKey string) (*Client, *httpmock.MockTransport) {
	t.Helper()
	transport := httpmock.NewMockTransport()
	httpClient := httpclient.New(&httpclient.Config{Transport: transport})
	t.Cleanup(httpClient.Close)

	cfg := Config{Endpoint: testEndpoint, Model: "openai/gpt-3.5-turbo", APIKey: apiKey}
	return New(httpClient, cfg, logger.NewSlogLogger(nil, logger.LogLevelError)), transport
}

func TestAsk_ReturnsFirstChoice(t *testing.T) {
	t.Parallel()
	client, transport := setupQnA(t, "sk-or-v1-test")

	transport.RegisterResponder(http.MethodPost, testEndpoint, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "Bearer sk-or-v1-test", req.Header.Get("Authorization"))
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))

		var body chatRequest
		data, err := io.ReadAll(req.Body)
		if assert.NoError(t, err) && assert.NoError(t, json.Unmarshal(data, &body)) {
			assert.Equal(t, "openai/gpt-3.5-turbo", body.Model)
			assert.Equal(t, BuildMessages("Where do snow leopards live?"), body.Messages)
		}

		return httpmock.NewStringResponse(http.StatusOK, `{
			"model": "openai/gpt-3.5-turbo-0125",
			"choices": [
				{"message": {"role": "assistant", "content": "In the northern mountains."}},
				{"message": {"role": "assistant", "content": "ignored"}}
			]}`), nil
	})

	answer, err := client.Ask(context.Background(), "Where do snow leopards live?")
	require.NoError(t, err)
	assert.Equal(t, "In the northern mountains.", answer.Text)
	assert.Equal(t, "openai/gpt-3.5-turbo-0125", answer.Model)
}

func TestBuildMessagesStartsWithSystemPrompt(t *testing.T) {
	t.Parallel()
	msgs := BuildMessages("What is a markhor?")
	require.Len(t, msgs, 2)
	assert.Equal(t, Message{Role: "system", Content: "You are a helpful assistant knowledgeable about biodiversity in Pakistan."}, msgs[0])
	assert.Equal(t, Message{Role: "user", Content: "What is a markhor?"}, msgs[1])
}

func TestAsk_Unauthorized(t *testing.T) {
	t.Parallel()
	client, transport := setupQnA(t, "sk-or-v1-revoked")
	transport.RegisterResponder(http.MethodPost, testEndpoint,
		httpmock.NewStringResponder(http.StatusUnauthorized, `{"error":{"message":"No auth credentials found","code":401}}`))

	answer, err := client.Ask(context.Background(), "Is the Indus dolphin endangered?")
	require.Error(t, err)
	assert.Empty(t, answer.Text, "no partial answer on failure")
	assert.True(t, errors.IsCategory(err, errors.CategoryNetwork))

	var statusErr *httpclient.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.Code)
}

func TestAsk_MissingContent(t *testing.T) {
	t.Parallel()

	bodies := map[string]string{
		"no choices":      `{"choices":[]}`,
		"choices missing": `{"id":"gen-1"}`,
		"no message":      `{"choices":[{"finish_reason":"stop"}]}`,
		"content null":    `{"choices":[{"message":{"content":null}}]}`,
		"content blank":   `{"choices":[{"message":{"content":"  "}}]}`,
		"not json":        `upstream timeout`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			client, transport := setupQnA(t, "sk-or-v1-test")
			transport.RegisterResponder(http.MethodPost, testEndpoint, httpmock.NewStringResponder(http.StatusOK, body))

			_, err := client.Ask(context.Background(), "Name a native fish")
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryResponseShape), "got %v", err)
		})
	}
}

func TestAsk_BlankQuestionMakesNoCall(t *testing.T) {
	t.Parallel()
	client, transport := setupQnA(t, "sk-or-v1-test")

	_, err := client.Ask(context.Background(), " \n\t")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
	assert.Zero(t, transport.GetTotalCallCount())
}

func TestAsk_MissingAPIKeySurfacesAsStatus(t *testing.T) {
	t.Parallel()
	client, transport := setupQnA(t, "")
	transport.RegisterResponder(http.MethodPost, testEndpoint,
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "Bearer", strings.TrimSpace(req.Header.Get("Authorization")))
			return httpmock.NewStringResponse(http.StatusUnauthorized, `{"error":{"message":"No auth credentials found","code":401}}`), nil
		})

	_, err := client.Ask(context.Background(), "What is the national bird?")
	require.Error(t, err)
	assert.Equal(t, 1, transport.GetTotalCallCount())
	assert.True(t, errors.IsCategory(err, errors.CategoryNetwork))

	var statusErr *httpclient.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.Code)
}

func TestAsk_TransportFailure(t *testing.T) {
	t.Parallel()
	client, transport := setupQnA(t, "sk-or-v1-test")
	transport.RegisterResponder(http.MethodPost, testEndpoint, httpmock.NewErrorResponder(context.DeadlineExceeded))

	_, err := client.Ask(context.Background(), "What is the national bird?")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNetwork))
}
