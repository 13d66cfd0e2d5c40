// Package qna forwards a free-text question to a chat-completion service
// with a fixed system instruction and returns the first reply.
package qna

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/antonholmquist/jason"

	"github.com/bioscout/bioscout/internal/errors"
	"github.com/bioscout/bioscout/internal/httpclient"
	"github.com/bioscout/bioscout/internal/logger"
)

// SystemPrompt is sent ahead of every question.
const SystemPrompt = "You are a helpful assistant knowledgeable about biodiversity in Pakistan."

// Message is one chat-completion message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

// Answer is the service's reply to a question.
type Answer struct {
	Text  string `json:"answer"`
	Model string `json:"model"`
}

// Config holds the endpoint, model and bearer credential.
type Config struct {
	Endpoint string
	Model    string
	APIKey   string
}

// Client asks questions of the chat-completion endpoint, one request per
// question, with no retries and no caching.
type Client struct {
	http *httpclient.Client
	cfg  Config
	log  logger.Logger
}

// New returns a Client. The API key is only checked when Ask is called.
func New(client *httpclient.Client, cfg Config, log logger.Logger) *Client {
	if log == nil {
		log = logger.Global().Module("qna")
	}
	return &Client{http: client, cfg: cfg, log: log}
}

// BuildMessages returns the system instruction followed by the user's question.
func BuildMessages(question string) []Message {
	return []Message{
		{Role: "system", Content: SystemPrompt},
		{Role: "user", Content: question},
	}
}

// Ask sends question and returns choices[0].message.content.
func (c *Client) Ask(ctx context.Context, question string) (Answer, error) {
	if strings.TrimSpace(question) == "" {
		return Answer{}, errors.New(errors.NewStd("question is empty")).
			Component("qna").
			Category(errors.CategoryValidation).
			Build()
	}

	payload := chatRequest{Model: c.cfg.Model, Messages: BuildMessages(question)}

	start := time.Now()
	resp, err := c.http.Post(ctx, c.cfg.Endpoint, "application/json", payload, httpclient.BearerAuth(c.cfg.APIKey))
	if err != nil {
		c.log.Warn("question request failed",
			logger.String("endpoint", c.cfg.Endpoint),
			logger.Error(err))
		return Answer{}, c.networkError(err, 0)
	}
	defer resp.Body.Close()

	if err := httpclient.CheckStatus(resp, http.StatusOK); err != nil {
		c.log.Warn("question service returned an error status",
			logger.Int("status_code", resp.StatusCode),
			logger.String("endpoint", c.cfg.Endpoint))
		return Answer{}, c.networkError(err, resp.StatusCode)
	}

	answer, err := parseAnswer(resp.Body)
	if err != nil {
		return Answer{}, errors.New(err).
			Component("qna").
			Category(errors.CategoryResponseShape).
			NetworkContext(c.cfg.Endpoint, 0).
			Context("operation", "ask").
			Build()
	}
	if answer.Model == "" {
		answer.Model = c.cfg.Model
	}

	c.log.Debug("question answered",
		logger.String("model", answer.Model),
		logger.Int("answer_length", len(answer.Text)),
		logger.Duration("elapsed", time.Since(start)))
	return answer, nil
}

func parseAnswer(body io.Reader) (Answer, error) {
	root, err := jason.NewObjectFromReader(body)
	if err != nil {
		return Answer{}, fmt.Errorf("decoding chat completion: %w", err)
	}

	choices, err := root.GetObjectArray("choices")
	if err != nil || len(choices) == 0 {
		return Answer{}, fmt.Errorf("chat completion has no choices")
	}
	content, err := choices[0].GetString("message", "content")
	if err != nil {
		return Answer{}, fmt.Errorf("choices[0].message.content missing: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		return Answer{}, fmt.Errorf("choices[0].message.content is blank")
	}

	model, _ := root.GetString("model")
	return Answer{Text: content, Model: model}, nil
}

func (c *Client) networkError(err error, statusCode int) error {
	return errors.New(fmt.Errorf("question request: %w", err)).
		Component("qna").
		Category(errors.CategoryNetwork).
		NetworkContext(c.cfg.Endpoint, statusCode).
		Context("operation", "ask").
		Build()
}
