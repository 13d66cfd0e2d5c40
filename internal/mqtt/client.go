// Package mqtt publishes submitted observations to an MQTT broker.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/bioscout/bioscout/internal/errors"
	"github.com/bioscout/bioscout/internal/logger"
	"github.com/bioscout/bioscout/internal/notification"
	"github.com/bioscout/bioscout/internal/observability/metrics"
)

// Config holds the configuration for the MQTT client.
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
	Retain   bool

	ConnectTimeout    time.Duration
	PublishTimeout    time.Duration
	DisconnectTimeout time.Duration
}

// DefaultConfig returns a Config with reasonable default timeouts.
func DefaultConfig() Config {
	return Config{
		ClientID:          "bioscout",
		Topic:             "bioscout/observations",
		ConnectTimeout:    10 * time.Second,
		PublishTimeout:    5 * time.Second,
		DisconnectTimeout: 250 * time.Millisecond,
	}
}

// pahoClient is the subset of paho.Client used for publishing.
type pahoClient interface {
	Connect() paho.Token
	Publish(topic string, qos byte, retained bool, payload any) paho.Token
	IsConnected() bool
	Disconnect(quiesce uint)
}

// Client publishes observation events as JSON. It implements
// notification.Provider.
type Client struct {
	config  Config
	client  pahoClient
	metrics *metrics.MQTTMetrics
	log     logger.Logger
	mu      sync.Mutex
}

var _ notification.Provider = (*Client)(nil)

// NewClient returns an unconnected client. m may be nil.
func NewClient(cfg Config, m *metrics.MQTTMetrics, log logger.Logger) *Client {
	if log == nil {
		log = logger.Global().Module("mqtt")
	}
	c := &Client{config: cfg, metrics: m, log: log}

	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(cfg.ConnectTimeout)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)
	opts.SetReconnectingHandler(c.onReconnecting)

	c.client = paho.NewClient(opts)
	return c
}

// Name implements notification.Provider.
func (c *Client) Name() string { return "mqtt" }

// Connect establishes the broker connection.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	token := c.client.Connect()
	if err := c.wait(ctx, token, c.config.ConnectTimeout); err != nil {
		c.recordError(metrics.MQTTOpConnect)
		return errors.New(fmt.Errorf("connecting to MQTT broker: %w", err)).
			Component("mqtt").
			Category(errors.CategoryNetwork).
			Context("operation", "connect").
			Build()
	}

	c.setConnected(true)
	c.log.Info("connected to MQTT broker", logger.String("broker", c.config.Broker))
	return nil
}

// IsConnected reports whether the broker connection is up.
func (c *Client) IsConnected() bool {
	return c.client != nil && c.client.IsConnected()
}

// Publish implements notification.Provider by sending event as JSON to the
// configured topic.
func (c *Client) Publish(ctx context.Context, event notification.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding MQTT payload: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.client.IsConnected() {
		c.recordError(metrics.MQTTOpPublish)
		return errors.Newf("not connected to MQTT broker").
			Component("mqtt").
			Category(errors.CategoryNetwork).
			Context("operation", "publish").
			Build()
	}

	start := time.Now()
	token := c.client.Publish(c.config.Topic, 0, c.config.Retain, payload)
	if err := c.wait(ctx, token, c.config.PublishTimeout); err != nil {
		c.recordError(metrics.MQTTOpPublish)
		return errors.New(fmt.Errorf("publishing to %s: %w", c.config.Topic, err)).
			Component("mqtt").
			Category(errors.CategoryNetwork).
			Context("operation", "publish").
			Build()
	}

	if c.metrics != nil {
		c.metrics.RecordPublish(len(payload), time.Since(start))
	}
	c.log.Debug("published observation",
		logger.String("topic", c.config.Topic),
		logger.Int("observation_id", event.Observation.ID),
		logger.Int("size", len(payload)))
	return nil
}

// Disconnect closes the broker connection.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client.IsConnected() {
		c.client.Disconnect(uint(c.config.DisconnectTimeout.Milliseconds()))
	}
	c.setConnected(false)
}

// wait blocks until token completes, the timeout elapses or ctx ends.
func (c *Client) wait(ctx context.Context, token paho.Token, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultConfig().PublishTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return fmt.Errorf("timed out after %s", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) recordError(operation string) {
	if c.metrics != nil {
		c.metrics.RecordError(operation)
	}
}

func (c *Client) setConnected(connected bool) {
	if c.metrics != nil {
		c.metrics.SetConnected(connected)
	}
}

func (c *Client) onConnect(_ paho.Client) {
	c.setConnected(true)
}

func (c *Client) onConnectionLost(_ paho.Client, err error) {
	c.log.Warn("connection to MQTT broker lost",
		logger.String("broker", c.config.Broker),
		logger.Error(err))
	c.setConnected(false)
	c.recordError(metrics.MQTTOpConnectionLost)
}

func (c *Client) onReconnecting(_ paho.Client, _ *paho.ClientOptions) {
	if c.metrics != nil {
		c.metrics.RecordReconnect()
	}
}
