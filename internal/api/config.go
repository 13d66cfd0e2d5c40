// Package api provides the JSON HTTP interface for BioScout.
package api

import (
	"fmt"
	"time"

	"github.com/bioscout/bioscout/internal/conf"
	"github.com/bioscout/bioscout/internal/logger"
)

// GetLogger returns the api package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("api")
}

// Default constants for the HTTP server.
const (
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 90 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 10 * time.Second

	// bodyLimitOverhead leaves room for the form fields next to the image
	bodyLimitOverhead = 64 * 1024
)

// RateLimitConfig limits identify and ask requests per client IP.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	Burst             int
}

// Config holds the HTTP server configuration.
type Config struct {
	Listen string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration // covers the outbound classifier and Q&A calls
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// BodyLimit is the maximum request body size in bytes
	BodyLimit int64
	RateLimit RateLimitConfig

	AllowedOrigins []string
	Debug          bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen:          "127.0.0.1:8080",
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		IdleTimeout:     DefaultIdleTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		BodyLimit:       conf.DefaultMaxUploadSize + bodyLimitOverhead,
		AllowedOrigins:  []string{"*"},
	}
}

// ConfigFromSettings creates a Config from the application settings.
func ConfigFromSettings(settings *conf.Settings) *Config {
	cfg := DefaultConfig()
	if settings.WebServer.Listen != "" {
		cfg.Listen = settings.WebServer.Listen
	}
	if settings.Observation.MaxUploadSize > 0 {
		cfg.BodyLimit = settings.Observation.MaxUploadSize + bodyLimitOverhead
	}
	cfg.RateLimit = RateLimitConfig{
		Enabled:           settings.WebServer.RateLimit.Enabled,
		RequestsPerMinute: settings.WebServer.RateLimit.RequestsPerMinute,
		Burst:             settings.WebServer.RateLimit.Burst,
	}
	cfg.Debug = settings.Debug
	return cfg
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive")
	}
	if c.BodyLimit <= 0 {
		return fmt.Errorf("body limit must be positive")
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("rate limit requests per minute must be positive, got %d", c.RateLimit.RequestsPerMinute)
	}
	return nil
}

// String returns a human-readable representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf("Server Config: address=%s, body_limit=%d, rate_limit=%v, debug=%v",
		c.Listen, c.BodyLimit, c.RateLimit.Enabled, c.Debug)
}
