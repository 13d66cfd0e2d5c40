// env.go - environment variable configuration and validation
package conf

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "BIOSCOUT_DEBUG", validateEnvBool},
		{"logging.default_level", "BIOSCOUT_LOG_LEVEL", validateEnvLogLevel},

		// Observation log
		{"observation.backend", "BIOSCOUT_BACKEND", validateEnvBackend},
		{"observation.csvpath", "BIOSCOUT_CSV_PATH", nil},
		{"observation.imagedir", "BIOSCOUT_IMAGE_DIR", nil},
		{"observation.maxuploadsize", "BIOSCOUT_MAX_UPLOAD_SIZE", validateEnvPositiveInt},
		{"datastore.sqlite.path", "BIOSCOUT_SQLITE_PATH", nil},
		{"datastore.mysql.host", "BIOSCOUT_MYSQL_HOST", nil},
		{"datastore.mysql.port", "BIOSCOUT_MYSQL_PORT", validateEnvPort},
		{"datastore.mysql.username", "BIOSCOUT_MYSQL_USERNAME", nil},
		{"datastore.mysql.password", "BIOSCOUT_MYSQL_PASSWORD", nil},
		{"datastore.mysql.passwordfile", "BIOSCOUT_MYSQL_PASSWORD_FILE", nil},
		{"datastore.mysql.database", "BIOSCOUT_MYSQL_DATABASE", nil},

		// Outbound services
		{"classifier.endpoint", "BIOSCOUT_CLASSIFIER_ENDPOINT", validateEnvURL},
		{"qa.endpoint", "BIOSCOUT_QA_ENDPOINT", validateEnvURL},
		{"qa.model", "BIOSCOUT_QA_MODEL", nil},
		{"qa.apikey", "OPENROUTER_API_KEY", nil},
		{"qa.apikeyfile", "OPENROUTER_API_KEY_FILE", nil},

		{"webserver.listen", "BIOSCOUT_LISTEN", nil},
		{"sentry.dsn", "BIOSCOUT_SENTRY_DSN", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f", value)
	}
	return nil
}

func validateEnvLogLevel(value string) error {
	switch strings.ToLower(value) {
	case "trace", "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("log level must be one of trace, debug, info, warn, error")
}

func validateEnvBackend(value string) error {
	switch value {
	case BackendCSV, BackendSQLite, BackendMySQL:
		return nil
	}
	return fmt.Errorf("backend must be one of %s, %s, %s", BackendCSV, BackendSQLite, BackendMySQL)
}

func validateEnvPositiveInt(value string) error {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid integer: %w", err)
	}
	if n <= 0 {
		return fmt.Errorf("must be positive, got %d", n)
	}
	return nil
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid port: %w", err)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

func validateEnvURL(value string) error {
	return validateHTTPURL(value)
}

// validateHTTPURL accepts absolute http and https URLs with a host
func validateHTTPURL(value string) error {
	u, err := url.ParseRequestURI(value)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must include a host")
	}
	return nil
}
