// config.go: settings struct and functions to load and save BioScout configuration.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/bioscout/bioscout/internal/logger"
	"github.com/bioscout/bioscout/internal/secrets"
)

//go:embed config.yaml
var configFiles embed.FS

// Observation log backends
const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
	BackendMySQL  = "mysql"
)

// ObservationSettings configures the observation log and its image directory.
type ObservationSettings struct {
	Backend       string   `mapstructure:"backend" yaml:"backend"`             // csv, sqlite or mysql
	CSVPath       string   `mapstructure:"csvpath" yaml:"csvpath"`             // delimited backing file
	ImageDir      string   `mapstructure:"imagedir" yaml:"imagedir"`           // uploaded images are stored here
	MaxUploadSize int64    `mapstructure:"maxuploadsize" yaml:"maxuploadsize"` // bytes
	AllowedTypes  []string `mapstructure:"allowedtypes" yaml:"allowedtypes"`   // accepted image content types
}

// SQLiteSettings holds the SQLite backend file.
type SQLiteSettings struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// MySQLSettings holds MySQL connection details.
type MySQLSettings struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	// PasswordFile, when set, is read instead of Password
	PasswordFile string `mapstructure:"passwordfile" yaml:"passwordfile"`
	Database     string `mapstructure:"database" yaml:"database"`
}

type DatastoreSettings struct {
	SQLite SQLiteSettings `mapstructure:"sqlite" yaml:"sqlite"`
	MySQL  MySQLSettings  `mapstructure:"mysql" yaml:"mysql"`
}

// ClassifierSettings configures the image-classification service.
type ClassifierSettings struct {
	Endpoint string        `mapstructure:"endpoint" yaml:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// QASettings configures the chat-completion service used for questions.
type QASettings struct {
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	Model    string `mapstructure:"model" yaml:"model"`
	APIKey   string `mapstructure:"apikey" yaml:"apikey"` // bearer credential, usually from OPENROUTER_API_KEY
	// APIKeyFile, when set, is read instead of APIKey, e.g. /run/secrets/openrouter
	APIKeyFile string        `mapstructure:"apikeyfile" yaml:"apikeyfile"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// RateLimitSettings limits inbound requests to the identify and ask endpoints per client.
type RateLimitSettings struct {
	Enabled           bool `mapstructure:"enabled" yaml:"enabled"`
	RequestsPerMinute int  `mapstructure:"requestsperminute" yaml:"requestsperminute"`
	Burst             int  `mapstructure:"burst" yaml:"burst"`
}

type WebServerSettings struct {
	Listen    string            `mapstructure:"listen" yaml:"listen"`
	RateLimit RateLimitSettings `mapstructure:"ratelimit" yaml:"ratelimit"`
}

type ShoutrrrSettings struct {
	Enabled bool          `mapstructure:"enabled" yaml:"enabled"`
	URLs    []string      `mapstructure:"urls" yaml:"urls"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// MQTTSettings configures publishing of submitted observations.
type MQTTSettings struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Broker   string `mapstructure:"broker" yaml:"broker"`
	Topic    string `mapstructure:"topic" yaml:"topic"`
	ClientID string `mapstructure:"clientid" yaml:"clientid"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	// PasswordFile, when set, is read instead of Password
	PasswordFile string `mapstructure:"passwordfile" yaml:"passwordfile"`
	Retain       bool   `mapstructure:"retain" yaml:"retain"`
}

type NotificationSettings struct {
	Shoutrrr ShoutrrrSettings `mapstructure:"shoutrrr" yaml:"shoutrrr"`
	MQTT     MQTTSettings     `mapstructure:"mqtt" yaml:"mqtt"`
}

// SentrySettings enables opt-in error reporting.
type SentrySettings struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	DSN         string `mapstructure:"dsn" yaml:"dsn"`
	Environment string `mapstructure:"environment" yaml:"environment"`
}

type MetricsSettings struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// Settings contains all configuration options for BioScout.
type Settings struct {
	Debug        bool                 `mapstructure:"debug" yaml:"debug"`
	Logging      logger.LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Observation  ObservationSettings  `mapstructure:"observation" yaml:"observation"`
	Datastore    DatastoreSettings    `mapstructure:"datastore" yaml:"datastore"`
	Classifier   ClassifierSettings   `mapstructure:"classifier" yaml:"classifier"`
	QA           QASettings           `mapstructure:"qa" yaml:"qa"`
	WebServer    WebServerSettings    `mapstructure:"webserver" yaml:"webserver"`
	Notification NotificationSettings `mapstructure:"notification" yaml:"notification"`
	Sentry       SentrySettings       `mapstructure:"sentry" yaml:"sentry"`
	Metrics      MetricsSettings      `mapstructure:"metrics" yaml:"metrics"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into Settings.
// An empty configFile searches the default config paths and writes the
// embedded default config when none is found.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	if err := initViper(configFile); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := resolveSecrets(settings, secrets.NewResolver(nil, GetLogger())); err != nil {
		return nil, fmt.Errorf("error resolving secrets: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper registers defaults and env bindings, then reads the config file.
func initViper(configFile string) error {
	setDefaultConfig()

	if err := bindEnvVars(); err != nil {
		return err
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
		return nil
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig(configPaths)
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}
	return nil
}

// createDefaultConfig writes the embedded config to the per-user config path
func createDefaultConfig(configPaths []string) error {
	configPath := filepath.Join(configPaths[1], "config.yaml")

	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return fmt.Errorf("error reading embedded config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	GetLogger().Info("created default config file", logger.String("path", configPath))
	viper.SetConfigFile(configPath)
	return viper.ReadInConfig()
}

// GetSettings returns the settings loaded by the last successful Load
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// GetDefaultConfigPaths returns the config search paths in priority order.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("error getting home directory: %w", err)
	}
	return []string{
		".",
		filepath.Join(homeDir, ".config", "bioscout"),
		"/etc/bioscout",
	}, nil
}

// SaveYAMLConfig writes settings to configPath through a temporary file and
// rename. It overwrites the existing file and does not preserve comments.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		return fmt.Errorf("error replacing config file: %w", err)
	}
	return nil
}
