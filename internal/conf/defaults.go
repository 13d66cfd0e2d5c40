// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Upload limits carried over from the web form
const (
	DefaultMaxUploadSize = 5 * 1024 * 1024
	DefaultOpenRouterURL = "https://openrouter.ai/api/v1/chat/completions"
	DefaultClassifierURL = "http://localhost:3001/api/v1/classify"
)

// DefaultAllowedImageTypes are the content types accepted for observation photos.
var DefaultAllowedImageTypes = []string{"image/jpeg", "image/jpg", "image/png", "image/webp"}

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("logging.default_level", "info")
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "info")
	viper.SetDefault("logging.file_output.enabled", false)
	viper.SetDefault("logging.file_output.path", "logs/bioscout.log")
	viper.SetDefault("logging.file_output.level", "info")

	viper.SetDefault("observation.backend", BackendCSV)
	viper.SetDefault("observation.csvpath", "observations.csv")
	viper.SetDefault("observation.imagedir", "images")
	viper.SetDefault("observation.maxuploadsize", DefaultMaxUploadSize)
	viper.SetDefault("observation.allowedtypes", DefaultAllowedImageTypes)

	viper.SetDefault("datastore.sqlite.path", "bioscout.db")
	viper.SetDefault("datastore.mysql.host", "localhost")
	viper.SetDefault("datastore.mysql.port", 3306)
	viper.SetDefault("datastore.mysql.username", "bioscout")
	viper.SetDefault("datastore.mysql.password", "")
	viper.SetDefault("datastore.mysql.passwordfile", "")
	viper.SetDefault("datastore.mysql.database", "bioscout")

	viper.SetDefault("classifier.endpoint", DefaultClassifierURL)
	viper.SetDefault("classifier.timeout", 30*time.Second)

	viper.SetDefault("qa.endpoint", DefaultOpenRouterURL)
	viper.SetDefault("qa.model", "openai/gpt-3.5-turbo")
	viper.SetDefault("qa.apikey", "")
	viper.SetDefault("qa.apikeyfile", "")
	viper.SetDefault("qa.timeout", 30*time.Second)

	viper.SetDefault("webserver.listen", "127.0.0.1:8080")
	viper.SetDefault("webserver.ratelimit.enabled", false)
	viper.SetDefault("webserver.ratelimit.requestsperminute", 30)
	viper.SetDefault("webserver.ratelimit.burst", 5)

	viper.SetDefault("notification.shoutrrr.enabled", false)
	viper.SetDefault("notification.shoutrrr.urls", []string{})
	viper.SetDefault("notification.shoutrrr.timeout", 10*time.Second)

	viper.SetDefault("notification.mqtt.enabled", false)
	viper.SetDefault("notification.mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("notification.mqtt.topic", "bioscout/observations")
	viper.SetDefault("notification.mqtt.clientid", "bioscout")
	viper.SetDefault("notification.mqtt.username", "")
	viper.SetDefault("notification.mqtt.password", "")
	viper.SetDefault("notification.mqtt.passwordfile", "")
	viper.SetDefault("notification.mqtt.retain", false)

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
	viper.SetDefault("sentry.environment", "production")

	viper.SetDefault("metrics.enabled", true)
}
