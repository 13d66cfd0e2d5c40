// conf/validate.go

package conf

import (
	"fmt"
	"net"
	"slices"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	validators := []func(*Settings) error{
		validateObservationSettings,
		validateDatastoreSettings,
		validateServiceSettings,
		validateWebServerSettings,
		validateNotificationSettings,
		validateSentrySettings,
	}
	for _, validate := range validators {
		if err := validate(settings); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateObservationSettings(s *Settings) error {
	var errs []string
	o := &s.Observation

	switch o.Backend {
	case BackendCSV:
		if strings.TrimSpace(o.CSVPath) == "" {
			errs = append(errs, "observation.csvpath must be set for the csv backend")
		}
	case BackendSQLite, BackendMySQL:
	default:
		errs = append(errs, fmt.Sprintf("observation.backend %q is not one of csv, sqlite, mysql", o.Backend))
	}

	if strings.TrimSpace(o.ImageDir) == "" {
		errs = append(errs, "observation.imagedir must be set")
	}
	if o.MaxUploadSize <= 0 {
		errs = append(errs, "observation.maxuploadsize must be positive")
	}
	if len(o.AllowedTypes) == 0 {
		errs = append(errs, "observation.allowedtypes must list at least one content type")
	}
	for _, t := range o.AllowedTypes {
		if !strings.HasPrefix(t, "image/") {
			errs = append(errs, fmt.Sprintf("observation.allowedtypes entry %q is not an image type", t))
		}
	}

	return joinErrors("observation settings", errs)
}

func validateDatastoreSettings(s *Settings) error {
	var errs []string

	switch s.Observation.Backend {
	case BackendSQLite:
		if s.Datastore.SQLite.Path == "" {
			errs = append(errs, "datastore.sqlite.path must be set for the sqlite backend")
		}
	case BackendMySQL:
		m := s.Datastore.MySQL
		if m.Host == "" || m.Database == "" || m.Username == "" {
			errs = append(errs, "datastore.mysql host, database and username must be set for the mysql backend")
		}
		if m.Port < 1 || m.Port > 65535 {
			errs = append(errs, fmt.Sprintf("datastore.mysql.port %d is out of range", m.Port))
		}
	}

	return joinErrors("datastore settings", errs)
}

// validateServiceSettings checks the outbound endpoints. A missing API key is
// not an error here; the service rejects the keyless request.
func validateServiceSettings(s *Settings) error {
	var errs []string

	if err := validateHTTPURL(s.Classifier.Endpoint); err != nil {
		errs = append(errs, fmt.Sprintf("classifier.endpoint: %v", err))
	}
	if err := validateHTTPURL(s.QA.Endpoint); err != nil {
		errs = append(errs, fmt.Sprintf("qa.endpoint: %v", err))
	}
	if strings.TrimSpace(s.QA.Model) == "" {
		errs = append(errs, "qa.model must be set")
	}
	if s.Classifier.Timeout < 0 || s.QA.Timeout < 0 {
		errs = append(errs, "service timeouts must not be negative")
	}

	return joinErrors("service settings", errs)
}

func validateWebServerSettings(s *Settings) error {
	var errs []string

	if _, _, err := net.SplitHostPort(s.WebServer.Listen); err != nil {
		errs = append(errs, fmt.Sprintf("webserver.listen %q: %v", s.WebServer.Listen, err))
	}
	rl := s.WebServer.RateLimit
	if rl.Enabled && (rl.RequestsPerMinute <= 0 || rl.Burst <= 0) {
		errs = append(errs, "webserver.ratelimit requestsperminute and burst must be positive when enabled")
	}

	return joinErrors("webserver settings", errs)
}

func validateNotificationSettings(s *Settings) error {
	var errs []string

	sh := s.Notification.Shoutrrr
	if sh.Enabled && len(sh.URLs) == 0 {
		errs = append(errs, "notification.shoutrrr.urls must not be empty when enabled")
	}

	mq := s.Notification.MQTT
	if mq.Enabled {
		if mq.Broker == "" {
			errs = append(errs, "notification.mqtt.broker must be set when enabled")
		}
		if mq.Topic == "" || strings.ContainsAny(mq.Topic, "+#") {
			errs = append(errs, fmt.Sprintf("notification.mqtt.topic %q must be a non-empty topic without wildcards", mq.Topic))
		}
	}

	return joinErrors("notification settings", errs)
}

func validateSentrySettings(s *Settings) error {
	if s.Sentry.Enabled && s.Sentry.DSN == "" {
		return fmt.Errorf("sentry settings: sentry.dsn must be set when enabled")
	}
	return nil
}

func joinErrors(section string, errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s: %s", section, strings.Join(slices.Compact(errs), "; "))
}
