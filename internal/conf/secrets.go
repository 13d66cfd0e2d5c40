package conf

import (
	"fmt"

	"github.com/bioscout/bioscout/internal/secrets"
)

// resolveSecrets replaces credentials with the contents of their *file
// settings and expands ${VAR} references in them and in notification URLs.
func resolveSecrets(s *Settings, r *secrets.Resolver) error {
	targets := []struct {
		name  string
		file  string
		value *string
	}{
		{"qa.apikey", s.QA.APIKeyFile, &s.QA.APIKey},
		{"datastore.mysql.password", s.Datastore.MySQL.PasswordFile, &s.Datastore.MySQL.Password},
		{"notification.mqtt.password", s.Notification.MQTT.PasswordFile, &s.Notification.MQTT.Password},
	}
	for _, t := range targets {
		resolved, err := r.Resolve(t.file, *t.value)
		if err != nil {
			return fmt.Errorf("%s: %w", t.name, err)
		}
		*t.value = resolved
	}

	for i, u := range s.Notification.Shoutrrr.URLs {
		expanded, err := secrets.ExpandString(u)
		if err != nil {
			return fmt.Errorf("notification.shoutrrr.urls[%d]: %w", i, err)
		}
		s.Notification.Shoutrrr.URLs[i] = expanded
	}
	return nil
}
