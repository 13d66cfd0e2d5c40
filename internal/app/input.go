package app

import (
	"strings"

	"github.com/bioscout/bioscout/internal/errors"
	"github.com/bioscout/bioscout/internal/observation"
)

// ParseObservedDate parses a YYYY-MM-DD form value. A blank value means today.
func ParseObservedDate(raw string) (observation.Date, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return observation.Today(), nil
	}
	d, err := observation.ParseDate(raw)
	if err != nil {
		return observation.Date{}, errors.New(err).
			Component("app").
			Category(errors.CategoryValidation).
			Context("field", "date_observed").
			Build()
	}
	return d, nil
}
