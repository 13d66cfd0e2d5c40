// Package observation holds the biodiversity observation record, the append-only
// observation log and the image store for uploaded photos.
package observation

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the on-disk format of date_observed.
const DateLayout = "2006-01-02"

// Columns is the header of the backing file, in write order.
var Columns = []string{"observation_id", "species_name", "date_observed", "location", "image_url", "notes"}

// Observation represents a single user-submitted sighting
type Observation struct {
	ID           int    `json:"observation_id"`
	SpeciesName  string `json:"species_name"`
	DateObserved Date   `json:"date_observed"`
	Location     string `json:"location"`
	ImageURL     string `json:"image_url"`
	Notes        string `json:"notes"`
}

// Log is an append-only, insertion-ordered store of observations.
// Implementations assign ID as one more than the number of stored records.
type Log interface {
	// Load returns every observation in insertion order, initializing an
	// empty store on first access.
	Load(ctx context.Context) ([]Observation, error)
	// Append assigns the next ID to entry, persists it and returns the stored record.
	Append(ctx context.Context, entry Observation) (Observation, error)
}

// Validate checks an entry before it is appended. Only the date is required;
// free-text fields may be empty.
func (o *Observation) Validate() error {
	if o.DateObserved.IsZero() {
		return validationError("date_observed is required")
	}
	return nil
}

// NormalizeLineEndings rewrites CRLF line breaks in the free-text fields as
// LF, the form a delimited file reads them back in.
func (o *Observation) NormalizeLineEndings() {
	for _, field := range []*string{&o.SpeciesName, &o.Location, &o.ImageURL, &o.Notes} {
		*field = strings.ReplaceAll(*field, "\r\n", "\n")
	}
}

// Date is a calendar date without time of day or location.
type Date struct {
	t time.Time
}

// NewDate returns the date y-m-d.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// Today returns the current local date.
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return Date{t: t}, nil
}

func (d Date) IsZero() bool { return d.t.IsZero() }

func (d Date) Equal(other Date) bool { return d.t.Equal(other.t) }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time { return d.t }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value stores the date as a YYYY-MM-DD string column.
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan reads a date column stored as text or as a DATE value.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = DateOf(v)
		return nil
	case []byte:
		return d.scanString(string(v))
	case string:
		return d.scanString(v)
	default:
		return fmt.Errorf("cannot scan %T into observation.Date", src)
	}
}

func (d *Date) scanString(s string) error {
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
