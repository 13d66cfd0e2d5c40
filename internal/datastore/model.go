package datastore

import (
	"github.com/bioscout/bioscout/internal/observation"
)

// observationRecord is the table row for one observation. The primary key
// is assigned by the store, never by the database.
type observationRecord struct {
	ObservationID int    `gorm:"column:observation_id;primaryKey;autoIncrement:false"`
	SpeciesName   string `gorm:"column:species_name;size:255"`
	DateObserved  string `gorm:"column:date_observed;size:10;not null"`
	Location      string `gorm:"column:location;size:255"`
	ImageURL      string `gorm:"column:image_url;size:1024"`
	Notes         string `gorm:"column:notes;type:text"`
}

// TableName overrides the GORM default table name.
func (observationRecord) TableName() string {
	return "observations"
}

func toRecord(o observation.Observation) observationRecord {
	return observationRecord{
		ObservationID: o.ID,
		SpeciesName:   o.SpeciesName,
		DateObserved:  o.DateObserved.String(),
		Location:      o.Location,
		ImageURL:      o.ImageURL,
		Notes:         o.Notes,
	}
}

func (r observationRecord) toObservation() (observation.Observation, error) {
	date, err := observation.ParseDate(r.DateObserved)
	if err != nil {
		return observation.Observation{}, err
	}
	return observation.Observation{
		ID:           r.ObservationID,
		SpeciesName:  r.SpeciesName,
		DateObserved: date,
		Location:     r.Location,
		ImageURL:     r.ImageURL,
		Notes:        r.Notes,
	}, nil
}
