package observation

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	t.Parallel()

	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.True(t, d.Equal(NewDate(2024, time.February, 29)))
	assert.Equal(t, "2024-02-29", d.String())

	for _, bad := range []string{"", "2023-02-29", "29/02/2024", "2024-2-9"} {
		_, err := ParseDate(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestDateOfDropsTimeOfDay(t *testing.T) {
	t.Parallel()
	loc := time.FixedZone("PKT", 5*60*60)
	d := DateOf(time.Date(2024, time.March, 3, 23, 30, 0, 0, loc))
	assert.Equal(t, "2024-03-03", d.String())
}

func TestObservationJSON(t *testing.T) {
	t.Parallel()
	obs := Observation{
		ID:           7,
		SpeciesName:  "Indian Peafowl",
		DateObserved: NewDate(2024, time.April, 1),
		Location:     "Cholistan",
	}

	data, err := json.Marshal(obs)
	require.NoError(t, err)
	assert.JSONEq(t, `{"observation_id":7,"species_name":"Indian Peafowl","date_observed":"2024-04-01",
		"location":"Cholistan","image_url":"","notes":""}`, string(data))

	var decoded Observation
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded.DateObserved.Equal(obs.DateObserved))

	assert.Error(t, json.Unmarshal([]byte(`{"date_observed":"April 1"}`), &decoded))
}

func TestDateScanAndValue(t *testing.T) {
	t.Parallel()

	v, err := NewDate(2024, time.June, 5).Value()
	require.NoError(t, err)
	assert.Equal(t, "2024-06-05", v)

	var d Date
	require.NoError(t, d.Scan([]byte("2024-06-05")))
	assert.Equal(t, "2024-06-05", d.String())
	require.NoError(t, d.Scan(time.Date(2024, time.June, 6, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-06-06", d.String())
	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())
	assert.Error(t, d.Scan(42))
}
