package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateTime_ZonelessUsesClinicLocation(t *testing.T) {
	newYork, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	SetZonelessLocation(newYork)
	t.Cleanup(func() { SetZonelessLocation(nil) })

	d, err := ParseDateTime("2025-06-05T01:00")
	require.NoError(t, err)
	y, m, day := d.In(newYork).Date()
	assert.Equal(t, 2025, y)
	assert.Equal(t, time.June, m)
	assert.Equal(t, 5, day)
	assert.Equal(t, 1, d.In(newYork).Hour())
	assert.Equal(t, "2025-06-05T05:00:00.000Z", FormatISO(d.Time))

	var fromJSON DateTime
	require.NoError(t, json.Unmarshal([]byte(`"2025-06-05T01:00"`), &fromJSON))
	assert.True(t, fromJSON.Equal(d.Time))

	withOffset, err := ParseDateTime("2025-06-05T01:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, 4, withOffset.In(newYork).Day())
}

func TestSetZonelessLocation_NilRestoresUTC(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	SetZonelessLocation(tokyo)
	assert.Equal(t, tokyo, ZonelessLocation())
	SetZonelessLocation(nil)
	assert.Equal(t, time.UTC, ZonelessLocation())
}

func TestOptionalDateTime(t *testing.T) {
	assert.Nil(t, OptionalDateTime(DateTime{}))

	at := NewDateTime(time.Date(2025, 6, 5, 9, 0, 0, 0, time.UTC))
	got := OptionalDateTime(at)
	require.NotNil(t, got)
	assert.True(t, got.Equal(at.Time))
}
