package ephemeris

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateUTCOffset(t *testing.T) {
	tests := []struct {
		longitude float64
		expected  int
	}{
		{0, 0},
		{-74.006, -300},
		{151.2093, 600},
		{7.4, 0},
		{7.6, 60},
		{-180, -720},
		{180, 720},
	}

	for _, tt := range tests {
		if got := EstimateUTCOffset(tt.longitude); got != tt.expected {
			t.Errorf("EstimateUTCOffset(%v) = %d, expected %d", tt.longitude, got, tt.expected)
		}
	}
}

func TestEstimatedZone(t *testing.T) {
	zone := EstimatedZone(-74.006)
	at := time.Date(2024, 6, 21, 16, 0, 0, 0, time.UTC).In(zone)

	name, offset := at.Zone()
	assert.Equal(t, "UTC-05:00", name)
	assert.Equal(t, -5*3600, offset)
	assert.Equal(t, 11, at.Hour())

	name, _ = time.Now().In(EstimatedZone(151.2)).Zone()
	assert.Equal(t, "UTC+10:00", name)
}

func TestSunTimesNewYork(t *testing.T) {
	at := time.Date(2024, 6, 21, 16, 0, 0, 0, time.UTC)
	times, err := SunTimes(newYork, at)
	require.NoError(t, err)

	// 05:25 and 20:31 EDT
	assert.WithinDuration(t, time.Date(2024, 6, 21, 9, 25, 0, 0, time.UTC), times.Sunrise, 5*time.Minute)
	assert.WithinDuration(t, time.Date(2024, 6, 22, 0, 31, 0, 0, time.UTC), times.Sunset, 5*time.Minute)
	assert.True(t, times.SolarNoon.After(times.Sunrise))
	assert.True(t, times.SolarNoon.Before(times.Sunset))
}

func TestSunTimesInvalidCoordinate(t *testing.T) {
	_, err := SunTimes(Coordinate{Latitude: 100}, time.Now())
	assert.ErrorIs(t, err, ErrInvalidCoordinate)
}
