package ephemeris

import (
	"math"
	"time"

	"github.com/sixdouglas/suncalc"
)

// EstimateUTCOffset approximates a civil UTC offset in minutes from longitude
// alone, one hour per 15 degrees. It ignores political time zones and DST.
func EstimateUTCOffset(longitude float64) int {
	return int(math.Round(longitude/15)) * 60
}

// EstimatedZone returns a fixed zone for the longitude-based offset
func EstimatedZone(longitude float64) *time.Location {
	offset := EstimateUTCOffset(longitude)
	return time.FixedZone(formatOffset(offset), offset*60)
}

func formatOffset(minutes int) string {
	sign := "+"
	if minutes < 0 {
		sign = "-"
		minutes = -minutes
	}
	return "UTC" + sign + time.Date(0, 1, 1, minutes/60, minutes%60, 0, 0, time.UTC).Format("15:04")
}

// DayTimes holds the day's solar events. A zero time means the event does
// not happen that day (polar day or night).
type DayTimes struct {
	Sunrise   time.Time `json:"sunrise"`
	Sunset    time.Time `json:"sunset"`
	SolarNoon time.Time `json:"solarNoon"`
}

// SunTimes returns sunrise, sunset and solar noon for the day containing t
func SunTimes(coord Coordinate, t time.Time) (DayTimes, error) {
	if err := coord.Validate(); err != nil {
		return DayTimes{}, err
	}

	times := suncalc.GetTimes(t, coord.Latitude, coord.Longitude)

	return DayTimes{
		Sunrise:   eventTime(times, suncalc.Sunrise, t),
		Sunset:    eventTime(times, suncalc.Sunset, t),
		SolarNoon: eventTime(times, suncalc.SolarNoon, t),
	}, nil
}

// eventTime discards events suncalc could not place, which come back as
// zero or wildly out-of-range times when the sun never crosses the altitude.
func eventTime(times map[suncalc.DayTimeName]suncalc.DayTime, name suncalc.DayTimeName, t time.Time) time.Time {
	event, ok := times[name]
	if !ok || event.Value.IsZero() {
		return time.Time{}
	}
	if d := event.Value.Sub(t); d > 48*time.Hour || d < -48*time.Hour {
		return time.Time{}
	}
	return event.Value.UTC()
}
