// Package ephemeris computes a low-precision solar position for a coordinate
// and instant. Results are good to a few hundredths of a degree, which is far
// more than colour interpolation needs.
package ephemeris

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidCoordinate is returned when a latitude or longitude is out of range
var ErrInvalidCoordinate = errors.New("invalid coordinate")

const (
	// J2000 is the Julian Day of 2000-01-01T12:00:00Z
	J2000 = 2451545.0

	unixEpochJD    = 2440587.5
	secondsPerDay  = 86400.0
	daysPerCentury = 36525.0

	deg = math.Pi / 180
	rad = 180 / math.Pi
)

// Coordinate is a geographic position in degrees
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks the coordinate is inside [-90,90] x [-180,180]
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Latitude) || c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v must be between -90 and 90", ErrInvalidCoordinate, c.Latitude)
	}
	if math.IsNaN(c.Longitude) || c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v must be between -180 and 180", ErrInvalidCoordinate, c.Longitude)
	}
	return nil
}

// Position is the sun's place in the local sky
type Position struct {
	// Elevation above the horizon in degrees, negative below it
	Elevation float64 `json:"elevation"`
	// Azimuth is the compass bearing in degrees clockwise from north, in [0,360).
	// Afternoon suns read west (over 180). Feeds that mirror on HA > 180
	// report them east instead, so the two differ by 360-az.
	Azimuth float64 `json:"azimuth"`

	Declination float64 `json:"declination"`
	// HourAngle in degrees, [0,360), zero when the sun is on the meridian
	HourAngle float64 `json:"hourAngle"`
	// DistanceAU is the earth-sun distance in astronomical units
	DistanceAU float64 `json:"distance"`
}

// JulianDay converts an instant to a (fractional) Julian Day
func JulianDay(t time.Time) float64 {
	return float64(t.UnixNano())/1e9/secondsPerDay + unixEpochJD
}

// ComputePosition returns the solar elevation and azimuth seen from coord at instant t
func ComputePosition(coord Coordinate, t time.Time) (Position, error) {
	if err := coord.Validate(); err != nil {
		return Position{}, err
	}

	jd := JulianDay(t)
	T := (jd - J2000) / daysPerCentury

	// Mean longitude, mean anomaly and eccentricity
	L0 := 280.46645 + 36000.76983*T + 0.0003032*T*T
	M := 357.52910 + 35999.05030*T - 0.0001559*T*T - 0.00000048*T*T*T
	e := 0.016708617 - 0.000042037*T - 0.0000001236*T*T

	Mr := M * deg
	C := (1.914600-0.004817*T-0.000014*T*T)*math.Sin(Mr) +
		(0.019993-0.000101*T)*math.Sin(2*Mr) +
		0.000290*math.Sin(3*Mr)

	// Radius vector from the true anomaly
	v := (M + C) * deg
	distance := 1.000001018 * (1 - e*e) / (1 + e*math.Cos(v))

	// Apparent longitude, corrected for nutation of the lunar node
	omega := 125.04 - 1934.136*T
	lambda := (L0 + C - 0.00569 - 0.00478*math.Sin(omega*deg)) * deg

	epsilon := (23.439 - 0.0000004*T) * deg

	alpha := math.Atan2(math.Cos(epsilon)*math.Sin(lambda), math.Cos(lambda)) * rad
	delta := math.Asin(math.Sin(epsilon) * math.Sin(lambda))

	lst := 280.46061837 + 360.98564736629*(jd-J2000) + 0.000387933*T*T - T*T*T/38710000 + coord.Longitude
	ha := normalizeDegrees(lst - alpha)

	lat := coord.Latitude * deg
	haR := ha * deg

	sinElev := math.Sin(lat)*math.Sin(delta) + math.Cos(lat)*math.Cos(delta)*math.Cos(haR)
	elev := math.Asin(clampUnit(sinElev))

	return Position{
		Elevation:   elev * rad,
		Azimuth:     azimuth(lat, delta, elev, ha, coord.Latitude),
		Declination: delta * rad,
		HourAngle:   ha,
		DistanceAU:  distance,
	}, nil
}

// azimuth resolves the compass bearing. At the poles cos(lat) vanishes and
// the bearing is taken as due south (north pole) or due north (south pole).
func azimuth(lat, delta, elev, ha, latDeg float64) float64 {
	denom := math.Cos(lat) * math.Cos(elev)
	if math.Abs(denom) < 1e-12 {
		if latDeg > 0 {
			return 180
		}
		return 0
	}

	az := math.Acos(clampUnit((math.Sin(delta)-math.Sin(lat)*math.Sin(elev))/denom)) * rad
	if math.IsNaN(az) {
		az = 0
	}

	// West of the meridian the bearing runs past south toward 360
	if ha > 0 && ha < 180 {
		az = 360 - az
	}
	return normalizeDegrees(az)
}

func normalizeDegrees(v float64) float64 {
	v = math.Mod(v, 360)
	if v < 0 {
		v += 360
	}
	if v >= 360 {
		v = 0
	}
	return v
}

func clampUnit(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
