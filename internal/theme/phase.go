package theme

import (
	"fmt"
	"math"
)

// Phase is one of the seven segments of the day/night cycle. Phases form a
// fixed cycle; each one blends toward Next as the sun climbs through it.
type Phase int

const (
	Night Phase = iota
	Twilight
	Sunrise
	Day
	Noon
	Sunset
	Evening

	phaseCount = 7
)

var phaseNames = [phaseCount]string{"night", "twilight", "sunrise", "day", "noon", "sunset", "evening"}

// Phases lists every phase in cycle order
func Phases() []Phase {
	out := make([]Phase, phaseCount)
	for i := range out {
		out[i] = Phase(i)
	}
	return out
}

// Next returns the phase this one interpolates toward; evening wraps to night
func (p Phase) Next() Phase {
	return Phase((int(p) + 1) % phaseCount)
}

func (p Phase) String() string {
	if p < 0 || int(p) >= phaseCount {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

// MarshalText encodes the phase by name
func (p Phase) MarshalText() ([]byte, error) {
	if p < 0 || int(p) >= phaseCount {
		return nil, fmt.Errorf("invalid phase %d", int(p))
	}
	return []byte(phaseNames[p]), nil
}

// UnmarshalText decodes a phase name
func (p *Phase) UnmarshalText(b []byte) error {
	parsed, err := ParsePhase(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePhase looks a phase up by name
func ParsePhase(name string) (Phase, error) {
	for i, n := range phaseNames {
		if n == name {
			return Phase(i), nil
		}
	}
	return 0, fmt.Errorf("unknown phase %q", name)
}

// textPhase collapses the cycle onto the phases that carry text colours.
// Noon and everything after it use noon's.
func (p Phase) textPhase() Phase {
	if p >= Noon {
		return Noon
	}
	return p
}

// PhaseFor maps a solar elevation in degrees to its phase and the progress
// t in [0,1] through that phase.
func PhaseFor(elevation float64) (Phase, float64) {
	var (
		phase Phase
		t     float64
	)

	switch {
	case elevation < -6:
		phase, t = Night, (elevation+18)/12
	case elevation < 0:
		phase, t = Twilight, (elevation+6)/6
	case elevation < 10:
		phase, t = Sunrise, elevation/10
	case elevation < 30:
		phase, t = Day, (elevation-10)/20
	case elevation < 60:
		phase, t = Noon, (elevation-30)/30
	case elevation < 80:
		phase, t = Sunset, (elevation-60)/20
	case elevation >= 80:
		phase, t = Evening, (elevation-80)/40
	default:
		// NaN elevation compares false everywhere
		return Night, 0
	}

	return phase, clamp01(t)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
