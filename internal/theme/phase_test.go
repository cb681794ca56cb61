package theme

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhaseFor(t *testing.T) {
	tests := []struct {
		elevation float64
		phase     Phase
		t         float64
	}{
		{-90, Night, 0},
		{-18, Night, 0},
		{-10, Night, 0.6667},
		{-6.0001, Night, 0.99999},
		{-6, Twilight, 0},
		{-3, Twilight, 0.5},
		{0, Sunrise, 0},
		{2, Sunrise, 0.2},
		{10, Day, 0},
		{20, Day, 0.5},
		{30, Noon, 0},
		{59.999, Noon, 0.99997},
		{60, Sunset, 0},
		{80, Evening, 0},
		{90, Evening, 0.25},
	}

	for _, tt := range tests {
		phase, progress := PhaseFor(tt.elevation)
		if phase != tt.phase {
			t.Errorf("PhaseFor(%v) phase = %s, expected %s", tt.elevation, phase, tt.phase)
		}
		assert.InDelta(t, tt.t, progress, 1e-4, "progress at %v", tt.elevation)
	}
}

func TestPhaseForIsExhaustive(t *testing.T) {
	bounds := map[Phase][2]float64{
		Night:    {math.Inf(-1), -6},
		Twilight: {-6, 0},
		Sunrise:  {0, 10},
		Day:      {10, 30},
		Noon:     {30, 60},
		Sunset:   {60, 80},
		Evening:  {80, math.Inf(1)},
	}

	for i := -9000; i <= 9000; i++ {
		elevation := float64(i) / 100
		phase, progress := PhaseFor(elevation)

		b := bounds[phase]
		if elevation < b[0] || elevation >= b[1] {
			t.Fatalf("Elevation %v landed in %s outside [%v,%v)", elevation, phase, b[0], b[1])
		}
		if progress < 0 || progress > 1 {
			t.Fatalf("Progress %v out of [0,1] at elevation %v", progress, elevation)
		}
	}
}

func TestPhaseForNaN(t *testing.T) {
	phase, progress := PhaseFor(math.NaN())
	assert.Equal(t, Night, phase)
	assert.Equal(t, 0.0, progress)
}

func TestPhaseNextWraps(t *testing.T) {
	assert.Equal(t, Twilight, Night.Next())
	assert.Equal(t, Night, Evening.Next())

	seen := map[Phase]bool{}
	p := Night
	for i := 0; i < phaseCount; i++ {
		seen[p] = true
		p = p.Next()
	}
	assert.Len(t, seen, phaseCount)
	assert.Equal(t, Night, p)
}

func TestPhaseText(t *testing.T) {
	for _, p := range Phases() {
		b, err := p.MarshalText()
		assert.NoError(t, err)

		var decoded Phase
		assert.NoError(t, decoded.UnmarshalText(b))
		assert.Equal(t, p, decoded)
	}

	_, err := ParsePhase("dusk")
	assert.Error(t, err)
	assert.Equal(t, "phase(9)", Phase(9).String())
}

func TestTextPhaseCollapse(t *testing.T) {
	assert.Equal(t, Day, Day.textPhase())
	assert.Equal(t, Noon, Noon.textPhase())
	assert.Equal(t, Noon, Sunset.textPhase())
	assert.Equal(t, Noon, Evening.textPhase())
}
