package theme

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, -20.0, cfg.Weather.Cloudy.LightnessAdjustment)
	assert.Equal(t, -30.0, cfg.Weather.Cloudy.SaturationAdjustment)
	assert.Nil(t, cfg.Weather.Rainy)
	assert.Nil(t, cfg.Weather.Sunny)
	assert.Equal(t, "Night", cfg.Phase(Night).Name)
}

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "theme.yaml")
	content := `
phases:
  night:
    background:
      hue: 270
  Sunset:
    overlay: "rgba(200,100,50,0.5)"
    overlayOpacity: 0.5
weather:
  rainy:
    lightnessAdjustment: -25
    saturationAdjustment: -30
    overlay: "rgba(100,100,120,0.4)"
forceTextColors: true
forcedTextColor: "#ffffff"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	night := cfg.Phases[Night]
	assert.Equal(t, 270.0, night.Background.Hue)
	assert.Equal(t, 90.0, night.Background.Saturation, "unspecified fields keep their defaults")
	assert.Equal(t, "#ffffff", night.Text.Primary)

	assert.Equal(t, "rgba(200,100,50,0.5)", cfg.Phases[Sunset].Overlay)
	assert.Equal(t, 0.5, cfg.Phases[Sunset].OverlayOpacity)

	require.NotNil(t, cfg.Weather.Rainy)
	assert.Equal(t, -25.0, cfg.Weather.Rainy.LightnessAdjustment)
	assert.Equal(t, -20.0, cfg.Weather.Cloudy.LightnessAdjustment)

	assert.True(t, cfg.ForceTextColors)
	assert.Equal(t, "#ffffff", cfg.ForcedTextColor)
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	tests := map[string]string{
		"unknown phase": "phases:\n  dusk:\n    background:\n      hue: 10\n",
		"bad overlay":   "phases:\n  day:\n    overlay: \"#ffcc00\"\n",
		"bad hue":       "phases:\n  day:\n    background:\n      hue: 400\n",
		"bad text":      "phases:\n  day:\n    text:\n      primary: black\n",
		"bad forced":    "forceTextColors: true\n",
		"not yaml":      "phases: [",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseConfig([]byte(content))
			assert.Error(t, err)
		})
	}
}

func TestWithForcedText(t *testing.T) {
	base := DefaultConfig()
	forced := base.WithForcedText("#000000")

	assert.True(t, forced.ForceTextColors)
	assert.False(t, base.ForceTextColors, "the receiver is not modified")
	assert.False(t, forced.WithForcedText("").ForceTextColors)
}
