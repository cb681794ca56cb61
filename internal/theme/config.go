package theme

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// HSL is a background colour with saturation and lightness in percent
type HSL struct {
	Hue        float64 `yaml:"hue" json:"hue"`
	Saturation float64 `yaml:"saturation" json:"saturation"`
	Lightness  float64 `yaml:"lightness" json:"lightness"`
}

// Accent carries the hue of a phase's accent colour
type Accent struct {
	Hue float64 `yaml:"hue" json:"hue"`
}

// TextColors are literal CSS colours for body and secondary text
type TextColors struct {
	Primary   string `yaml:"primary" json:"primary"`
	Secondary string `yaml:"secondary" json:"secondary"`
}

// PhaseStop is the colour anchor of one phase
type PhaseStop struct {
	Name           string     `yaml:"name" json:"name"`
	Background     HSL        `yaml:"background" json:"background"`
	Accent         Accent     `yaml:"accent" json:"accent"`
	Text           TextColors `yaml:"text" json:"text"`
	Overlay        string     `yaml:"overlay" json:"overlay"`
	OverlayOpacity float64    `yaml:"overlayOpacity" json:"overlayOpacity"`
	Description    string     `yaml:"description,omitempty" json:"description,omitempty"`
}

// WeatherAdjustment shifts lightness and saturation, in percentage points,
// under a weather condition. A non-empty Overlay replaces the phase overlay.
type WeatherAdjustment struct {
	LightnessAdjustment  float64 `yaml:"lightnessAdjustment" json:"lightnessAdjustment"`
	SaturationAdjustment float64 `yaml:"saturationAdjustment" json:"saturationAdjustment"`
	Overlay              string  `yaml:"overlay,omitempty" json:"overlay,omitempty"`
	Description          string  `yaml:"description,omitempty" json:"description,omitempty"`
}

// WeatherEffects groups the per-condition adjustments. Cloudy always applies
// above half cloud cover; Rainy and Sunny apply only when configured.
type WeatherEffects struct {
	Cloudy WeatherAdjustment  `yaml:"cloudy" json:"cloudy"`
	Rainy  *WeatherAdjustment `yaml:"rainy,omitempty" json:"rainy,omitempty"`
	Sunny  *WeatherAdjustment `yaml:"sunny,omitempty" json:"sunny,omitempty"`
}

// Config is the immutable input to Resolve. Build one with DefaultConfig or
// LoadConfig and share it freely between goroutines.
type Config struct {
	Phases          [phaseCount]PhaseStop
	Weather         WeatherEffects
	ForceTextColors bool
	ForcedTextColor string
}

// DefaultConfig returns the stock seven-phase palette
func DefaultConfig() Config {
	return Config{
		Phases: [phaseCount]PhaseStop{
			Night: {
				Name:           "Night",
				Background:     HSL{250, 90, 12},
				Accent:         Accent{220},
				Text:           TextColors{"#ffffff", "#e8e8e8"},
				Overlay:        "rgba(30,20,100,0.85)",
				OverlayOpacity: 0.85,
				Description:    "Rich indigo night sky with stars",
			},
			Twilight: {
				Name:           "Twilight",
				Background:     HSL{280, 75, 25},
				Accent:         Accent{60},
				Text:           TextColors{"#ffffff", "#f0f0f0"},
				Overlay:        "rgba(100,50,180,0.7)",
				OverlayOpacity: 0.7,
				Description:    "Purple-pink dawn/dusk atmosphere",
			},
			Sunrise: {
				Name:           "Sunrise",
				Background:     HSL{25, 95, 55},
				Accent:         Accent{35},
				Text:           TextColors{"#000000", "#222222"},
				Overlay:        "rgba(255,150,80,0.3)",
				OverlayOpacity: 0.3,
				Description:    "Warm orange-pink morning light",
			},
			Day: {
				Name:           "Daylight",
				Background:     HSL{50, 85, 65},
				Accent:         Accent{40},
				Text:           TextColors{"#000000", "#222222"},
				Overlay:        "rgba(255,230,150,0.2)",
				OverlayOpacity: 0.2,
				Description:    "Bright golden daylight",
			},
			Noon: {
				Name:           "Noon",
				Background:     HSL{210, 70, 70},
				Accent:         Accent{200},
				Text:           TextColors{"#000000", "#333333"},
				Overlay:        "rgba(150,200,255,0.15)",
				OverlayOpacity: 0.15,
				Description:    "Bright cool blue sky at peak sun",
			},
			Sunset: {
				Name:           "Sunset",
				Background:     HSL{20, 100, 65},
				Accent:         Accent{30},
				Text:           TextColors{"#000000", "#222222"},
				Overlay:        "rgba(255,120,60,0.4)",
				OverlayOpacity: 0.4,
				Description:    "Vibrant orange-red sunset glow",
			},
			Evening: {
				Name:           "Evening",
				Background:     HSL{260, 80, 20},
				Accent:         Accent{50},
				Text:           TextColors{"#ffffff", "#f0f0f0"},
				Overlay:        "rgba(80,40,160,0.8)",
				OverlayOpacity: 0.8,
				Description:    "Deep purple evening atmosphere",
			},
		},
		Weather: WeatherEffects{
			Cloudy: WeatherAdjustment{
				LightnessAdjustment:  -20,
				SaturationAdjustment: -30,
				Description:          "Darker, less saturated colors when cloudy",
			},
		},
	}
}

// WithForcedText returns a copy of c that always uses color for text.
// An empty color turns forcing off.
func (c Config) WithForcedText(color string) Config {
	c.ForceTextColors = color != ""
	c.ForcedTextColor = color
	return c
}

// Phase returns the stop configured for p
func (c Config) Phase(p Phase) PhaseStop {
	return c.Phases[p]
}

// Validate checks every stop and adjustment is usable
func (c Config) Validate() error {
	for _, p := range Phases() {
		stop := c.Phases[p]
		if stop.Background.Hue < 0 || stop.Background.Hue > 360 {
			return fmt.Errorf("phase %s: hue %v must be between 0 and 360", p, stop.Background.Hue)
		}
		if stop.Background.Saturation < 0 || stop.Background.Saturation > 100 {
			return fmt.Errorf("phase %s: saturation %v must be between 0 and 100", p, stop.Background.Saturation)
		}
		if stop.Background.Lightness < 0 || stop.Background.Lightness > 100 {
			return fmt.Errorf("phase %s: lightness %v must be between 0 and 100", p, stop.Background.Lightness)
		}
		if stop.Accent.Hue < 0 || stop.Accent.Hue > 360 {
			return fmt.Errorf("phase %s: accent hue %v must be between 0 and 360", p, stop.Accent.Hue)
		}
		if _, ok := ParseRGBA(stop.Overlay); !ok {
			return fmt.Errorf("phase %s: overlay %q is not an rgb() or rgba() colour", p, stop.Overlay)
		}
		if stop.OverlayOpacity < 0 || stop.OverlayOpacity > 1 {
			return fmt.Errorf("phase %s: overlay opacity %v must be between 0 and 1", p, stop.OverlayOpacity)
		}
		for _, color := range []string{stop.Text.Primary, stop.Text.Secondary} {
			if color != "" && !isHexColor(color) {
				return fmt.Errorf("phase %s: text colour %q must be #rrggbb", p, color)
			}
		}
	}

	adjustments := map[string]*WeatherAdjustment{
		"cloudy": &c.Weather.Cloudy,
		"rainy":  c.Weather.Rainy,
		"sunny":  c.Weather.Sunny,
	}
	for name, adj := range adjustments {
		if adj == nil {
			continue
		}
		if adj.LightnessAdjustment < -100 || adj.LightnessAdjustment > 100 ||
			adj.SaturationAdjustment < -100 || adj.SaturationAdjustment > 100 {
			return fmt.Errorf("weather %s: adjustments must be between -100 and 100", name)
		}
		if adj.Overlay != "" {
			if _, ok := ParseRGBA(adj.Overlay); !ok {
				return fmt.Errorf("weather %s: overlay %q is not an rgb() or rgba() colour", name, adj.Overlay)
			}
		}
	}

	if c.ForceTextColors && !isHexColor(c.ForcedTextColor) {
		return fmt.Errorf("forced text colour %q must be #rrggbb", c.ForcedTextColor)
	}
	return nil
}

// configFile mirrors the YAML layout. Phases are decoded one node at a time
// on top of the defaults so a file only needs the values it changes.
type configFile struct {
	Phases          map[string]yaml.Node `yaml:"phases"`
	Weather         yaml.Node            `yaml:"weather"`
	ForceTextColors *bool                `yaml:"forceTextColors"`
	ForcedTextColor *string              `yaml:"forcedTextColor"`
}

// LoadConfig reads a YAML theme file over DefaultConfig and validates the result
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read theme config %s: %w", path, err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML theme configuration over DefaultConfig
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()

	var file configFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Config{}, fmt.Errorf("failed to parse theme config: %w", err)
	}

	for name, node := range file.Phases {
		p, err := ParsePhase(strings.ToLower(name))
		if err != nil {
			return Config{}, fmt.Errorf("failed to parse theme config: %w", err)
		}
		stop := cfg.Phases[p]
		if err := node.Decode(&stop); err != nil {
			return Config{}, fmt.Errorf("failed to decode phase %s: %w", name, err)
		}
		cfg.Phases[p] = stop
	}

	if !file.Weather.IsZero() {
		if err := file.Weather.Decode(&cfg.Weather); err != nil {
			return Config{}, fmt.Errorf("failed to decode weather effects: %w", err)
		}
	}

	if file.ForceTextColors != nil {
		cfg.ForceTextColors = *file.ForceTextColors
	}
	if file.ForcedTextColor != nil {
		cfg.ForcedTextColor = *file.ForcedTextColor
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid theme config: %w", err)
	}
	return cfg, nil
}
