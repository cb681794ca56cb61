package theme

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownMode is returned by Manual for anything but light or dark
var ErrUnknownMode = errors.New("unknown theme mode")

const (
	ModeAuto  = "auto"
	ModeLight = "light"
	ModeDark  = "dark"
)

// Vector is a resolved theme. The JSON names are a public contract.
type Vector struct {
	BackgroundHue        float64 `json:"backgroundHue"`
	BackgroundSaturation float64 `json:"backgroundSaturation"`
	BackgroundLightness  float64 `json:"backgroundLightness"`
	TextColor            string  `json:"textColor"`
	TextSecondary        string  `json:"textSecondary"`
	AccentColor          string  `json:"accentColor"`
	OverlayColor         string  `json:"overlayColor"`
	OverlayOpacity       float64 `json:"overlayOpacity"`
	IsNight              bool    `json:"isNight"`

	// Phase is the phase name for automatic themes, or the mode name
	Phase string `json:"phase"`
	// Progress through Phase in [0,1]; zero for manual themes
	Progress float64 `json:"progress"`
}

// Manual returns the fixed theme for a manual mode
func Manual(mode string) (Vector, error) {
	switch strings.ToLower(mode) {
	case ModeLight:
		return Vector{
			BackgroundHue:        55,
			BackgroundSaturation: 90,
			BackgroundLightness:  85,
			TextColor:            "#000000",
			TextSecondary:        "#333333",
			AccentColor:          accentColor(50),
			OverlayColor:         "rgba(255,255,200,0.15)",
			OverlayOpacity:       0.15,
			IsNight:              false,
			Phase:                ModeLight,
		}, nil
	case ModeDark:
		return Vector{
			BackgroundHue:        240,
			BackgroundSaturation: 85,
			BackgroundLightness:  8,
			TextColor:            "#ffffff",
			TextSecondary:        "#e0e0e0",
			AccentColor:          accentColor(200),
			OverlayColor:         "rgba(20,30,100,0.8)",
			OverlayOpacity:       0.8,
			IsNight:              true,
			Phase:                ModeDark,
		}, nil
	}
	return Vector{}, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
}

// CSSVariables maps the vector onto the custom properties a page binds to
func (v Vector) CSSVariables() map[string]string {
	night := "0"
	if v.IsNight {
		night = "1"
	}
	return map[string]string{
		"--background-hue":             formatNumber(v.BackgroundHue, 2),
		"--background-saturation":      formatNumber(v.BackgroundSaturation, 2),
		"--background-lightness":       formatNumber(v.BackgroundLightness, 2),
		"--text-color":                 v.TextColor,
		"--text-secondary":             v.TextSecondary,
		"--accent-color":               v.AccentColor,
		"--atmosphere-overlay":         v.OverlayColor,
		"--atmosphere-overlay-opacity": formatNumber(v.OverlayOpacity, 4),
		"--worldcss-night":             night,
		"--worldcss-phase":             v.Phase,
	}
}

// CSS renders the variables as a :root rule, one declaration per line in
// name order.
func (v Vector) CSS() string {
	vars := v.CSSVariables()
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(":root {\n")
	for _, name := range names {
		fmt.Fprintf(&b, "  %s: %s;\n", name, vars[name])
	}
	b.WriteString("}\n")
	return b.String()
}
