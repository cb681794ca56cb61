package theme

import (
	"strings"

	"github.com/Nom-nom-hub/World-CSS/internal/ephemeris"
)

// NightElevation is the elevation below which a theme counts as night
const NightElevation = -6.0

// Weather is the part of a weather snapshot that affects colour
type Weather struct {
	CloudFraction float64
	Description   string
}

// Resolve computes the theme vector for a solar position under the given
// weather. It is a pure function of its arguments.
func Resolve(pos ephemeris.Position, w Weather, cfg Config) Vector {
	phase, t := PhaseFor(pos.Elevation)
	from := cfg.Phases[phase]
	to := cfg.Phases[phase.Next()]

	hue := lerp(from.Background.Hue, to.Background.Hue, t)
	sat := lerp(from.Background.Saturation, to.Background.Saturation, t)
	light := lerp(from.Background.Lightness, to.Background.Lightness, t)
	accentHue := lerp(from.Accent.Hue, to.Accent.Hue, t)
	opacity := lerp(from.OverlayOpacity, to.OverlayOpacity, t)

	fromOverlay, _ := ParseRGBA(from.Overlay)
	toOverlay, _ := ParseRGBA(to.Overlay)
	overlay := LerpRGBA(fromOverlay, toOverlay, t).String()

	clouds := clamp01(w.CloudFraction)
	if clouds > 0.5 {
		adj := cfg.Weather.Cloudy
		light = lerp(light, light+adj.LightnessAdjustment, clouds)
		sat = lerp(sat, sat+adj.SaturationAdjustment, clouds)
		if adj.Overlay != "" {
			overlay = adj.Overlay
		}
	}
	if adj := cfg.Weather.Rainy; adj != nil && isWet(w.Description) {
		light += adj.LightnessAdjustment
		sat += adj.SaturationAdjustment
		if adj.Overlay != "" {
			overlay = adj.Overlay
		}
	}
	if adj := cfg.Weather.Sunny; adj != nil && clouds < 0.1 {
		light += adj.LightnessAdjustment
		sat += adj.SaturationAdjustment
		if adj.Overlay != "" {
			overlay = adj.Overlay
		}
	}

	sat = clamp(sat, 0, 100)
	light = clamp(light, 0, 100)

	text, secondary := textColors(phase, hue, sat, light, cfg)

	return Vector{
		BackgroundHue:        roundTo(hue, 2),
		BackgroundSaturation: roundTo(sat, 2),
		BackgroundLightness:  roundTo(light, 2),
		TextColor:            text,
		TextSecondary:        secondary,
		AccentColor:          accentColor(accentHue),
		OverlayColor:         overlay,
		OverlayOpacity:       roundTo(opacity, 4),
		IsNight:              pos.Elevation < NightElevation,
		Phase:                phase.String(),
		Progress:             roundTo(t, 4),
	}
}

// textColors picks text colours: a forced colour first, then the phase's
// configured colours, then whichever of black or white contrasts more with
// the background.
func textColors(phase Phase, hue, sat, light float64, cfg Config) (string, string) {
	if cfg.ForceTextColors && cfg.ForcedTextColor != "" {
		return cfg.ForcedTextColor, pairedSecondary(cfg.ForcedTextColor)
	}

	if stop := cfg.Phases[phase.textPhase()]; stop.Text.Primary != "" && stop.Text.Secondary != "" {
		return stop.Text.Primary, stop.Text.Secondary
	}

	if PrefersBlackText(hue, sat, light) {
		return "#000000", "#333333"
	}
	return "#ffffff", "#e0e0e0"
}

// PrefersBlackText reports whether black text contrasts strictly better than
// white against the given background.
func PrefersBlackText(hue, sat, light float64) bool {
	lum := RelativeLuminance(HSLToRGB(hue, sat, light))
	return ContrastRatio(lum, 0) > ContrastRatio(1, lum)
}

func pairedSecondary(primary string) string {
	if strings.EqualFold(primary, "#000000") {
		return "#333333"
	}
	return "#e0e0e0"
}

func isWet(description string) bool {
	description = strings.ToLower(description)
	for _, word := range []string{"rain", "drizzle", "thunderstorm", "snow"} {
		if strings.Contains(description, word) {
			return true
		}
	}
	return false
}
