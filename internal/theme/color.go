package theme

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// RGBA is an overlay colour. Channels are 0-255, alpha 0-1.
type RGBA struct {
	R, G, B float64
	A       float64
}

var rgbaPattern = regexp.MustCompile(`^rgba?\(\s*(\d+(?:\.\d+)?)\s*,\s*(\d+(?:\.\d+)?)\s*,\s*(\d+(?:\.\d+)?)\s*(?:,\s*(\d*\.?\d+)\s*)?\)$`)

// opaqueBlack is what an unparseable colour blends as
var opaqueBlack = RGBA{0, 0, 0, 1}

// ParseRGBA parses "rgb(r, g, b)" or "rgba(r, g, b, a)". The second return
// value is false, with opaque black, when s is not in either form.
func ParseRGBA(s string) (RGBA, bool) {
	m := rgbaPattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(s)))
	if m == nil {
		return opaqueBlack, false
	}

	var c RGBA
	var err error
	for i, dst := range []*float64{&c.R, &c.G, &c.B} {
		if *dst, err = strconv.ParseFloat(m[i+1], 64); err != nil {
			return opaqueBlack, false
		}
		*dst = clamp(*dst, 0, 255)
	}

	c.A = 1
	if m[4] != "" {
		if c.A, err = strconv.ParseFloat(m[4], 64); err != nil {
			return opaqueBlack, false
		}
		c.A = clamp01(c.A)
	}
	return c, true
}

// LerpRGBA blends two colours channel by channel
func LerpRGBA(a, b RGBA, t float64) RGBA {
	t = clamp01(t)
	return RGBA{
		R: lerp(a.R, b.R, t),
		G: lerp(a.G, b.G, t),
		B: lerp(a.B, b.B, t),
		A: lerp(a.A, b.A, t),
	}
}

// String renders the colour as a CSS rgba() value with integer channels
func (c RGBA) String() string {
	return fmt.Sprintf("rgba(%d,%d,%d,%s)",
		int(math.Round(c.R)), int(math.Round(c.G)), int(math.Round(c.B)), formatNumber(c.A, 3))
}

// HSLToRGB converts hue in degrees and saturation/lightness in percent to
// 8-bit RGB channels.
func HSLToRGB(h, s, l float64) (r, g, b uint8) {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	s = clamp(s, 0, 100) / 100
	l = clamp(l, 0, 100) / 100

	c := (1 - math.Abs(2*l-1)) * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := l - c/2

	var rf, gf, bf float64
	switch {
	case h < 60:
		rf, gf, bf = c, x, 0
	case h < 120:
		rf, gf, bf = x, c, 0
	case h < 180:
		rf, gf, bf = 0, c, x
	case h < 240:
		rf, gf, bf = 0, x, c
	case h < 300:
		rf, gf, bf = x, 0, c
	default:
		rf, gf, bf = c, 0, x
	}

	return channel(rf + m), channel(gf + m), channel(bf + m)
}

func channel(v float64) uint8 {
	return uint8(math.Round(clamp(v, 0, 1) * 255))
}

// RelativeLuminance is the WCAG 2 relative luminance of an sRGB colour
func RelativeLuminance(r, g, b uint8) float64 {
	return 0.2126*linearize(r) + 0.7152*linearize(g) + 0.0722*linearize(b)
}

func linearize(c uint8) float64 {
	v := float64(c) / 255
	if v <= 0.03928 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}

// ContrastRatio is the WCAG contrast ratio between two relative luminances,
// from 1 (identical) to 21 (black on white).
func ContrastRatio(l1, l2 float64) float64 {
	if l2 > l1 {
		l1, l2 = l2, l1
	}
	return (l1 + 0.05) / (l2 + 0.05)
}

// accentColor renders the accent hue at the fixed accent saturation and lightness
func accentColor(hue float64) string {
	return fmt.Sprintf("hsl(%s,85%%,65%%)", formatNumber(hue, 2))
}

// formatNumber rounds v to places decimals and drops trailing zeros
func formatNumber(v float64, places int) string {
	return strconv.FormatFloat(roundTo(v, places), 'f', -1, 64)
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	r := math.Round(v*p) / p
	if r == 0 {
		return 0 // no negative zero
	}
	return r
}

var hexColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

func isHexColor(s string) bool {
	return hexColorPattern.MatchString(s)
}
