// Package color implements the color mathematics behind the validation
// pipeline: WCAG relative luminance and contrast ratios, perceptual (Lab)
// distances, brand-palette matching, and dominant-color extraction.
package color

import (
	"fmt"
	"math"
	"strings"

	"stayonboard-server-go/internal/platform/errors"
)

// RGB is an 8-bit-per-channel sRGB color. Alpha is not modelled; contrast
// math ignores it.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// ParseHex parses "#RRGGBB", "RRGGBB" or the shorthand "#RGB".
func ParseHex(s string) (RGB, error) {
	clean := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(clean) == 3 {
		expanded := make([]byte, 6)
		for i := 0; i < 3; i++ {
			expanded[2*i] = clean[i]
			expanded[2*i+1] = clean[i]
		}
		clean = string(expanded)
	}
	if len(clean) != 6 {
		return RGB{}, errors.NewField(errors.KindInvalidParameters, "color.parse",
			fmt.Sprintf("invalid hex color %q", s), "color")
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(strings.ToLower(clean), "%02x%02x%02x", &r, &g, &b); err != nil {
		return RGB{}, errors.NewField(errors.KindInvalidParameters, "color.parse",
			fmt.Sprintf("invalid hex color %q", s), "color")
	}
	return RGB{R: r, G: g, B: b}, nil
}

// Hex renders the color as "#rrggbb".
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// srgbToLinear applies the WCAG 2.x gamma expansion to a 0..1 channel.
func srgbToLinear(c float64) float64 {
	if c <= 0.03928 {
		return c / 12.92
	}
	return math.Pow((c+0.055)/1.055, 2.4)
}

// RelativeLuminance computes the WCAG relative luminance of a color.
func RelativeLuminance(c RGB) float64 {
	r := srgbToLinear(float64(c.R) / 255.0)
	g := srgbToLinear(float64(c.G) / 255.0)
	b := srgbToLinear(float64(c.B) / 255.0)
	return 0.2126*r + 0.7152*g + 0.0722*b
}

// ContrastRatio computes the WCAG contrast ratio between two colors. The
// result is symmetric in its arguments and always >= 1.
func ContrastRatio(a, b RGB) float64 {
	la := RelativeLuminance(a)
	lb := RelativeLuminance(b)
	lighter := math.Max(la, lb)
	darker := math.Min(la, lb)
	return (lighter + 0.05) / (darker + 0.05)
}

// Level is a WCAG conformance level.
type Level string

const (
	LevelNone Level = "none"
	LevelAA   Level = "AA"
	LevelAAA  Level = "AAA"
)

// WCAG 2.1 contrast thresholds. Meeting the exact threshold passes.
const (
	AANormalText  = 4.5
	AALargeText   = 3.0
	AAANormalText = 7.0
	AAALargeText  = 4.5
)

// WCAGLevel classifies a contrast ratio against the AA/AAA thresholds for
// the given text size.
func WCAGLevel(ratio float64, largeText bool) Level {
	aa, aaa := AANormalText, AAANormalText
	if largeText {
		aa, aaa = AALargeText, AAALargeText
	}
	switch {
	case ratio >= aaa:
		return LevelAAA
	case ratio >= aa:
		return LevelAA
	default:
		return LevelNone
	}
}

// IsLargeText reports whether text of the given pixel size counts as "large"
// under WCAG: 24px and up, or 18.67px and up when bold.
func IsLargeText(sizePx float64, bold bool) bool {
	if sizePx <= 0 {
		return false
	}
	if bold {
		return sizePx >= 18.67
	}
	return sizePx >= 24
}

// ContrastResult is the full contrast analysis of a color pair.
type ContrastResult struct {
	Foreground          RGB     `json:"foreground"`
	Background          RGB     `json:"background"`
	ForegroundLuminance float64 `json:"foreground_luminance"`
	BackgroundLuminance float64 `json:"background_luminance"`
	Ratio               float64 `json:"ratio"`
	NormalLevel         Level   `json:"normal_level"`
	LargeLevel          Level   `json:"large_level"`
}

// Contrast analyses the pair and classifies it at both text sizes.
func Contrast(fg, bg RGB) ContrastResult {
	ratio := ContrastRatio(fg, bg)
	return ContrastResult{
		Foreground:          fg,
		Background:          bg,
		ForegroundLuminance: RelativeLuminance(fg),
		BackgroundLuminance: RelativeLuminance(bg),
		Ratio:               ratio,
		NormalLevel:         WCAGLevel(ratio, false),
		LargeLevel:          WCAGLevel(ratio, true),
	}
}

// Sample is a dominant color with its relative frequency weight in the
// source image. Extraction returns samples most-frequent first; the order is
// stable across runs.
type Sample struct {
	Color  RGB     `json:"color"`
	Weight float64 `json:"weight"`
}
