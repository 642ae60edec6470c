package color

import "stayonboard-server-go/internal/platform/errors"

// DefaultTolerance is the maximum Lab distance at which a detected color
// still counts as on-brand when a palette entry carries no tolerance of its
// own.
const DefaultTolerance = 35.0

// PaletteEntry is one brand reference color with its allowed perceptual
// deviation.
type PaletteEntry struct {
	Color     RGB     `json:"color"`
	Tolerance float64 `json:"tolerance"`
}

// Palette is an ordered set of brand colors. Order matters: ties during
// matching resolve to the earliest entry.
type Palette []PaletteEntry

// Validate rejects empty palettes.
func (p Palette) Validate() error {
	if len(p) == 0 {
		return errors.NewField(errors.KindInvalidParameters, "color.palette",
			"palette must contain at least one color", "palette")
	}
	return nil
}

// Match is the outcome of matching one color against a palette.
type Match struct {
	Index           int     `json:"index"`
	Color           RGB     `json:"color"`
	Distance        float64 `json:"distance"`
	WithinTolerance bool    `json:"within_tolerance"`
}

// MatchToPalette finds the perceptually nearest palette entry via a linear
// scan. Ties resolve to the first occurrence in palette order.
func MatchToPalette(c RGB, palette Palette) (Match, error) {
	if err := palette.Validate(); err != nil {
		return Match{}, err
	}

	target := ToLab(c)
	best := Match{Index: -1}
	for i, entry := range palette {
		d := target.Distance(ToLab(entry.Color))
		if best.Index == -1 || d < best.Distance {
			tolerance := entry.Tolerance
			if tolerance <= 0 {
				tolerance = DefaultTolerance
			}
			best = Match{
				Index:           i,
				Color:           entry.Color,
				Distance:        d,
				WithinTolerance: d <= tolerance,
			}
		}
	}
	return best, nil
}
