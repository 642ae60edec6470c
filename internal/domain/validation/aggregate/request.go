// Package aggregate defines the validation domain objects: the request
// describing what to validate, the verdict that answers it, and the history
// record tying both to a principal.
package aggregate

import (
	"strconv"
	"strings"

	"stayonboard-server-go/internal/domain/color"
	"stayonboard-server-go/internal/platform/errors"
)

// Kind discriminates the validation request union.
type Kind string

const (
	KindBrand           Kind = "brand"
	KindWCAGImage       Kind = "wcag-image"
	KindTextContrast    Kind = "wcag-text-contrast"
	KindImageComparison Kind = "image-comparison"
)

// BrandParams configures a brand palette validation.
type BrandParams struct {
	Palette color.Palette `json:"palette"`
	// Colors is how many dominant colors to extract; 0 uses the server
	// default.
	Colors int `json:"colors,omitempty"`
}

// TextParams configures a direct foreground/background contrast check.
type TextParams struct {
	Foreground color.RGB `json:"foreground"`
	Background color.RGB `json:"background"`
	FontSizePx float64   `json:"font_size_px,omitempty"`
	Bold       bool      `json:"bold,omitempty"`
}

// CompareParams configures an image similarity comparison.
type CompareParams struct {
	// Threshold is the minimum score to pass; 0 uses the default of 0.8.
	Threshold float64 `json:"threshold,omitempty"`
}

// Request is a tagged union: exactly the fields relevant to Kind are set.
type Request struct {
	Kind          Kind           `json:"kind"`
	ImageID       string         `json:"image_id,omitempty"`
	SecondImageID string         `json:"second_image_id,omitempty"`
	Brand         *BrandParams   `json:"brand,omitempty"`
	Text          *TextParams    `json:"text,omitempty"`
	Compare       *CompareParams `json:"compare,omitempty"`
}

// Validate checks the union is well formed for its kind.
func (r Request) Validate() error {
	const op = "validation.request"
	switch r.Kind {
	case KindBrand:
		if r.ImageID == "" {
			return errors.NewField(errors.KindInvalidParameters, op, "image id required", "image_id")
		}
		if r.Brand == nil {
			return errors.NewField(errors.KindInvalidParameters, op, "brand parameters required", "brand")
		}
		if err := r.Brand.Palette.Validate(); err != nil {
			return err
		}
		if r.Brand.Colors < 0 || r.Brand.Colors > 16 {
			return errors.NewField(errors.KindInvalidParameters, op, "colors must be between 1 and 16, or 0 for the default", "colors")
		}
	case KindWCAGImage:
		if r.ImageID == "" {
			return errors.NewField(errors.KindInvalidParameters, op, "image id required", "image_id")
		}
	case KindTextContrast:
		if r.Text == nil {
			return errors.NewField(errors.KindInvalidParameters, op, "text parameters required", "text")
		}
	case KindImageComparison:
		if r.ImageID == "" || r.SecondImageID == "" {
			return errors.NewField(errors.KindInvalidParameters, op, "two image ids required", "image_id")
		}
		if r.Compare != nil && (r.Compare.Threshold < 0 || r.Compare.Threshold > 1) {
			return errors.NewField(errors.KindInvalidParameters, op, "threshold must be in [0, 1]", "threshold")
		}
	default:
		return errors.NewField(errors.KindInvalidParameters, op, "unknown validation kind: "+string(r.Kind), "kind")
	}
	return nil
}

// ImageIDs returns every storage id the request references, in order.
func (r Request) ImageIDs() []string {
	ids := make([]string, 0, 2)
	if r.ImageID != "" {
		ids = append(ids, r.ImageID)
	}
	if r.SecondImageID != "" {
		ids = append(ids, r.SecondImageID)
	}
	return ids
}

// CanonicalParams renders the kind-specific parameters as a stable string
// for cache keying. Palette entries keep their order; map-free structures
// keep field order fixed.
func (r Request) CanonicalParams() string {
	var b strings.Builder
	switch r.Kind {
	case KindBrand:
		if r.Brand != nil {
			for _, entry := range r.Brand.Palette {
				b.WriteString(entry.Color.Hex())
				b.WriteByte(':')
				b.WriteString(formatFloat(entry.Tolerance))
				b.WriteByte(';')
			}
			b.WriteString("k=")
			b.WriteString(formatInt(r.Brand.Colors))
		}
	case KindTextContrast:
		if r.Text != nil {
			b.WriteString(r.Text.Foreground.Hex())
			b.WriteByte('/')
			b.WriteString(r.Text.Background.Hex())
			b.WriteString(";size=")
			b.WriteString(formatFloat(r.Text.FontSizePx))
			if r.Text.Bold {
				b.WriteString(";bold")
			}
		}
	case KindImageComparison:
		if r.Compare != nil {
			b.WriteString("threshold=")
			b.WriteString(formatFloat(r.Compare.Threshold))
		}
	}
	return b.String()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func formatInt(i int) string {
	return strconv.Itoa(i)
}
