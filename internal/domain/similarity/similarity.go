// Package similarity scores how alike two images are by combining a color
// distribution comparison with a structural perceptual hash.
package similarity

import (
	"image"
	"math"
	"math/bits"

	xdraw "golang.org/x/image/draw"

	"stayonboard-server-go/internal/platform/errors"
)

const (
	// histBits quantizes each channel to 4 bits, giving 4096 histogram bins.
	histBits = 4
	histBins = 1 << (3 * histBits)

	// dHash operates on a 9x8 grayscale thumbnail, one bit per horizontal
	// gradient.
	hashWidth  = 9
	hashHeight = 8

	colorWeight      = 0.6
	structuralWeight = 0.4

	// Structural comparison is skipped when aspect ratios differ by more
	// than this factor; downscaling such pairs to a common thumbnail would
	// distort one of them beyond recognition.
	maxAspectSkew = 2.0
)

// Result is the outcome of comparing two images.
type Result struct {
	Score           float64 `json:"score"`
	ColorScore      float64 `json:"color_score"`
	StructuralScore float64 `json:"structural_score"`
	StructuralUsed  bool    `json:"structural_used"`
}

// Engine compares pairs of decoded images. It is stateless and safe for
// concurrent use.
type Engine struct{}

// NewEngine creates a similarity engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Compare scores the pair in [0, 1]. Identical images score 1.0. The score
// blends a color histogram overlap (weight 0.6) with a dHash structural
// similarity (weight 0.4); when the aspect ratios are too different for a
// meaningful structural comparison the color term carries the full weight.
func (e *Engine) Compare(a, b image.Image) (Result, error) {
	if a == nil || b == nil {
		return Result{}, errors.New(errors.KindInvalidParameters, "similarity.compare", "image is nil")
	}
	if a.Bounds().Empty() || b.Bounds().Empty() {
		return Result{}, errors.New(errors.KindUnsupportedImage, "similarity.compare", "image has no pixels")
	}

	res := Result{
		ColorScore: histogramOverlap(histogram(a), histogram(b)),
	}

	if aspectComparable(a.Bounds(), b.Bounds()) {
		ha := dHash(a)
		hb := dHash(b)
		res.StructuralScore = 1.0 - float64(bits.OnesCount64(ha^hb))/64.0
		res.StructuralUsed = true
		res.Score = colorWeight*res.ColorScore + structuralWeight*res.StructuralScore
	} else {
		res.Score = res.ColorScore
	}
	return res, nil
}

func aspectComparable(a, b image.Rectangle) bool {
	ra := float64(a.Dx()) / float64(a.Dy())
	rb := float64(b.Dx()) / float64(b.Dy())
	skew := ra / rb
	if skew < 1 {
		skew = 1 / skew
	}
	return skew <= maxAspectSkew
}

// histogram builds a normalized color distribution with 4 bits per channel.
func histogram(img image.Image) []float64 {
	hist := make([]float64, histBins)
	bounds := img.Bounds()
	total := float64(bounds.Dx() * bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			idx := (r>>12)<<(2*histBits) | (g>>12)<<histBits | b>>12
			hist[idx]++
		}
	}
	for i := range hist {
		hist[i] /= total
	}
	return hist
}

// histogramOverlap is the histogram intersection: the shared probability
// mass of the two distributions, 1.0 for identical distributions.
func histogramOverlap(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += math.Min(a[i], b[i])
	}
	return sum
}

// dHash computes a 64-bit difference hash: the image is reduced to a 9x8
// grayscale thumbnail and each bit records whether brightness rises between
// horizontal neighbors.
func dHash(img image.Image) uint64 {
	thumb := image.NewGray(image.Rect(0, 0, hashWidth, hashHeight))
	xdraw.ApproxBiLinear.Scale(thumb, thumb.Bounds(), img, img.Bounds(), xdraw.Src, nil)

	var hash uint64
	bit := 0
	for y := 0; y < hashHeight; y++ {
		for x := 0; x < hashWidth-1; x++ {
			left := thumb.GrayAt(x, y).Y
			right := thumb.GrayAt(x+1, y).Y
			if left > right {
				hash |= 1 << uint(bit)
			}
			bit++
		}
	}
	return hash
}
