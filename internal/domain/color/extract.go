package color

import (
	"image"
	"sort"

	"stayonboard-server-go/internal/platform/errors"
)

// Extractor reduces an image's pixel population to its top-K dominant colors
// using k-means clustering in Lab space.
//
// Every step is deterministic: pixels are sampled on a fixed grid stride,
// centroids are seeded from a frequency histogram (no random init), and
// assignment ties resolve to the lowest centroid index. The same image and K
// always produce the same ordered samples.
type Extractor struct {
	maxSamples    int
	maxIterations int
	convergence   float64
}

// NewExtractor creates an Extractor with default settings.
func NewExtractor() *Extractor {
	return &Extractor{
		maxSamples:    4096,
		maxIterations: 20,
		convergence:   0.5,
	}
}

// WithMaxSamples bounds how many pixels are sampled from large images.
func (e *Extractor) WithMaxSamples(n int) *Extractor {
	if n > 0 {
		e.maxSamples = n
	}
	return e
}

// Extract returns the top-K dominant colors, most frequent first.
func (e *Extractor) Extract(img image.Image, k int) ([]Sample, error) {
	if img == nil {
		return nil, errors.New(errors.KindInvalidParameters, "extract", "image is nil")
	}
	if k < 1 || k > 16 {
		return nil, errors.NewField(errors.KindInvalidParameters, "extract",
			"color count must be between 1 and 16", "colors")
	}

	pixels := e.samplePixels(img)
	if len(pixels) == 0 {
		return nil, errors.New(errors.KindUnsupportedImage, "extract", "image has no pixels")
	}

	bins := quantize(pixels)
	if len(bins) <= k {
		return binsToSamples(bins, len(pixels)), nil
	}

	centroids := e.seedCentroids(bins, k)
	assignment := make([]int, len(pixels))
	points := make([]Lab, len(pixels))
	for i, p := range pixels {
		points[i] = ToLab(p)
	}

	for iter := 0; iter < e.maxIterations; iter++ {
		for i, p := range points {
			best, bestDist := 0, p.Distance(centroids[0])
			for c := 1; c < len(centroids); c++ {
				if d := p.Distance(centroids[c]); d < bestDist {
					best, bestDist = c, d
				}
			}
			assignment[i] = best
		}

		next := make([]Lab, len(centroids))
		counts := make([]int, len(centroids))
		for i, p := range points {
			c := assignment[i]
			next[c].L += p.L
			next[c].A += p.A
			next[c].B += p.B
			counts[c]++
		}

		shift := 0.0
		for c := range next {
			if counts[c] == 0 {
				next[c] = centroids[c]
				continue
			}
			n := float64(counts[c])
			next[c] = Lab{L: next[c].L / n, A: next[c].A / n, B: next[c].B / n}
			if d := next[c].Distance(centroids[c]); d > shift {
				shift = d
			}
		}
		centroids = next
		if shift < e.convergence {
			break
		}
	}

	return clusterSamples(pixels, assignment, len(centroids)), nil
}

// samplePixels walks the image on a fixed grid stride so sampling stays
// reproducible and bounded for large images.
func (e *Extractor) samplePixels(img image.Image) []RGB {
	bounds := img.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total <= 0 {
		return nil
	}

	step := 1
	for step*step*e.maxSamples < total {
		step++
	}

	pixels := make([]RGB, 0, total/(step*step)+1)
	for y := bounds.Min.Y; y < bounds.Max.Y; y += step {
		for x := bounds.Min.X; x < bounds.Max.X; x += step {
			r, g, b, _ := img.At(x, y).RGBA()
			pixels = append(pixels, RGB{
				R: uint8(r >> 8),
				G: uint8(g >> 8),
				B: uint8(b >> 8),
			})
		}
	}
	return pixels
}

type bin struct {
	key   uint16
	count int
	sumR  uint64
	sumG  uint64
	sumB  uint64
}

func (b bin) mean() RGB {
	n := uint64(b.count)
	return RGB{
		R: uint8(b.sumR / n),
		G: uint8(b.sumG / n),
		B: uint8(b.sumB / n),
	}
}

// quantize buckets pixels at 5 bits per channel and returns the occupied
// bins sorted by frequency (ties by bucket key).
func quantize(pixels []RGB) []bin {
	byKey := make(map[uint16]*bin)
	for _, p := range pixels {
		key := uint16(p.R>>3)<<10 | uint16(p.G>>3)<<5 | uint16(p.B>>3)
		entry, ok := byKey[key]
		if !ok {
			entry = &bin{key: key}
			byKey[key] = entry
		}
		entry.count++
		entry.sumR += uint64(p.R)
		entry.sumG += uint64(p.G)
		entry.sumB += uint64(p.B)
	}

	bins := make([]bin, 0, len(byKey))
	for _, b := range byKey {
		bins = append(bins, *b)
	}
	sort.Slice(bins, func(i, j int) bool {
		if bins[i].count != bins[j].count {
			return bins[i].count > bins[j].count
		}
		return bins[i].key < bins[j].key
	})
	return bins
}

// seedCentroids takes the k most frequent histogram bins as initial cluster
// centers.
func (e *Extractor) seedCentroids(bins []bin, k int) []Lab {
	centroids := make([]Lab, k)
	for i := 0; i < k; i++ {
		centroids[i] = ToLab(bins[i].mean())
	}
	return centroids
}

func binsToSamples(bins []bin, total int) []Sample {
	samples := make([]Sample, 0, len(bins))
	for _, b := range bins {
		samples = append(samples, Sample{
			Color:  b.mean(),
			Weight: float64(b.count) / float64(total),
		})
	}
	return samples
}

func clusterSamples(pixels []RGB, assignment []int, k int) []Sample {
	counts := make([]int, k)
	sumR := make([]uint64, k)
	sumG := make([]uint64, k)
	sumB := make([]uint64, k)
	for i, p := range pixels {
		c := assignment[i]
		counts[c]++
		sumR[c] += uint64(p.R)
		sumG[c] += uint64(p.G)
		sumB[c] += uint64(p.B)
	}

	samples := make([]Sample, 0, k)
	total := float64(len(pixels))
	for c := 0; c < k; c++ {
		if counts[c] == 0 {
			continue
		}
		n := uint64(counts[c])
		samples = append(samples, Sample{
			Color: RGB{
				R: uint8(sumR[c] / n),
				G: uint8(sumG[c] / n),
				B: uint8(sumB[c] / n),
			},
			Weight: float64(counts[c]) / total,
		})
	}

	sort.SliceStable(samples, func(i, j int) bool {
		if samples[i].Weight != samples[j].Weight {
			return samples[i].Weight > samples[j].Weight
		}
		return samples[i].Color.Hex() < samples[j].Color.Hex()
	})
	return samples
}
