package similarity

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / w),
				G: uint8(y * 255 / h),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

func TestCompareIdenticalImages(t *testing.T) {
	img := gradient(64, 64)

	res, err := NewEngine().Compare(img, img)
	if err != nil {
		t.Fatalf("compare failed: %v", err)
	}
	if math.Abs(res.Score-1.0) > 1e-9 {
		t.Fatalf("identical images scored %v, want 1.0", res.Score)
	}
	if !res.StructuralUsed {
		t.Fatalf("structural comparison should run for equal aspect ratios")
	}
}

func TestCompareOppositeImages(t *testing.T) {
	white := solid(32, 32, color.NRGBA{255, 255, 255, 255})
	black := solid(32, 32, color.NRGBA{0, 0, 0, 255})

	res, err := NewEngine().Compare(white, black)
	if err != nil {
		t.Fatalf("compare failed: %v", err)
	}
	if res.ColorScore != 0 {
		t.Fatalf("disjoint histograms scored %v, want 0", res.ColorScore)
	}
	if res.Score > 0.5 {
		t.Fatalf("white vs black scored %v, want low score", res.Score)
	}
}

func TestCompareSymmetry(t *testing.T) {
	a := gradient(64, 48)
	b := solid(64, 48, color.NRGBA{50, 100, 150, 255})

	ab, err := NewEngine().Compare(a, b)
	if err != nil {
		t.Fatalf("compare failed: %v", err)
	}
	ba, err := NewEngine().Compare(b, a)
	if err != nil {
		t.Fatalf("compare failed: %v", err)
	}
	if ab.Score != ba.Score {
		t.Fatalf("score not symmetric: %v vs %v", ab.Score, ba.Score)
	}
}

func TestCompareSkipsStructuralOnAspectSkew(t *testing.T) {
	wide := solid(100, 10, color.NRGBA{200, 50, 50, 255})
	tall := solid(10, 100, color.NRGBA{200, 50, 50, 255})

	res, err := NewEngine().Compare(wide, tall)
	if err != nil {
		t.Fatalf("compare failed: %v", err)
	}
	if res.StructuralUsed {
		t.Fatalf("structural comparison should be skipped for 10:1 vs 1:10")
	}
	// With structural skipped the color term carries the whole score.
	if res.Score != res.ColorScore {
		t.Fatalf("score %v should equal color score %v", res.Score, res.ColorScore)
	}
	if math.Abs(res.Score-1.0) > 1e-9 {
		t.Fatalf("same solid color scored %v, want 1.0", res.Score)
	}
}

func TestCompareScoreStaysInRange(t *testing.T) {
	pairs := [][2]image.Image{
		{gradient(40, 40), solid(40, 40, color.NRGBA{255, 0, 0, 255})},
		{gradient(40, 40), gradient(80, 80)},
		{solid(16, 16, color.NRGBA{0, 255, 0, 255}), solid(64, 64, color.NRGBA{0, 250, 5, 255})},
	}
	for i, pair := range pairs {
		res, err := NewEngine().Compare(pair[0], pair[1])
		if err != nil {
			t.Fatalf("pair %d failed: %v", i, err)
		}
		if res.Score < 0 || res.Score > 1 {
			t.Fatalf("pair %d score %v out of range", i, res.Score)
		}
	}
}

func TestCompareRejectsBadInput(t *testing.T) {
	img := solid(8, 8, color.NRGBA{A: 255})

	if _, err := NewEngine().Compare(nil, img); err == nil {
		t.Fatalf("expected error for nil first image")
	}
	if _, err := NewEngine().Compare(img, nil); err == nil {
		t.Fatalf("expected error for nil second image")
	}
	empty := image.NewNRGBA(image.Rect(0, 0, 0, 0))
	if _, err := NewEngine().Compare(img, empty); err == nil {
		t.Fatalf("expected error for empty image")
	}
}
