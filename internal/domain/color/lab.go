package color

import "math"

// Lab is a CIE Lab color on the 8-bit scale (L in 0..255, a and b offset by
// 128), matching the convention the brand tolerances are expressed in. On
// this scale the black-to-white distance is 255.
type Lab struct {
	L float64
	A float64
	B float64
}

// sRGB D65 reference white.
const (
	whiteX = 0.95047
	whiteY = 1.00000
	whiteZ = 1.08883
)

func labGamma(c float64) float64 {
	if c <= 0.04045 {
		return c / 12.92
	}
	return math.Pow((c+0.055)/1.055, 2.4)
}

func labF(t float64) float64 {
	const epsilon = 216.0 / 24389.0
	const kappa = 24389.0 / 27.0
	if t > epsilon {
		return math.Cbrt(t)
	}
	return (kappa*t + 16.0) / 116.0
}

// ToLab converts an sRGB color to 8-bit-scaled CIE Lab.
func ToLab(c RGB) Lab {
	r := labGamma(float64(c.R) / 255.0)
	g := labGamma(float64(c.G) / 255.0)
	b := labGamma(float64(c.B) / 255.0)

	x := (r*0.4124564 + g*0.3575761 + b*0.1804375) / whiteX
	y := (r*0.2126729 + g*0.7151522 + b*0.0721750) / whiteY
	z := (r*0.0193339 + g*0.1191920 + b*0.9503041) / whiteZ

	fx, fy, fz := labF(x), labF(y), labF(z)

	l := 116.0*fy - 16.0
	a := 500.0 * (fx - fy)
	bb := 200.0 * (fy - fz)

	return Lab{
		L: l * 255.0 / 100.0,
		A: a + 128.0,
		B: bb + 128.0,
	}
}

// Distance is the Euclidean distance between two Lab points.
func (l Lab) Distance(other Lab) float64 {
	dl := l.L - other.L
	da := l.A - other.A
	db := l.B - other.B
	return math.Sqrt(dl*dl + da*da + db*db)
}

// Chroma is the distance from the neutral (gray) axis.
func (l Lab) Chroma() float64 {
	a := l.A - 128.0
	b := l.B - 128.0
	return math.Sqrt(a*a + b*b)
}

// PerceptualDistance is the Euclidean distance between two colors in 8-bit
// Lab space. 0 means identical; smaller is more similar.
func PerceptualDistance(a, b RGB) float64 {
	return ToLab(a).Distance(ToLab(b))
}
