package render

import (
	"math"

	"github.com/banshee-data/aura/internal/aura/palette"
)

const (
	// MaxPointSize caps the attenuated point size, in pixels.
	MaxPointSize = 18.0
	// PointScale is the distance attenuation numerator.
	PointScale = 120.0
	// PulseAmplitude is the size pulse depth before the profile multiplier.
	PulseAmplitude = 0.15
	// Desaturation is the blend toward luminance applied to every fragment.
	Desaturation = 0.15
	// AlphaScale multiplies the falloff mask to give fragment alpha.
	AlphaScale = 0.85
	// DiscardBelow drops fragments whose mask falls under this value.
	DiscardBelow = 0.1
)

// PointSize returns the on-screen size of a point at view depth.
func PointSize(size, depth, t, seed, pulse, maxSize float64) float64 {
	if depth <= 1e-3 {
		return maxSize
	}
	s := size * PointScale / depth * (1 + math.Sin(2*t+2*math.Pi*seed)*PulseAmplitude*pulse)
	if s > maxSize {
		return maxSize
	}
	if s < 0 {
		return 0
	}
	return s
}

// RefSeed derives a stable per-point seed in [0,1) from its grid reference.
func RefSeed(u, v float64) float64 {
	x := 53.13*u + 91.7*v
	return x - math.Floor(x)
}

// FlatSeed derives a per-point seed for flat buffers that carry no grid
// reference.
func FlatSeed(i int) float64 {
	x := float64(i) * 0.6180339887498949
	return x - math.Floor(x)
}

// Fragment is a shaded colour with alpha.
type Fragment struct {
	palette.RGB
	A float64
}

// ShadeColor applies the fragment stage to a base colour sampled through a
// falloff mask. It reports false when the fragment is discarded.
func ShadeColor(c palette.RGB, mask float64) (Fragment, bool) {
	if mask < DiscardBelow {
		return Fragment{}, false
	}
	l := c.Luminance()
	mix := func(v float64) float64 { return v + (l-v)*Desaturation }
	return Fragment{
		RGB: palette.RGB{R: mix(c.R), G: mix(c.G), B: mix(c.B)},
		A:   mask * AlphaScale,
	}, true
}

var falloffStops = [...]struct{ r, v float64 }{
	{0, 1}, {0.4, 0.8}, {0.7, 0.3}, {1, 0},
}

// FalloffMask returns the radial opacity at normalised distance r from the
// point centre.
func FalloffMask(r float64) float64 {
	if r <= 0 {
		return 1
	}
	if r >= 1 {
		return 0
	}
	for i := 1; i < len(falloffStops); i++ {
		a, b := falloffStops[i-1], falloffStops[i]
		if r <= b.r {
			return a.v + (b.v-a.v)*(r-a.r)/(b.r-a.r)
		}
	}
	return 0
}

// FalloffTexture builds an n×n single-channel mask image, row-major.
func FalloffTexture(n int) []float32 {
	if n <= 0 {
		return nil
	}
	out := make([]float32, n*n)
	half := float64(n) / 2
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			dx := (float64(x) + 0.5 - half) / half
			dy := (float64(y) + 0.5 - half) / half
			out[y*n+x] = float32(FalloffMask(math.Hypot(dx, dy)))
		}
	}
	return out
}

// Additive accumulates src over dst with additive blending, weighting src by
// alpha. Channels are not clamped.
func Additive(dst palette.RGB, src Fragment) palette.RGB {
	return palette.RGB{
		R: dst.R + src.R*src.A,
		G: dst.G + src.G*src.A,
		B: dst.B + src.B*src.A,
	}
}
