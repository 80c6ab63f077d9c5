package palette

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColorForTemperature_Endpoints(t *testing.T) {
	first := TemperatureStops[0].HSL
	last := TemperatureStops[len(TemperatureStops)-1].HSL

	assert.Equal(t, first, ColorForTemperature(0))
	assert.Equal(t, last, ColorForTemperature(42))
	assert.Equal(t, HSL{260, 80, 55}, first)
	assert.Equal(t, HSL{0, 95, 50}, last)

	// Out-of-domain inputs clamp rather than extrapolate.
	assert.Equal(t, first, ColorForTemperature(-15))
	assert.Equal(t, last, ColorForTemperature(60))
}

func TestColorForTemperature_Stops(t *testing.T) {
	for _, s := range TemperatureStops {
		got := ColorForTemperature(s.T)
		if diff := cmp.Diff(s.HSL, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
			t.Errorf("ColorForTemperature(%v) mismatch (-want +got):\n%s", s.T, diff)
		}
	}
}

func TestColorForTemperature_Midpoint(t *testing.T) {
	// Halfway between 24°C (120,55,50) and 30°C (55,85,55).
	got := ColorForTemperature(27)
	assert.InDelta(t, 87.5, got.H, 1e-9)
	assert.InDelta(t, 70, got.S, 1e-9)
	assert.InDelta(t, 52.5, got.L, 1e-9)
}

func TestInterpolateHSL_HueWrap(t *testing.T) {
	a := HSL{350, 50, 50}
	b := HSL{10, 50, 50}

	mid := InterpolateHSL(a, b, 0.5)
	assert.InDelta(t, 0, mid.H, 1e-9, "hue must pass through 0/360, not 180")

	quarter := InterpolateHSL(a, b, 0.25)
	assert.InDelta(t, 355, quarter.H, 1e-9)

	back := InterpolateHSL(b, a, 0.25)
	assert.InDelta(t, 5, back.H, 1e-9)

	for f := 0.0; f <= 1.0; f += 0.05 {
		h := InterpolateHSL(a, b, f).H
		assert.True(t, h >= 350 || h <= 10, "hue %v at f=%v left the short arc", h, f)
	}
}

func TestInterpolateHSL_Bounds(t *testing.T) {
	a := HSL{100, 20, 30}
	b := HSL{140, 60, 70}
	assert.Equal(t, a, InterpolateHSL(a, b, -1))
	assert.Equal(t, b, InterpolateHSL(a, b, 2))
}

func TestGradientEmpty(t *testing.T) {
	assert.Equal(t, HSL{}, Gradient(nil).At(10))
}

func TestHSLToRGB(t *testing.T) {
	red := HSL{0, 100, 50}.RGB()
	assert.InDelta(t, 1, red.R, 1e-9)
	assert.InDelta(t, 0, red.G, 1e-9)
	assert.InDelta(t, 0, red.B, 1e-9)
	assert.Equal(t, "#ff0000", red.Hex())

	grey := HSL{210, 0, 50}.RGB()
	assert.InDelta(t, 0.5, grey.R, 1e-9)
	assert.InDelta(t, 0.5, grey.Luminance(), 1e-9)
}

func TestGenerateColorVariations(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	base := ColorForTemperature(20)

	out := GenerateColorVariations(base, 200, rng)
	require.Len(t, out, 200)

	distinct := make(map[RGB]struct{})
	for _, c := range out {
		for _, v := range []float64{c.R, c.G, c.B} {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
		distinct[c] = struct{}{}
	}
	assert.Greater(t, len(distinct), 100, "variations should differ")

	assert.Nil(t, GenerateColorVariations(base, 0, rng))
}

func TestGenerateColorVariations_Deterministic(t *testing.T) {
	base := HSL{200, 75, 55}
	a := GenerateColorVariations(base, 20, rand.New(rand.NewSource(42)))
	b := GenerateColorVariations(base, 20, rand.New(rand.NewSource(42)))
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("same seed produced different colours (-a +b):\n%s", diff)
	}
}
