// Package palette maps body temperature onto a colour gradient and produces
// per-particle colour variations.
package palette

import (
	"math"
	"math/rand"

	"github.com/lucasb-eyer/go-colorful"
)

// HSL is a colour with hue in degrees [0,360) and saturation and lightness
// in percent [0,100].
type HSL struct {
	H, S, L float64
}

// RGB is a colour with components in [0,1].
type RGB struct {
	R, G, B float64
}

// RGB converts the colour to normalised RGB.
func (c HSL) RGB() RGB {
	col := colorful.Hsl(wrapHue(c.H), clampUnit(c.S/100), clampUnit(c.L/100)).Clamped()
	return RGB{R: col.R, G: col.G, B: col.B}
}

// Hex returns the colour as a #rrggbb string.
func (c RGB) Hex() string {
	return colorful.Color{R: c.R, G: c.G, B: c.B}.Clamped().Hex()
}

// Luminance returns the Rec. 709 relative luminance of c.
func (c RGB) Luminance() float64 {
	return 0.2126*c.R + 0.7152*c.G + 0.0722*c.B
}

// Stop is one calibration point on a temperature gradient.
type Stop struct {
	T float64
	HSL
}

// Gradient is an ordered list of stops, ascending in T.
type Gradient []Stop

// TemperatureStops is the calibrated gradient from cold violet-blue to
// intense red.
var TemperatureStops = Gradient{
	{T: 0, HSL: HSL{260, 80, 55}},
	{T: 10, HSL: HSL{200, 75, 55}},
	{T: 18, HSL: HSL{180, 60, 50}},
	{T: 24, HSL: HSL{120, 55, 50}},
	{T: 30, HSL: HSL{55, 85, 55}},
	{T: 36, HSL: HSL{30, 90, 55}},
	{T: 42, HSL: HSL{0, 95, 50}},
}

// At evaluates the gradient at t. Values outside the stop range clamp to the
// first or last stop.
func (g Gradient) At(t float64) HSL {
	if len(g) == 0 {
		return HSL{}
	}
	if math.IsNaN(t) || t <= g[0].T {
		return g[0].HSL
	}
	last := g[len(g)-1]
	if t >= last.T {
		return last.HSL
	}
	for i := 0; i < len(g)-1; i++ {
		a, b := g[i], g[i+1]
		if t >= a.T && t <= b.T {
			span := b.T - a.T
			if span <= 0 {
				return b.HSL
			}
			return InterpolateHSL(a.HSL, b.HSL, (t-a.T)/span)
		}
	}
	return last.HSL
}

// ColorForTemperature maps a temperature in °C onto TemperatureStops.
func ColorForTemperature(t float64) HSL {
	return TemperatureStops.At(t)
}

// InterpolateHSL blends a toward b by f in [0,1]. Saturation and lightness are
// linear; hue travels the shorter way round the colour wheel.
func InterpolateHSL(a, b HSL, f float64) HSL {
	if f <= 0 {
		return a
	}
	if f >= 1 {
		return b
	}
	dh := b.H - a.H
	if dh > 180 {
		dh -= 360
	} else if dh < -180 {
		dh += 360
	}
	return HSL{
		H: wrapHue(a.H + dh*f),
		S: a.S + (b.S-a.S)*f,
		L: a.L + (b.L-a.L)*f,
	}
}

// Variation bounds applied by GenerateColorVariations.
const (
	HueJitter        = 12.5
	SaturationJitter = 10.0
	LightnessJitter  = 12.5
)

// GenerateColorVariations returns n colours scattered around base. Each
// component is perturbed independently; saturation stays within [25,100] and
// lightness within [25,75].
func GenerateColorVariations(base HSL, n int, rng *rand.Rand) []RGB {
	if n <= 0 {
		return nil
	}
	out := make([]RGB, n)
	for i := range out {
		v := HSL{
			H: wrapHue(base.H + (rng.Float64()*2-1)*HueJitter),
			S: clamp(base.S+(rng.Float64()*2-1)*SaturationJitter, 25, 100),
			L: clamp(base.L+(rng.Float64()*2-1)*LightnessJitter, 25, 75),
		}
		out[i] = v.RGB()
	}
	return out
}

func wrapHue(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return h
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func clampUnit(v float64) float64 {
	return clamp(v, 0, 1)
}
