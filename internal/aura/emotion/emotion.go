// Package emotion holds the emotion profile table, the eased transition
// between profiles and the emotional waveform shared by both engines.
package emotion

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/aura/internal/aura/params"
)

// Profile is a bundle of motion coefficients for one emotion.
type Profile struct {
	OrbitMultiplier   float64 `json:"orbit_multiplier"`
	NoiseMultiplier   float64 `json:"noise_multiplier"`
	TangentialWaveAmp float64 `json:"tangential_wave_amp"`
	WaveSpeed         float64 `json:"wave_speed"`
	RadialJitter      float64 `json:"radial_jitter"`
	ShellThickness    float64 `json:"shell_thickness"`
	PulseMultiplier   float64 `json:"pulse_multiplier"`
}

var profiles = map[params.Emotion]Profile{
	params.EmotionReflective: {0.9, 0.8, 0.12, 0.6, 0.07, 0.12, 1.0},
	params.EmotionImpulsive:  {1.4, 2.2, 0.28, 2.2, 0.20, 0.35, 1.25},
	params.EmotionExpansive:  {1.2, 1.3, 0.18, 1.1, 0.15, 0.25, 1.15},
	params.EmotionContained:  {0.7, 0.6, 0.10, 0.9, 0.05, 0.05, 0.85},
}

// Resolve returns e if it names a known profile and reflective otherwise.
func Resolve(e params.Emotion) params.Emotion {
	if _, ok := profiles[e]; ok {
		return e
	}
	return params.EmotionReflective
}

// ProfileFor returns the profile for e. Unknown labels map to reflective.
func ProfileFor(e params.Emotion) Profile {
	return profiles[Resolve(e)]
}

// MaxShellThickness is the largest shell thickness in the table.
func MaxShellThickness() float64 {
	var m float64
	for _, p := range profiles {
		m = math.Max(m, p.ShellThickness)
	}
	return m
}

// spikeFor returns how strongly the cubic radial spike applies to e.
func spikeFor(e params.Emotion) float64 {
	if Resolve(e) == params.EmotionImpulsive {
		return 1
	}
	return 0
}

// Blend returns a + (b-a)*f, coefficient by coefficient.
func Blend(a, b Profile, f float64) Profile {
	lerp := func(x, y float64) float64 { return x + (y-x)*f }
	return Profile{
		OrbitMultiplier:   lerp(a.OrbitMultiplier, b.OrbitMultiplier),
		NoiseMultiplier:   lerp(a.NoiseMultiplier, b.NoiseMultiplier),
		TangentialWaveAmp: lerp(a.TangentialWaveAmp, b.TangentialWaveAmp),
		WaveSpeed:         lerp(a.WaveSpeed, b.WaveSpeed),
		RadialJitter:      lerp(a.RadialJitter, b.RadialJitter),
		ShellThickness:    lerp(a.ShellThickness, b.ShellThickness),
		PulseMultiplier:   lerp(a.PulseMultiplier, b.PulseMultiplier),
	}
}

// Ease is the cosine ease-in-out curve on [0,1].
func Ease(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return (1 - math.Cos(math.Pi*t)) / 2
}

// Wave evaluates the emotional modulation for one particle. t1 and t2 span
// the tangent plane, w is the particle's wave phase and seed its fixed
// per-particle seed. It returns the tangential offset and the radial term,
// the latter bounded by ±p.RadialJitter.
func Wave(t1, t2 r3.Vec, w, seed float64, p Profile, spike float64) (r3.Vec, float64) {
	amp := p.TangentialWaveAmp
	offset := r3.Add(
		r3.Scale(math.Sin(w)*amp, t1),
		r3.Scale(math.Cos(0.7*w+seed)*amp*0.7, t2),
	)

	radial := math.Sin(1.3*w) * p.RadialJitter
	if spike > 0 {
		s := math.Sin(2.1 * w)
		radial += s * s * s * p.RadialJitter * spike
	}
	if radial > p.RadialJitter {
		radial = p.RadialJitter
	} else if radial < -p.RadialJitter {
		radial = -p.RadialJitter
	}
	return offset, radial
}
