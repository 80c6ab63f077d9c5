// Package params defines the input parameters that drive an aura engine,
// the partial-update Patch type, and the classification of parameter changes.
package params

import (
	"math"
	"strings"
)

// Emotion selects an emotion profile.
type Emotion string

const (
	EmotionReflective Emotion = "reflective"
	EmotionImpulsive  Emotion = "impulsive"
	EmotionExpansive  Emotion = "expansive"
	EmotionContained  Emotion = "contained"
)

// Proximity selects a shell scale. The shell engines understand close,
// medium and far; the freeform scalar mode understands close, isolated and
// surrounded.
type Proximity string

const (
	ProximityClose      Proximity = "close"
	ProximityMedium     Proximity = "medium"
	ProximityFar        Proximity = "far"
	ProximityIsolated   Proximity = "isolated"
	ProximitySurrounded Proximity = "surrounded"
)

// ShellScale returns the sphere radius multiplier: close 0.9, medium 1.0 and
// far 1.12. Labels outside that vocabulary scale like close.
func (p Proximity) ShellScale() float64 {
	switch p {
	case ProximityMedium:
		return 1.0
	case ProximityFar:
		return 1.12
	default:
		return 0.9
	}
}

// Posture selects an anisotropic shape transform.
type Posture string

const (
	PostureUpright  Posture = "upright"
	PostureLeaning  Posture = "leaning"
	PostureCurled   Posture = "curled"
	PostureExpanded Posture = "expanded"
	PostureHunched  Posture = "hunched"
	PostureRelaxed  Posture = "relaxed"
	PostureTense    Posture = "tense"
)

// Range is an inclusive numeric bound used for clamping.
type Range struct {
	Min, Max float64
}

// Clamp limits v to the range. NaN maps to Min.
func (r Range) Clamp(v float64) float64 {
	if math.IsNaN(v) || v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// Map linearly maps v from the range onto [lo, hi] after clamping.
func (r Range) Map(v, lo, hi float64) float64 {
	if r.Max == r.Min {
		return lo
	}
	f := (r.Clamp(v) - r.Min) / (r.Max - r.Min)
	return lo + (hi-lo)*f
}

// Accepted numeric ranges.
var (
	TemperatureRange = Range{0, 42}
	WeightRange      = Range{40, 120}
	MovementRange    = Range{0, 100}
	HeightRange      = Range{150, 200}
	HeartRateRange   = Range{40, 180}
	SoundRange       = Range{0, 100}
)

// Parameters is the full input set for an engine. It is a value type; engines
// keep their own copy and replace it between ticks.
type Parameters struct {
	Temperature float64   `json:"temperature"`
	Weight      float64   `json:"weight"`
	Movement    float64   `json:"movement"`
	Height      float64   `json:"height"`
	HeartRate   float64   `json:"heart_rate"`
	Sound       float64   `json:"sound"`
	Proximity   Proximity `json:"proximity"`
	Posture     Posture   `json:"posture"`
	Emotion     Emotion   `json:"emotion"`
}

// Default returns the parameters an engine starts with when none are given.
func Default() Parameters {
	return Parameters{
		Temperature: 20,
		Weight:      70,
		Movement:    50,
		Height:      170,
		HeartRate:   80,
		Sound:       30,
		Proximity:   ProximityClose,
		Posture:     PostureUpright,
		Emotion:     EmotionReflective,
	}
}

// Clamped returns a copy with every numeric field limited to its range and
// labels normalised to lower case. Empty labels take their defaults.
func (p Parameters) Clamped() Parameters {
	def := Default()
	p.Temperature = TemperatureRange.Clamp(p.Temperature)
	p.Weight = WeightRange.Clamp(p.Weight)
	p.Movement = MovementRange.Clamp(p.Movement)
	p.Height = HeightRange.Clamp(p.Height)
	p.HeartRate = HeartRateRange.Clamp(p.HeartRate)
	p.Sound = SoundRange.Clamp(p.Sound)
	p.Proximity = Proximity(normaliseLabel(string(p.Proximity), string(def.Proximity)))
	p.Posture = Posture(normaliseLabel(string(p.Posture), string(def.Posture)))
	p.Emotion = Emotion(normaliseLabel(string(p.Emotion), string(def.Emotion)))
	return p
}

// BodyScale derives the size multiplier from height and weight.
func (p Parameters) BodyScale() float64 {
	return HeightRange.Map(p.Height, 0.85, 1.15) * WeightRange.Map(p.Weight, 0.9, 1.1)
}

func normaliseLabel(s, def string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return def
	}
	return s
}
