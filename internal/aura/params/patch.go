package params

import "strings"

// Patch is a partial Parameters update. A nil field means "unchanged".
type Patch struct {
	Temperature *float64   `json:"temperature,omitempty"`
	Weight      *float64   `json:"weight,omitempty"`
	Movement    *float64   `json:"movement,omitempty"`
	Height      *float64   `json:"height,omitempty"`
	HeartRate   *float64   `json:"heart_rate,omitempty"`
	Sound       *float64   `json:"sound,omitempty"`
	Proximity   *Proximity `json:"proximity,omitempty"`
	Posture     *Posture   `json:"posture,omitempty"`
	Emotion     *Emotion   `json:"emotion,omitempty"`
}

// Helper functions to create pointers
func Float(v float64) *float64           { return &v }
func ProximityPtr(v Proximity) *Proximity { return &v }
func PosturePtr(v Posture) *Posture       { return &v }
func EmotionPtr(v Emotion) *Emotion       { return &v }

// IsEmpty reports whether the patch sets no fields.
func (p Patch) IsEmpty() bool {
	return p == Patch{}
}

// FromParameters returns a patch that sets every field to the values in p.
func FromParameters(p Parameters) Patch {
	return Patch{
		Temperature: Float(p.Temperature),
		Weight:      Float(p.Weight),
		Movement:    Float(p.Movement),
		Height:      Float(p.Height),
		HeartRate:   Float(p.HeartRate),
		Sound:       Float(p.Sound),
		Proximity:   ProximityPtr(p.Proximity),
		Posture:     PosturePtr(p.Posture),
		Emotion:     EmotionPtr(p.Emotion),
	}
}

// Field is a bit set naming Parameters fields.
type Field uint16

const (
	FieldTemperature Field = 1 << iota
	FieldWeight
	FieldMovement
	FieldHeight
	FieldHeartRate
	FieldSound
	FieldProximity
	FieldPosture
	FieldEmotion
)

// Has reports whether every bit in f2 is set in f.
func (f Field) Has(f2 Field) bool { return f&f2 == f2 }

// Any reports whether any bit in f2 is set in f.
func (f Field) Any(f2 Field) bool { return f&f2 != 0 }

// Merge applies patch to cur and returns the clamped result together with the
// set of fields whose values actually changed.
func Merge(cur Parameters, patch Patch) (Parameters, Field) {
	next := cur
	if patch.Temperature != nil {
		next.Temperature = *patch.Temperature
	}
	if patch.Weight != nil {
		next.Weight = *patch.Weight
	}
	if patch.Movement != nil {
		next.Movement = *patch.Movement
	}
	if patch.Height != nil {
		next.Height = *patch.Height
	}
	if patch.HeartRate != nil {
		next.HeartRate = *patch.HeartRate
	}
	if patch.Sound != nil {
		next.Sound = *patch.Sound
	}
	if patch.Proximity != nil {
		next.Proximity = *patch.Proximity
	}
	if patch.Posture != nil {
		next.Posture = *patch.Posture
	}
	if patch.Emotion != nil {
		next.Emotion = *patch.Emotion
	}
	next = next.Clamped()

	var changed Field
	if next.Temperature != cur.Temperature {
		changed |= FieldTemperature
	}
	if next.Weight != cur.Weight {
		changed |= FieldWeight
	}
	if next.Movement != cur.Movement {
		changed |= FieldMovement
	}
	if next.Height != cur.Height {
		changed |= FieldHeight
	}
	if next.HeartRate != cur.HeartRate {
		changed |= FieldHeartRate
	}
	if next.Sound != cur.Sound {
		changed |= FieldSound
	}
	if next.Proximity != cur.Proximity {
		changed |= FieldProximity
	}
	if next.Posture != cur.Posture {
		changed |= FieldPosture
	}
	if next.Emotion != cur.Emotion {
		changed |= FieldEmotion
	}
	return next, changed
}

// Change classifies the effect of a parameter update on an engine.
// The zero value means the update was a no-op.
type Change uint8

const (
	// ChangeColor means particle colours are refreshed toward a new gradient.
	ChangeColor Change = 1 << iota
	// ChangeSize means the body scale applied to particle sizes changed.
	ChangeSize
	// ChangeTarget means target positions were recomputed in place.
	ChangeTarget
	// ChangeStructural means the particle set was fully re-seeded.
	ChangeStructural
	// ChangeEmotion means an emotion transition started.
	ChangeEmotion
	// ChangeLive means only per-tick inputs (movement, sound, heart rate) changed.
	ChangeLive
)

var changeNames = []struct {
	c    Change
	name string
}{
	{ChangeColor, "color"},
	{ChangeSize, "size"},
	{ChangeTarget, "target"},
	{ChangeStructural, "structural"},
	{ChangeEmotion, "emotion"},
	{ChangeLive, "live"},
}

// Has reports whether every bit in c2 is set in c.
func (c Change) Has(c2 Change) bool { return c&c2 == c2 }

func (c Change) String() string {
	if c == 0 {
		return "none"
	}
	var parts []string
	for _, n := range changeNames {
		if c&n.c != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}
