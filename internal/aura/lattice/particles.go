package lattice

import "gonum.org/v1/gonum/spatial/r3"

// ParticleSet stores per-particle state as parallel slices. Every slice has
// the same length, fixed at construction.
type ParticleSet struct {
	Position    []r3.Vec
	Velocity    []r3.Vec
	Target      []r3.Vec
	Color       []r3.Vec
	TargetColor []r3.Vec
	Size        []float64
	Phase       []float64
	OrbitRadius []float64
	EmotionSeed []float64
}

// NewParticleSet allocates a zeroed store for n particles.
func NewParticleSet(n int) *ParticleSet {
	if n < 0 {
		n = 0
	}
	return &ParticleSet{
		Position:    make([]r3.Vec, n),
		Velocity:    make([]r3.Vec, n),
		Target:      make([]r3.Vec, n),
		Color:       make([]r3.Vec, n),
		TargetColor: make([]r3.Vec, n),
		Size:        make([]float64, n),
		Phase:       make([]float64, n),
		OrbitRadius: make([]float64, n),
		EmotionSeed: make([]float64, n),
	}
}

// Len returns the particle count.
func (s *ParticleSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Position)
}

// Clone returns a deep copy of the store.
func (s *ParticleSet) Clone() *ParticleSet {
	c := NewParticleSet(s.Len())
	copy(c.Position, s.Position)
	copy(c.Velocity, s.Velocity)
	copy(c.Target, s.Target)
	copy(c.Color, s.Color)
	copy(c.TargetColor, s.TargetColor)
	copy(c.Size, s.Size)
	copy(c.Phase, s.Phase)
	copy(c.OrbitRadius, s.OrbitRadius)
	copy(c.EmotionSeed, s.EmotionSeed)
	return c
}

// Release drops the backing slices. The store is empty afterwards.
func (s *ParticleSet) Release() {
	*s = ParticleSet{}
}
