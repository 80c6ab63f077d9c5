// Package render turns engine state into drawable point clouds and holds the
// reference implementation of the point shading used by the viewers.
package render

// PositionSource exposes a grid of RGBA float texels holding xyz positions
// and a per-particle seed in the fourth channel.
type PositionSource interface {
	// GridSize returns the edge length S of the S×S grid.
	GridSize() int
	// ReadPositions copies the S×S×4 texels into dst, growing it if needed,
	// and returns the filled slice.
	ReadPositions(dst []float32) ([]float32, error)
}

// State is a read-only snapshot of an engine's renderable buffers. It holds
// either flat per-point buffers (Positions, Colors, Sizes) or a texture
// representation (Source, Refs, BaseColors, Sizes). The slices are owned by
// the engine and are only valid until its next Tick.
type State struct {
	Count           int
	Time            float64
	PulseMultiplier float64
	Radius          float64

	// Flat representation: xyz and rgb interleaved, one size per point.
	Positions []float32
	Colors    []float32
	Sizes     []float32

	// Texture representation.
	Source     PositionSource
	GridSize   int
	Refs       []float32 // uv pairs addressing Source
	BaseColors []float32 // rgb interleaved
}

// Textured reports whether the state uses the texture representation.
func (s State) Textured() bool {
	return s.Source != nil
}
