package parallel

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/banshee-data/aura/internal/aura/emotion"
)

// ErrSurfaceUnavailable is returned when a compute surface cannot be created
// on this host or build.
var ErrSurfaceUnavailable = errors.New("compute surface unavailable")

// Texture is a square grid of RGBA float32 texels, row-major.
type Texture struct {
	Size int
	Data []float32
}

// NewTexture allocates a zeroed size×size texture.
func NewTexture(size int) *Texture {
	return &Texture{Size: size, Data: make([]float32, size*size*4)}
}

// Texel returns the four channels of cell i.
func (t *Texture) Texel(i int) [4]float32 {
	k := i * 4
	return [4]float32{t.Data[k], t.Data[k+1], t.Data[k+2], t.Data[k+3]}
}

// SetTexel overwrites the four channels of cell i.
func (t *Texture) SetTexel(i int, v [4]float32) {
	k := i * 4
	t.Data[k], t.Data[k+1], t.Data[k+2], t.Data[k+3] = v[0], v[1], v[2], v[3]
}

// Pass names one of the two per-tick transforms.
type Pass int

const (
	// PassVelocity reads position and velocity and writes velocity.
	PassVelocity Pass = iota
	// PassPosition reads position and the new velocity and writes position.
	PassPosition
)

func (p Pass) String() string {
	switch p {
	case PassVelocity:
		return "velocity"
	case PassPosition:
		return "position"
	}
	return fmt.Sprintf("Pass(%d)", int(p))
}

// Uniforms are the per-tick inputs shared by every cell of a pass.
type Uniforms struct {
	Time          float64
	Delta         float64
	Radius        float64
	Warmup        float64
	OrbitStrength float64
	Damping       float64

	Profile          emotion.Profile
	SpikeWeight      float64
	EmotionPhase     float64
	PrevEmotionPhase float64 // EmotionPhase as of the previous tick

	// ProximityScale multiplies Radius to give the shell radius.
	ProximityScale float64
}

// Surface executes the two passes over a position/velocity texture pair.
// Implementations ping-pong internally; Run must be called with
// PassVelocity then PassPosition each tick.
type Surface interface {
	Size() int
	Upload(pos, vel *Texture) error
	Run(pass Pass, u Uniforms) error
	// ReadPositions copies the current position texels into dst, growing it
	// if needed, and returns the filled slice.
	ReadPositions(dst []float32) ([]float32, error)
	Release()
}

// SurfaceKind selects a Surface implementation.
type SurfaceKind string

const (
	SurfaceCPU SurfaceKind = "cpu"
	SurfaceGL  SurfaceKind = "gl"
)

// ParseSurfaceKind maps a config value onto a SurfaceKind.
func ParseSurfaceKind(s string) (SurfaceKind, error) {
	switch SurfaceKind(s) {
	case "", SurfaceCPU:
		return SurfaceCPU, nil
	case SurfaceGL:
		return SurfaceGL, nil
	}
	return "", fmt.Errorf("unknown compute surface %q", s)
}

// NewSurface creates a surface of the given kind for a size×size grid.
// workers bounds the goroutines used by the cpu surface; zero means
// GOMAXPROCS.
func NewSurface(kind SurfaceKind, size, workers int) (Surface, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid grid size %d", size)
	}
	switch kind {
	case "", SurfaceCPU:
		if workers <= 0 {
			workers = runtime.GOMAXPROCS(0)
		}
		return newCPUSurface(size, workers), nil
	case SurfaceGL:
		return newGLSurface(size)
	}
	return nil, fmt.Errorf("%w: unknown kind %q", ErrSurfaceUnavailable, kind)
}

func growFloat32(dst []float32, n int) []float32 {
	if cap(dst) < n {
		return make([]float32, n)
	}
	return dst[:n]
}
