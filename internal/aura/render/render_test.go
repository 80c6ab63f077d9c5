package render

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/aura/internal/aura/palette"
)

func TestPointSize(t *testing.T) {
	// sin(0) = 0 so the pulse vanishes at t=0, seed=0.
	assert.InDelta(t, 0.5*120/20, PointSize(0.5, 20, 0, 0, 1, MaxPointSize), 1e-12)
	assert.Equal(t, MaxPointSize, PointSize(0.5, 1, 0, 0, 1, MaxPointSize))
	assert.Equal(t, MaxPointSize, PointSize(0.5, 0, 0, 0, 1, MaxPointSize))

	// Peak pulse at 2t = π/2.
	got := PointSize(0.5, 20, math.Pi/4, 0, 2, MaxPointSize)
	assert.InDelta(t, 3*(1+0.15*2), got, 1e-12)
}

func TestRefSeed(t *testing.T) {
	for u := 0.0; u < 1; u += 0.13 {
		for v := 0.0; v < 1; v += 0.17 {
			s := RefSeed(u, v)
			assert.GreaterOrEqual(t, s, 0.0)
			assert.Less(t, s, 1.0)
		}
	}
	assert.InDelta(t, 0.313, RefSeed(0.1, 0), 1e-9)
	assert.Equal(t, RefSeed(0.25, 0.75), RefSeed(0.25, 0.75))
}

func TestShadeColor(t *testing.T) {
	_, ok := ShadeColor(palette.RGB{R: 1}, 0.05)
	assert.False(t, ok, "low mask must be discarded")

	frag, ok := ShadeColor(palette.RGB{R: 1}, 1)
	require.True(t, ok)
	l := 0.2126
	assert.InDelta(t, 1+(l-1)*0.15, frag.R, 1e-12)
	assert.InDelta(t, l*0.15, frag.G, 1e-12)
	assert.InDelta(t, 0.85, frag.A, 1e-12)

	grey, _ := ShadeColor(palette.RGB{R: 0.4, G: 0.4, B: 0.4}, 0.5)
	assert.InDelta(t, 0.4, grey.R, 1e-12, "neutral colours are unchanged")
}

func TestFalloffMask(t *testing.T) {
	tests := []struct {
		r, want float64
	}{
		{-1, 1}, {0, 1}, {0.2, 0.9}, {0.4, 0.8}, {0.55, 0.55}, {0.7, 0.3}, {0.85, 0.15}, {1, 0}, {2, 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, FalloffMask(tt.r), 1e-9, "r=%v", tt.r)
	}
}

func TestFalloffTexture(t *testing.T) {
	tex := FalloffTexture(32)
	require.Len(t, tex, 32*32)
	centre := tex[16*32+16]
	corner := tex[0]
	assert.Greater(t, centre, float32(0.95))
	assert.Equal(t, float32(0), corner)
	assert.Equal(t, tex[5*32+9], tex[9*32+5], "mask is symmetric")
	assert.Nil(t, FalloffTexture(0))
}

func TestAdditive(t *testing.T) {
	dst := palette.RGB{R: 0.5}
	out := Additive(dst, Fragment{RGB: palette.RGB{R: 1, G: 1}, A: 0.5})
	assert.Equal(t, palette.RGB{R: 1, G: 0.5}, out)
}

func TestAdapter_Flat(t *testing.T) {
	s := State{
		Count:           3,
		Time:            1.5,
		PulseMultiplier: 1.25,
		Radius:          8,
		Positions:       []float32{1, 0, 0, 0, 2, 0, 0, 0, 3},
		Colors:          []float32{1, 0, 0, 0, 1, 0, 0, 0, 1},
		Sizes:           []float32{0.4, 0, 0.6},
	}
	var a Adapter
	pc, err := a.Points(s)
	require.NoError(t, err)
	defer pc.Release()

	require.Equal(t, 2, pc.PointCount, "zero-size points are skipped")
	assert.Equal(t, []float32{1, 0}, pc.X)
	assert.Equal(t, []float32{0, 3}, pc.Z)
	assert.Equal(t, []float32{0, 1}, pc.B)
	assert.Equal(t, []float32{0.4, 0.6}, pc.Size)
	assert.Equal(t, float32(1.25), pc.PulseMultiplier)
	assert.Equal(t, uint64(1), pc.FrameID)

	pc2, err := a.Points(s)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), pc2.FrameID)
	pc2.Release()
}

type fakeSource struct {
	grid   int
	texels []float32
	err    error
}

func (f *fakeSource) GridSize() int { return f.grid }

func (f *fakeSource) ReadPositions(dst []float32) ([]float32, error) {
	if f.err != nil {
		return dst, f.err
	}
	return append(dst[:0], f.texels...), nil
}

func TestAdapter_Texture(t *testing.T) {
	src := &fakeSource{grid: 2, texels: []float32{
		1, 1, 1, 0.1, 2, 2, 2, 0.2,
		3, 3, 3, 0.3, 0, 0, 0, -1,
	}}
	s := State{
		Count:      4,
		Source:     src,
		GridSize:   2,
		Refs:       []float32{0.25, 0.25, 0.75, 0.25, 0.25, 0.75, 0.75, 0.75},
		BaseColors: []float32{1, 0, 0, 0, 1, 0, 0, 0, 1, 1, 1, 1},
		Sizes:      []float32{0.5, 0.6, 0.7, 0},
	}

	a := Adapter{Debug: DebugRefs}
	pc, err := a.Points(s)
	require.NoError(t, err)
	require.Equal(t, 3, pc.PointCount)
	assert.Equal(t, []float32{1, 2, 3}, pc.X)
	assert.Equal(t, []float32{0.25, 0.75, 0.25}, pc.R, "debug refs colour by u")
	assert.InDelta(t, RefSeed(0.75, 0.25), float64(pc.Seed[1]), 1e-6)
	pc.Release()

	src.err = errors.New("lost context")
	_, err = a.Points(s)
	require.Error(t, err)
	assert.ErrorIs(t, err, src.err)
}

func TestParseDebugMode(t *testing.T) {
	m, err := ParseDebugMode("direction")
	require.NoError(t, err)
	assert.Equal(t, DebugDirection, m)
	_, err = ParseDebugMode("bogus")
	assert.Error(t, err)
}

func TestPointCloud_Decimate(t *testing.T) {
	pc := NewPointCloud(10)
	for i := 0; i < 10; i++ {
		pc.X[i] = float32(i)
	}
	pc.Decimate(5)
	assert.Equal(t, 5, pc.PointCount)
	assert.Equal(t, []float32{0, 2, 4, 6, 8}, pc.X)

	pc.Decimate(0)
	assert.Equal(t, 5, pc.PointCount)
	pc.Release()
	assert.Nil(t, pc.X)
}

func TestPointCloud_RetainRelease(t *testing.T) {
	pc := NewPointCloud(4)
	pc.Retain()
	pc.Retain()
	pc.Release()
	assert.NotNil(t, pc.X, "still retained")
	pc.Release()
	assert.Nil(t, pc.X)

	var nilPC *PointCloud
	nilPC.Release()
}

func TestCamera_Project(t *testing.T) {
	cam := NewCamera(8, 1)
	cam.Eye = mgl32.Vec3{0, 0, 24}

	sx, sy, depth, ok := cam.Project(mgl32.Vec3{0, 0, 0}, 100, 80)
	require.True(t, ok)
	assert.InDelta(t, 50, sx, 1e-3)
	assert.InDelta(t, 40, sy, 1e-3)
	assert.InDelta(t, 24, depth, 1e-4)

	// Up in world is up on screen.
	_, syUp, _, ok := cam.Project(mgl32.Vec3{0, 2, 0}, 100, 80)
	require.True(t, ok)
	assert.Less(t, syUp, sy)

	_, _, _, ok = cam.Project(mgl32.Vec3{0, 0, 40}, 100, 80)
	assert.False(t, ok, "behind the camera")
}

func TestCamera_Orbit(t *testing.T) {
	cam := NewCamera(8, 1)
	orbited := cam.Orbit(math.Pi / 2)
	assert.InDelta(t, cam.Eye.Len(), orbited.Eye.Len(), 1e-4)
	assert.InDelta(t, cam.Eye.Y(), orbited.Eye.Y(), 1e-5)
	assert.InDelta(t, 0, orbited.Eye.Z(), 1e-4)
}

func TestCanvas_Draw(t *testing.T) {
	c := NewCanvas(40, 20)
	cam := NewCamera(8, 2)
	cam.Eye = mgl32.Vec3{0, 0, 24}

	pc := NewPointCloud(2)
	pc.X[0], pc.Y[0], pc.Z[0] = 0, 0, 0
	pc.X[1], pc.Y[1], pc.Z[1] = 0, 0, 0
	pc.R[0], pc.R[1] = 0.6, 0.6
	pc.Size[0], pc.Size[1] = 4, 4
	pc.PulseMultiplier = 1
	defer pc.Release()

	c.Draw(pc, cam, 0.5)
	centre := c.At(20, 10)
	assert.Greater(t, centre.R, 0.6, "overlapping points brighten")
	assert.LessOrEqual(t, centre.R, 1.0)
	assert.Equal(t, palette.RGB{}, c.At(0, 0))
	assert.Equal(t, palette.RGB{}, c.At(-1, 99))

	c.Resize(40, 20)
	assert.Equal(t, palette.RGB{}, c.At(20, 10))
}
