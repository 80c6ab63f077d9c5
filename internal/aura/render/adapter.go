package render

import (
	"fmt"
	"math"
	"sync/atomic"
)

// DebugMode replaces point colours with diagnostic encodings.
type DebugMode int

const (
	// DebugNone draws stored colours.
	DebugNone DebugMode = iota
	// DebugRefs colours points by their grid reference (u, v, 0).
	DebugRefs
	// DebugDirection colours points by their outward direction.
	DebugDirection
)

// ParseDebugMode maps a flag value onto a DebugMode.
func ParseDebugMode(s string) (DebugMode, error) {
	switch s {
	case "", "none":
		return DebugNone, nil
	case "refs":
		return DebugRefs, nil
	case "direction":
		return DebugDirection, nil
	}
	return DebugNone, fmt.Errorf("unknown debug mode %q", s)
}

// Adapter resolves engine state into point clouds. The zero value is ready
// to use. An Adapter is not safe for concurrent use.
type Adapter struct {
	Debug DebugMode

	frameID atomic.Uint64
	texels  []float32
}

// Points resolves s into a new PointCloud. Points with a zero size are
// skipped.
func (a *Adapter) Points(s State) (*PointCloud, error) {
	var pc *PointCloud
	if s.Textured() {
		var err error
		if pc, err = a.fromTexture(s); err != nil {
			return nil, err
		}
	} else {
		pc = a.fromFlat(s)
	}
	pc.FrameID = a.frameID.Add(1)
	pc.Time = s.Time
	pc.PulseMultiplier = float32(s.PulseMultiplier)
	pc.Radius = float32(s.Radius)
	return pc, nil
}

func (a *Adapter) fromFlat(s State) *PointCloud {
	n := min(s.Count, len(s.Positions)/3, len(s.Colors)/3, len(s.Sizes))
	pc := NewPointCloud(n)
	j := 0
	for i := 0; i < n; i++ {
		size := s.Sizes[i]
		if size <= 0 {
			continue
		}
		x, y, z := s.Positions[i*3], s.Positions[i*3+1], s.Positions[i*3+2]
		r, g, b := s.Colors[i*3], s.Colors[i*3+1], s.Colors[i*3+2]
		switch a.Debug {
		case DebugRefs:
			r, g, b = float32(FlatSeed(i)), 0, 0
		case DebugDirection:
			r, g, b = directionColor(x, y, z)
		}
		pc.X[j], pc.Y[j], pc.Z[j] = x, y, z
		pc.R[j], pc.G[j], pc.B[j] = r, g, b
		pc.Size[j] = size
		pc.Seed[j] = float32(FlatSeed(i))
		j++
	}
	pc.Truncate(j)
	return pc
}

func (a *Adapter) fromTexture(s State) (*PointCloud, error) {
	texels, err := s.Source.ReadPositions(a.texels)
	if err != nil {
		return nil, fmt.Errorf("failed to read position texture: %w", err)
	}
	a.texels = texels

	grid := s.Source.GridSize()
	n := min(s.Count, len(s.Refs)/2, len(s.BaseColors)/3, len(s.Sizes))
	pc := NewPointCloud(n)
	j := 0
	for i := 0; i < n; i++ {
		size := s.Sizes[i]
		if size <= 0 {
			continue
		}
		u, v := s.Refs[i*2], s.Refs[i*2+1]
		cx := clampIndex(int(math.Floor(float64(u)*float64(grid))), grid)
		cy := clampIndex(int(math.Floor(float64(v)*float64(grid))), grid)
		k := (cy*grid + cx) * 4
		if k+3 >= len(texels) {
			continue
		}
		x, y, z := texels[k], texels[k+1], texels[k+2]
		r, g, b := s.BaseColors[i*3], s.BaseColors[i*3+1], s.BaseColors[i*3+2]
		switch a.Debug {
		case DebugRefs:
			r, g, b = u, v, 0
		case DebugDirection:
			r, g, b = directionColor(x, y, z)
		}
		pc.X[j], pc.Y[j], pc.Z[j] = x, y, z
		pc.R[j], pc.G[j], pc.B[j] = r, g, b
		pc.Size[j] = size
		pc.Seed[j] = float32(RefSeed(float64(u), float64(v)))
		j++
	}
	pc.Truncate(j)
	return pc, nil
}

func directionColor(x, y, z float32) (float32, float32, float32) {
	l := float32(math.Sqrt(float64(x*x + y*y + z*z)))
	if l < 1e-4 {
		l = 1e-4
	}
	return x/l*0.5 + 0.5, y/l*0.5 + 0.5, z/l*0.5 + 0.5
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
