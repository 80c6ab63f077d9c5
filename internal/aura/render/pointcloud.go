package render

import (
	"sync"
	"sync/atomic"
)

// PointCloud is a resolved, drawable frame with one entry per visible point.
// The slices come from a pool; call Release when done with the frame.
type PointCloud struct {
	FrameID         uint64
	Time            float64
	PulseMultiplier float32
	Radius          float32

	X, Y, Z []float32
	R, G, B []float32
	Size    []float32
	Seed    []float32

	PointCount int

	refCount atomic.Int32
}

// pointSlicePool reuses float32 slices sized for a default parallel grid.
var pointSlicePool = sync.Pool{
	New: func() interface{} {
		return make([]float32, 0, 4096)
	},
}

func getFloat32Slice(n int) []float32 {
	s := pointSlicePool.Get().([]float32)
	if cap(s) < n {
		pointSlicePool.Put(s)
		return make([]float32, n)
	}
	s = s[:n]
	clear(s)
	return s
}

func putFloat32Slice(s []float32) {
	if cap(s) > 0 && cap(s) <= 1<<20 {
		pointSlicePool.Put(s[:0])
	}
}

// NewPointCloud returns a frame with room for n points.
func NewPointCloud(n int) *PointCloud {
	return &PointCloud{
		X:          getFloat32Slice(n),
		Y:          getFloat32Slice(n),
		Z:          getFloat32Slice(n),
		R:          getFloat32Slice(n),
		G:          getFloat32Slice(n),
		B:          getFloat32Slice(n),
		Size:       getFloat32Slice(n),
		Seed:       getFloat32Slice(n),
		PointCount: n,
	}
}

// Retain adds a consumer. Each Retain must be matched by a Release.
func (pc *PointCloud) Retain() {
	pc.refCount.Add(1)
}

// Release returns the slices to the pool once the last consumer is done.
// A frame that was never retained is released immediately.
func (pc *PointCloud) Release() {
	if pc == nil {
		return
	}
	if pc.refCount.Add(-1) > 0 {
		return
	}
	for _, s := range [][]float32{pc.X, pc.Y, pc.Z, pc.R, pc.G, pc.B, pc.Size, pc.Seed} {
		putFloat32Slice(s)
	}
	pc.X, pc.Y, pc.Z = nil, nil, nil
	pc.R, pc.G, pc.B = nil, nil, nil
	pc.Size, pc.Seed = nil, nil
	pc.PointCount = 0
}

// Truncate keeps the first n points.
func (pc *PointCloud) Truncate(n int) {
	if n < 0 || n >= pc.PointCount {
		return
	}
	pc.X, pc.Y, pc.Z = pc.X[:n], pc.Y[:n], pc.Z[:n]
	pc.R, pc.G, pc.B = pc.R[:n], pc.G[:n], pc.B[:n]
	pc.Size, pc.Seed = pc.Size[:n], pc.Seed[:n]
	pc.PointCount = n
}

// Decimate keeps an evenly strided subset of at most limit points, in place.
// A limit of zero or less keeps everything.
func (pc *PointCloud) Decimate(limit int) {
	if limit <= 0 || pc.PointCount <= limit {
		return
	}
	stride := float64(pc.PointCount) / float64(limit)
	for j := 0; j < limit; j++ {
		i := int(float64(j) * stride)
		pc.X[j], pc.Y[j], pc.Z[j] = pc.X[i], pc.Y[i], pc.Z[i]
		pc.R[j], pc.G[j], pc.B[j] = pc.R[i], pc.G[i], pc.B[i]
		pc.Size[j], pc.Seed[j] = pc.Size[i], pc.Seed[i]
	}
	pc.Truncate(limit)
}
