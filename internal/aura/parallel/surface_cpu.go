package parallel

import (
	"fmt"

	"golang.org/x/sync/errgroup"
)

// cpuSurface runs the passes on goroutines, one band of rows per task.
type cpuSurface struct {
	size    int
	workers int

	pos  [2]*Texture
	vel  [2]*Texture
	pcur int
	vcur int

	released bool
}

func newCPUSurface(size, workers int) *cpuSurface {
	return &cpuSurface{
		size:    size,
		workers: workers,
		pos:     [2]*Texture{NewTexture(size), NewTexture(size)},
		vel:     [2]*Texture{NewTexture(size), NewTexture(size)},
	}
}

func (s *cpuSurface) Size() int { return s.size }

func (s *cpuSurface) Upload(pos, vel *Texture) error {
	if s.released {
		return ErrSurfaceUnavailable
	}
	if pos.Size != s.size || vel.Size != s.size {
		return fmt.Errorf("texture size mismatch: got %d/%d, want %d", pos.Size, vel.Size, s.size)
	}
	copy(s.pos[s.pcur].Data, pos.Data)
	copy(s.vel[s.vcur].Data, vel.Data)
	return nil
}

func (s *cpuSurface) Run(pass Pass, u Uniforms) error {
	if s.released {
		return ErrSurfaceUnavailable
	}
	switch pass {
	case PassVelocity:
		src, vsrc, dst := s.pos[s.pcur], s.vel[s.vcur], s.vel[1-s.vcur]
		if err := s.forEachRow(func(i int) {
			dst.SetTexel(i, velocityKernel(src.Texel(i), vsrc.Texel(i), u))
		}); err != nil {
			return err
		}
		s.vcur = 1 - s.vcur
	case PassPosition:
		src, vnew, dst := s.pos[s.pcur], s.vel[s.vcur], s.pos[1-s.pcur]
		if err := s.forEachRow(func(i int) {
			dst.SetTexel(i, positionKernel(src.Texel(i), vnew.Texel(i), u))
		}); err != nil {
			return err
		}
		s.pcur = 1 - s.pcur
	default:
		return fmt.Errorf("unknown pass %v", pass)
	}
	return nil
}

// forEachRow calls fn for every cell, fanning bands of rows out across the
// worker pool and waiting for all of them.
func (s *cpuSurface) forEachRow(fn func(i int)) error {
	band := (s.size + s.workers - 1) / s.workers
	var g errgroup.Group
	g.SetLimit(s.workers)
	for y0 := 0; y0 < s.size; y0 += band {
		y0 := y0 // per-iteration copy; go.mod targets go 1.21 loop semantics
		y1 := min(y0+band, s.size)
		g.Go(func() error {
			for i := y0 * s.size; i < y1*s.size; i++ {
				fn(i)
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *cpuSurface) ReadPositions(dst []float32) ([]float32, error) {
	if s.released {
		return dst, ErrSurfaceUnavailable
	}
	src := s.pos[s.pcur].Data
	dst = growFloat32(dst, len(src))
	copy(dst, src)
	return dst, nil
}

// readVelocities is used by tests.
func (s *cpuSurface) readVelocities() []float32 {
	return append([]float32(nil), s.vel[s.vcur].Data...)
}

func (s *cpuSurface) Release() {
	s.released = true
	s.pos = [2]*Texture{}
	s.vel = [2]*Texture{}
}
