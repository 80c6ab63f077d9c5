// Package aura selects and constructs a particle engine. Both engines
// satisfy Engine and are driven the same way: UpdateParams between ticks,
// Tick once per frame, RenderableState to draw, Dispose to release.
package aura

import (
	"fmt"

	"github.com/banshee-data/aura/internal/aura/params"
	"github.com/banshee-data/aura/internal/aura/parallel"
	"github.com/banshee-data/aura/internal/aura/render"
	"github.com/banshee-data/aura/internal/aura/scalar"
)

// Engine is the contract shared by the scalar and parallel engines.
// Implementations are not safe for concurrent use.
type Engine interface {
	ID() string
	UpdateParams(patch params.Patch) params.Change
	Tick(dt float64)
	RenderableState() render.State
	Params() params.Parameters
	Dispose()
}

// Kind names an engine implementation.
type Kind string

const (
	KindScalar   Kind = "scalar"
	KindParallel Kind = "parallel"
)

// ParseKind maps a config value onto a Kind. The empty string selects the
// parallel engine.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case "", KindParallel, "gpu":
		return KindParallel, nil
	case KindScalar, "cpu":
		return KindScalar, nil
	}
	return "", fmt.Errorf("unknown engine kind %q", s)
}

// Options configures New. Zero values select each engine's defaults.
type Options struct {
	Kind Kind
	// Mode applies to the scalar engine only.
	Mode scalar.Mode
	// Surface and Workers apply to the parallel engine only.
	Surface parallel.SurfaceKind
	Workers int

	SphereRadius  float64
	ParticleCount int
	// WarmupFrames applies to the parallel engine; negative disables warmup.
	WarmupFrames    int
	PointSizeFactor float64
	InitialParams   *params.Parameters
	Seed            int64
}

// New constructs the engine selected by opts.Kind. A parallel engine whose
// surface cannot be created fails with an error wrapping
// parallel.ErrSurfaceUnavailable.
func New(opts Options) (Engine, error) {
	var p params.Parameters
	if opts.InitialParams != nil {
		p = opts.InitialParams.Clamped()
	}
	switch opts.Kind {
	case KindScalar:
		return scalar.New(scalar.Config{
			SphereRadius: opts.SphereRadius,
			Count:        opts.ParticleCount,
			Mode:         opts.Mode,
			Params:       p,
			Seed:         opts.Seed,
		}), nil
	case "", KindParallel:
		e, err := parallel.New(parallel.Config{
			SphereRadius:    opts.SphereRadius,
			Count:           opts.ParticleCount,
			WarmupFrames:    opts.WarmupFrames,
			Surface:         opts.Surface,
			Workers:         opts.Workers,
			PointSizeFactor: opts.PointSizeFactor,
			Params:          p,
			Seed:            opts.Seed,
		})
		if err != nil {
			return nil, err
		}
		return e, nil
	}
	return nil, fmt.Errorf("unknown engine kind %q", opts.Kind)
}
