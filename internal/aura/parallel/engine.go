// Package parallel implements the two-pass texture motion engine. Particle
// state lives in square RGBA float textures and each tick runs a velocity
// pass then a position pass over every cell on a compute Surface.
package parallel

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/aura/internal/aura/emotion"
	"github.com/banshee-data/aura/internal/aura/lattice"
	"github.com/banshee-data/aura/internal/aura/palette"
	"github.com/banshee-data/aura/internal/aura/params"
	"github.com/banshee-data/aura/internal/aura/render"
	"github.com/banshee-data/aura/internal/monitoring"
)

const (
	DefaultSphereRadius = 8.0
	DefaultCount        = 4096
	DefaultWarmupFrames = 180

	damping         = 0.985
	colorVariations = 20

	prewarmSteps    = 25
	prewarmDelta    = 0.016
	prewarmConsumes = 60
)

// Config configures a parallel engine.
type Config struct {
	SphereRadius float64
	// Count is the desired particle count; the grid is rounded up to a square.
	Count int
	// WarmupFrames is the warmup length in ticks. Zero means
	// DefaultWarmupFrames; negative disables warmup.
	WarmupFrames int
	Surface      SurfaceKind
	// Workers bounds the cpu surface's goroutines; zero means GOMAXPROCS.
	Workers int
	// PointSizeFactor scales every particle size; zero means 1.
	PointSizeFactor float64
	Params          params.Parameters
	Seed            int64
}

func (c Config) withDefaults() Config {
	if c.SphereRadius <= 0 {
		c.SphereRadius = DefaultSphereRadius
	}
	if c.Count <= 0 {
		c.Count = DefaultCount
	}
	switch {
	case c.WarmupFrames == 0:
		c.WarmupFrames = DefaultWarmupFrames
	case c.WarmupFrames < 0:
		c.WarmupFrames = 0
	}
	if c.PointSizeFactor <= 0 {
		c.PointSizeFactor = 1
	}
	if c.Params == (params.Parameters{}) {
		c.Params = params.Default()
	}
	c.Params = c.Params.Clamped()
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
	return c
}

// GridSize returns the edge length of the smallest square grid holding n cells.
func GridSize(n int) int {
	if n <= 0 {
		return 0
	}
	s := int(math.Ceil(math.Sqrt(float64(n))))
	for s*s < n {
		s++
	}
	return s
}

// Engine animates particles held in textures on a compute Surface.
// It is not safe for concurrent use.
type Engine struct {
	id      string
	radius  float64
	desired int
	grid    int
	params  params.Parameters
	rng     *rand.Rand
	surface Surface

	transition *emotion.Transition
	active     emotion.Profile

	time          float64
	emotionPhase  float64
	prevPhase     float64
	warmupFrames  int
	initialWarmup int

	sizeFactor float64
	baseSizes  []float64
	sizes      []float32
	refs       []float32
	baseColors []float32

	err      error
	disposed bool
}

// New creates the surface, seeds the textures and prewarms the engine. It
// fails with an error wrapping ErrSurfaceUnavailable when the requested
// surface cannot be created.
func New(cfg Config) (*Engine, error) {
	cfg = cfg.withDefaults()
	grid := GridSize(cfg.Count)
	surface, err := NewSurface(cfg.Surface, grid, cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("parallel engine: %w", err)
	}
	e := &Engine{
		id:            uuid.NewString(),
		radius:        cfg.SphereRadius,
		desired:       cfg.Count,
		grid:          grid,
		params:        cfg.Params,
		rng:           rand.New(rand.NewSource(cfg.Seed)),
		surface:       surface,
		transition:    emotion.NewTransition(cfg.Params.Emotion),
		warmupFrames:  cfg.WarmupFrames,
		initialWarmup: cfg.WarmupFrames,
		sizeFactor:    cfg.PointSizeFactor,
	}
	e.active = e.transition.Active()
	if err := e.seed(); err != nil {
		surface.Release()
		return nil, fmt.Errorf("parallel engine: seed: %w", err)
	}
	if err := e.prewarm(); err != nil {
		surface.Release()
		return nil, fmt.Errorf("parallel engine: prewarm: %w", err)
	}
	monitoring.Logf("[Aura] parallel engine %s: %d particles on %dx%d %s surface, radius=%.2f",
		e.id, e.desired, grid, grid, cfg.Surface, e.radius)
	return e, nil
}

// ID returns the engine instance ID.
func (e *Engine) ID() string { return e.id }

// Count returns the number of grid cells, including slack cells.
func (e *Engine) Count() int { return e.grid * e.grid }

// Desired returns the number of live particles.
func (e *Engine) Desired() int { return e.desired }

// Params returns the current parameters.
func (e *Engine) Params() params.Parameters { return e.params }

// Err returns the last surface error, if any. A failed tick leaves the
// textures at their previous state.
func (e *Engine) Err() error { return e.err }

func (e *Engine) seed() error {
	n := e.grid * e.grid
	pos, vel := NewTexture(e.grid), NewTexture(e.grid)
	e.refs = make([]float32, n*2)
	e.baseSizes = make([]float64, n)
	e.sizes = make([]float32, n)

	shell := lattice.Seed(e.desired, e.radius)
	for i := 0; i < n; i++ {
		e.refs[i*2] = (float32(i%e.grid) + 0.5) / float32(e.grid)
		e.refs[i*2+1] = (float32(i/e.grid) + 0.5) / float32(e.grid)

		if i >= e.desired {
			pos.SetTexel(i, [4]float32{0, 0, 0, slackSeed})
			vel.SetTexel(i, [4]float32{0, 0, 0, 1})
			continue
		}
		p := shell[i]
		u := r3.Scale(1/e.radius, p)
		pr := (e.rng.Float64() - 0.5) * 0.05 * e.radius
		p = r3.Add(p, r3.Scale(pr, r3.Vec{X: -u.Z, Z: u.X}))
		p = r3.Scale(0.65+e.rng.Float64()*0.35, p)
		pos.SetTexel(i, texel(p, float32(e.rng.Float64())))

		v := r3.Vec{X: -u.Z * 0.02, Y: (e.rng.Float64() - 0.5) * 0.01, Z: u.X * 0.02}
		vel.SetTexel(i, texel(v, 1))

		e.baseSizes[i] = 0.5 + e.rng.Float64()*0.34
	}
	e.resize()
	e.recolor()
	return e.surface.Upload(pos, vel)
}

func (e *Engine) resize() {
	scale := e.params.BodyScale() * e.sizeFactor
	for i, s := range e.baseSizes {
		e.sizes[i] = float32(s * scale)
	}
}

// recolor replaces the base colours with fresh variations of the current
// temperature colour.
func (e *Engine) recolor() {
	variations := palette.GenerateColorVariations(
		palette.ColorForTemperature(e.params.Temperature), colorVariations, e.rng)
	n := e.grid * e.grid
	if len(e.baseColors) != n*3 {
		e.baseColors = make([]float32, n*3)
	}
	for i := 0; i < n; i++ {
		c := variations[i%len(variations)]
		e.baseColors[i*3] = float32(c.R)
		e.baseColors[i*3+1] = float32(c.G)
		e.baseColors[i*3+2] = float32(c.B)
	}
}

func (e *Engine) prewarm() error {
	for i := 0; i < prewarmSteps; i++ {
		e.time += prewarmDelta
		if err := e.step(e.uniforms(prewarmDelta, 1)); err != nil {
			return err
		}
	}
	e.warmupFrames = max(0, e.warmupFrames-prewarmConsumes)
	return nil
}

func (e *Engine) orbitStrength() float64 {
	return params.MovementRange.Map(e.params.Movement, 0.8, 2.5) *
		e.active.OrbitMultiplier *
		params.MovementRange.Map(e.params.Movement, 0.5, 3.0) * 0.05
}

func (e *Engine) uniforms(dt, warmup float64) Uniforms {
	return Uniforms{
		Time:             e.time,
		Delta:            dt,
		Radius:           e.radius,
		Warmup:           warmup,
		OrbitStrength:    e.orbitStrength(),
		Damping:          damping,
		Profile:          e.active,
		SpikeWeight:      e.transition.SpikeWeight(),
		EmotionPhase:     e.emotionPhase,
		PrevEmotionPhase: e.prevPhase,
		ProximityScale:   e.params.Proximity.ShellScale(),
	}
}

func (e *Engine) step(u Uniforms) error {
	if err := e.surface.Run(PassVelocity, u); err != nil {
		return fmt.Errorf("%s pass: %w", PassVelocity, err)
	}
	if err := e.surface.Run(PassPosition, u); err != nil {
		return fmt.Errorf("%s pass: %w", PassPosition, err)
	}
	return nil
}

// Tick advances the simulation by dt seconds.
func (e *Engine) Tick(dt float64) {
	if e.disposed || dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return
	}
	e.time += dt
	if !e.transition.Settled() {
		e.active = e.transition.Advance(dt)
	}
	e.prevPhase = e.emotionPhase
	e.emotionPhase += dt * e.active.WaveSpeed

	var warmup float64
	if e.warmupFrames > 0 && e.initialWarmup > 0 {
		warmup = float64(e.warmupFrames) / float64(e.initialWarmup)
		e.warmupFrames--
	}

	if err := e.step(e.uniforms(dt, warmup)); err != nil {
		if e.err == nil {
			monitoring.Logf("[Aura] parallel engine %s: tick failed: %v", e.id, err)
		}
		e.err = err
		return
	}
	e.err = nil
}

// Warmup returns the current warmup weight in [0,1].
func (e *Engine) Warmup() float64 {
	if e.initialWarmup <= 0 {
		return 0
	}
	return float64(e.warmupFrames) / float64(e.initialWarmup)
}

// UpdateParams merges patch into the current parameters. Temperature
// replaces the base colours, weight and height rescale sizes, proximity and
// movement only change uniforms, and posture only changes the read-back
// shape.
func (e *Engine) UpdateParams(patch params.Patch) params.Change {
	if e.disposed {
		return 0
	}
	next, fields := params.Merge(e.params, patch)
	if fields == 0 {
		return 0
	}
	prev := e.params
	e.params = next

	var change params.Change
	if fields.Any(params.FieldEmotion) && e.transition.Start(next.Emotion) {
		change |= params.ChangeEmotion
	}
	if fields.Any(params.FieldTemperature) {
		e.recolor()
		change |= params.ChangeColor
	}
	if fields.Any(params.FieldWeight | params.FieldHeight) {
		e.resize()
		change |= params.ChangeSize
	}
	if prev.Proximity.ShellScale() != next.Proximity.ShellScale() ||
		postureScale(prev.Posture) != postureScale(next.Posture) {
		change |= params.ChangeTarget
	}
	if fields.Any(params.FieldMovement | params.FieldSound | params.FieldHeartRate) {
		change |= params.ChangeLive
	}
	return change
}

// GridSize implements render.PositionSource.
func (e *Engine) GridSize() int { return e.grid }

// ReadPositions implements render.PositionSource. The textures hold the
// unscaled shell; the posture scale is applied to the copy in dst.
func (e *Engine) ReadPositions(dst []float32) ([]float32, error) {
	if e.disposed {
		return dst, ErrSurfaceUnavailable
	}
	dst, err := e.surface.ReadPositions(dst)
	if err != nil {
		return dst, err
	}
	ps := postureScale(e.params.Posture)
	for k := 0; k+3 < len(dst); k += 4 {
		if dst[k+3] < 0 {
			continue
		}
		dst[k] *= float32(ps[0])
		dst[k+1] *= float32(ps[1])
		dst[k+2] *= float32(ps[2])
	}
	return dst, nil
}

// RenderableState returns the texture representation of the current state.
func (e *Engine) RenderableState() render.State {
	if e.disposed {
		return render.State{}
	}
	return render.State{
		Count:           e.grid * e.grid,
		Time:            e.time,
		PulseMultiplier: e.active.PulseMultiplier,
		Radius:          e.radius,
		Sizes:           e.sizes,
		Source:          e,
		GridSize:        e.grid,
		Refs:            e.refs,
		BaseColors:      e.baseColors,
	}
}

// Dispose releases the surface. It is safe to call more than once.
func (e *Engine) Dispose() {
	if e.disposed {
		return
	}
	e.disposed = true
	e.surface.Release()
	e.sizes, e.refs, e.baseColors, e.baseSizes = nil, nil, nil, nil
	monitoring.Logf("[Aura] parallel engine %s disposed", e.id)
}
