// Package scalar implements the per-particle CPU motion engine.
package scalar

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

// Mode selects how targets are shaped and whether particles are reprojected
// onto the shell.
type Mode int

const (
	// ModeShell keeps particles on a spherical shell. Posture is ignored and
	// proximity rescales targets in place.
	ModeShell Mode = iota
	// ModeFreeform shapes targets into a per-emotion structure sized by
	// height and weight, applies posture and proximity as target transforms
	// and skips reprojection. A posture or proximity change re-seeds the
	// particle set.
	ModeFreeform
)

func (m Mode) String() string {
	switch m {
	case ModeShell:
		return "shell"
	case ModeFreeform:
		return "freeform"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode maps a config value onto a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "shell", "sphere":
		return ModeShell, nil
	case "freeform", "legacy":
		return ModeFreeform, nil
	}
	return ModeShell, fmt.Errorf("unknown scalar mode %q", s)
}

const (
	DefaultSphereRadius = 8.0
	DefaultCount        = 2000

	lerpFactor     = 0.1
	returnForce    = 0.05
	returnDistance = 3.0
	smoothing      = 0.05
	colorBlend     = 0.08
	noiseScale     = 0.05

	// targetRefreshInterval is in simulated seconds.
	targetRefreshInterval = 10.0
	colorVariations       = 10
)

// Config configures a scalar engine.
type Config struct {
	SphereRadius float64
	Count        int
	Mode         Mode
	// Params are the initial parameters; the zero value means params.Default().
	Params params.Parameters
	// Seed seeds the engine's random source; zero uses the wall clock.
	Seed int64
}

func (c Config) withDefaults() Config {
	if c.SphereRadius <= 0 {
		c.SphereRadius = DefaultSphereRadius
	}
	if c.Count <= 0 {
		c.Count = DefaultCount
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

// Engine animates a fixed set of particles one at a time.
// It is not safe for concurrent use; callers tick it from one goroutine.
type Engine struct {
	id     string
	radius float64
	mode   Mode
	params params.Parameters
	rng    *rand.Rand

	set        *lattice.ParticleSet
	sphere     []r3.Vec // unit lattice, shell mode only
	projected  []r3.Vec // last shell projection, before noise and smoothing
	transition *emotion.Transition
	active     emotion.Profile
	bodyScale  float64

	// Accumulators advanced by rate*dt each tick.
	simTime      float64
	pulseTime    float64
	emotionPhase float64
	angle        float64

	// Single-pole smoothed multipliers.
	rotationSpeed  float64
	orbitIntensity float64

	nextRefresh float64

	positions []float32
	colors    []float32
	sizes     []float32

	disposed bool
}

// New builds and seeds a scalar engine.
func New(cfg Config) *Engine {
	cfg = cfg.withDefaults()
	e := &Engine{
		id:          uuid.NewString(),
		radius:      cfg.SphereRadius,
		mode:        cfg.Mode,
		params:      cfg.Params,
		rng:         rand.New(rand.NewSource(cfg.Seed)),
		set:         lattice.NewParticleSet(cfg.Count),
		transition:  emotion.NewTransition(cfg.Params.Emotion),
		nextRefresh: targetRefreshInterval,
	}
	if e.mode == ModeShell {
		e.sphere = lattice.Seed(cfg.Count, 1)
		e.projected = make([]r3.Vec, cfg.Count)
	}
	e.active = e.transition.Active()
	e.bodyScale = e.params.BodyScale()
	e.rotationSpeed = 0.05 * e.active.OrbitMultiplier
	e.orbitIntensity = e.rawOrbitIntensity()
	e.positions = make([]float32, cfg.Count*3)
	e.colors = make([]float32, cfg.Count*3)
	e.sizes = make([]float32, cfg.Count)

	e.seed()
	monitoring.Logf("[Aura] scalar engine %s: %d particles, radius=%.2f, mode=%s",
		e.id, cfg.Count, e.radius, e.mode)
	return e
}

// ID returns the engine instance ID.
func (e *Engine) ID() string { return e.id }

// Count returns the number of particles.
func (e *Engine) Count() int { return e.set.Len() }

// Params returns the current parameters.
func (e *Engine) Params() params.Parameters { return e.params }

// Particles exposes the particle store for inspection. It must not be
// modified while the engine is ticking.
func (e *Engine) Particles() *lattice.ParticleSet { return e.set }

func (e *Engine) rawOrbitIntensity() float64 {
	return params.MovementRange.Map(e.params.Movement, 0.8, 2.5) * e.active.OrbitMultiplier
}

// seed re-randomises every particle from the current parameters.
func (e *Engine) seed() {
	n := e.set.Len()
	variations := palette.GenerateColorVariations(
		palette.ColorForTemperature(e.params.Temperature), colorVariations, e.rng)
	jitter := 0.2 * e.radius

	for i := 0; i < n; i++ {
		target := e.targetFor(i)
		e.set.Target[i] = target
		e.set.Phase[i] = e.rng.Float64() * 2 * math.Pi
		e.set.OrbitRadius[i] = 0.15 + e.rng.Float64()*0.25
		e.set.EmotionSeed[i] = e.rng.Float64()

		t1, t2 := lattice.TangentFrame(lattice.SafeUnit(target))
		offset := r3.Add(
			r3.Scale((e.rng.Float64()-0.5)*jitter, t1),
			r3.Scale((e.rng.Float64()-0.5)*jitter, t2),
		)
		e.set.Position[i] = r3.Add(target, offset)
		e.set.Velocity[i] = r3.Vec{}
		if e.projected != nil {
			e.projected[i] = e.set.Position[i]
		}

		c := variations[e.rng.Intn(len(variations))]
		e.set.Color[i] = r3.Vec{X: c.R, Y: c.G, Z: c.B}
		e.set.TargetColor[i] = e.set.Color[i]
		e.set.Size[i] = e.sizeFor(i, 0, 1)
	}
}

// targetFor returns the unrotated home position of particle i.
func (e *Engine) targetFor(i int) r3.Vec {
	if e.mode == ModeShell {
		return r3.Scale(e.radius*shellScale(e.params.Proximity), e.sphere[i])
	}
	t := structuredPoint(i, e.set.Len(), e.transition.Target(), structureRadius(e.radius, e.params))
	t = r3.Scale(freeformProximityScale(e.params.Proximity), t)
	return lattice.Mul(t, postureScale(e.params.Posture))
}

func (e *Engine) refreshTargets() {
	for i := range e.set.Target {
		e.set.Target[i] = e.targetFor(i)
	}
}

func (e *Engine) recolor() {
	variations := palette.GenerateColorVariations(
		palette.ColorForTemperature(e.params.Temperature), colorVariations, e.rng)
	for i := range e.set.TargetColor {
		c := variations[e.rng.Intn(len(variations))]
		e.set.TargetColor[i] = r3.Vec{X: c.R, Y: c.G, Z: c.B}
	}
}

func baseSize(i int) float64 {
	return 0.3 + float64(i%10)*0.03
}

func (e *Engine) sizeFor(i int, soundAmp, heartPulse float64) float64 {
	return baseSize(i) * e.bodyScale * (1 + soundAmp*math.Sin(8*e.simTime+0.2*float64(i))) * heartPulse
}

// UpdateParams merges patch into the current parameters and applies the
// resulting change. It never fails; unknown labels resolve to defaults.
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
	if fields.Any(params.FieldWeight | params.FieldHeight) {
		e.bodyScale = next.BodyScale()
		change |= params.ChangeSize
	}
	if fields.Any(params.FieldMovement | params.FieldSound | params.FieldHeartRate) {
		change |= params.ChangeLive
	}

	switch {
	case e.mode == ModeFreeform && fields.Any(params.FieldProximity|params.FieldPosture):
		e.seed()
		monitoring.Logf("[Aura] scalar engine %s: re-seeded %d particles (proximity=%s posture=%s)",
			e.id, e.set.Len(), next.Proximity, next.Posture)
		return change | params.ChangeStructural
	case e.mode == ModeFreeform:
		if change.Has(params.ChangeEmotion) || fields.Any(params.FieldWeight|params.FieldHeight) {
			e.refreshTargets()
			change |= params.ChangeTarget
		}
	case fields.Any(params.FieldProximity) && shellScale(prev.Proximity) != shellScale(next.Proximity):
		e.refreshTargets()
		change |= params.ChangeTarget
	}
	if fields.Any(params.FieldTemperature) {
		e.recolor()
		change |= params.ChangeColor
	}
	return change
}

// Tick advances the simulation by dt seconds.
func (e *Engine) Tick(dt float64) {
	if e.disposed || dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return
	}
	e.simTime += dt
	e.pulseTime += dt * e.params.HeartRate / 60

	if !e.transition.Settled() {
		e.active = e.transition.Advance(dt)
	}
	prof := e.active
	spike := e.transition.SpikeWeight()

	e.emotionPhase += dt * prof.WaveSpeed
	e.rotationSpeed += (0.05*prof.OrbitMultiplier - e.rotationSpeed) * smoothing
	e.angle += dt * e.rotationSpeed
	e.orbitIntensity += (e.rawOrbitIntensity() - e.orbitIntensity) * smoothing

	if e.simTime >= e.nextRefresh {
		e.refreshTargets()
		e.nextRefresh += targetRefreshInterval
	}

	movementSpeed := params.MovementRange.Map(e.params.Movement, 0.5, 3.0) * prof.OrbitMultiplier
	noiseAmp := noiseScale * movementSpeed * prof.NoiseMultiplier
	soundAmp := params.SoundRange.Map(e.params.Sound, 0, 0.3)
	heartPulse := (math.Sin(2*math.Pi*e.pulseTime)*0.1 + 1) * prof.PulseMultiplier
	shellRadius := e.radius * shellScale(e.params.Proximity)

	for i := range e.set.Position {
		fi := float64(i)
		e.set.Phase[i] += dt * movementSpeed * (0.5 + e.rng.Float64()*0.5)
		phase := e.set.Phase[i]

		target := lattice.RotateY(e.set.Target[i], e.angle)
		orbit := e.set.OrbitRadius[i] * e.orbitIntensity

		pos := r3.Add(target, r3.Vec{
			X: math.Cos(phase) * orbit,
			Y: math.Sin(phase*1.3) * orbit * 0.7,
			Z: math.Sin(phase*0.8) * orbit,
		})

		beta := e.simTime*0.5 + fi*0.1
		b := math.Sin(beta) * orbit * 0.5
		pos = r3.Add(pos, r3.Vec{
			X: b * math.Cos(beta*2),
			Y: b * math.Sin(beta*1.7),
			Z: b * math.Cos(beta*2.3),
		})

		dir := lattice.SafeUnit(target)
		t1, t2 := lattice.TangentFrame(dir)
		seed := e.set.EmotionSeed[i]
		wave, radial := emotion.Wave(t1, t2, e.emotionPhase+seed*2*math.Pi, seed, prof, spike)
		pos = r3.Add(pos, wave)

		if e.mode == ModeShell {
			pos = r3.Scale(shellRadius+radial*prof.ShellThickness, lattice.SafeUnit(pos))
			e.projected[i] = pos
		} else {
			pos = r3.Add(pos, r3.Scale(radial*prof.ShellThickness, dir))
		}

		nu := e.simTime*2 + fi*0.01
		pos = r3.Add(pos, r3.Vec{
			X: math.Sin(nu*3.1) * noiseAmp,
			Y: math.Cos(nu*2.7) * noiseAmp,
			Z: math.Sin(nu*3.5) * noiseAmp,
		})

		old := e.set.Position[i]
		cur := lattice.Lerp(old, pos, lerpFactor)
		if r3.Norm(r3.Sub(cur, target)) > returnDistance*orbit {
			cur = lattice.Lerp(cur, target, returnForce)
		}
		e.set.Velocity[i] = r3.Scale(1/dt, r3.Sub(cur, old))
		e.set.Position[i] = cur

		e.set.Size[i] = e.sizeFor(i, soundAmp, heartPulse)
		e.set.Color[i] = lattice.Lerp(e.set.Color[i], e.set.TargetColor[i], colorBlend)
	}
}

// RenderableState returns flat float32 buffers of the current state. The
// buffers are reused by the next call.
func (e *Engine) RenderableState() render.State {
	if e.disposed {
		return render.State{}
	}
	for i := range e.set.Position {
		p, c := e.set.Position[i], e.set.Color[i]
		e.positions[i*3], e.positions[i*3+1], e.positions[i*3+2] = float32(p.X), float32(p.Y), float32(p.Z)
		e.colors[i*3], e.colors[i*3+1], e.colors[i*3+2] = float32(c.X), float32(c.Y), float32(c.Z)
		e.sizes[i] = float32(e.set.Size[i])
	}
	return render.State{
		Count:           e.set.Len(),
		Time:            e.simTime,
		PulseMultiplier: e.active.PulseMultiplier,
		Radius:          e.radius,
		Positions:       e.positions,
		Colors:          e.colors,
		Sizes:           e.sizes,
	}
}

// Dispose releases the particle buffers. It is safe to call more than once.
func (e *Engine) Dispose() {
	if e.disposed {
		return
	}
	e.disposed = true
	e.set.Release()
	e.sphere, e.projected = nil, nil
	e.positions, e.colors, e.sizes = nil, nil, nil
	monitoring.Logf("[Aura] scalar engine %s disposed", e.id)
}
