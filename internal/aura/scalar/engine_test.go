package scalar

import (
	"math"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/aura/internal/aura/emotion"
	"github.com/banshee-data/aura/internal/aura/lattice"
	"github.com/banshee-data/aura/internal/aura/params"
	"github.com/banshee-data/aura/internal/monitoring"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

const frame = 1.0 / 60

func newTestEngine(t *testing.T, mode Mode) *Engine {
	t.Helper()
	e := New(Config{SphereRadius: 8, Count: 2000, Mode: mode, Seed: 1})
	t.Cleanup(e.Dispose)
	return e
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeShell, "shell": ModeShell, "legacy": ModeFreeform, "freeform": ModeFreeform} {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseMode("cubic")
	assert.Error(t, err)
	assert.Equal(t, "freeform", ModeFreeform.String())
	assert.Equal(t, "Mode(9)", Mode(9).String())
}

func TestNew_Defaults(t *testing.T) {
	e := New(Config{Seed: 3})
	defer e.Dispose()

	assert.Equal(t, DefaultCount, e.Count())
	assert.Equal(t, params.Default(), e.Params())
	assert.NotEmpty(t, e.ID())

	s := e.Particles()
	for i := 0; i < s.Len(); i++ {
		assert.GreaterOrEqual(t, s.OrbitRadius[i], 0.15)
		assert.LessOrEqual(t, s.OrbitRadius[i], 0.40)
		assert.GreaterOrEqual(t, s.EmotionSeed[i], 0.0)
		assert.Less(t, s.EmotionSeed[i], 1.0)
		assert.Greater(t, s.Size[i], 0.0)
		for _, c := range []float64{s.Color[i].X, s.Color[i].Y, s.Color[i].Z} {
			assert.GreaterOrEqual(t, c, 0.0)
			assert.LessOrEqual(t, c, 1.0)
		}
		// Initial tangential jitter stays within ±0.1R on each tangent axis.
		off := r3.Sub(s.Position[i], s.Target[i])
		assert.LessOrEqual(t, r3.Norm(off), 0.1*DefaultSphereRadius*math.Sqrt2+1e-9)
		assert.InDelta(t, 0, r3.Dot(off, lattice.SafeUnit(s.Target[i])), 1e-9)
	}
}

func TestConcreteScenario(t *testing.T) {
	e := newTestEngine(t, ModeShell)

	y0 := 1 - 1.0/2000
	r0 := math.Sqrt(1 - y0*y0)
	want := r3.Scale(8, r3.Vec{X: math.Cos(0) * r0, Y: y0, Z: math.Sin(0) * r0})
	got := e.Particles().Target[0]
	assert.InDelta(t, want.X, got.X, 1e-12)
	assert.InDelta(t, want.Y, got.Y, 1e-12)
	assert.InDelta(t, want.Z, got.Z, 1e-12)
	assert.InDelta(t, 0.9995, y0, 1e-12)

	limit := 8 + emotion.MaxShellThickness()
	for tick := 0; tick < 600; tick++ {
		e.Tick(frame)
	}
	for i, p := range e.Particles().Position {
		require.True(t, lattice.Finite(p), "particle %d is not finite", i)
		require.LessOrEqual(t, r3.Norm(p), limit, "particle %d drifted to %v", i, r3.Norm(p))
	}
}

func TestReprojectionInvariant(t *testing.T) {
	for _, emo := range []params.Emotion{params.EmotionReflective, params.EmotionImpulsive, params.EmotionContained} {
		t.Run(string(emo), func(t *testing.T) {
			e := New(Config{SphereRadius: 8, Count: 500, Seed: 5,
				Params: func() params.Parameters { p := params.Default(); p.Emotion = emo; return p }()})
			defer e.Dispose()
			prof := emotion.ProfileFor(emo)
			tol := prof.ShellThickness*prof.RadialJitter + 1e-9

			for tick := 0; tick < 120; tick++ {
				e.Tick(frame)
				for i, p := range e.projected {
					d := math.Abs(r3.Norm(p) - 8)
					if d > tol {
						t.Fatalf("tick %d particle %d: |r-R| = %v exceeds %v", tick, i, d, tol)
					}
				}
			}
		})
	}
}

func TestRunawayGovernor(t *testing.T) {
	e := newTestEngine(t, ModeShell)
	s := e.Particles()

	for _, i := range []int{0, 7, 999, 1999} {
		target := lattice.RotateY(s.Target[i], e.angle)
		away := r3.Scale(10*s.OrbitRadius[i], lattice.SafeUnit(target))
		s.Position[i] = r3.Add(target, away)
	}
	before := map[int]float64{}
	for _, i := range []int{0, 7, 999, 1999} {
		before[i] = r3.Norm(r3.Sub(s.Position[i], lattice.RotateY(s.Target[i], e.angle)))
	}

	e.Tick(frame)

	for i, d := range before {
		after := r3.Norm(r3.Sub(s.Position[i], lattice.RotateY(s.Target[i], e.angle)))
		assert.Less(t, after, d, "particle %d moved away from its target", i)
	}
}

func TestUpdateParams_NoOp(t *testing.T) {
	e := newTestEngine(t, ModeFreeform)
	for i := 0; i < 10; i++ {
		e.Tick(frame)
	}
	snapshot := e.Particles().Clone()

	change := e.UpdateParams(params.Patch{})
	assert.Equal(t, params.Change(0), change)

	change = e.UpdateParams(params.FromParameters(e.Params()))
	assert.Equal(t, params.Change(0), change, "re-sending current values is a no-op")

	if diff := cmp.Diff(snapshot, e.Particles()); diff != "" {
		t.Errorf("no-op update mutated particles (-before +after):\n%s", diff)
	}
}

func TestUpdateParams_Classification(t *testing.T) {
	t.Run("temperature blends colours", func(t *testing.T) {
		e := newTestEngine(t, ModeShell)
		s := e.Particles()
		before := s.Clone()

		change := e.UpdateParams(params.Patch{Temperature: params.Float(40)})
		assert.Equal(t, params.ChangeColor, change)
		assert.Equal(t, before.Color, s.Color, "colour is not snapped")
		assert.Equal(t, before.Position, s.Position)
		assert.NotEqual(t, before.TargetColor, s.TargetColor)

		i := 11
		gap := r3.Norm(r3.Sub(s.TargetColor[i], s.Color[i]))
		e.Tick(frame)
		after := r3.Norm(r3.Sub(s.TargetColor[i], s.Color[i]))
		assert.InDelta(t, gap*(1-colorBlend), after, 1e-9)
	})

	t.Run("weight and height change size only", func(t *testing.T) {
		e := newTestEngine(t, ModeShell)
		before := e.Particles().Clone()
		change := e.UpdateParams(params.Patch{Weight: params.Float(110), Height: params.Float(190)})
		assert.Equal(t, params.ChangeSize, change)
		assert.Equal(t, before.Target, e.Particles().Target)
		assert.InDelta(t, params.Parameters{Weight: 110, Height: 190}.BodyScale(), e.bodyScale, 1e-12)
	})

	t.Run("emotion starts a transition", func(t *testing.T) {
		e := newTestEngine(t, ModeShell)
		before := e.Particles().Clone()
		change := e.UpdateParams(params.Patch{Emotion: params.EmotionPtr(params.EmotionImpulsive)})
		assert.Equal(t, params.ChangeEmotion, change)
		assert.Equal(t, before.Target, e.Particles().Target, "shell targets do not depend on emotion")
		assert.Equal(t, 0.0, e.transition.Progress())
		e.Tick(frame)
		assert.Greater(t, e.transition.Progress(), 0.0)

		for i := 0; i < int(emotion.TransitionDuration/frame)+1; i++ {
			e.Tick(frame)
		}
		require.True(t, e.transition.Settled())
		assert.Equal(t, emotion.ProfileFor(params.EmotionImpulsive), e.active)
	})

	t.Run("live inputs", func(t *testing.T) {
		e := newTestEngine(t, ModeShell)
		change := e.UpdateParams(params.Patch{Movement: params.Float(90), Sound: params.Float(70)})
		assert.Equal(t, params.ChangeLive, change)
	})

	t.Run("shell proximity rescales targets", func(t *testing.T) {
		e := newTestEngine(t, ModeShell)
		seeds := append([]float64(nil), e.Particles().EmotionSeed...)
		for _, tc := range []struct {
			proximity params.Proximity
			radius    float64
		}{
			{params.ProximityFar, 8 * 1.12 / 0.9},
			{params.ProximityMedium, 8 / 0.9},
			{params.ProximityClose, 8},
		} {
			change := e.UpdateParams(params.Patch{Proximity: params.ProximityPtr(tc.proximity)})
			assert.Equal(t, params.ChangeTarget, change, "proximity %s", tc.proximity)
			for _, i := range []int{0, 42, 1999} {
				assert.InDelta(t, tc.radius, r3.Norm(e.Particles().Target[i]), 1e-9, "proximity %s", tc.proximity)
			}
		}
		assert.Equal(t, seeds, e.Particles().EmotionSeed, "no reseed in shell mode")
	})

	t.Run("shell labels outside the vocabulary keep the close radius", func(t *testing.T) {
		e := newTestEngine(t, ModeShell)
		change := e.UpdateParams(params.Patch{Proximity: params.ProximityPtr(params.ProximityIsolated)})
		assert.Equal(t, params.Change(0), change)
		assert.InDelta(t, 8, r3.Norm(e.Particles().Target[42]), 1e-9)
	})

	t.Run("shell posture has no effect", func(t *testing.T) {
		e := newTestEngine(t, ModeShell)
		change := e.UpdateParams(params.Patch{Posture: params.PosturePtr(params.PostureTense)})
		assert.Equal(t, params.Change(0), change)
		assert.Equal(t, params.PostureTense, e.Params().Posture)
	})

	t.Run("freeform posture reseeds", func(t *testing.T) {
		e := newTestEngine(t, ModeFreeform)
		seeds := append([]float64(nil), e.Particles().EmotionSeed...)
		change := e.UpdateParams(params.Patch{Posture: params.PosturePtr(params.PostureHunched)})
		assert.True(t, change.Has(params.ChangeStructural))
		assert.NotEqual(t, seeds, e.Particles().EmotionSeed)

		target := e.Particles().Target[0]
		home := structuredPoint(0, 2000, params.EmotionReflective, structureRadius(8, e.Params()))
		assert.InDelta(t, home.Y*0.6, target.Y, 1e-9)
		assert.InDelta(t, home.X*1.2, target.X, 1e-9)
	})

	t.Run("freeform emotion reshapes targets", func(t *testing.T) {
		e := newTestEngine(t, ModeFreeform)
		seeds := append([]float64(nil), e.Particles().EmotionSeed...)
		change := e.UpdateParams(params.Patch{Emotion: params.EmotionPtr(params.EmotionContained)})
		assert.Equal(t, params.ChangeEmotion|params.ChangeTarget, change)
		assert.Equal(t, seeds, e.Particles().EmotionSeed, "reshaping does not reseed")

		radius := structureRadius(8, e.Params())
		for _, i := range []int{0, 1, 777, 1999} {
			want := structuredPoint(i, 2000, params.EmotionContained, radius)
			assert.InDelta(t, 0, r3.Norm(r3.Sub(want, e.Particles().Target[i])), 1e-12, "particle %d", i)
		}
	})

	t.Run("freeform body size rescales targets", func(t *testing.T) {
		e := newTestEngine(t, ModeFreeform)
		before := e.Particles().Clone()
		r0 := structureRadius(8, e.Params())
		change := e.UpdateParams(params.Patch{Height: params.Float(200), Weight: params.Float(120)})
		assert.Equal(t, params.ChangeSize|params.ChangeTarget, change)

		ratio := structureRadius(8, e.Params()) / r0
		assert.InDelta(t, 1.25/0.95*1.3/0.925, ratio, 1e-9)
		for _, i := range []int{5, 600, 1500} {
			want := r3.Scale(ratio, before.Target[i])
			assert.InDelta(t, 0, r3.Norm(r3.Sub(want, e.Particles().Target[i])), 1e-9, "particle %d", i)
		}
	})

	t.Run("unknown labels fall back", func(t *testing.T) {
		e := newTestEngine(t, ModeFreeform)
		change := e.UpdateParams(params.Patch{Emotion: params.EmotionPtr("ecstatic")})
		assert.Equal(t, params.Change(0), change&params.ChangeEmotion, "resolves to the current reflective profile")
		for i := 0; i < 5; i++ {
			e.Tick(frame)
		}
		assert.Equal(t, emotion.ProfileFor(params.EmotionReflective), e.active)
	})
}

func TestTick_IgnoresBadSteps(t *testing.T) {
	e := newTestEngine(t, ModeShell)
	before := e.Particles().Clone()
	e.Tick(0)
	e.Tick(-1)
	e.Tick(math.NaN())
	assert.Equal(t, before.Position, e.Particles().Position)
}

func TestTick_AccumulatorsAndVelocity(t *testing.T) {
	e := newTestEngine(t, ModeShell)
	e.Tick(frame)
	e.Tick(frame)
	assert.InDelta(t, 2*frame, e.simTime, 1e-12)
	assert.InDelta(t, 2*frame*80/60, e.pulseTime, 1e-12)
	assert.InDelta(t, 2*frame*0.6, e.emotionPhase, 1e-12)
	assert.Greater(t, e.angle, 0.0)

	s := e.Particles()
	prev := s.Position[3]
	e.Tick(frame)
	want := r3.Scale(1/frame, r3.Sub(s.Position[3], prev))
	assert.InDelta(t, want.X, s.Velocity[3].X, 1e-9)
}

func TestTargetRefresh(t *testing.T) {
	e := newTestEngine(t, ModeShell)
	e.Particles().Target[5] = r3.Vec{X: 1}
	for e.simTime < targetRefreshInterval {
		e.Tick(0.5)
	}
	assert.InDelta(t, 8, r3.Norm(e.Particles().Target[5]), 1e-9)
	assert.Equal(t, 2*targetRefreshInterval, e.nextRefresh)
}

func TestRenderableState(t *testing.T) {
	e := newTestEngine(t, ModeShell)
	e.Tick(frame)
	st := e.RenderableState()

	require.Equal(t, 2000, st.Count)
	require.Len(t, st.Positions, 6000)
	require.Len(t, st.Colors, 6000)
	require.Len(t, st.Sizes, 2000)
	assert.False(t, st.Textured())
	assert.Equal(t, 8.0, st.Radius)
	assert.Equal(t, 1.0, st.PulseMultiplier)

	p := e.Particles().Position[10]
	assert.Equal(t, float32(p.Y), st.Positions[31])
	for _, sz := range st.Sizes {
		assert.Greater(t, sz, float32(0))
	}
}

func TestDispose(t *testing.T) {
	e := New(Config{Count: 50, Seed: 2})
	e.Dispose()
	e.Dispose()
	assert.Equal(t, 0, e.Count())
	assert.Equal(t, params.Change(0), e.UpdateParams(params.Patch{Temperature: params.Float(5)}))
	e.Tick(frame)
	assert.Equal(t, 0, e.RenderableState().Count)
}

func TestFreeformBounded(t *testing.T) {
	e := newTestEngine(t, ModeFreeform)
	e.UpdateParams(params.Patch{Proximity: params.ProximityPtr(params.ProximityIsolated)})
	for tick := 0; tick < 300; tick++ {
		e.Tick(frame)
	}
	// Targets reach 8*1.3*1.2 in the widest posture; allow orbit and noise on top.
	for i, p := range e.Particles().Position {
		require.True(t, lattice.Finite(p))
		require.Less(t, r3.Norm(p), 8*1.3+2.5, "particle %d", i)
	}
}

func TestReprojectionInvariant_Far(t *testing.T) {
	p := params.Default()
	p.Proximity = params.ProximityFar
	e := New(Config{SphereRadius: 8, Count: 500, Seed: 9, Params: p})
	defer e.Dispose()
	prof := emotion.ProfileFor(params.EmotionReflective)
	want := 8 * 1.12 / 0.9

	for tick := 0; tick < 60; tick++ {
		e.Tick(frame)
	}
	for i, q := range e.projected {
		assert.InDelta(t, want, r3.Norm(q), prof.ShellThickness*prof.RadialJitter+1e-9, "particle %d", i)
	}
}

func TestStructuredPoint(t *testing.T) {
	const n, radius = 800, 4.0 // 100 particles per layer
	near := func(t *testing.T, want, got r3.Vec) {
		t.Helper()
		assert.InDelta(t, 0, r3.Norm(r3.Sub(want, got)), 1e-9, "want %v got %v", want, got)
	}

	t.Run("impulsive star", func(t *testing.T) {
		near(t, r3.Vec{X: 0.6}, structuredPoint(0, n, params.EmotionImpulsive, radius))
		near(t, r3.Vec{X: 0.9}, structuredPoint(100, n, params.EmotionImpulsive, radius))

		// Layer 1, sixth particle of the first arm.
		a := 0.06 * 2 * math.Pi
		r := 1.8 * (0.5 + 0.48*1.2)
		want := r3.Vec{X: math.Cos(a) * r, Y: math.Sin(a*1.3) * 1.8 * 0.6, Z: math.Sin(a) * r}
		near(t, want, structuredPoint(106, n, params.EmotionImpulsive, radius))

		// The first particle of the second arm restarts at half the layer
		// radius, one eighth of a turn further round.
		p := structuredPoint(13, n, params.EmotionImpulsive, radius)
		assert.InDelta(t, 1.2*(0.5+0.04*1.2), math.Hypot(p.X, p.Z), 1e-9)
	})

	t.Run("expansive torus", func(t *testing.T) {
		near(t, r3.Vec{X: 2.8}, structuredPoint(0, n, params.EmotionExpansive, radius))
		// Layer 2 sits on top of the tube, a quarter turn round.
		near(t, r3.Vec{Y: 1.6, Z: 2.4}, structuredPoint(225, n, params.EmotionExpansive, radius))
	})

	t.Run("contained double helix", func(t *testing.T) {
		near(t, r3.Vec{X: -0.72, Y: -1.6}, structuredPoint(0, n, params.EmotionContained, radius))
		a := 4 * 0.01 * 2 * math.Pi
		near(t, r3.Vec{X: math.Cos(a) * 0.72, Y: -0.49 * 3.2, Z: math.Sin(a) * 0.72},
			structuredPoint(1, n, params.EmotionContained, radius))
	})

	t.Run("reflective spiral", func(t *testing.T) {
		near(t, r3.Vec{Y: -2.4}, structuredPoint(0, n, params.EmotionReflective, radius))
		// Layer 4 adds the pole of its spherical shell.
		a := 400 * lattice.GoldenAngle
		r := math.Sqrt(0.5) * 4.8
		near(t, r3.Vec{X: math.Cos(a) * r, Y: 3.6 * 0.24, Z: math.Sin(a) * r},
			structuredPoint(400, n, params.EmotionReflective, radius))
	})

	t.Run("small counts", func(t *testing.T) {
		for _, emo := range []params.Emotion{params.EmotionImpulsive, params.EmotionExpansive, params.EmotionContained, params.EmotionReflective} {
			for i := 0; i < 3; i++ {
				assert.True(t, lattice.Finite(structuredPoint(i, 3, emo, radius)), "%s %d", emo, i)
			}
		}
	})
}

func TestStructureRadius(t *testing.T) {
	assert.InDelta(t, 8*0.5*0.95*0.925, structureRadius(8, params.Default()), 1e-12)
	assert.InDelta(t, 8*0.5*1.25*1.3, structureRadius(8, params.Parameters{Height: 200, Weight: 120}), 1e-12)
}

func TestFreeformShapesBounded(t *testing.T) {
	for _, emo := range []params.Emotion{params.EmotionImpulsive, params.EmotionExpansive, params.EmotionContained, params.EmotionReflective} {
		t.Run(string(emo), func(t *testing.T) {
			p := params.Default()
			p.Emotion = emo
			e := New(Config{SphereRadius: 8, Count: 1000, Mode: ModeFreeform, Seed: 4, Params: p})
			defer e.Dispose()
			var reach float64
			for _, q := range e.Particles().Target {
				reach = math.Max(reach, r3.Norm(q))
			}
			assert.Less(t, reach, 10.0, "structure fits the sphere")

			for tick := 0; tick < 300; tick++ {
				e.Tick(frame)
			}
			// Orbit, wobble, wave and noise add at most about 3.1 to a target.
			for i, q := range e.Particles().Position {
				require.True(t, lattice.Finite(q), "particle %d", i)
				require.Less(t, r3.Norm(q), reach+3.5, "particle %d", i)
			}
		})
	}
}
