package parallel

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/aura/internal/aura/emotion"
	"github.com/banshee-data/aura/internal/aura/lattice"
)

// Slack cells carry this seed and are written as zeros by both passes.
const slackSeed = -1

func fract(x float64) float64 {
	return x - math.Floor(x)
}

// hash3 is a cheap 3D value hash returning components in [0,1). It matches
// the GLSL hash3 in velocityFragmentShader.
func hash3(p r3.Vec) r3.Vec {
	p = r3.Vec{
		X: fract(p.X*0.3183099 + 0.1),
		Y: fract(p.Y*0.3183099 + 0.2),
		Z: fract(p.Z*0.3183099 + 0.3),
	}
	d := p.X*(p.Y+19.19) + p.Y*(p.Z+19.19) + p.Z*(p.X+19.19)
	p = r3.Vec{X: p.X + d, Y: p.Y + d, Z: p.Z + d}
	return r3.Vec{
		X: fract((p.X + p.Y) * p.Z),
		Y: fract((p.X + p.Z) * p.Y),
		Z: fract((p.Y + p.Z) * p.X),
	}
}

func vec(t [4]float32) r3.Vec {
	return r3.Vec{X: float64(t[0]), Y: float64(t[1]), Z: float64(t[2])}
}

func texel(v r3.Vec, w float32) [4]float32 {
	return [4]float32{float32(v.X), float32(v.Y), float32(v.Z), w}
}

// velocityKernel computes the new velocity of one cell.
func velocityKernel(pos4, vel4 [4]float32, u Uniforms) [4]float32 {
	if pos4[3] < 0 {
		return [4]float32{0, 0, 0, 1}
	}
	pos, vel := vec(pos4), vec(vel4)

	rotated := lattice.RotateY(pos, -u.OrbitStrength*u.Delta)
	vel = r3.Add(vel, r3.Scale(0.25, r3.Sub(rotated, pos)))

	h := hash3(r3.Add(r3.Scale(0.15, pos), r3.Vec{X: u.Time * 0.5, Y: u.Time * 0.5, Z: u.Time * 0.5}))
	h = r3.Sub(h, r3.Vec{X: 0.5, Y: 0.5, Z: 0.5})
	vel = r3.Add(vel, r3.Scale(0.15*u.Profile.NoiseMultiplier*u.Delta, h))

	dir := lattice.SafeUnit(r3.Add(pos, r3.Vec{X: 1e-5, Y: 1e-5, Z: 1e-5}))
	vel = r3.Add(vel, r3.Scale(math.Sin(u.Time*0.5)*0.02, dir))

	l := math.Max(r3.Norm(pos), lattice.MinLength)
	vel = r3.Add(vel, r3.Scale((u.Radius*u.ProximityScale-l)*0.5*u.Delta, dir))
	vel = r3.Scale(u.Damping, vel)

	return texel(vel, 1)
}

// positionKernel integrates one cell and pulls it toward the shell of radius
// Radius·ProximityScale. The seed in the fourth channel is carried through
// unchanged. Posture is not applied here; see Engine.ReadPositions.
func positionKernel(pos4, vel4 [4]float32, u Uniforms) [4]float32 {
	seed := pos4[3]
	if seed < 0 {
		return [4]float32{0, 0, 0, seed}
	}
	pos := r3.Add(vec(pos4), r3.Scale(u.Delta, vec(vel4)))
	sd := float64(seed)

	dir := lattice.SafeUnit(pos)
	t1, t2 := lattice.TangentFrame(dir)

	if u.Warmup > 0.001 {
		js := sd + u.Time*0.73
		j1 := fract(math.Sin(js*12.9898)*43758.5453)*2 - 1
		j2 := fract(math.Sin((js+1.2345)*78.233)*43758.5453)*2 - 1
		amp := 0.4 * u.Warmup * u.Radius * 0.5
		pos = r3.Add(pos, r3.Scale(amp, r3.Add(r3.Scale(j1, t1), r3.Scale(j2, t2))))
	}

	// Only the change in the wave offset since the last tick is applied, so
	// each particle oscillates about its place on the shell.
	wave, radial := emotion.Wave(t1, t2, u.EmotionPhase+sd*2*math.Pi, sd, u.Profile, u.SpikeWeight)
	prev, _ := emotion.Wave(t1, t2, u.PrevEmotionPhase+sd*2*math.Pi, sd, u.Profile, u.SpikeWeight)
	pos = r3.Add(pos, r3.Sub(wave, prev))

	desired := u.Radius*u.ProximityScale + radial*u.Profile.ShellThickness
	shell := r3.Scale(desired, lattice.SafeUnit(pos))
	mix := 0.15 + (0.65-0.15)*(1-u.Warmup)
	pos = lattice.Lerp(pos, shell, mix)
	return texel(pos, seed)
}
