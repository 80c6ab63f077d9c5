package scalar

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/aura/internal/aura/lattice"
	"github.com/banshee-data/aura/internal/aura/params"
)

// shapeLayers is the number of concentric layers in a freeform structure.
const shapeLayers = 8

// shellScale is the sphere-mode radius multiplier, normalised so that close
// keeps targets on the configured sphere radius.
func shellScale(p params.Proximity) float64 {
	return p.ShellScale() / params.ProximityClose.ShellScale()
}

func freeformProximityScale(p params.Proximity) float64 {
	switch p {
	case params.ProximityIsolated:
		return 1.3
	case params.ProximitySurrounded:
		return 0.7
	default:
		return 1.0
	}
}

func postureScale(p params.Posture) r3.Vec {
	switch p {
	case params.PostureHunched:
		return r3.Vec{X: 1.2, Y: 0.6, Z: 1.2}
	case params.PostureRelaxed:
		return r3.Vec{X: 1.1, Y: 0.8, Z: 1.1}
	case params.PostureTense:
		return r3.Vec{X: 0.8, Y: 1.3, Z: 0.8}
	default:
		return r3.Vec{X: 1, Y: 1, Z: 1}
	}
}

// structureRadius is the freeform base radius: half the sphere radius,
// scaled by height and by weight as a density factor.
func structureRadius(sphere float64, p params.Parameters) float64 {
	return sphere * 0.5 * params.HeightRange.Map(p.Height, 0.75, 1.25) * params.WeightRange.Map(p.Weight, 0.7, 1.3)
}

// structuredPoint returns the home position of particle i of n in the
// emotion's structure of base radius radius, before proximity and posture.
// Particles are split into shapeLayers concentric layers whose radius grows
// from 0.3 to 1.35 times the base.
func structuredPoint(i, n int, e params.Emotion, radius float64) r3.Vec {
	perLayer := max(n/shapeLayers, 1)
	layer := min(i/perLayer, shapeLayers-1)
	inLayer := i % perLayer
	frac := float64(inLayer) / float64(perLayer)
	angle := frac * 2 * math.Pi
	layerRadius := radius * (0.3 + float64(layer)*0.15)

	switch e {
	case params.EmotionImpulsive:
		// Eight arms per layer, each running outward from half the layer
		// radius.
		const arms = 8
		armLen := float64(perLayer) / arms
		arm := math.Floor(float64(inLayer) / armLen)
		progress := math.Mod(float64(inLayer), armLen) / armLen
		r := layerRadius * (0.5 + progress*1.2)
		a := angle + arm*2*math.Pi/arms
		return r3.Vec{
			X: math.Cos(a) * r,
			Y: math.Sin(a*1.3) * layerRadius * 0.6,
			Z: math.Sin(a) * r,
		}

	case params.EmotionExpansive:
		// Torus: layers step around the tube.
		tube := radius * 0.4
		v := float64(layer) / shapeLayers * 2 * math.Pi
		ring := layerRadius + tube*math.Cos(v)
		return r3.Vec{
			X: ring * math.Cos(angle),
			Y: tube * math.Sin(v),
			Z: ring * math.Sin(angle),
		}

	case params.EmotionContained:
		// Tight double helix; even indices take the second strand.
		const turns = 4
		a := angle*turns + float64(layer)*math.Pi/4
		if i%2 == 0 {
			a += math.Pi
		}
		r := layerRadius * 0.6
		return r3.Vec{
			X: math.Cos(a) * r,
			Y: (frac - 0.5) * radius * 0.8,
			Z: math.Sin(a) * r,
		}
	}

	// Reflective: a Fibonacci spiral rising through the structure, with a
	// small spherical shell added on the outer layers. The spiral widens with
	// sqrt(i/n) so its extent does not depend on n.
	a := float64(i) * lattice.GoldenAngle
	r := math.Sqrt(float64(i)/float64(n)) * radius * 1.2
	p := r3.Vec{
		X: math.Cos(a) * r,
		Y: (float64(i)/float64(n) - 0.5) * radius * 1.2,
		Z: math.Sin(a) * r,
	}
	if layer > 0 {
		phi := math.Acos(1 - 2*frac)
		theta := math.Sqrt(float64(perLayer)*math.Pi) * phi
		s := layerRadius * 0.8 * 0.3
		p = r3.Add(p, r3.Vec{
			X: math.Sin(phi) * math.Cos(theta) * s,
			Y: math.Cos(phi) * s,
			Z: math.Sin(phi) * math.Sin(theta) * s,
		})
	}
	return p
}
