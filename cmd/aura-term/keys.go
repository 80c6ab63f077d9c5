package main

import (
	"github.com/banshee-data/aura/internal/aura/params"
)

var (
	emotionKeys = map[rune]params.Emotion{
		'1': params.EmotionReflective,
		'2': params.EmotionImpulsive,
		'3': params.EmotionExpansive,
		'4': params.EmotionContained,
	}
	postureCycle   = []params.Posture{params.PostureUpright, params.PostureLeaning, params.PostureCurled, params.PostureExpanded}
	proximityCycle = []params.Proximity{params.ProximityClose, params.ProximityMedium, params.ProximityFar}
)

// keyPatch maps a key press onto a patch relative to cur. ok is false for
// keys that do not change parameters.
func keyPatch(r rune, cur params.Parameters) (patch params.Patch, ok bool) {
	if e, found := emotionKeys[r]; found {
		return params.Patch{Emotion: &e}, true
	}
	switch r {
	case 't', 'T':
		return params.Patch{Temperature: params.Float(step(r, cur.Temperature, 1))}, true
	case 'h', 'H':
		return params.Patch{HeartRate: params.Float(step(r, cur.HeartRate, 10))}, true
	case 's', 'S':
		return params.Patch{Sound: params.Float(step(r, cur.Sound, 10))}, true
	case 'm', 'M':
		return params.Patch{Movement: params.Float(step(r, cur.Movement, 10))}, true
	case 'w', 'W':
		return params.Patch{Weight: params.Float(step(r, cur.Weight, 5))}, true
	case 'p':
		next := postureCycle[(indexOf(postureCycle, cur.Posture)+1)%len(postureCycle)]
		return params.Patch{Posture: &next}, true
	case 'x':
		next := proximityCycle[(indexOf(proximityCycle, cur.Proximity)+1)%len(proximityCycle)]
		return params.Patch{Proximity: &next}, true
	}
	return params.Patch{}, false
}

// step moves v down by d for lower-case keys and up for upper-case ones.
func step(r rune, v, d float64) float64 {
	if r >= 'A' && r <= 'Z' {
		return v + d
	}
	return v - d
}

// indexOf returns the index of v in s, or -1.
func indexOf[T comparable](s []T, v T) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}
