package emotion

import "github.com/banshee-data/aura/internal/aura/params"

// TransitionDuration is how long a profile change takes, in seconds.
const TransitionDuration = 1.8

// progressEpsilon absorbs float drift when summing frame steps so that
// N steps of duration/N finish the transition exactly.
const progressEpsilon = 1e-9

// Transition eases the active profile from one emotion to another.
// It is not safe for concurrent use.
type Transition struct {
	target    params.Emotion
	from, to  Profile
	fromSpike float64
	toSpike   float64
	elapsed   float64
	duration  float64
}

// NewTransition returns a transition already settled on e.
func NewTransition(e params.Emotion) *Transition {
	e = Resolve(e)
	p := ProfileFor(e)
	return &Transition{
		target:    e,
		from:      p,
		to:        p,
		fromSpike: spikeFor(e),
		toSpike:   spikeFor(e),
		elapsed:   TransitionDuration,
		duration:  TransitionDuration,
	}
}

// Start begins a transition toward e from whatever profile is active now.
// It reports false when e is already the target.
func (t *Transition) Start(e params.Emotion) bool {
	e = Resolve(e)
	if e == t.target {
		return false
	}
	t.from = t.Active()
	t.fromSpike = t.SpikeWeight()
	t.to = ProfileFor(e)
	t.toSpike = spikeFor(e)
	t.target = e
	t.elapsed = 0
	return true
}

// Advance moves the transition forward by dt seconds and returns the active
// profile.
func (t *Transition) Advance(dt float64) Profile {
	if dt > 0 && t.elapsed < t.duration {
		t.elapsed += dt
		if t.elapsed >= t.duration-progressEpsilon {
			t.elapsed = t.duration
			t.from = t.to
			t.fromSpike = t.toSpike
		}
	}
	return t.Active()
}

// Progress returns the transition progress in [0,1].
func (t *Transition) Progress() float64 {
	if t.duration <= 0 {
		return 1
	}
	p := t.elapsed / t.duration
	if p > 1 {
		return 1
	}
	return p
}

// Active returns the eased blend between the start and target profiles.
func (t *Transition) Active() Profile {
	return Blend(t.from, t.to, Ease(t.Progress()))
}

// SpikeWeight returns how much of the impulsive radial spike applies.
func (t *Transition) SpikeWeight() float64 {
	return t.fromSpike + (t.toSpike-t.fromSpike)*Ease(t.Progress())
}

// Target returns the emotion being transitioned to.
func (t *Transition) Target() params.Emotion {
	return t.target
}

// Settled reports whether the transition has finished.
func (t *Transition) Settled() bool {
	return t.elapsed >= t.duration
}
