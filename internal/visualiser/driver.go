// Package visualiser drives an aura engine from a frame clock and streams
// the resulting point clouds to gRPC clients.
package visualiser

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/banshee-data/aura/internal/aura"
	"github.com/banshee-data/aura/internal/aura/params"
	"github.com/banshee-data/aura/internal/aura/render"
	"github.com/banshee-data/aura/internal/monitoring"
	"github.com/banshee-data/aura/internal/timeutil"
)

// ErrDisposed is returned for operations on a driver whose loop has exited.
var ErrDisposed = errors.New("driver disposed")

var logf = monitoring.Prefixed("[Visualiser]")

const (
	DefaultFrameInterval = 16 * time.Millisecond
	DefaultMaxDelta      = 100 * time.Millisecond
)

// Sink receives every frame the driver produces. Publish must Retain the
// frame if it keeps it past the call.
type Sink interface {
	Publish(pc *render.PointCloud)
}

// DriverConfig configures a Driver. Zero values select the defaults.
type DriverConfig struct {
	Clock         timeutil.Clock
	FrameInterval time.Duration
	// MaxDelta caps the simulated step after a stall.
	MaxDelta time.Duration
	Debug    render.DebugMode
	// MaxPoints decimates frames before they reach sinks; zero keeps all.
	MaxPoints int
}

type patchRequest struct {
	patch params.Patch
	reply chan params.Change
}

// Driver owns an engine and ticks it on a single goroutine. Parameter
// patches are queued and applied between ticks.
type Driver struct {
	engine  aura.Engine
	adapter render.Adapter
	cfg     DriverConfig
	sinks   []Sink

	patches chan patchRequest
	params  atomic.Pointer[params.Parameters]
	frames  atomic.Uint64
	running atomic.Bool
	done    chan struct{}

	latestMu sync.Mutex
	latest   *render.PointCloud

	warnFrame func(format string, v ...interface{})
}

// NewDriver wraps engine. The driver takes ownership and disposes the
// engine when Run returns.
func NewDriver(engine aura.Engine, cfg DriverConfig, sinks ...Sink) *Driver {
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = DefaultFrameInterval
	}
	if cfg.MaxDelta <= 0 {
		cfg.MaxDelta = DefaultMaxDelta
	}
	d := &Driver{
		engine:    engine,
		cfg:       cfg,
		sinks:     sinks,
		patches:   make(chan patchRequest),
		done:      make(chan struct{}),
		warnFrame: monitoring.Every(300, logf),
	}
	d.adapter.Debug = cfg.Debug
	p := engine.Params()
	d.params.Store(&p)
	return d
}

// Run ticks the engine until ctx is cancelled, then disposes it. It returns
// ErrDisposed if called a second time.
func (d *Driver) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return ErrDisposed
	}
	ticker := d.cfg.Clock.NewTicker(d.cfg.FrameInterval)
	defer func() {
		ticker.Stop()
		d.engine.Dispose()
		d.setLatest(nil)
		close(d.done)
		logf("driver for engine %s stopped after %d frames", d.engine.ID(), d.frames.Load())
	}()

	logf("driver for engine %s running at %v per frame", d.engine.ID(), d.cfg.FrameInterval)
	last := d.cfg.Clock.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-d.patches:
			change := d.engine.UpdateParams(req.patch)
			p := d.engine.Params()
			d.params.Store(&p)
			if change.Has(params.ChangeStructural) {
				logf("structural change applied to engine %s", d.engine.ID())
			}
			req.reply <- change
		case now := <-ticker.C():
			dt := timeutil.FrameDelta(last, now, d.cfg.MaxDelta)
			last = now
			if dt > 0 {
				d.step(dt)
			}
		}
	}
}

func (d *Driver) step(dt float64) {
	d.engine.Tick(dt)
	pc, err := d.adapter.Points(d.engine.RenderableState())
	if err != nil {
		d.warnFrame("frame dropped: %v", err)
		return
	}
	if d.cfg.MaxPoints > 0 {
		pc.Decimate(d.cfg.MaxPoints)
	}
	d.frames.Add(1)

	pc.Retain()
	d.setLatest(pc)
	for _, s := range d.sinks {
		s.Publish(pc)
	}
}

// setLatest stores a retained frame and releases the previous one.
func (d *Driver) setLatest(pc *render.PointCloud) {
	d.latestMu.Lock()
	old := d.latest
	d.latest = pc
	d.latestMu.Unlock()
	old.Release()
}

// Latest returns the most recent frame, retained for the caller, or nil.
// The caller must Release it.
func (d *Driver) Latest() *render.PointCloud {
	d.latestMu.Lock()
	defer d.latestMu.Unlock()
	if d.latest == nil {
		return nil
	}
	d.latest.Retain()
	return d.latest
}

// UpdateParams queues patch for the next gap between ticks and waits for it
// to be applied.
func (d *Driver) UpdateParams(ctx context.Context, patch params.Patch) (params.Change, error) {
	req := patchRequest{patch: patch, reply: make(chan params.Change, 1)}
	select {
	case d.patches <- req:
	case <-d.done:
		return 0, ErrDisposed
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	select {
	case c := <-req.reply:
		return c, nil
	case <-d.done:
		return 0, ErrDisposed
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Params returns the parameters as of the last applied patch.
func (d *Driver) Params() params.Parameters {
	return *d.params.Load()
}

// Frames returns the number of frames produced.
func (d *Driver) Frames() uint64 {
	return d.frames.Load()
}

// Done is closed once Run has returned and the engine is disposed.
func (d *Driver) Done() <-chan struct{} {
	return d.done
}
