package visualiser

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/aura/internal/aura"
	"github.com/banshee-data/aura/internal/aura/params"
	"github.com/banshee-data/aura/internal/aura/render"
	"github.com/banshee-data/aura/internal/monitoring"
	"github.com/banshee-data/aura/internal/timeutil"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

type recordingSink struct {
	mu  sync.Mutex
	ids []uint64
}

func (s *recordingSink) Publish(pc *render.PointCloud) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, pc.FrameID)
}

func (s *recordingSink) frames() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint64(nil), s.ids...)
}

func newScalarEngine(t *testing.T, n int) aura.Engine {
	t.Helper()
	e, err := aura.New(aura.Options{Kind: aura.KindScalar, ParticleCount: n, Seed: 1})
	require.NoError(t, err)
	return e
}

// startDriver runs d on a mock clock and returns a function that advances
// one frame and waits for it to be produced.
func startDriver(t *testing.T, d *Driver, clock *timeutil.MockClock) (step func(), stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- d.Run(ctx) }()

	select {
	case <-clock.TickerCreated():
	case <-time.After(5 * time.Second):
		t.Fatal("driver did not start")
	}

	step = func() {
		want := d.Frames() + 1
		require.Eventually(t, func() bool {
			if d.Frames() >= want {
				return true
			}
			clock.Advance(DefaultFrameInterval)
			return false
		}, 5*time.Second, time.Millisecond)
	}
	stop = func() {
		cancel()
		select {
		case err := <-errCh:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("driver did not stop")
		}
	}
	return step, stop
}

func TestDriver_TicksAndPublishes(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	sink := &recordingSink{}
	d := NewDriver(newScalarEngine(t, 200), DriverConfig{Clock: clock}, sink)
	step, stop := startDriver(t, d, clock)

	assert.Nil(t, d.Latest())
	for i := 0; i < 5; i++ {
		step()
	}
	ids := sink.frames()
	require.GreaterOrEqual(t, len(ids), 5)
	for i := 1; i < len(ids); i++ {
		assert.Greater(t, ids[i], ids[i-1])
	}

	pc := d.Latest()
	require.NotNil(t, pc)
	assert.Equal(t, 200, pc.PointCount)
	pc.Release()

	stop()
	<-d.Done()
	assert.Nil(t, d.Latest())
	assert.ErrorIs(t, d.Run(context.Background()), ErrDisposed)
}

func TestDriver_UpdateParams(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	d := NewDriver(newScalarEngine(t, 50), DriverConfig{Clock: clock})
	step, stop := startDriver(t, d, clock)
	step()

	ctx := context.Background()
	change, err := d.UpdateParams(ctx, params.Patch{Temperature: params.Float(40)})
	require.NoError(t, err)
	assert.True(t, change.Has(params.ChangeColor))
	assert.Equal(t, 40.0, d.Params().Temperature)

	change, err = d.UpdateParams(ctx, params.Patch{Temperature: params.Float(40)})
	require.NoError(t, err)
	assert.Equal(t, params.Change(0), change)

	stop()
	_, err = d.UpdateParams(ctx, params.Patch{Sound: params.Float(1)})
	assert.ErrorIs(t, err, ErrDisposed)
}

func TestDriver_MaxPoints(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	d := NewDriver(newScalarEngine(t, 300), DriverConfig{Clock: clock, MaxPoints: 64})
	step, stop := startDriver(t, d, clock)
	defer stop()
	step()

	pc := d.Latest()
	require.NotNil(t, pc)
	defer pc.Release()
	assert.Equal(t, 64, pc.PointCount)
}

func TestDriver_UpdateParamsCancelled(t *testing.T) {
	d := NewDriver(newScalarEngine(t, 10), DriverConfig{Clock: timeutil.NewMockClock(time.Unix(0, 0))})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.UpdateParams(ctx, params.Patch{Sound: params.Float(1)})
	assert.ErrorIs(t, err, context.Canceled)
}
