//go:build gl

// Command aura-view draws an aura in an OpenGL window.
//
// The engine runs on the main thread next to the window, so the gl compute
// surface can share it. With -remote, frames are streamed from an
// aura-server instead.
//
// Keys: 1-4 select an emotion, T/t raise/lower temperature, H/h heart rate,
// left/right orbit the camera, Esc quits.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"runtime"
	"sync"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/banshee-data/aura/internal/aura"
	"github.com/banshee-data/aura/internal/aura/params"
	"github.com/banshee-data/aura/internal/aura/render"
	"github.com/banshee-data/aura/internal/config"
	"github.com/banshee-data/aura/internal/timeutil"
	"github.com/banshee-data/aura/internal/version"
	"github.com/banshee-data/aura/internal/visualiser"
)

var (
	configPath  = flag.String("config", "", "JSON config file")
	remote      = flag.String("remote", "", "aura-server address to stream from (empty runs in-process)")
	engineKind  = flag.String("engine", "", "Engine kind: parallel or scalar")
	surfaceKind = flag.String("surface", "", "Parallel compute surface: cpu or gl")
	width       = flag.Int("width", 1200, "Window width")
	height      = flag.Int("height", 800, "Window height")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

const falloffSize = 64

func init() {
	// GLFW must run on the main OS thread.
	runtime.LockOSThread()
}

// frameSource yields the frame to draw this iteration. The caller releases
// the returned frame.
type frameSource interface {
	Next(dt float64) *render.PointCloud
	UpdateParams(patch params.Patch)
	Params() params.Parameters
	Close()
}

// localFrames ticks an engine on the calling thread.
type localFrames struct {
	engine  aura.Engine
	adapter render.Adapter
}

func (l *localFrames) Next(dt float64) *render.PointCloud {
	l.engine.Tick(dt)
	pc, err := l.adapter.Points(l.engine.RenderableState())
	if err != nil {
		log.Printf("frame dropped: %v", err)
		return nil
	}
	return pc
}

func (l *localFrames) UpdateParams(patch params.Patch) {
	if change := l.engine.UpdateParams(patch); change != 0 {
		log.Printf("params updated: %s", change)
	}
}

func (l *localFrames) Params() params.Parameters { return l.engine.Params() }
func (l *localFrames) Close()                    { l.engine.Dispose() }

// remoteFrames keeps the newest frame from a stream.
type remoteFrames struct {
	client *visualiser.Client
	cancel context.CancelFunc

	mu     sync.Mutex
	latest *render.PointCloud
	params params.Parameters
}

func newRemoteFrames(client *visualiser.Client) *remoteFrames {
	ctx, cancel := context.WithCancel(context.Background())
	r := &remoteFrames{client: client, cancel: cancel, params: params.Default()}
	go func() {
		err := client.StreamFrames(ctx, 0, func(pc *render.PointCloud) error {
			r.mu.Lock()
			old := r.latest
			r.latest = pc
			r.mu.Unlock()
			old.Release()
			return nil
		})
		if err != nil && ctx.Err() == nil {
			log.Printf("stream ended: %v", err)
		}
	}()
	return r
}

// Next hands over the newest frame, or nil if none arrived since the last
// call.
func (r *remoteFrames) Next(float64) *render.PointCloud {
	r.mu.Lock()
	defer r.mu.Unlock()
	pc := r.latest
	r.latest = nil
	return pc
}

func (r *remoteFrames) UpdateParams(patch params.Patch) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.client.UpdateParams(ctx, patch); err != nil {
		log.Printf("update failed: %v", err)
		return
	}
	r.mu.Lock()
	r.params, _ = params.Merge(r.params, patch)
	r.mu.Unlock()
}

func (r *remoteFrames) Params() params.Parameters {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.params
}

func (r *remoteFrames) Close() {
	r.cancel()
	r.client.Close()
	r.Next(0).Release()
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("aura-view"))
		return
	}

	if err := glfw.Init(); err != nil {
		log.Fatalln("failed to initialize glfw:", err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Visible, glfw.True)

	window, err := glfw.CreateWindow(*width, *height, "aura", nil, nil)
	if err != nil {
		log.Fatalf("failed to create window: %v", err)
	}
	window.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		log.Fatalf("failed to initialize gl: %v", err)
	}
	glfw.SwapInterval(1)
	log.Printf("%s on OpenGL %s", version.String("aura-view"), gl.GoStr(gl.GetString(gl.VERSION)))

	src, err := newFrameSource()
	if err != nil {
		log.Fatalf("failed to start: %v", err)
	}
	defer src.Close()
	// The engine may have created its own context.
	window.MakeContextCurrent()

	r, err := newRenderer()
	if err != nil {
		log.Fatalf("failed to create renderer: %v", err)
	}
	defer r.Delete()

	var angle float32
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, _ int, action glfw.Action, mods glfw.ModifierKey) {
		if action == glfw.Release {
			return
		}
		if patch, ok := viewKeyPatch(key, mods, src.Params()); ok {
			src.UpdateParams(patch)
			window.MakeContextCurrent()
			return
		}
		switch key {
		case glfw.KeyEscape:
			w.SetShouldClose(true)
		case glfw.KeyLeft:
			angle -= 0.1
		case glfw.KeyRight:
			angle += 0.1
		}
	})

	clock := timeutil.RealClock{}
	last := clock.Now()
	var current *render.PointCloud
	for !window.ShouldClose() {
		now := clock.Now()
		dt := timeutil.FrameDelta(last, now, 100*time.Millisecond)
		last = now
		angle += float32(0.15 * dt)

		if pc := src.Next(dt); pc != nil {
			current.Release()
			current = pc
		}
		window.MakeContextCurrent()

		fbw, fbh := window.GetFramebufferSize()
		r.Draw(current, angle, fbw, fbh)
		window.SwapBuffers()
		glfw.PollEvents()
	}
	current.Release()
}

func newFrameSource() (frameSource, error) {
	if *remote != "" {
		client, err := visualiser.Dial(*remote)
		if err != nil {
			return nil, err
		}
		return newRemoteFrames(client), nil
	}

	cfg := &config.AuraConfig{}
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadAuraConfig(*configPath); err != nil {
			return nil, err
		}
	}
	if *engineKind != "" {
		cfg.SetEngine(*engineKind)
	}
	if *surfaceKind != "" {
		cfg.SetSurface(*surfaceKind)
	}
	engine, err := aura.New(cfg.EngineOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	l := &localFrames{engine: engine}
	l.adapter.Debug = cfg.GetDebugMode()
	return l, nil
}

// viewKeyPatch maps window keys onto parameter patches.
func viewKeyPatch(key glfw.Key, mods glfw.ModifierKey, cur params.Parameters) (params.Patch, bool) {
	emotions := map[glfw.Key]params.Emotion{
		glfw.Key1: params.EmotionReflective,
		glfw.Key2: params.EmotionImpulsive,
		glfw.Key3: params.EmotionExpansive,
		glfw.Key4: params.EmotionContained,
	}
	if e, ok := emotions[key]; ok {
		return params.Patch{Emotion: &e}, true
	}
	d := -1.0
	if mods&glfw.ModShift != 0 {
		d = 1
	}
	switch key {
	case glfw.KeyT:
		return params.Patch{Temperature: params.Float(cur.Temperature + d)}, true
	case glfw.KeyH:
		return params.Patch{HeartRate: params.Float(cur.HeartRate + 10*d)}, true
	}
	return params.Patch{}, false
}
