package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/banshee-data/aura/internal/aura/palette"
	"github.com/banshee-data/aura/internal/aura/render"
	"github.com/banshee-data/aura/internal/timeutil"
)

const (
	orbitSpeed = 0.25 // radians per second
	orbitStep  = 0.15 // radians per arrow key
	// pixelsPerRow scales shader point sizes, which assume a window roughly
	// 800 pixels tall, onto canvas rows.
	pixelsPerRow = 800.0
)

// view draws frames from a source with half-block characters, two canvas
// rows per terminal row.
type view struct {
	screen tcell.Screen
	src    source
	clock  timeutil.Clock
	fps    int

	canvas *render.Canvas
	angle  float32
	orbit  bool
	status string
}

func newView(screen tcell.Screen, src source, fps int) *view {
	if fps <= 0 {
		fps = 30
	}
	return &view{
		screen: screen,
		src:    src,
		clock:  timeutil.RealClock{},
		fps:    fps,
		canvas: render.NewCanvas(0, 0),
		orbit:  true,
	}
}

// Run redraws until ctx is cancelled or the user quits.
func (v *view) Run(ctx context.Context) error {
	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := v.screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	ticker := v.clock.NewTicker(time.Second / time.Duration(v.fps))
	defer ticker.Stop()
	last := v.clock.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if quit := v.handle(ctx, ev); quit {
				return nil
			}
		case now := <-ticker.C():
			dt := timeutil.FrameDelta(last, now, 250*time.Millisecond)
			last = now
			if v.orbit {
				v.angle += float32(orbitSpeed * dt)
			}
			v.draw()
		}
	}
}

func (v *view) handle(ctx context.Context, ev tcell.Event) (quit bool) {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		v.screen.Sync()
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return true
		case tcell.KeyLeft:
			v.angle -= orbitStep
		case tcell.KeyRight:
			v.angle += orbitStep
		case tcell.KeyRune:
			r := ev.Rune()
			switch r {
			case 'q':
				return true
			case 'o':
				v.orbit = !v.orbit
				return false
			}
			patch, ok := keyPatch(r, v.src.Params())
			if !ok {
				return false
			}
			uctx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()
			if err := v.src.UpdateParams(uctx, patch); err != nil {
				v.status = fmt.Sprintf("update failed: %v", err)
				log.Printf("update failed: %v", err)
			} else {
				v.status = ""
			}
		}
	}
	return false
}

func (v *view) draw() {
	cols, rows := v.screen.Size()
	if rows < 2 || cols < 1 {
		return
	}
	drawRows := rows - 1
	v.canvas.Resize(cols, drawRows*2)

	pc := v.src.Latest()
	if pc != nil {
		cam := render.NewCamera(pc.Radius, float32(v.canvas.W)/float32(v.canvas.H)).Orbit(v.angle)
		v.canvas.Draw(pc, cam, float64(v.canvas.H)/pixelsPerRow)
	}

	for y := 0; y < drawRows; y++ {
		for x := 0; x < cols; x++ {
			top := cellColor(v.canvas.At(x, 2*y))
			bottom := cellColor(v.canvas.At(x, 2*y+1))
			v.screen.SetContent(x, y, '▀', nil, tcell.StyleDefault.Foreground(top).Background(bottom))
		}
	}
	v.drawStatus(drawRows, cols, pc)
	pc.Release()
	v.screen.Show()
}

func (v *view) drawStatus(row, cols int, pc *render.PointCloud) {
	p := v.src.Params()
	line := fmt.Sprintf(" %s  %.0f°C  %.0fbpm  sound %.0f  move %.0f  %s/%s",
		p.Emotion, p.Temperature, p.HeartRate, p.Sound, p.Movement, p.Posture, p.Proximity)
	if pc != nil {
		line += fmt.Sprintf("  #%d %dpts", pc.FrameID, pc.PointCount)
	}
	if v.status != "" {
		line += "  " + v.status
	}
	style := tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorBlack)
	x := 0
	for _, r := range line {
		if x >= cols {
			break
		}
		v.screen.SetContent(x, row, r, nil, style)
		x++
	}
	for ; x < cols; x++ {
		v.screen.SetContent(x, row, ' ', nil, style)
	}
}

// cellColor converts a composited canvas colour into a terminal colour.
func cellColor(c palette.RGB) tcell.Color {
	r, g, b := colorful.Color{R: c.R, G: c.G, B: c.B}.Clamped().RGB255()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}
