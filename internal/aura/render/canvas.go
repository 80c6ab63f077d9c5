package render

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/banshee-data/aura/internal/aura/palette"
)

// Canvas is a small software framebuffer that composites point sprites
// additively. It backs the terminal viewer.
type Canvas struct {
	W, H int
	pix  []palette.RGB
}

// NewCanvas allocates a w×h canvas.
func NewCanvas(w, h int) *Canvas {
	c := &Canvas{}
	c.Resize(w, h)
	return c
}

// Resize reallocates the canvas if the dimensions changed and clears it.
func (c *Canvas) Resize(w, h int) {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	if w != c.W || h != c.H || c.pix == nil {
		c.W, c.H = w, h
		c.pix = make([]palette.RGB, w*h)
	}
	c.Clear()
}

// Clear resets every cell to black.
func (c *Canvas) Clear() {
	for i := range c.pix {
		c.pix[i] = palette.RGB{}
	}
}

// At returns the composited colour of a cell, clamped to [0,1].
func (c *Canvas) At(x, y int) palette.RGB {
	if x < 0 || y < 0 || x >= c.W || y >= c.H {
		return palette.RGB{}
	}
	p := c.pix[y*c.W+x]
	return palette.RGB{R: math.Min(p.R, 1), G: math.Min(p.G, 1), B: math.Min(p.B, 1)}
}

// Splat composites one point sprite of the given pixel diameter centred at
// (sx, sy).
func (c *Canvas) Splat(sx, sy, diameter float64, col palette.RGB) {
	radius := diameter / 2
	if radius < 0.5 {
		radius = 0.5
	}
	x0, x1 := int(math.Floor(sx-radius)), int(math.Ceil(sx+radius))
	y0, y1 := int(math.Floor(sy-radius)), int(math.Ceil(sy+radius))
	for y := max(y0, 0); y <= min(y1, c.H-1); y++ {
		for x := max(x0, 0); x <= min(x1, c.W-1); x++ {
			r := math.Hypot(float64(x)+0.5-sx, float64(y)+0.5-sy) / radius
			frag, ok := ShadeColor(col, FalloffMask(r))
			if !ok {
				continue
			}
			i := y*c.W + x
			c.pix[i] = Additive(c.pix[i], frag)
		}
	}
}

// Draw projects and composites every point of pc. pixelScale converts the
// shader point size into canvas cells.
func (c *Canvas) Draw(pc *PointCloud, cam Camera, pixelScale float64) {
	for i := 0; i < pc.PointCount; i++ {
		sx, sy, depth, ok := cam.Project(mgl32.Vec3{pc.X[i], pc.Y[i], pc.Z[i]}, c.W, c.H)
		if !ok {
			continue
		}
		size := PointSize(float64(pc.Size[i]), float64(depth), pc.Time, float64(pc.Seed[i]),
			float64(pc.PulseMultiplier), MaxPointSize)
		col := palette.RGB{R: float64(pc.R[i]), G: float64(pc.G[i]), B: float64(pc.B[i])}
		c.Splat(float64(sx), float64(sy), size*pixelScale, col)
	}
}
