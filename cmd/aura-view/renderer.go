//go:build gl

package main

import (
	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/banshee-data/aura/internal/aura/render"
	"github.com/banshee-data/aura/internal/glsl"
)

// renderer draws point clouds as additive point sprites.
type renderer struct {
	program uint32
	vao     uint32
	vbos    [4]uint32 // position, color, size, seed
	falloff uint32

	view, projection, time, pulse, maxSize, falloffLoc int32

	pos, col []float32
}

func newRenderer() (*renderer, error) {
	program, err := glsl.NewProgram(render.PointVertexShader, render.PointFragmentShader)
	if err != nil {
		return nil, err
	}
	r := &renderer{
		program:    program,
		view:       glsl.Uniform(program, "view"),
		projection: glsl.Uniform(program, "projection"),
		time:       glsl.Uniform(program, "time"),
		pulse:      glsl.Uniform(program, "pulseMultiplier"),
		maxSize:    glsl.Uniform(program, "maxPointSize"),
		falloffLoc: glsl.Uniform(program, "falloff"),
	}

	gl.GenVertexArrays(1, &r.vao)
	gl.BindVertexArray(r.vao)
	gl.GenBuffers(int32(len(r.vbos)), &r.vbos[0])
	for i, components := range []int32{3, 3, 1, 1} {
		gl.BindBuffer(gl.ARRAY_BUFFER, r.vbos[i])
		gl.EnableVertexAttribArray(uint32(i))
		gl.VertexAttribPointer(uint32(i), components, gl.FLOAT, false, 0, gl.PtrOffset(0))
	}
	gl.BindVertexArray(0)

	mask := render.FalloffTexture(falloffSize)
	gl.GenTextures(1, &r.falloff)
	gl.BindTexture(gl.TEXTURE_2D, r.falloff)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.R32F, falloffSize, falloffSize, 0, gl.RED, gl.FLOAT, gl.Ptr(mask))

	return r, nil
}

// upload interleaves the position and colour columns and refills the
// vertex buffers.
func (r *renderer) upload(pc *render.PointCloud) {
	n := pc.PointCount
	r.pos = r.pos[:0]
	r.col = r.col[:0]
	for i := 0; i < n; i++ {
		r.pos = append(r.pos, pc.X[i], pc.Y[i], pc.Z[i])
		r.col = append(r.col, pc.R[i], pc.G[i], pc.B[i])
	}
	for i, data := range [][]float32{r.pos, r.col, pc.Size[:n], pc.Seed[:n]} {
		gl.BindBuffer(gl.ARRAY_BUFFER, r.vbos[i])
		gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, gl.Ptr(data), gl.DYNAMIC_DRAW)
	}
}

// Draw clears the framebuffer and draws pc, if any, from a camera orbiting
// by angle.
func (r *renderer) Draw(pc *render.PointCloud, angle float32, w, h int) {
	gl.Viewport(0, 0, int32(w), int32(h))
	gl.ClearColor(0, 0, 0, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	if pc == nil || pc.PointCount == 0 || h == 0 {
		return
	}

	gl.Disable(gl.DEPTH_TEST)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE)
	gl.Enable(gl.PROGRAM_POINT_SIZE)

	r.upload(pc)
	cam := render.NewCamera(pc.Radius, float32(w)/float32(h)).Orbit(angle)
	view, proj := cam.View(), cam.Projection()

	gl.UseProgram(r.program)
	gl.UniformMatrix4fv(r.view, 1, false, &view[0])
	gl.UniformMatrix4fv(r.projection, 1, false, &proj[0])
	gl.Uniform1f(r.time, float32(pc.Time))
	gl.Uniform1f(r.pulse, pc.PulseMultiplier)
	gl.Uniform1f(r.maxSize, render.MaxPointSize)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, r.falloff)
	gl.Uniform1i(r.falloffLoc, 0)

	gl.BindVertexArray(r.vao)
	gl.DrawArrays(gl.POINTS, 0, int32(pc.PointCount))
	gl.BindVertexArray(0)
}

// Delete frees the GL objects.
func (r *renderer) Delete() {
	gl.DeleteTextures(1, &r.falloff)
	gl.DeleteBuffers(int32(len(r.vbos)), &r.vbos[0])
	gl.DeleteVertexArrays(1, &r.vao)
	gl.DeleteProgram(r.program)
}
