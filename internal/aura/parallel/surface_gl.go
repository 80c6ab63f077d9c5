//go:build gl

package parallel

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/banshee-data/aura/internal/glsl"
)

// glSurface runs the passes as fragment shaders on a hidden GLFW context,
// rendering into RGBA32F textures. GLFW requires every call to come from
// the main OS thread; callers lock it with runtime.LockOSThread.
type glSurface struct {
	size   int
	window *glfw.Window

	velProgram uint32
	posProgram uint32
	vao        uint32

	pos    [2]uint32
	vel    [2]uint32
	posFBO [2]uint32
	velFBO [2]uint32
	pcur   int
	vcur   int

	velUniforms map[string]int32
	posUniforms map[string]int32
}

func newGLSurface(size int) (Surface, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("%w: glfw init: %v", ErrSurfaceUnavailable, err)
	}
	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	window, err := glfw.CreateWindow(1, 1, "aura-compute", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create context: %v", ErrSurfaceUnavailable, err)
	}
	window.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		window.Destroy()
		return nil, fmt.Errorf("%w: gl init: %v", ErrSurfaceUnavailable, err)
	}

	s := &glSurface{size: size, window: window}
	if err := s.init(); err != nil {
		s.Release()
		return nil, fmt.Errorf("%w: %v", ErrSurfaceUnavailable, err)
	}
	return s, nil
}

func (s *glSurface) init() error {
	var err error
	if s.velProgram, err = glsl.NewProgram(passVertexShader, velocityFragmentShader); err != nil {
		return fmt.Errorf("velocity program: %w", err)
	}
	if s.posProgram, err = glsl.NewProgram(passVertexShader, positionFragmentShader); err != nil {
		return fmt.Errorf("position program: %w", err)
	}
	s.velUniforms = uniformLocations(s.velProgram,
		"positions", "velocities", "time", "delta", "radius", "proximityScale",
		"orbitStrength", "noiseMultiplier", "damping")
	s.posUniforms = uniformLocations(s.posProgram,
		"positions", "velocities", "time", "delta", "radius", "warmup", "tangentialWaveAmp",
		"radialJitter", "shellThickness", "spikeWeight", "emotionPhase", "prevEmotionPhase", "proximityScale")

	gl.GenVertexArrays(1, &s.vao)

	for i := 0; i < 2; i++ {
		s.pos[i], s.posFBO[i], err = s.newTarget()
		if err != nil {
			return err
		}
		s.vel[i], s.velFBO[i], err = s.newTarget()
		if err != nil {
			return err
		}
	}
	return nil
}

func uniformLocations(program uint32, names ...string) map[string]int32 {
	out := make(map[string]int32, len(names))
	for _, n := range names {
		out[n] = glsl.Uniform(program, n)
	}
	return out
}

// newTarget allocates one RGBA32F texture and a framebuffer rendering to it.
func (s *glSurface) newTarget() (tex, fbo uint32, err error) {
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA32F, int32(s.size), int32(s.size), 0, gl.RGBA, gl.FLOAT, nil)

	gl.GenFramebuffers(1, &fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, tex, 0)
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		return tex, fbo, fmt.Errorf("float render target incomplete: 0x%x", status)
	}
	return tex, fbo, nil
}

func (s *glSurface) Size() int { return s.size }

func (s *glSurface) Upload(pos, vel *Texture) error {
	if s.window == nil {
		return ErrSurfaceUnavailable
	}
	if pos.Size != s.size || vel.Size != s.size {
		return fmt.Errorf("texture size mismatch: got %d/%d, want %d", pos.Size, vel.Size, s.size)
	}
	s.window.MakeContextCurrent()
	n := int32(s.size)
	gl.BindTexture(gl.TEXTURE_2D, s.pos[s.pcur])
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, n, n, gl.RGBA, gl.FLOAT, gl.Ptr(pos.Data))
	gl.BindTexture(gl.TEXTURE_2D, s.vel[s.vcur])
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, n, n, gl.RGBA, gl.FLOAT, gl.Ptr(vel.Data))
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return nil
}

func (s *glSurface) Run(pass Pass, u Uniforms) error {
	if s.window == nil {
		return ErrSurfaceUnavailable
	}
	s.window.MakeContextCurrent()

	var program, target uint32
	var loc map[string]int32
	switch pass {
	case PassVelocity:
		program, target, loc = s.velProgram, s.velFBO[1-s.vcur], s.velUniforms
	case PassPosition:
		program, target, loc = s.posProgram, s.posFBO[1-s.pcur], s.posUniforms
	default:
		return fmt.Errorf("unknown pass %v", pass)
	}

	gl.BindFramebuffer(gl.FRAMEBUFFER, target)
	gl.Viewport(0, 0, int32(s.size), int32(s.size))
	gl.Disable(gl.BLEND)
	gl.UseProgram(program)

	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, s.pos[s.pcur])
	gl.Uniform1i(loc["positions"], 0)
	gl.ActiveTexture(gl.TEXTURE1)
	gl.BindTexture(gl.TEXTURE_2D, s.vel[s.vcur])
	gl.Uniform1i(loc["velocities"], 1)

	gl.Uniform1f(loc["time"], float32(u.Time))
	gl.Uniform1f(loc["delta"], float32(u.Delta))
	gl.Uniform1f(loc["radius"], float32(u.Radius))
	gl.Uniform1f(loc["proximityScale"], float32(u.ProximityScale))
	if pass == PassVelocity {
		gl.Uniform1f(loc["orbitStrength"], float32(u.OrbitStrength))
		gl.Uniform1f(loc["noiseMultiplier"], float32(u.Profile.NoiseMultiplier))
		gl.Uniform1f(loc["damping"], float32(u.Damping))
	} else {
		gl.Uniform1f(loc["warmup"], float32(u.Warmup))
		gl.Uniform1f(loc["tangentialWaveAmp"], float32(u.Profile.TangentialWaveAmp))
		gl.Uniform1f(loc["radialJitter"], float32(u.Profile.RadialJitter))
		gl.Uniform1f(loc["shellThickness"], float32(u.Profile.ShellThickness))
		gl.Uniform1f(loc["spikeWeight"], float32(u.SpikeWeight))
		gl.Uniform1f(loc["emotionPhase"], float32(u.EmotionPhase))
		gl.Uniform1f(loc["prevEmotionPhase"], float32(u.PrevEmotionPhase))
	}

	gl.BindVertexArray(s.vao)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
	gl.BindVertexArray(0)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)

	if pass == PassVelocity {
		s.vcur = 1 - s.vcur
	} else {
		s.pcur = 1 - s.pcur
	}
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("%s pass: gl error 0x%x", pass, code)
	}
	return nil
}

func (s *glSurface) ReadPositions(dst []float32) ([]float32, error) {
	if s.window == nil {
		return dst, ErrSurfaceUnavailable
	}
	s.window.MakeContextCurrent()
	dst = growFloat32(dst, s.size*s.size*4)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, s.posFBO[s.pcur])
	gl.ReadBuffer(gl.COLOR_ATTACHMENT0)
	gl.ReadPixels(0, 0, int32(s.size), int32(s.size), gl.RGBA, gl.FLOAT, gl.Ptr(dst))
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)
	if code := gl.GetError(); code != gl.NO_ERROR {
		return dst, fmt.Errorf("read positions: gl error 0x%x", code)
	}
	return dst, nil
}

func (s *glSurface) Release() {
	if s.window == nil {
		return
	}
	s.window.MakeContextCurrent()
	gl.DeleteFramebuffers(2, &s.posFBO[0])
	gl.DeleteFramebuffers(2, &s.velFBO[0])
	gl.DeleteTextures(2, &s.pos[0])
	gl.DeleteTextures(2, &s.vel[0])
	gl.DeleteVertexArrays(1, &s.vao)
	gl.DeleteProgram(s.velProgram)
	gl.DeleteProgram(s.posProgram)
	s.window.Destroy()
	s.window = nil
}
