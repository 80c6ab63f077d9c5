package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/aura/internal/aura"
	"github.com/banshee-data/aura/internal/aura/parallel"
	"github.com/banshee-data/aura/internal/aura/params"
	"github.com/banshee-data/aura/internal/aura/render"
	"github.com/banshee-data/aura/internal/aura/scalar"
)

// DefaultConfigPath is the path to the canonical defaults file.
const DefaultConfigPath = "config/aura.defaults.json"

// AuraConfig is the root configuration for the aura binaries. Nil fields
// fall back to the defaults returned by the Get* methods, so partial files
// are safe.
type AuraConfig struct {
	// Engine params
	Engine          *string  `json:"engine,omitempty"` // "parallel" or "scalar"
	Mode            *string  `json:"mode,omitempty"`   // scalar only: "shell" or "freeform"
	Surface         *string  `json:"surface,omitempty"`
	Workers         *int     `json:"workers,omitempty"`
	SphereRadius    *float64 `json:"sphere_radius,omitempty"`
	ParticleCount   *int     `json:"particle_count,omitempty"`
	WarmupFrames    *int     `json:"warmup_frames,omitempty"`
	PointSizeFactor *float64 `json:"point_size_factor,omitempty"`
	Seed            *int64   `json:"seed,omitempty"`

	// Driver params
	FrameInterval *string `json:"frame_interval,omitempty"` // duration string like "16ms"
	MaxDelta      *string `json:"max_delta,omitempty"`
	MaxPoints     *int    `json:"max_points,omitempty"`
	DebugMode     *string `json:"debug_mode,omitempty"`

	// Server params
	ListenAddr *string `json:"listen_addr,omitempty"`
	DebugAddr  *string `json:"debug_addr,omitempty"`
	MaxClients *int    `json:"max_clients,omitempty"`

	// Initial sensor parameters, merged over params.Default().
	Initial params.Patch `json:"initial"`
}

func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }

// LoadAuraConfig loads an AuraConfig from a JSON file.
// The file must have a .json extension and be at most 1MB.
func LoadAuraConfig(path string) (*AuraConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &AuraConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents up to the repository root. Panics if the file
// cannot be loaded; intended for tests and tools run from the repo.
func MustLoadDefaultConfig() *AuraConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from internal/aura/*
	}
	for _, path := range candidates {
		if cfg, err := LoadAuraConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run from repository root")
}

// Validate checks that the configuration values are valid.
func (c *AuraConfig) Validate() error {
	if c.Engine != nil {
		if _, err := aura.ParseKind(*c.Engine); err != nil {
			return err
		}
	}
	if c.Mode != nil {
		if _, err := scalar.ParseMode(*c.Mode); err != nil {
			return err
		}
	}
	if c.Surface != nil {
		if _, err := parallel.ParseSurfaceKind(*c.Surface); err != nil {
			return err
		}
	}
	if c.DebugMode != nil {
		if _, err := render.ParseDebugMode(*c.DebugMode); err != nil {
			return err
		}
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	if c.SphereRadius != nil && *c.SphereRadius <= 0 {
		return fmt.Errorf("sphere_radius must be positive, got %f", *c.SphereRadius)
	}
	if c.ParticleCount != nil && *c.ParticleCount < 0 {
		return fmt.Errorf("particle_count must be non-negative, got %d", *c.ParticleCount)
	}
	if c.PointSizeFactor != nil && *c.PointSizeFactor < 0 {
		return fmt.Errorf("point_size_factor must be non-negative, got %f", *c.PointSizeFactor)
	}
	if c.MaxPoints != nil && *c.MaxPoints < 0 {
		return fmt.Errorf("max_points must be non-negative, got %d", *c.MaxPoints)
	}
	if c.MaxClients != nil && *c.MaxClients < 0 {
		return fmt.Errorf("max_clients must be non-negative, got %d", *c.MaxClients)
	}
	for name, v := range map[string]*string{"frame_interval": c.FrameInterval, "max_delta": c.MaxDelta} {
		if v == nil || *v == "" {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	return nil
}

// GetEngine returns the engine kind or the parallel default.
func (c *AuraConfig) GetEngine() aura.Kind {
	if c.Engine == nil {
		return aura.KindParallel
	}
	k, err := aura.ParseKind(*c.Engine)
	if err != nil {
		return aura.KindParallel
	}
	return k
}

// GetMode returns the scalar mode or shell.
func (c *AuraConfig) GetMode() scalar.Mode {
	if c.Mode == nil {
		return scalar.ModeShell
	}
	m, err := scalar.ParseMode(*c.Mode)
	if err != nil {
		return scalar.ModeShell
	}
	return m
}

// GetSurface returns the compute surface or cpu.
func (c *AuraConfig) GetSurface() parallel.SurfaceKind {
	if c.Surface == nil {
		return parallel.SurfaceCPU
	}
	k, err := parallel.ParseSurfaceKind(*c.Surface)
	if err != nil {
		return parallel.SurfaceCPU
	}
	return k
}

// GetDebugMode returns the render debug mode or none.
func (c *AuraConfig) GetDebugMode() render.DebugMode {
	if c.DebugMode == nil {
		return render.DebugNone
	}
	m, err := render.ParseDebugMode(*c.DebugMode)
	if err != nil {
		return render.DebugNone
	}
	return m
}

// GetWorkers returns the worker count; zero means GOMAXPROCS.
func (c *AuraConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

// GetSphereRadius returns the sphere radius or the default.
func (c *AuraConfig) GetSphereRadius() float64 {
	if c.SphereRadius == nil {
		return 8 // default
	}
	return *c.SphereRadius
}

// GetParticleCount returns the particle count; zero selects the engine default.
func (c *AuraConfig) GetParticleCount() int {
	if c.ParticleCount == nil {
		return 0
	}
	return *c.ParticleCount
}

// GetWarmupFrames returns the warmup frame count; zero selects the engine
// default and negative disables warmup.
func (c *AuraConfig) GetWarmupFrames() int {
	if c.WarmupFrames == nil {
		return 0
	}
	return *c.WarmupFrames
}

// GetPointSizeFactor returns the point size factor or 1.
func (c *AuraConfig) GetPointSizeFactor() float64 {
	if c.PointSizeFactor == nil {
		return 1 // default
	}
	return *c.PointSizeFactor
}

// GetSeed returns the random seed; zero means time-seeded.
func (c *AuraConfig) GetSeed() int64 {
	if c.Seed == nil {
		return 0
	}
	return *c.Seed
}

// GetFrameInterval parses and returns the frame interval.
func (c *AuraConfig) GetFrameInterval() time.Duration {
	return parseDurationOr(c.FrameInterval, 16*time.Millisecond)
}

// GetMaxDelta parses and returns the simulation step cap.
func (c *AuraConfig) GetMaxDelta() time.Duration {
	return parseDurationOr(c.MaxDelta, 100*time.Millisecond)
}

func parseDurationOr(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// GetMaxPoints returns the per-frame point cap; zero keeps every point.
func (c *AuraConfig) GetMaxPoints() int {
	if c.MaxPoints == nil {
		return 0
	}
	return *c.MaxPoints
}

// GetListenAddr returns the gRPC listen address or the default.
func (c *AuraConfig) GetListenAddr() string {
	if c.ListenAddr == nil || *c.ListenAddr == "" {
		return "localhost:50061" // default
	}
	return *c.ListenAddr
}

// GetDebugAddr returns the debug HTTP address; empty disables it.
func (c *AuraConfig) GetDebugAddr() string {
	if c.DebugAddr == nil {
		return ""
	}
	return *c.DebugAddr
}

// GetMaxClients returns the stream client limit or the default.
func (c *AuraConfig) GetMaxClients() int {
	if c.MaxClients == nil || *c.MaxClients == 0 {
		return 8 // default
	}
	return *c.MaxClients
}

// InitialParams returns params.Default() with Initial applied.
func (c *AuraConfig) InitialParams() params.Parameters {
	p, _ := params.Merge(params.Default(), c.Initial)
	return p
}

// EngineOptions builds aura.Options from the configuration.
func (c *AuraConfig) EngineOptions() aura.Options {
	p := c.InitialParams()
	return aura.Options{
		Kind:            c.GetEngine(),
		Mode:            c.GetMode(),
		Surface:         c.GetSurface(),
		Workers:         c.GetWorkers(),
		SphereRadius:    c.GetSphereRadius(),
		ParticleCount:   c.GetParticleCount(),
		WarmupFrames:    c.GetWarmupFrames(),
		PointSizeFactor: c.GetPointSizeFactor(),
		InitialParams:   &p,
		Seed:            c.GetSeed(),
	}
}

// SetEngine overrides the engine kind, typically from a command-line flag.
func (c *AuraConfig) SetEngine(kind string) { c.Engine = ptrString(kind) }

// SetSurface overrides the compute surface.
func (c *AuraConfig) SetSurface(kind string) { c.Surface = ptrString(kind) }

// SetParticleCount overrides the particle count.
func (c *AuraConfig) SetParticleCount(n int) { c.ParticleCount = ptrInt(n) }

// SetListenAddr overrides the gRPC listen address.
func (c *AuraConfig) SetListenAddr(addr string) { c.ListenAddr = ptrString(addr) }

// SetDebugAddr overrides the debug HTTP address.
func (c *AuraConfig) SetDebugAddr(addr string) { c.DebugAddr = ptrString(addr) }
