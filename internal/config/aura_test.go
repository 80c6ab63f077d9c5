package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/aura/internal/aura"
	"github.com/banshee-data/aura/internal/aura/parallel"
	"github.com/banshee-data/aura/internal/aura/params"
	"github.com/banshee-data/aura/internal/aura/render"
	"github.com/banshee-data/aura/internal/aura/scalar"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestEmptyConfigDefaults(t *testing.T) {
	cfg := &AuraConfig{}

	if cfg.GetEngine() != aura.KindParallel {
		t.Errorf("GetEngine() = %q, want parallel", cfg.GetEngine())
	}
	if cfg.GetMode() != scalar.ModeShell {
		t.Errorf("GetMode() = %v, want shell", cfg.GetMode())
	}
	if cfg.GetSurface() != parallel.SurfaceCPU {
		t.Errorf("GetSurface() = %q, want cpu", cfg.GetSurface())
	}
	if cfg.GetSphereRadius() != 8 {
		t.Errorf("GetSphereRadius() = %f, want 8", cfg.GetSphereRadius())
	}
	if cfg.GetFrameInterval() != 16*time.Millisecond {
		t.Errorf("GetFrameInterval() = %v, want 16ms", cfg.GetFrameInterval())
	}
	if cfg.GetMaxDelta() != 100*time.Millisecond {
		t.Errorf("GetMaxDelta() = %v, want 100ms", cfg.GetMaxDelta())
	}
	if cfg.GetListenAddr() != "localhost:50061" {
		t.Errorf("GetListenAddr() = %q", cfg.GetListenAddr())
	}
	if cfg.GetDebugAddr() != "" {
		t.Errorf("GetDebugAddr() = %q, want empty", cfg.GetDebugAddr())
	}
	if cfg.GetMaxClients() != 8 {
		t.Errorf("GetMaxClients() = %d, want 8", cfg.GetMaxClients())
	}
	if cfg.GetPointSizeFactor() != 1 {
		t.Errorf("GetPointSizeFactor() = %f, want 1", cfg.GetPointSizeFactor())
	}
	if cfg.InitialParams() != params.Default() {
		t.Errorf("InitialParams() = %+v, want defaults", cfg.InitialParams())
	}
}

func TestLoadAuraConfig(t *testing.T) {
	path := writeConfig(t, "aura.json", `{
  "engine": "scalar",
  "mode": "freeform",
  "particle_count": 2000,
  "frame_interval": "33ms",
  "debug_mode": "direction",
  "listen_addr": ":9000",
  "initial": {"temperature": 38, "emotion": "impulsive"}
}`)

	cfg, err := LoadAuraConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.GetEngine() != aura.KindScalar {
		t.Errorf("GetEngine() = %q, want scalar", cfg.GetEngine())
	}
	if cfg.GetMode() != scalar.ModeFreeform {
		t.Errorf("GetMode() = %v, want freeform", cfg.GetMode())
	}
	if cfg.GetFrameInterval() != 33*time.Millisecond {
		t.Errorf("GetFrameInterval() = %v, want 33ms", cfg.GetFrameInterval())
	}
	if cfg.GetDebugMode() != render.DebugDirection {
		t.Errorf("GetDebugMode() = %v, want direction", cfg.GetDebugMode())
	}
	if cfg.GetListenAddr() != ":9000" {
		t.Errorf("GetListenAddr() = %q, want :9000", cfg.GetListenAddr())
	}

	opts := cfg.EngineOptions()
	if opts.ParticleCount != 2000 {
		t.Errorf("ParticleCount = %d, want 2000", opts.ParticleCount)
	}
	if opts.InitialParams == nil {
		t.Fatal("InitialParams not set")
	}
	if opts.InitialParams.Temperature != 38 || opts.InitialParams.Emotion != params.EmotionImpulsive {
		t.Errorf("InitialParams = %+v", *opts.InitialParams)
	}
	if opts.InitialParams.Weight != params.Default().Weight {
		t.Errorf("unset initial fields should keep defaults, got weight %f", opts.InitialParams.Weight)
	}
}

func TestLoadAuraConfig_Errors(t *testing.T) {
	cases := []struct {
		name string
		file string
		body string
		want string
	}{
		{"extension", "aura.yaml", `{}`, ".json extension"},
		{"syntax", "aura.json", `{"engine":`, "failed to parse"},
		{"engine", "aura.json", `{"engine": "vulkan"}`, "unknown engine kind"},
		{"surface", "aura.json", `{"surface": "metal"}`, "invalid configuration"},
		{"radius", "aura.json", `{"sphere_radius": 0}`, "sphere_radius"},
		{"duration", "aura.json", `{"frame_interval": "soon"}`, "frame_interval"},
		{"negative duration", "aura.json", `{"max_delta": "-1s"}`, "max_delta"},
		{"workers", "aura.json", `{"workers": -2}`, "workers"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadAuraConfig(writeConfig(t, tc.file, tc.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestLoadAuraConfig_TooLarge(t *testing.T) {
	body := `{"listen_addr": "` + strings.Repeat("x", 1024*1024) + `"}`
	_, err := LoadAuraConfig(writeConfig(t, "big.json", body))
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected size error, got %v", err)
	}
}

func TestLoadAuraConfig_Missing(t *testing.T) {
	if _, err := LoadAuraConfig(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	if cfg.GetParticleCount() != 4096 {
		t.Errorf("GetParticleCount() = %d, want 4096", cfg.GetParticleCount())
	}
	if cfg.GetWarmupFrames() != 180 {
		t.Errorf("GetWarmupFrames() = %d, want 180", cfg.GetWarmupFrames())
	}
	if cfg.InitialParams() != params.Default() {
		t.Errorf("defaults file initial params drifted from params.Default(): %+v", cfg.InitialParams())
	}
}

func TestSetters(t *testing.T) {
	cfg := &AuraConfig{}
	cfg.SetEngine("scalar")
	cfg.SetSurface("gl")
	cfg.SetParticleCount(10)
	cfg.SetListenAddr(":1")
	cfg.SetDebugAddr(":2")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	opts := cfg.EngineOptions()
	if opts.Kind != aura.KindScalar || opts.Surface != parallel.SurfaceGL || opts.ParticleCount != 10 {
		t.Errorf("EngineOptions() = %+v", opts)
	}
	if cfg.GetListenAddr() != ":1" || cfg.GetDebugAddr() != ":2" {
		t.Errorf("addresses = %q %q", cfg.GetListenAddr(), cfg.GetDebugAddr())
	}
}
