// Command aura-server runs an aura engine and streams its frames over gRPC.
//
// Usage:
//
//	go run ./cmd/aura-server [flags]
//
// Flags:
//
//	-config     JSON config file (default: config/aura.defaults.json if present)
//	-engine     Engine kind: parallel or scalar
//	-surface    Parallel compute surface: cpu or gl
//	-particles  Particle count (0 for the engine default)
//	-listen     gRPC listen address
//	-debug      Debug HTTP address for /debug/aura/* (empty to disable)
//	-fallback   Fall back to the scalar engine when the surface is unavailable
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/aura/internal/aura"
	"github.com/banshee-data/aura/internal/aura/diag"
	"github.com/banshee-data/aura/internal/aura/parallel"
	"github.com/banshee-data/aura/internal/config"
	"github.com/banshee-data/aura/internal/version"
	"github.com/banshee-data/aura/internal/visualiser"
)

var (
	configPath  = flag.String("config", "", "JSON config file")
	engineKind  = flag.String("engine", "", "Engine kind: parallel or scalar")
	surfaceKind = flag.String("surface", "", "Parallel compute surface: cpu or gl")
	particles   = flag.Int("particles", -1, "Particle count (0 for the engine default)")
	listen      = flag.String("listen", "", "gRPC listen address")
	debugListen = flag.String("debug", "", "Debug HTTP address (empty to use config)")
	fallback    = flag.Bool("fallback", true, "Fall back to the scalar engine when the compute surface is unavailable")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func loadConfig() (*config.AuraConfig, error) {
	path := *configPath
	if path == "" {
		if _, err := os.Stat(config.DefaultConfigPath); err != nil {
			return &config.AuraConfig{}, nil
		}
		path = config.DefaultConfigPath
	}
	cfg, err := config.LoadAuraConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	log.Printf("loaded config from %s", path)
	return cfg, nil
}

func newEngine(cfg *config.AuraConfig) (aura.Engine, error) {
	opts := cfg.EngineOptions()
	engine, err := aura.New(opts)
	if err == nil {
		return engine, nil
	}
	if !*fallback || !errors.Is(err, parallel.ErrSurfaceUnavailable) {
		return nil, err
	}
	log.Printf("%v; falling back to scalar engine", err)
	opts.Kind = aura.KindScalar
	return aura.New(opts)
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("aura-server"))
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatal(err)
	}
	if *engineKind != "" {
		cfg.SetEngine(*engineKind)
	}
	if *surfaceKind != "" {
		cfg.SetSurface(*surfaceKind)
	}
	if *particles >= 0 {
		cfg.SetParticleCount(*particles)
	}
	if *listen != "" {
		cfg.SetListenAddr(*listen)
	}
	if *debugListen != "" {
		cfg.SetDebugAddr(*debugListen)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	engine, err := newEngine(cfg)
	if err != nil {
		log.Fatalf("failed to create engine: %v", err)
	}
	log.Printf("%s: engine %s ready", version.String("aura-server"), engine.ID())

	pubCfg := visualiser.DefaultConfig()
	pubCfg.ListenAddr = cfg.GetListenAddr()
	pubCfg.MaxClients = cfg.GetMaxClients()
	publisher := visualiser.NewPublisher(pubCfg)

	driver := visualiser.NewDriver(engine, visualiser.DriverConfig{
		FrameInterval: cfg.GetFrameInterval(),
		MaxDelta:      cfg.GetMaxDelta(),
		Debug:         cfg.GetDebugMode(),
		MaxPoints:     cfg.GetMaxPoints(),
	}, publisher)

	// Services must be registered before the server starts serving.
	visualiser.RegisterService(publisher.GRPCServer(), visualiser.NewServer(publisher, driver))
	if err := publisher.Start(); err != nil {
		log.Fatalf("failed to start publisher: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := driver.Run(ctx); err != nil {
			log.Printf("driver error: %v", err)
		}
		log.Print("driver routine terminated")
	}()

	if addr := cfg.GetDebugAddr(); addr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()

			mux := http.NewServeMux()
			diag.NewHandlers(driver).Register(mux)

			server := &http.Server{
				Addr:              addr,
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
			}
			go func() {
				log.Printf("debug HTTP listening on %s", addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Printf("debug HTTP server error: %v", err)
				}
			}()

			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Printf("debug HTTP shutdown error: %v", err)
			}
		}()
	}

	<-ctx.Done()
	log.Println("shutting down...")
	publisher.Stop()
	wg.Wait()

	stats := publisher.Stats()
	log.Printf("served %d frames (%d dropped) from %d engine frames",
		stats.FrameCount, stats.DroppedFrames, driver.Frames())
}
