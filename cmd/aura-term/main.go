// Command aura-term draws an aura in the terminal.
//
// By default it runs an engine in-process. With -remote it streams frames
// from an aura-server instead and forwards parameter changes to it.
//
// Keys:
//
//	1-4        emotion: reflective, impulsive, expansive, contained
//	t/T        temperature down/up
//	h/H        heart rate down/up
//	s/S        sound down/up
//	m/M        movement down/up
//	w/W        weight down/up
//	p          cycle posture
//	x          cycle proximity
//	o          toggle camera orbit
//	left/right rotate camera
//	q, Esc     quit
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"

	"github.com/banshee-data/aura/internal/aura"
	"github.com/banshee-data/aura/internal/config"
	"github.com/banshee-data/aura/internal/monitoring"
	"github.com/banshee-data/aura/internal/version"
	"github.com/banshee-data/aura/internal/visualiser"
)

var (
	configPath  = flag.String("config", "", "JSON config file")
	remote      = flag.String("remote", "", "aura-server address to stream from (empty runs in-process)")
	engineKind  = flag.String("engine", "", "Engine kind: parallel or scalar")
	particles   = flag.Int("particles", 1500, "Particle count for the in-process engine")
	maxPoints   = flag.Uint("max-points", 2000, "Maximum points requested per remote frame")
	fps         = flag.Int("fps", 30, "Redraw rate")
	logFile     = flag.String("log", "", "Write logs to this file instead of discarding them")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("aura-term"))
		return
	}

	// The terminal is owned by tcell, so logs go to a file or nowhere.
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.Fatalf("failed to open log file: %v", err)
		}
		defer f.Close()
		log.SetOutput(f)
	} else {
		monitoring.SetLogger(nil)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src, err := newSource(ctx)
	if err != nil {
		log.Fatalf("failed to start: %v", err)
	}
	defer src.Close()

	screen, err := tcell.NewScreen()
	if err != nil {
		log.Fatalf("failed to create screen: %v", err)
	}
	if err := screen.Init(); err != nil {
		log.Fatalf("failed to init screen: %v", err)
	}
	defer screen.Fini()

	v := newView(screen, src, *fps)
	if err := v.Run(ctx); err != nil {
		screen.Fini()
		log.Fatalf("viewer error: %v", err)
	}
}

// newSource starts either an in-process driver or a remote stream.
func newSource(ctx context.Context) (source, error) {
	if *remote != "" {
		client, err := visualiser.Dial(*remote)
		if err != nil {
			return nil, err
		}
		return newRemoteSource(ctx, client, uint32(*maxPoints)), nil
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
	cfg.SetParticleCount(*particles)

	engine, err := aura.New(cfg.EngineOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	return newLocalSource(ctx, engine, visualiser.DriverConfig{
		FrameInterval: cfg.GetFrameInterval(),
		MaxDelta:      cfg.GetMaxDelta(),
		Debug:         cfg.GetDebugMode(),
	}), nil
}
