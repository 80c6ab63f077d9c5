package main

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/banshee-data/aura/internal/aura"
	"github.com/banshee-data/aura/internal/aura/params"
	"github.com/banshee-data/aura/internal/aura/render"
	"github.com/banshee-data/aura/internal/visualiser"
)

// source supplies frames to the view and accepts parameter patches.
type source interface {
	// Latest returns the newest frame, retained for the caller, or nil.
	Latest() *render.PointCloud
	UpdateParams(ctx context.Context, patch params.Patch) error
	Params() params.Parameters
	Close() error
}

type localSource struct {
	driver *visualiser.Driver
	cancel context.CancelFunc
}

func newLocalSource(ctx context.Context, engine aura.Engine, cfg visualiser.DriverConfig) *localSource {
	ctx, cancel := context.WithCancel(ctx)
	s := &localSource{driver: visualiser.NewDriver(engine, cfg), cancel: cancel}
	go func() {
		if err := s.driver.Run(ctx); err != nil {
			log.Printf("driver error: %v", err)
		}
	}()
	return s
}

func (s *localSource) Latest() *render.PointCloud { return s.driver.Latest() }

func (s *localSource) UpdateParams(ctx context.Context, patch params.Patch) error {
	_, err := s.driver.UpdateParams(ctx, patch)
	return err
}

func (s *localSource) Params() params.Parameters { return s.driver.Params() }

func (s *localSource) Close() error {
	s.cancel()
	<-s.driver.Done()
	return nil
}

// remoteSource keeps the newest streamed frame. Parameters are mirrored
// locally from the patches sent, starting at the defaults.
type remoteSource struct {
	client *visualiser.Client
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	latest *render.PointCloud
	params params.Parameters
}

func newRemoteSource(ctx context.Context, client *visualiser.Client, maxPoints uint32) *remoteSource {
	ctx, cancel := context.WithCancel(ctx)
	s := &remoteSource{
		client: client,
		cancel: cancel,
		done:   make(chan struct{}),
		params: params.Default(),
	}
	go func() {
		defer close(s.done)
		err := client.StreamFrames(ctx, maxPoints, func(pc *render.PointCloud) error {
			s.store(pc)
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("stream ended: %v", err)
		}
	}()
	return s
}

// store takes ownership of pc and releases the frame it replaces.
func (s *remoteSource) store(pc *render.PointCloud) {
	pc.Retain()
	s.mu.Lock()
	old := s.latest
	s.latest = pc
	s.mu.Unlock()
	old.Release()
}

func (s *remoteSource) Latest() *render.PointCloud {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return nil
	}
	s.latest.Retain()
	return s.latest
}

func (s *remoteSource) UpdateParams(ctx context.Context, patch params.Patch) error {
	if err := s.client.UpdateParams(ctx, patch); err != nil {
		return err
	}
	s.mu.Lock()
	s.params, _ = params.Merge(s.params, patch)
	s.mu.Unlock()
	return nil
}

func (s *remoteSource) Params() params.Parameters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

func (s *remoteSource) Close() error {
	s.cancel()
	<-s.done
	s.mu.Lock()
	old := s.latest
	s.latest = nil
	s.mu.Unlock()
	old.Release()
	return s.client.Close()
}
