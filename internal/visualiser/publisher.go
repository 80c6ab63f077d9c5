package visualiser

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"

	"github.com/banshee-data/aura/internal/aura/render"
)

// ErrTooManyClients is returned when a stream would exceed Config.MaxClients.
var ErrTooManyClients = errors.New("too many streaming clients")

// Config holds configuration for the gRPC publisher.
type Config struct {
	// ListenAddr is the address to listen on (e.g., "localhost:50061")
	ListenAddr string

	// MaxClients is the maximum number of concurrent streaming clients
	MaxClients int

	// QueueDepth is the number of frames buffered ahead of the broadcaster.
	QueueDepth int

	// ClientBuffer is the number of frames buffered per client.
	ClientBuffer int
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		ListenAddr:   "localhost:50061",
		MaxClients:   8,
		QueueDepth:   100,
		ClientBuffer: 10,
	}
}

// Publisher manages the gRPC server and fans frames out to streaming
// clients. Frames are dropped rather than queued without bound: when the
// broadcast queue is full, and per client when that client is slow.
type Publisher struct {
	config   Config
	server   *grpc.Server
	listener net.Listener

	frameChan chan *render.PointCloud
	clients   map[string]*clientStream
	clientsMu sync.RWMutex

	frameCount    atomic.Uint64
	clientCount   atomic.Int32
	droppedFrames atomic.Uint64

	lastStatsMu    sync.Mutex
	lastStatsTime  time.Time
	lastFrameCount uint64

	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

type clientStream struct {
	id      string
	frameCh chan *render.PointCloud
	doneCh  chan struct{}
}

// NewPublisher creates a Publisher with the given configuration.
func NewPublisher(cfg Config) *Publisher {
	def := DefaultConfig()
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = def.MaxClients
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = def.QueueDepth
	}
	if cfg.ClientBuffer <= 0 {
		cfg.ClientBuffer = def.ClientBuffer
	}
	const maxMsgSize = 16 * 1024 * 1024
	return &Publisher{
		config:    cfg,
		frameChan: make(chan *render.PointCloud, cfg.QueueDepth),
		clients:   make(map[string]*clientStream),
		stopCh:    make(chan struct{}),
		server: grpc.NewServer(
			grpc.MaxRecvMsgSize(maxMsgSize),
			grpc.MaxSendMsgSize(maxMsgSize),
		),
	}
}

// GRPCServer returns the underlying gRPC server for service registration.
// Services must be registered before Start.
func (p *Publisher) GRPCServer() *grpc.Server {
	return p.server
}

// Start listens on Config.ListenAddr and serves in the background.
func (p *Publisher) Start() error {
	logf("Attempting to bind to %s...", p.config.ListenAddr)
	lis, err := net.Listen("tcp", p.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return p.Serve(lis)
}

// Serve serves on lis in the background.
func (p *Publisher) Serve(lis net.Listener) error {
	if !p.running.CompareAndSwap(false, true) {
		return fmt.Errorf("publisher already running")
	}
	p.listener = lis

	p.wg.Add(1)
	go p.broadcastLoop()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		logf("gRPC server listening on %s", lis.Addr())
		if err := p.server.Serve(lis); err != nil && p.running.Load() {
			logf("gRPC server error: %v", err)
		}
	}()
	return nil
}

// Stop closes every stream and stops the server.
func (p *Publisher) Stop() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.stopCh)
	p.server.Stop()
	if p.listener != nil {
		p.listener.Close()
	}
	p.wg.Wait()
	drain(p.frameChan)
	logf("gRPC server stopped")
}

// Publish queues a frame for every connected client. It implements Sink.
func (p *Publisher) Publish(pc *render.PointCloud) {
	if !p.running.Load() || pc == nil {
		return
	}
	pc.Retain()
	select {
	case p.frameChan <- pc:
		count := p.frameCount.Add(1)
		p.logPeriodicStats(count, pc.PointCount, len(p.frameChan))
	default:
		pc.Release()
		dropped := p.droppedFrames.Add(1)
		logf("DROPPED frame %d (total dropped: %d), channel full, points=%d",
			pc.FrameID, dropped, pc.PointCount)
	}
}

// logPeriodicStats logs throughput every 5 seconds.
func (p *Publisher) logPeriodicStats(frameCount uint64, pointCount, queueDepth int) {
	p.lastStatsMu.Lock()
	defer p.lastStatsMu.Unlock()

	now := time.Now()
	if p.lastStatsTime.IsZero() {
		p.lastStatsTime = now
		p.lastFrameCount = frameCount
		return
	}
	elapsed := now.Sub(p.lastStatsTime)
	if elapsed >= 5*time.Second {
		framesInInterval := frameCount - p.lastFrameCount
		fps := float64(framesInInterval) / elapsed.Seconds()
		logf("Stats: fps=%.1f frames=%d dropped=%d clients=%d queue=%d/%d points=%d",
			fps, framesInInterval, p.droppedFrames.Load(), p.clientCount.Load(),
			queueDepth, cap(p.frameChan), pointCount)
		p.lastStatsTime = now
		p.lastFrameCount = frameCount
	}
}

// broadcastLoop hands each queued frame to every client, retaining it once
// per client, then drops the queue's reference.
func (p *Publisher) broadcastLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		case pc := <-p.frameChan:
			p.clientsMu.RLock()
			for _, client := range p.clients {
				pc.Retain()
				select {
				case client.frameCh <- pc:
				default:
					pc.Release()
					p.droppedFrames.Add(1)
				}
			}
			p.clientsMu.RUnlock()
			pc.Release()
		}
	}
}

// addClient registers a new streaming client.
func (p *Publisher) addClient(id string) (*clientStream, error) {
	p.clientsMu.Lock()
	defer p.clientsMu.Unlock()
	if len(p.clients) >= p.config.MaxClients {
		return nil, ErrTooManyClients
	}
	client := &clientStream{
		id:      id,
		frameCh: make(chan *render.PointCloud, p.config.ClientBuffer),
		doneCh:  make(chan struct{}),
	}
	p.clients[id] = client
	p.clientCount.Add(1)
	logf("Client connected: %s (total: %d)", id, p.clientCount.Load())
	return client, nil
}

// removeClient unregisters a streaming client and releases its backlog.
func (p *Publisher) removeClient(id string) {
	p.clientsMu.Lock()
	client, ok := p.clients[id]
	if ok {
		delete(p.clients, id)
	}
	p.clientsMu.Unlock()
	if !ok {
		return
	}
	close(client.doneCh)
	p.clientCount.Add(-1)
	drain(client.frameCh)
	logf("Client disconnected: %s (remaining: %d)", id, p.clientCount.Load())
}

// drain releases every frame still buffered in ch.
func drain(ch chan *render.PointCloud) {
	for {
		select {
		case pc := <-ch:
			pc.Release()
		default:
			return
		}
	}
}

// Stats returns current publisher statistics.
func (p *Publisher) Stats() PublisherStats {
	return PublisherStats{
		FrameCount:    p.frameCount.Load(),
		DroppedFrames: p.droppedFrames.Load(),
		ClientCount:   p.clientCount.Load(),
		Running:       p.running.Load(),
	}
}

// PublisherStats contains publisher statistics.
type PublisherStats struct {
	FrameCount    uint64
	DroppedFrames uint64
	ClientCount   int32
	Running       bool
}
