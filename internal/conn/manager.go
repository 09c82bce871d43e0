package conn

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tnetwork96/tinysocial/internal/metrics"
	"github.com/tnetwork96/tinysocial/internal/protocol"
)

var ErrNotConnected = errors.New("socket not connected")

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

// Handler receives transport lifecycle callbacks and raw inbound
// frames. All callbacks run on the manager's goroutine, one at a time.
type Handler interface {
	HandleConnected()
	HandleDisconnected()
	HandleFrame(frame []byte)
}

// Socket is the slice of a websocket connection the manager drives.
type Socket interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close() error
}

// DialFunc opens a socket to url. The default dials with
// coder/websocket; tests substitute their own.
type DialFunc func(ctx context.Context, url string) (Socket, error)

type wsSocket struct {
	c *websocket.Conn
}

func (s wsSocket) Read(ctx context.Context) ([]byte, error) {
	_, data, err := s.c.Read(ctx)
	return data, err
}

func (s wsSocket) Write(ctx context.Context, data []byte) error {
	return s.c.Write(ctx, websocket.MessageText, data)
}

func (s wsSocket) Close() error {
	return s.c.Close(websocket.StatusNormalClosure, "bye")
}

func dialWebsocket(ctx context.Context, url string) (Socket, error) {
	c, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return wsSocket{c: c}, nil
}

type Options struct {
	URL            string
	UserID         int
	PingEvery      time.Duration // keep-alive interval, default 30s
	ReconnectEvery time.Duration // retry interval, default 5s, floor 1s
	Dial           DialFunc
	Log            *zap.Logger
}

// Manager owns the persistent connection to the backend socket. It
// dials, announces the session with an init frame, pumps inbound frames
// to the handler and keep-alive pings to the server, and redials on a
// fixed interval whenever the transport drops. Absence of a pong is not
// treated as a failure; the transport error is authoritative.
type Manager struct {
	opts    Options
	handler Handler
	log     *zap.Logger

	mu    sync.Mutex
	sock  Socket
	state State

	startOnce sync.Once
	done      chan struct{}
}

func NewManager(opts Options, handler Handler) *Manager {
	if opts.PingEvery <= 0 {
		opts.PingEvery = 30 * time.Second
	}
	if opts.ReconnectEvery <= 0 {
		opts.ReconnectEvery = 5 * time.Second
	}
	if opts.ReconnectEvery < time.Second {
		opts.ReconnectEvery = time.Second
	}
	if opts.Dial == nil {
		opts.Dial = dialWebsocket
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	return &Manager{
		opts:    opts,
		handler: handler,
		log:     opts.Log,
		state:   StateDisconnected,
		done:    make(chan struct{}),
	}
}

// Start launches the connect/serve/reconnect loop. Subsequent calls are
// no-ops. The loop runs until ctx is cancelled.
func (m *Manager) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		go m.run(ctx)
	})
}

// Done closes when the run loop has fully stopped.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) run(ctx context.Context) {
	defer close(m.done)
	for {
		if ctx.Err() != nil {
			return
		}
		m.setState(StateConnecting)
		sock, err := m.opts.Dial(ctx, m.opts.URL)
		if err != nil {
			m.log.Warn("dial failed", zap.String("url", m.opts.URL), zap.Error(err))
			m.setState(StateDisconnected)
			if !m.sleep(ctx) {
				return
			}
			continue
		}

		m.mu.Lock()
		m.sock = sock
		m.state = StateConnected
		m.mu.Unlock()
		metrics.Reconnects.Inc()
		m.log.Info("connected", zap.String("url", m.opts.URL))

		// Announce the session before anything else goes out.
		if err := sock.Write(ctx, protocol.EncodeInit(m.opts.UserID)); err != nil {
			m.log.Warn("init frame failed", zap.Error(err))
		}
		m.handler.HandleConnected()

		m.serve(ctx, sock)

		m.mu.Lock()
		m.sock = nil
		m.state = StateDisconnected
		m.mu.Unlock()
		_ = sock.Close()
		m.handler.HandleDisconnected()
		m.log.Info("disconnected")

		if !m.sleep(ctx) {
			return
		}
	}
}

// serve pumps the socket until the transport errors or ctx ends.
func (m *Manager) serve(ctx context.Context, sock Socket) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			frame, err := sock.Read(gctx)
			if err != nil {
				return err
			}
			metrics.FramesReceived.Inc()
			m.handler.HandleFrame(frame)
		}
	})

	g.Go(func() error {
		ticker := time.NewTicker(m.opts.PingEvery)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				if err := sock.Write(gctx, protocol.EncodePing()); err != nil {
					return err
				}
				metrics.KeepAlives.Inc()
			}
		}
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		m.log.Debug("socket closed", zap.Error(err))
	}
}

func (m *Manager) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(m.opts.ReconnectEvery):
		return true
	}
}

// Send writes a frame on the live socket. While disconnected frames are
// dropped with a log line; the caller's state converges on the next
// resync instead.
func (m *Manager) Send(ctx context.Context, frame []byte) error {
	m.mu.Lock()
	sock := m.sock
	m.mu.Unlock()
	if sock == nil {
		metrics.DroppedSends.Inc()
		m.log.Warn("frame dropped, not connected", zap.Int("bytes", len(frame)))
		return ErrNotConnected
	}
	return sock.Write(ctx, frame)
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}
