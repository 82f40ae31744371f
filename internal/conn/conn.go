// Package conn owns the single websocket connection to the party authority.
// It reconnects with a fixed delay up to a bounded number of attempts and
// reports lifecycle changes and decoded frames, in order, on one channel.
package conn

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/DoyleJ11/stars-party/internal/metrics"
	"github.com/DoyleJ11/stars-party/internal/protocol"
)

var ErrNotConnected = errors.New("not connected to server")
var ErrRetriesExhausted = errors.New("reconnection attempts exhausted")

const (
	DefaultMaxAttempts  = 5
	DefaultDelay        = 3 * time.Second
	DefaultDialTimeout  = 10 * time.Second
	DefaultWriteTimeout = 3 * time.Second

	// A full roster with recruitment text runs past the library's 32KiB default.
	readLimit = 1 << 20
)

type EventType int

const (
	EventConnecting EventType = iota
	EventConnected
	EventConnectError
	EventReconnecting
	EventDisconnected
	EventGaveUp
	EventMessage
	EventMalformed
)

func (t EventType) String() string {
	switch t {
	case EventConnecting:
		return "connecting"
	case EventConnected:
		return "connected"
	case EventConnectError:
		return "connect_error"
	case EventReconnecting:
		return "reconnecting"
	case EventDisconnected:
		return "disconnected"
	case EventGaveUp:
		return "gave_up"
	case EventMessage:
		return "message"
	case EventMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

type Event struct {
	Type        EventType
	Attempt     int
	MaxAttempts int
	Err         error
	Envelope    protocol.Envelope
}

type Config struct {
	URL          string
	MaxAttempts  int
	Delay        time.Duration
	DialTimeout  time.Duration
	WriteTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.Delay < 0 {
		c.Delay = DefaultDelay
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	return c
}

type Manager struct {
	cfg    Config
	log    *zap.Logger
	events chan Event

	mu   sync.Mutex
	conn *websocket.Conn
}

func New(cfg Config, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		cfg:    cfg.withDefaults(),
		log:    log.Named("conn"),
		events: make(chan Event, 64),
	}
}

// Events is closed when Run returns.
func (m *Manager) Events() <-chan Event { return m.events }

func (m *Manager) MaxAttempts() int { return m.cfg.MaxAttempts }

// Run connects and keeps the connection alive until ctx is done or the
// retry budget runs out, in which case it returns ErrRetriesExhausted.
// Each drop starts a fresh budget.
func (m *Manager) Run(ctx context.Context) error {
	defer close(m.events)

	reconnect := false
	for {
		c, err := m.dial(ctx, reconnect)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			m.log.Error("giving up on authority", zap.String("url", m.cfg.URL), zap.Error(err))
			m.emit(ctx, Event{Type: EventGaveUp, Attempt: m.cfg.MaxAttempts, MaxAttempts: m.cfg.MaxAttempts, Err: err})
			return fmt.Errorf("%w: %w", ErrRetriesExhausted, err)
		}

		m.setConn(c)
		metrics.Connected.Set(1)
		m.log.Info("connected", zap.String("url", m.cfg.URL))
		m.emit(ctx, Event{Type: EventConnected})

		reason := m.readLoop(ctx, c)

		m.setConn(nil)
		metrics.Connected.Set(0)
		if ctx.Err() != nil {
			_ = c.Close(websocket.StatusNormalClosure, "bye")
			return nil
		}
		_ = c.CloseNow()

		m.log.Warn("disconnected", zap.Error(reason))
		m.emit(ctx, Event{Type: EventDisconnected, Err: reason})
		reconnect = true
	}
}

func (m *Manager) dial(ctx context.Context, reconnect bool) (*websocket.Conn, error) {
	limit := m.cfg.MaxAttempts
	attempt := 0
	if !reconnect {
		m.emit(ctx, Event{Type: EventConnecting, MaxAttempts: limit})
	}

	op := func() (*websocket.Conn, error) {
		attempt++
		if reconnect || attempt > 1 {
			m.emit(ctx, Event{Type: EventReconnecting, Attempt: attempt, MaxAttempts: limit})
		}

		dctx, cancel := context.WithTimeout(ctx, m.cfg.DialTimeout)
		defer cancel()
		c, _, err := websocket.Dial(dctx, m.cfg.URL, nil)
		if err != nil {
			metrics.DialAttempts.WithLabelValues("error").Inc()
			m.log.Warn("connect failed", zap.Int("attempt", attempt), zap.Int("max", limit), zap.Error(err))
			m.emit(ctx, Event{Type: EventConnectError, Attempt: attempt, MaxAttempts: limit, Err: err})
			return nil, err
		}
		metrics.DialAttempts.WithLabelValues("ok").Inc()
		c.SetReadLimit(readLimit)
		return c, nil
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(m.cfg.Delay)),
		backoff.WithMaxTries(uint(limit)),
	)
}

// readLoop returns the error that ended the connection.
func (m *Manager) readLoop(ctx context.Context, c *websocket.Conn) error {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return fmt.Errorf("server closed connection: %w", err)
			}
			return err
		}
		if typ != websocket.MessageText {
			continue
		}

		env, err := protocol.Decode(data)
		if err != nil {
			metrics.MalformedFrames.Inc()
			m.log.Warn("dropping undecodable frame", zap.Error(err))
			m.emit(ctx, Event{Type: EventMalformed, Err: err})
			continue
		}
		metrics.FramesReceived.WithLabelValues(kindLabel(env.Type)).Inc()
		m.emit(ctx, Event{Type: EventMessage, Envelope: env})
	}
}

// kindLabel keeps the frames metric to the known inbound kinds; anything else
// the server sends is counted under one label.
func kindLabel(k protocol.Kind) string {
	if !k.Inbound() {
		return "unknown"
	}
	return string(k)
}

func (m *Manager) emit(ctx context.Context, ev Event) {
	select {
	case m.events <- ev:
	case <-ctx.Done():
	}
}

func (m *Manager) setConn(c *websocket.Conn) {
	m.mu.Lock()
	m.conn = c
	m.mu.Unlock()
}

func (m *Manager) current() *websocket.Conn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn
}

// Send encodes and writes one message. It fails fast with ErrNotConnected
// while the connection is down; nothing is queued.
func (m *Manager) Send(ctx context.Context, kind protocol.Kind, payload any) error {
	data, err := protocol.Encode(kind, payload)
	if err != nil {
		return err
	}

	c := m.current()
	if c == nil {
		metrics.FramesSent.WithLabelValues(string(kind), "error").Inc()
		return ErrNotConnected
	}

	wctx, cancel := context.WithTimeout(ctx, m.cfg.WriteTimeout)
	defer cancel()
	if err := c.Write(wctx, websocket.MessageText, data); err != nil {
		metrics.FramesSent.WithLabelValues(string(kind), "error").Inc()
		return fmt.Errorf("send %s: %w", kind, err)
	}
	metrics.FramesSent.WithLabelValues(string(kind), "ok").Inc()
	m.log.Debug("sent", zap.String("kind", string(kind)))
	return nil
}
