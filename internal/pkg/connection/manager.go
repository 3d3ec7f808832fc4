package connection

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// State describes where a room connection currently is in its lifecycle.
type State string

const (
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateEnded        State = "ended"
	StateError        State = "error"
)

const (
	DefaultBaseDelay  = 1 * time.Second
	DefaultMaxDelay   = 30 * time.Second
	DefaultMaxRetries = 5
)

// ErrConnectionLost is returned once every reconnect attempt has been spent.
var ErrConnectionLost = errors.New("connection lost after maximum retries")

// Conn is a live room connection.
type Conn interface {
	Close() error
}

// Transport dials the media room.
type Transport interface {
	Connect(ctx context.Context, roomName, token string) (Conn, error)
}

// TokenSource supplies a fresh capability token per dial attempt. Tokens
// are short-lived, so a reconnect must not reuse the one that got it
// into the room the first time.
type TokenSource interface {
	Token(ctx context.Context) (token string, roomName string, err error)
}

// Manager keeps one room connection alive across transient drops. A drop
// triggers exponentially backed-off redials until either the connection
// is back, the user leaves, or the retry budget is exhausted.
type Manager struct {
	transport Transport
	tokens    TokenSource

	BaseDelay  time.Duration
	MaxDelay   time.Duration
	MaxRetries int

	// OnStateChange, if set, observes every transition.
	OnStateChange func(State)

	mu      sync.Mutex
	state   State
	conn    Conn
	attempt int
	leaving bool
	leaveCh chan struct{}
}

func NewManager(transport Transport, tokens TokenSource) *Manager {
	return &Manager{
		transport:  transport,
		tokens:     tokens,
		BaseDelay:  DefaultBaseDelay,
		MaxDelay:   DefaultMaxDelay,
		MaxRetries: DefaultMaxRetries,
		state:      StateConnecting,
		leaveCh:    make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	cb := m.OnStateChange
	m.mu.Unlock()
	if cb != nil {
		cb(s)
	}
}

// Connect performs the initial dial.
func (m *Manager) Connect(ctx context.Context) error {
	m.setState(StateConnecting)
	if err := m.dial(ctx); err != nil {
		m.setState(StateError)
		return err
	}
	m.setState(StateConnected)
	return nil
}

func (m *Manager) dial(ctx context.Context) error {
	token, roomName, err := m.tokens.Token(ctx)
	if err != nil {
		return err
	}
	conn, err := m.transport.Connect(ctx, roomName, token)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.conn = conn
	m.attempt = 0
	m.mu.Unlock()
	return nil
}

// delay computes the wait before the given attempt (1-based).
func (m *Manager) delay(attempt int) time.Duration {
	d := m.BaseDelay << (attempt - 1)
	if d > m.MaxDelay || d <= 0 {
		d = m.MaxDelay
	}
	return d
}

// HandleDisconnect reacts to a dropped connection. If the user was on the
// way out, the session just ends. Otherwise it redials with growing
// delays until success or the retry budget runs out.
func (m *Manager) HandleDisconnect(ctx context.Context) error {
	m.mu.Lock()
	if m.leaving {
		m.mu.Unlock()
		m.setState(StateEnded)
		return nil
	}
	m.conn = nil
	m.mu.Unlock()

	for {
		m.mu.Lock()
		m.attempt++
		attempt := m.attempt
		m.mu.Unlock()

		if attempt > m.MaxRetries {
			m.setState(StateError)
			return ErrConnectionLost
		}

		m.setState(StateReconnecting)
		wait := m.delay(attempt)
		log.Infof("[Connection] Reconnect attempt %d/%d in %s", attempt, m.MaxRetries, wait)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			m.setState(StateEnded)
			return ctx.Err()
		case <-m.leaveCh:
			timer.Stop()
			m.setState(StateEnded)
			return nil
		case <-timer.C:
		}

		if err := m.dial(ctx); err != nil {
			log.Warnf("[Connection] Reconnect attempt %d failed: %v", attempt, err)
			continue
		}
		m.setState(StateConnected)
		return nil
	}
}

// Leave tears the connection down deliberately. Any in-flight reconnect
// is cancelled instead of retried.
func (m *Manager) Leave() error {
	m.mu.Lock()
	if m.leaving {
		m.mu.Unlock()
		return nil
	}
	m.leaving = true
	conn := m.conn
	m.conn = nil
	close(m.leaveCh)
	m.mu.Unlock()

	m.setState(StateEnded)
	if conn != nil {
		return conn.Close()
	}
	return nil
}
