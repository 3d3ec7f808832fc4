package connection

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	closed bool
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

type fakeTransport struct {
	mu       sync.Mutex
	failures int
	dials    int
}

func (t *fakeTransport) Connect(ctx context.Context, roomName, token string) (Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dials++
	if t.failures > 0 {
		t.failures--
		return nil, errors.New("dial failed")
	}
	return &fakeConn{}, nil
}

type staticTokens struct {
	mu     sync.Mutex
	issued int
}

func (s *staticTokens) Token(ctx context.Context) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return "token", "room-1", nil
}

func newTestManager(failures int) (*Manager, *fakeTransport, *staticTokens) {
	transport := &fakeTransport{failures: failures}
	tokens := &staticTokens{}
	m := NewManager(transport, tokens)
	m.BaseDelay = time.Millisecond
	m.MaxDelay = 4 * time.Millisecond
	return m, transport, tokens
}

func TestConnect(t *testing.T) {
	m, transport, tokens := newTestManager(0)

	require.NoError(t, m.Connect(context.Background()))
	assert.Equal(t, StateConnected, m.State())
	assert.Equal(t, 1, transport.dials)
	assert.Equal(t, 1, tokens.issued, "every dial uses a fresh token")
}

func TestConnectFailure(t *testing.T) {
	m, _, _ := newTestManager(1)

	assert.Error(t, m.Connect(context.Background()))
	assert.Equal(t, StateError, m.State())
}

func TestReconnectAfterDrop(t *testing.T) {
	m, transport, tokens := newTestManager(0)
	require.NoError(t, m.Connect(context.Background()))

	transport.failures = 2
	require.NoError(t, m.HandleDisconnect(context.Background()))

	assert.Equal(t, StateConnected, m.State())
	assert.Equal(t, 4, transport.dials, "initial dial plus two failures plus the success")
	assert.Equal(t, 4, tokens.issued)
	assert.Equal(t, 0, m.attempt, "attempt counter resets after success")
}

func TestReconnectExhaustsRetries(t *testing.T) {
	m, _, _ := newTestManager(0)
	m.MaxRetries = 3
	require.NoError(t, m.Connect(context.Background()))

	m.transport.(*fakeTransport).failures = 100
	err := m.HandleDisconnect(context.Background())
	assert.ErrorIs(t, err, ErrConnectionLost)
	assert.Equal(t, StateError, m.State())
}

func TestBackoffDelays(t *testing.T) {
	m, _, _ := newTestManager(0)
	m.BaseDelay = time.Second
	m.MaxDelay = 30 * time.Second

	assert.Equal(t, 1*time.Second, m.delay(1))
	assert.Equal(t, 2*time.Second, m.delay(2))
	assert.Equal(t, 4*time.Second, m.delay(3))
	assert.Equal(t, 16*time.Second, m.delay(5))
	assert.Equal(t, 30*time.Second, m.delay(6), "capped")
	assert.Equal(t, 30*time.Second, m.delay(40), "no overflow")
}

func TestLeaveCancelsReconnect(t *testing.T) {
	m, transport, _ := newTestManager(0)
	m.BaseDelay = 50 * time.Millisecond
	m.MaxDelay = 50 * time.Millisecond
	require.NoError(t, m.Connect(context.Background()))

	transport.failures = 100
	done := make(chan error, 1)
	go func() {
		done <- m.HandleDisconnect(context.Background())
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, m.Leave())

	select {
	case err := <-done:
		assert.NoError(t, err, "leave during reconnect ends the session cleanly")
	case <-time.After(time.Second):
		t.Fatal("reconnect loop did not stop after leave")
	}
	assert.Equal(t, StateEnded, m.State())
}

func TestDisconnectWhileLeavingEnds(t *testing.T) {
	m, _, _ := newTestManager(0)
	require.NoError(t, m.Connect(context.Background()))
	require.NoError(t, m.Leave())

	require.NoError(t, m.HandleDisconnect(context.Background()))
	assert.Equal(t, StateEnded, m.State())
}

func TestLeaveClosesConnection(t *testing.T) {
	m, _, _ := newTestManager(0)
	require.NoError(t, m.Connect(context.Background()))

	conn := m.conn.(*fakeConn)
	require.NoError(t, m.Leave())
	assert.True(t, conn.closed)

	assert.NoError(t, m.Leave(), "second leave is a no-op")
}

func TestContextCancelStopsReconnect(t *testing.T) {
	m, transport, _ := newTestManager(0)
	m.BaseDelay = 50 * time.Millisecond
	require.NoError(t, m.Connect(context.Background()))

	transport.failures = 100
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- m.HandleDisconnect(ctx)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("reconnect loop did not stop after cancel")
	}
}

func TestStateChangeCallback(t *testing.T) {
	m, _, _ := newTestManager(0)

	var mu sync.Mutex
	var seen []State
	m.OnStateChange = func(s State) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	}

	require.NoError(t, m.Connect(context.Background()))
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{StateConnecting, StateConnected}, seen)
}
