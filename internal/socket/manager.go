package socket

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Default redial backoff after a dropped connection.
const (
	DefaultMinBackoff = 250 * time.Millisecond
	DefaultMaxBackoff = 5 * time.Second
)

// DialFunc opens a client for the given token.
type DialFunc func(ctx context.Context, token string) (*Client, error)

// ReconnectFunc is called after a dropped connection has been redialed.
type ReconnectFunc func(ctx context.Context)

// Manager owns at most one live Client per login session. Handlers registered
// on the Manager survive reconnects because they are re-attached to every
// client it dials. A connection dropped by the server is redialed with the
// session token until Logout.
type Manager struct {
	dial   DialFunc
	logger *slog.Logger

	mu         sync.RWMutex
	client     *Client
	detach     func()
	stopWatch  context.CancelFunc
	handlers   map[string]map[uint64]Handler
	reconnects map[uint64]ReconnectFunc
	nextID     uint64
	minBackoff time.Duration
	maxBackoff time.Duration
}

// NewManager returns a Manager dialing url with the default gorilla dialer.
func NewManager(url string) *Manager {
	return NewManagerWithLogger(url, nil)
}

// NewManagerWithLogger allows injecting a custom logger.
func NewManagerWithLogger(url string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	dial := func(ctx context.Context, token string) (*Client, error) {
		return Dial(ctx, DialOptions{URL: url, Token: token, Logger: logger})
	}
	return NewManagerWithDialer(dial, logger)
}

// NewManagerWithDialer builds a Manager around a custom dial function.
func NewManagerWithDialer(dial DialFunc, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		dial:       dial,
		logger:     logger.With("component", "socket_manager"),
		handlers:   make(map[string]map[uint64]Handler),
		reconnects: make(map[uint64]ReconnectFunc),
		minBackoff: DefaultMinBackoff,
		maxBackoff: DefaultMaxBackoff,
	}
}

// SetBackoff overrides the redial delays. Non-positive values keep the
// defaults.
func (m *Manager) SetBackoff(first, limit time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if first > 0 {
		m.minBackoff = first
	}
	if limit > 0 {
		m.maxBackoff = limit
	}
	if m.maxBackoff < m.minBackoff {
		m.maxBackoff = m.minBackoff
	}
}

// Login replaces any current connection with a fresh one for token. An empty
// token only closes the current connection.
func (m *Manager) Login(ctx context.Context, token string) error {
	m.Logout()
	if token == "" {
		m.logger.Info("no session token; socket stays closed")
		return nil
	}

	client, err := m.dial(ctx, token)
	if err != nil {
		m.logger.Warn("socket dial failed", "error", err)
		return err
	}

	watchCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	m.mu.Lock()
	m.client = client
	m.detach = client.On(AnyEvent, m.dispatch)
	m.stopWatch = stop
	m.mu.Unlock()

	go m.watch(watchCtx, client, token)
	return nil
}

// Logout closes the current connection, if any, and stops redialing.
func (m *Manager) Logout() {
	m.mu.Lock()
	client, detach, stop := m.client, m.detach, m.stopWatch
	m.client, m.detach, m.stopWatch = nil, nil, nil
	// Cancelled under the lock so a redial in flight cannot install a client.
	if stop != nil {
		stop()
	}
	m.mu.Unlock()

	if client == nil {
		return
	}
	detach()
	if err := client.Close(); err != nil {
		m.logger.Debug("socket close returned error", "error", err)
	}
}

// OnReconnect registers fn to run after every successful redial and returns
// a function removing it.
func (m *Manager) OnReconnect(fn ReconnectFunc) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := m.nextID
	m.reconnects[id] = fn
	return func() {
		m.mu.Lock()
		delete(m.reconnects, id)
		m.mu.Unlock()
	}
}

// Current returns the live client or nil.
func (m *Manager) Current() *Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client
}

// State reports the state of the current connection.
func (m *Manager) State() State {
	return m.Current().State()
}

// Connected reports whether the current connection can emit.
func (m *Manager) Connected() bool {
	return m.State() == StateConnected
}

// Emit sends msg on the current connection.
func (m *Manager) Emit(ctx context.Context, msg Message) error {
	client := m.Current()
	if client == nil {
		return ErrDisconnected
	}
	return client.Emit(ctx, msg)
}

// On registers h for inbound messages named event across reconnects.
func (m *Manager) On(event string, h Handler) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := m.nextID
	if m.handlers[event] == nil {
		m.handlers[event] = make(map[uint64]Handler)
	}
	m.handlers[event][id] = h

	return func() {
		m.mu.Lock()
		delete(m.handlers[event], id)
		m.mu.Unlock()
	}
}

func (m *Manager) dispatch(msg Message) {
	m.mu.RLock()
	targets := make([]Handler, 0, len(m.handlers[msg.EventName()]))
	for _, h := range m.handlers[msg.EventName()] {
		targets = append(targets, h)
	}
	m.mu.RUnlock()

	for _, h := range targets {
		h(msg)
	}
}

// watch redials whenever the current client terminates on its own.
func (m *Manager) watch(ctx context.Context, client *Client, token string) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-client.Done():
		}
		if ctx.Err() != nil {
			return
		}
		m.logger.Warn("socket connection lost; reconnecting", "connection_id", client.ID())

		next, ok := m.redial(ctx, token)
		if !ok {
			return
		}
		client = next
		m.notifyReconnect(ctx)
	}
}

func (m *Manager) redial(ctx context.Context, token string) (*Client, bool) {
	m.mu.RLock()
	backoff, limit := m.minBackoff, m.maxBackoff
	m.mu.RUnlock()

	for {
		client, err := m.dial(ctx, token)
		if err == nil {
			m.mu.Lock()
			if ctx.Err() != nil {
				m.mu.Unlock()
				_ = client.Close()
				return nil, false
			}
			if m.detach != nil {
				m.detach()
			}
			m.client = client
			m.detach = client.On(AnyEvent, m.dispatch)
			m.mu.Unlock()
			m.logger.Info("socket reconnected", "connection_id", client.ID())
			return client, true
		}

		m.logger.Warn("socket redial failed", "error", err, "retry_in", backoff)
		select {
		case <-ctx.Done():
			return nil, false
		case <-time.After(backoff):
		}
		if backoff < limit {
			backoff = min(backoff*2, limit)
		}
	}
}

func (m *Manager) notifyReconnect(ctx context.Context) {
	m.mu.RLock()
	targets := make([]ReconnectFunc, 0, len(m.reconnects))
	for _, fn := range m.reconnects {
		targets = append(targets, fn)
	}
	m.mu.RUnlock()

	for _, fn := range targets {
		fn(ctx)
	}
}
