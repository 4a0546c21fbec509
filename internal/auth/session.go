package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Listener observes session changes. It receives nil on logout.
type Listener func(ctx context.Context, principal *Principal)

// Connector is the connection that follows the session: it is dialed fresh on
// login and closed on logout.
type Connector interface {
	Login(ctx context.Context, token string) error
	Logout()
}

// Session holds the current principal and notifies listeners when it
// changes.
type Session struct {
	now    func() time.Time
	logger *slog.Logger

	// schedule runs f after d and returns a function cancelling it.
	schedule func(d time.Duration, f func()) (stop func() bool)

	mu         sync.RWMutex
	principal  *Principal
	stopExpiry func() bool
	listeners  map[uint64]Listener
	nextID     uint64
}

func afterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// NewSession constructs an empty session.
func NewSession(now func() time.Time) *Session {
	return NewSessionWithLogger(now, nil)
}

// NewSessionWithLogger allows injecting a custom logger.
func NewSessionWithLogger(now func() time.Time, logger *slog.Logger) *Session {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		now:       now,
		logger:    logger.With("component", "auth_session"),
		schedule:  afterFunc,
		listeners: make(map[uint64]Listener),
	}
}

// Login validates token and makes it the current session. The session ends
// on its own when the token expires.
func (s *Session) Login(ctx context.Context, token string) (Principal, error) {
	now := s.now()
	principal, err := ParseToken(token, now)
	if err != nil {
		s.logger.Warn("login rejected", "error", err)
		return Principal{}, err
	}

	current := &principal
	s.mu.Lock()
	if s.stopExpiry != nil {
		s.stopExpiry()
		s.stopExpiry = nil
	}
	s.principal = current
	if !principal.ExpiresAt.IsZero() {
		s.stopExpiry = s.schedule(principal.ExpiresAt.Sub(now), func() { s.expire(current) })
	}
	s.mu.Unlock()

	s.logger.Info("session started", "user_id", principal.UserID)
	s.notify(ctx, &principal)
	return principal, nil
}

// Logout clears the session.
func (s *Session) Logout(ctx context.Context) {
	s.mu.Lock()
	had := s.principal != nil
	s.principal = nil
	if s.stopExpiry != nil {
		s.stopExpiry()
		s.stopExpiry = nil
	}
	s.mu.Unlock()

	if had {
		s.logger.Info("session ended")
	}
	s.notify(ctx, nil)
}

// expire ends the session if p is still its principal.
func (s *Session) expire(p *Principal) {
	s.mu.Lock()
	if s.principal != p {
		s.mu.Unlock()
		return
	}
	s.principal = nil
	s.stopExpiry = nil
	s.mu.Unlock()

	s.logger.Info("session expired", "user_id", p.UserID)
	s.notify(context.Background(), nil)
}

// Principal returns the current principal, reporting false when logged out
// or when the token has since expired.
func (s *Session) Principal() (Principal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.principal == nil {
		return Principal{}, false
	}
	if !s.principal.ExpiresAt.IsZero() && !s.now().Before(s.principal.ExpiresAt) {
		return Principal{}, false
	}
	return *s.principal, true
}

// Token returns the current bearer token or "".
func (s *Session) Token() string {
	p, ok := s.Principal()
	if !ok {
		return ""
	}
	return p.Token
}

// OnChange registers l and returns a function removing it.
func (s *Session) OnChange(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Bind keeps conn in step with the session. A session that is already active
// is connected immediately.
func (s *Session) Bind(ctx context.Context, conn Connector) func() {
	follow := func(ctx context.Context, p *Principal) {
		if p == nil {
			conn.Logout()
			return
		}
		if err := conn.Login(ctx, p.Token); err != nil {
			s.logger.Warn("connection login failed", "error", err)
		}
	}
	if p, ok := s.Principal(); ok {
		follow(ctx, &p)
	}
	return s.OnChange(follow)
}

func (s *Session) notify(ctx context.Context, p *Principal) {
	s.mu.RLock()
	targets := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		targets = append(targets, l)
	}
	s.mu.RUnlock()

	for _, l := range targets {
		l(ctx, p)
	}
}
