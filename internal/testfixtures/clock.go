package testfixtures

import (
	"sync"
	"time"
)

var referenceTime = time.Date(2024, time.June, 2, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// Clock provides a controllable time source for tests.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

// NewClock returns a clock initialised to start, or ReferenceTime when start
// is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{current: start}
}

// Now returns the current instant tracked by the clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NowFunc exposes Now as a function suitable for dependency injection.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Advance moves the clock forward and returns the updated time.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
	return c.current
}

// ManualTicker stands in for time.Ticker. Ticks are delivered only when Tick
// is called.
type ManualTicker struct {
	mu       sync.Mutex
	ch       chan time.Time
	interval time.Duration
	stopped  bool
	clock    *Clock
}

// NewManualTicker returns a ticker driven by clock.
func NewManualTicker(clock *Clock) *ManualTicker {
	if clock == nil {
		clock = NewClock(time.Time{})
	}
	return &ManualTicker{ch: make(chan time.Time, 1), clock: clock}
}

// Factory matches the ticker constructor injected into pollers.
func (m *ManualTicker) Factory() func(time.Duration) (<-chan time.Time, func()) {
	return func(d time.Duration) (<-chan time.Time, func()) {
		m.mu.Lock()
		m.interval = d
		m.stopped = false
		m.mu.Unlock()
		return m.ch, m.stop
	}
}

// Interval returns the period the ticker was created with.
func (m *ManualTicker) Interval() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.interval
}

// Stopped reports whether the consumer stopped the ticker.
func (m *ManualTicker) Stopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

// Tick advances the clock by one interval and delivers a tick. It reports
// false when the ticker was stopped or the previous tick is still pending.
func (m *ManualTicker) Tick() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return false
	}
	select {
	case m.ch <- m.clock.Advance(m.interval):
		return true
	default:
		return false
	}
}

func (m *ManualTicker) stop() {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()
}
