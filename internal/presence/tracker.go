// Package presence keeps the connected-users roster of an event room.
package presence

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/example/liveworship/internal/gateway"
	"github.com/example/liveworship/internal/socket"
)

// DefaultPollInterval is how often an observer re-requests the roster.
const DefaultPollInterval = 15 * time.Second

// Sender delivers room intents.
type Sender interface {
	Send(ctx context.Context, intent gateway.Intent) *gateway.Result
}

// Subscriber registers handlers for inbound channel messages.
type Subscriber interface {
	On(event string, h socket.Handler) func()
}

// Connection reports whether the channel is up.
type Connection interface {
	Connected() bool
}

// TickerFunc starts a periodic trigger and returns its channel and stop
// function.
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

// Roster is the latest accepted roster of the room.
type Roster struct {
	EventID string                 `json:"eventId"`
	Users   []socket.ConnectedUser `json:"users"`
	Guests  int                    `json:"guestCount"`
	Total   int                    `json:"totalCount"`
	// Received is false until the first roster for the event arrives.
	Received bool `json:"received"`
}

// Delta lists the authenticated users that joined or left between two
// rosters.
type Delta struct {
	Joined []socket.ConnectedUser `json:"joined,omitempty"`
	Left   []socket.ConnectedUser `json:"left,omitempty"`
}

// Empty reports whether nobody joined or left.
func (d Delta) Empty() bool { return len(d.Joined) == 0 && len(d.Left) == 0 }

// Options configures a Tracker.
type Options struct {
	EventID    string
	Sender     Sender
	Subscriber Subscriber
	Connection Connection
	// Observer skips join/leave and polls the roster instead of relying on
	// push updates alone.
	Observer     bool
	PollInterval time.Duration
	Ticker       TickerFunc
	// OnChange is called after every accepted roster.
	OnChange func(Roster, Delta)
	Logger   *slog.Logger
}

// Tracker follows the roster of one event room between Start and Stop.
type Tracker struct {
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	roster  Roster
	running bool
	detach  func()
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewTracker constructs a tracker.
func NewTracker(opts Options) *Tracker {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Ticker == nil {
		opts.Ticker = func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		opts:   opts,
		logger: logger.With("component", "presence", "event_id", opts.EventID, "observer", opts.Observer),
		roster: Roster{EventID: opts.EventID},
	}
}

// Start joins the room (unless observing) and requests the roster.
func (t *Tracker) Start(ctx context.Context) {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return
	}
	t.running = true
	t.roster = Roster{EventID: t.opts.EventID}
	if t.opts.Subscriber != nil {
		t.detach = t.opts.Subscriber.On(socket.NameUsersUpdate, t.onUsersUpdate)
	}
	pollCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	t.cancel = cancel
	t.mu.Unlock()

	if !t.opts.Observer {
		t.send(ctx, gateway.JoinEvent{})
	}
	t.send(ctx, gateway.GetConnectedUsers{})

	if t.opts.Observer {
		t.wg.Add(1)
		go t.poll(pollCtx)
	}
	t.logger.InfoContext(ctx, "presence tracking started")
}

// Rejoin announces the view again after the channel was redialed and
// re-requests the roster. It does nothing while stopped.
func (t *Tracker) Rejoin(ctx context.Context) {
	t.mu.Lock()
	running := t.running
	t.mu.Unlock()
	if !running {
		return
	}

	if !t.opts.Observer {
		t.send(ctx, gateway.JoinEvent{})
	}
	t.send(ctx, gateway.GetConnectedUsers{})
	t.logger.InfoContext(ctx, "presence rejoined after reconnect")
}

// Stop leaves the room (unless observing), stops polling and forgets the
// roster.
func (t *Tracker) Stop(ctx context.Context) {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	detach, cancel := t.detach, t.cancel
	t.detach, t.cancel = nil, nil
	t.mu.Unlock()

	if detach != nil {
		detach()
	}
	cancel()
	t.wg.Wait()

	if !t.opts.Observer {
		t.send(ctx, gateway.LeaveEvent{})
	}

	t.mu.Lock()
	t.roster = Roster{EventID: t.opts.EventID}
	t.mu.Unlock()
	t.logger.InfoContext(ctx, "presence tracking stopped")
}

// Roster returns a copy of the current roster.
func (t *Tracker) Roster() Roster {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := t.roster
	r.Users = append([]socket.ConnectedUser(nil), t.roster.Users...)
	return r
}

// Connected reports whether the channel is up. Without a connection handle
// the tracker assumes it is.
func (t *Tracker) Connected() bool {
	return t.opts.Connection == nil || t.opts.Connection.Connected()
}

// Summary returns the roster sentence shown next to the event.
func (t *Tracker) Summary() string {
	if !t.Connected() {
		return Connecting
	}
	return Summarize(t.Roster())
}

func (t *Tracker) poll(ctx context.Context) {
	defer t.wg.Done()

	ticks, stop := t.opts.Ticker(t.opts.PollInterval)
	defer stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			t.send(ctx, gateway.GetConnectedUsers{})
		}
	}
}

func (t *Tracker) send(ctx context.Context, intent gateway.Intent) {
	if t.opts.Sender == nil {
		return
	}
	result := t.opts.Sender.Send(ctx, intent)
	if result == nil {
		return
	}
	if err := result.Err(); err != nil {
		t.logger.WarnContext(ctx, "room intent failed", "intent", intent.Name(), "error", err)
	}
}

func (t *Tracker) onUsersUpdate(msg socket.Message) {
	update, ok := msg.(socket.UsersUpdate)
	if !ok {
		return
	}
	if update.EventID != t.opts.EventID {
		t.logger.Debug("ignoring roster for another event", "roster_event_id", update.EventID)
		return
	}
	t.reconcile(update)
}

// reconcile is the single entry point for push and polled rosters.
func (t *Tracker) reconcile(update socket.UsersUpdate) {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	next := Roster{
		EventID:  update.EventID,
		Users:    dedupe(update.Users),
		Guests:   update.GuestCount,
		Received: true,
	}
	next.Total = len(next.Users) + next.Guests
	delta := diff(t.roster.Users, next.Users)
	t.roster = next
	onChange := t.opts.OnChange
	t.mu.Unlock()

	if update.TotalCount != next.Total {
		t.logger.Debug("roster total recomputed", "reported", update.TotalCount, "computed", next.Total)
	}
	if !delta.Empty() {
		t.logger.Info("roster changed", "joined", len(delta.Joined), "left", len(delta.Left), "total", next.Total)
	}
	if onChange != nil {
		next.Users = append([]socket.ConnectedUser(nil), next.Users...)
		onChange(next, delta)
	}
}

func dedupe(users []socket.ConnectedUser) []socket.ConnectedUser {
	seen := make(map[string]struct{}, len(users))
	out := make([]socket.ConnectedUser, 0, len(users))
	for _, u := range users {
		if _, ok := seen[u.ID]; ok {
			continue
		}
		seen[u.ID] = struct{}{}
		out = append(out, u)
	}
	return out
}

func diff(before, after []socket.ConnectedUser) Delta {
	had := make(map[string]struct{}, len(before))
	for _, u := range before {
		had[u.ID] = struct{}{}
	}
	has := make(map[string]struct{}, len(after))
	var delta Delta
	for _, u := range after {
		has[u.ID] = struct{}{}
		if _, ok := had[u.ID]; !ok {
			delta.Joined = append(delta.Joined, u)
		}
	}
	for _, u := range before {
		if _, ok := has[u.ID]; !ok {
			delta.Left = append(delta.Left, u)
		}
	}
	return delta
}
