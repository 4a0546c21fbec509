package live

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/example/liveworship/internal/socket"
	"github.com/example/liveworship/internal/worship"
)

// Subscriber registers handlers for inbound channel messages.
type Subscriber interface {
	On(event string, h socket.Handler) func()
}

// RefetchFunc reloads the event aggregate after an eventUpdated broadcast.
type RefetchFunc func(ctx context.Context) (worship.Event, error)

// BindOptions configures Bind.
type BindOptions struct {
	Refetch RefetchFunc
	Logger  *slog.Logger
}

// Binder applies channel broadcasts for one event to a Store.
type Binder struct {
	store   *Store
	eventID string
	refetch RefetchFunc
	logger  *slog.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.Mutex
	closed    bool
	wg        sync.WaitGroup
	detach    []func()
	closeOnce sync.Once
}

// Bind subscribes to the broadcasts of eventID. Messages for other events
// are ignored.
func Bind(store *Store, sub Subscriber, eventID string, opts BindOptions) *Binder {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &Binder{
		store:   store,
		eventID: eventID,
		refetch: opts.Refetch,
		logger:  logger.With("component", "live_binder", "event_id", eventID),
		ctx:     ctx,
		cancel:  cancel,
	}

	b.detach = []func(){
		sub.On(socket.NameLyricSelected, b.onLyricSelected),
		sub.On(socket.NameSelectedSong, b.onSelectedSong),
		sub.On(socket.NameManagerChanged, b.onManagerChanged),
		sub.On(socket.NameEventUpdated, b.onEventUpdated),
		sub.On(socket.NameVideoSeek, b.onVideo),
		sub.On(socket.NameVideoProgress, b.onVideo),
	}
	return b
}

// Close unsubscribes and waits for in-flight refetches.
func (b *Binder) Close() {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		b.mu.Unlock()

		for _, detach := range b.detach {
			detach()
		}
		b.cancel()
		b.wg.Wait()
	})
}

func (b *Binder) onLyricSelected(msg socket.Message) {
	m, ok := msg.(socket.LyricSelected)
	if !ok || m.EventID != b.eventID {
		return
	}
	b.apply("lyric selection", b.store.SetSelection(worship.Selection{Position: m.Position, Action: m.Action}))
}

func (b *Binder) onSelectedSong(msg socket.Message) {
	m, ok := msg.(socket.SelectedSong)
	if !ok || m.EventID != b.eventID {
		return
	}
	b.apply("selected song", b.store.SelectSong(m.SongID))
}

func (b *Binder) onManagerChanged(msg socket.Message) {
	m, ok := msg.(socket.ManagerChanged)
	if !ok {
		return
	}
	b.apply("manager change", b.store.ApplyManagerChange(m.BandID, m.UserID, m.UserName))
}

func (b *Binder) onVideo(msg socket.Message) {
	switch m := msg.(type) {
	case socket.VideoSeek:
		if m.EventID == b.eventID {
			b.apply("video seek", b.store.SetVideo(Video{SongID: m.SongID, Seconds: m.Seconds, Playing: b.store.Snapshot().Video.Playing}))
		}
	case socket.VideoProgress:
		if m.EventID == b.eventID {
			b.apply("video progress", b.store.SetVideo(Video{SongID: m.SongID, Seconds: m.Seconds, Playing: m.Playing}))
		}
	}
}

// onEventUpdated refetches off the read loop so a slow API cannot stall
// other broadcasts.
func (b *Binder) onEventUpdated(msg socket.Message) {
	m, ok := msg.(socket.EventUpdated)
	if !ok || m.EventID != b.eventID || b.refetch == nil {
		return
	}
	// Add is paired with the closed check so Close never waits on a
	// WaitGroup that can still grow.
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.wg.Done()
		event, err := b.refetch(b.ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				b.logger.Warn("event refetch failed", "error", err)
			}
			return
		}
		b.apply("event refetch", b.store.SetEvent(event))
	}()
}

func (b *Binder) apply(what string, err error) {
	switch {
	case err == nil:
		b.logger.Debug("broadcast applied", "kind", what)
	case errors.Is(err, ErrClosed):
	default:
		b.logger.Warn("broadcast not applied", "kind", what, "error", err)
	}
}
