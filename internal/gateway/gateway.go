// Package gateway delivers navigation and room intents through the durable
// mutation API or the transient event channel.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/example/liveworship/internal/application"
	"github.com/example/liveworship/internal/authz"
	"github.com/example/liveworship/internal/live"
	"github.com/example/liveworship/internal/socket"
	"github.com/example/liveworship/internal/worship"
)

var (
	// ErrInvalidIntent is returned for intents that fail local validation.
	ErrInvalidIntent = errors.New("gateway: invalid intent")
	// ErrClosed is returned by Send after Close.
	ErrClosed = errors.New("gateway: closed")
)

// Mutations is the durable half of the gateway.
type Mutations interface {
	SelectLyric(ctx context.Context, eventID string, selection worship.Selection) error
	SelectSong(ctx context.Context, eventID, songID string) error
}

// Emitter is the transient half of the gateway.
type Emitter interface {
	Emit(ctx context.Context, msg socket.Message) error
}

// AccessFunc reports the current session's authority over the event.
type AccessFunc func() authz.Access

// Options configures a Gateway.
type Options struct {
	EventID   string
	Store     *live.Store
	Mutations Mutations
	Emitter   Emitter
	// Access gates durable intents. A nil Access allows every intent.
	Access AccessFunc
	// Timeout bounds each mutation call. Zero means no extra bound.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Gateway routes intents for one event.
type Gateway struct {
	eventID   string
	store     *live.Store
	mutations Mutations
	emitter   Emitter
	access    AccessFunc
	timeout   time.Duration
	logger    *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
	stop   chan struct{}
}

// New constructs a gateway.
func New(opts Options) (*Gateway, error) {
	if opts.EventID == "" {
		return nil, fmt.Errorf("gateway: event id is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("gateway: store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		eventID:   opts.EventID,
		store:     opts.Store,
		mutations: opts.Mutations,
		emitter:   opts.Emitter,
		access:    opts.Access,
		timeout:   opts.Timeout,
		logger:    logger.With("component", "gateway", "event_id", opts.EventID),
		stop:      make(chan struct{}),
	}, nil
}

// Send delivers intent. Durable intents run in the background and commit to
// the store only when the mutation succeeds; the returned Result resolves
// when the call returns. Transient intents resolve before Send returns.
func (g *Gateway) Send(ctx context.Context, intent Intent) *Result {
	result := newResult(intent)
	if intent == nil {
		return result.resolve(fmt.Errorf("%w: nil intent", ErrInvalidIntent), false, false)
	}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return result.resolve(ErrClosed, false, false)
	}
	if intent.Durable() {
		g.wg.Add(1)
	}
	g.mu.Unlock()

	if !intent.Durable() {
		return g.sendTransient(ctx, intent, result)
	}

	if err := g.prepareDurable(intent); err != nil {
		g.wg.Done()
		g.logger.WarnContext(ctx, "intent refused", "intent", intent.Name(), "error", err, "error_kind", application.ErrorKind(err))
		return result.resolve(err, false, false)
	}

	go func() {
		defer g.wg.Done()
		g.sendDurable(ctx, intent, result)
	}()
	return result
}

// Close waits for in-flight mutations. Later Sends fail with ErrClosed.
func (g *Gateway) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	close(g.stop)
	g.mu.Unlock()
	g.wg.Wait()
}

// prepareDurable runs the checks that must pass before any network call.
func (g *Gateway) prepareDurable(intent Intent) error {
	if g.mutations == nil {
		return fmt.Errorf("gateway: no mutation API configured")
	}
	if g.access != nil && !g.access().CanControl() {
		return fmt.Errorf("%w: %s requires control of the event", application.ErrUnauthorized, intent.Name())
	}

	snap := g.store.Snapshot()
	switch in := intent.(type) {
	case LyricSelected:
		if in.Action != worship.ActionForward && in.Action != worship.ActionBackward {
			return fmt.Errorf("%w: action %q", ErrInvalidIntent, in.Action)
		}
		if _, ok := snap.SelectedSong(); !ok {
			return fmt.Errorf("%w: no song selected", ErrInvalidIntent)
		}
		if in.Position < 0 || in.Position > snap.LineCount()+1 {
			return fmt.Errorf("%w: position %d outside [0, %d]", ErrInvalidIntent, in.Position, snap.LineCount()+1)
		}
	case EventSelectedSong:
		if in.SongID == "" {
			return fmt.Errorf("%w: song id is required", ErrInvalidIntent)
		}
		if _, ok := snap.Event.FindSong(in.SongID); !ok {
			return fmt.Errorf("%w: %s", live.ErrUnknownSong, in.SongID)
		}
	default:
		return fmt.Errorf("%w: %s is not durable", ErrInvalidIntent, intent.Name())
	}
	return nil
}

func (g *Gateway) sendDurable(ctx context.Context, intent Intent, result *Result) {
	ctx, cancel := g.callContext(ctx)
	defer cancel()

	logger := g.logger.With("intent", intent.Name())
	var (
		err       error
		committed bool
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "durable intent failed", "error", err, "error_kind", application.ErrorKind(err))
		} else {
			logger.DebugContext(ctx, "durable intent delivered")
		}
		result.resolve(err, committed, false)
	}()

	switch in := intent.(type) {
	case LyricSelected:
		selection := worship.Selection{Position: in.Position, Action: in.Action}
		if err = g.mutations.SelectLyric(ctx, g.eventID, selection); err != nil {
			err = application.TranslateAPIError(err)
			return
		}
		err = g.store.SetSelection(selection)
	case EventSelectedSong:
		if err = g.mutations.SelectSong(ctx, g.eventID, in.SongID); err != nil {
			err = application.TranslateAPIError(err)
			return
		}
		err = g.store.SelectSong(in.SongID)
	}
	committed = err == nil
}

// callContext bounds a mutation by the configured timeout and by Close.
func (g *Gateway) callContext(parent context.Context) (context.Context, context.CancelFunc) {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if g.timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, g.timeout)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}
	go func() {
		select {
		case <-g.stop:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

func (g *Gateway) sendTransient(ctx context.Context, intent Intent, result *Result) *Result {
	msg, ok := message(g.eventID, intent)
	if !ok {
		return result.resolve(fmt.Errorf("%w: %s", ErrInvalidIntent, intent.Name()), false, false)
	}
	if g.emitter == nil {
		g.logger.DebugContext(ctx, "transient intent dropped, no channel", "intent", intent.Name())
		return result.resolve(nil, false, true)
	}

	err := g.emitter.Emit(ctx, msg)
	switch {
	case errors.Is(err, socket.ErrDisconnected):
		g.logger.DebugContext(ctx, "transient intent dropped while disconnected", "intent", intent.Name())
		return result.resolve(nil, false, true)
	case err != nil:
		g.logger.WarnContext(ctx, "transient intent failed", "intent", intent.Name(), "error", err)
		return result.resolve(err, false, false)
	}

	committed := false
	switch in := intent.(type) {
	case VideoSeek:
		playing := g.store.Snapshot().Video.Playing
		committed = g.store.SetVideo(live.Video{SongID: in.SongID, Seconds: in.Seconds, Playing: playing}) == nil
	case VideoProgress:
		committed = g.store.SetVideo(live.Video{SongID: in.SongID, Seconds: in.Seconds, Playing: in.Playing}) == nil
	}
	return result.resolve(nil, committed, false)
}
