package navigation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/example/liveworship/internal/application"
	"github.com/example/liveworship/internal/gateway"
	"github.com/example/liveworship/internal/live"
)

// MinSwipeDistance is the horizontal travel, in pixels, a touch must cover
// to count as a swipe.
const MinSwipeDistance = 50

var (
	// ErrInactive is returned for keyboard and touch input outside
	// fullscreen projection, or while the swipe lock is on.
	ErrInactive = errors.New("navigation: input inactive")
	// ErrNoSong is returned when no song is selected.
	ErrNoSong = errors.New("navigation: no song selected")
	// ErrNoChange is returned when the transition would not move; nothing
	// is sent.
	ErrNoChange = errors.New("navigation: position unchanged")
	// ErrIgnoredInput is returned for keys and gestures that do not
	// navigate.
	ErrIgnoredInput = errors.New("navigation: input ignored")
)

// Sender delivers intents.
type Sender interface {
	Send(ctx context.Context, intent gateway.Intent) *gateway.Result
}

// Swipe is a completed touch gesture, as the distance travelled from touch
// start to touch end.
type Swipe struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// Options configures a Controller.
type Options struct {
	Store  *live.Store
	Sender Sender
	Access gateway.AccessFunc
	Logger *slog.Logger
}

// Controller turns keyboard, touch and picker input into lyric selections
// for the authorized controller.
type Controller struct {
	store  *live.Store
	sender Sender
	access gateway.AccessFunc
	logger *slog.Logger
}

// NewController constructs a controller.
func NewController(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		store:  opts.Store,
		sender: opts.Sender,
		access: opts.Access,
		logger: logger.With("component", "navigation"),
	}
}

func (c *Controller) authorized() bool {
	return c.access != nil && c.access().CanControl()
}

// Active reports whether keyboard and touch input is attached: the view is
// in fullscreen projection, the session may control the event and the swipe
// lock is off.
func (c *Controller) Active() bool {
	view := c.store.Snapshot().View
	return view.Fullscreen && !view.SwipeLock && c.authorized()
}

// Advance sends the next chunked position.
func (c *Controller) Advance(ctx context.Context) (*gateway.Result, error) {
	return c.step(ctx, "advance", func(p, l int) (int, bool) { return Advance(p, l) })
}

// Retreat sends the previous position.
func (c *Controller) Retreat(ctx context.Context) (*gateway.Result, error) {
	return c.step(ctx, "retreat", func(p, _ int) (int, bool) { return Retreat(p) })
}

// Select jumps to position, as picked from the lyric list. The position is
// clamped to the song's range.
func (c *Controller) Select(ctx context.Context, position int) (*gateway.Result, error) {
	return c.step(ctx, "select", func(p, l int) (int, bool) {
		next := clamp(position, l)
		return next, next != p
	})
}

// HandleKey maps an arrow or paging key to Advance or Retreat.
func (c *Controller) HandleKey(ctx context.Context, key string) (*gateway.Result, error) {
	if !c.Active() {
		return nil, ErrInactive
	}
	switch key {
	case "ArrowRight", "ArrowDown", "PageDown", " ", "Space":
		return c.Advance(ctx)
	case "ArrowLeft", "ArrowUp", "PageUp":
		return c.Retreat(ctx)
	}
	return nil, fmt.Errorf("%w: key %q", ErrIgnoredInput, key)
}

// HandleSwipe maps a horizontal swipe to Advance (leftwards) or Retreat
// (rightwards). Short or mostly vertical gestures are ignored.
func (c *Controller) HandleSwipe(ctx context.Context, swipe Swipe) (*gateway.Result, error) {
	if !c.Active() {
		return nil, ErrInactive
	}
	dx, dy := math.Abs(swipe.DX), math.Abs(swipe.DY)
	if dx < MinSwipeDistance || dx <= dy {
		return nil, fmt.Errorf("%w: swipe (%.0f, %.0f)", ErrIgnoredInput, swipe.DX, swipe.DY)
	}
	if swipe.DX < 0 {
		return c.Advance(ctx)
	}
	return c.Retreat(ctx)
}

func (c *Controller) step(ctx context.Context, op string, next func(p, l int) (int, bool)) (*gateway.Result, error) {
	if !c.authorized() {
		return nil, fmt.Errorf("%w: %s requires control of the event", application.ErrUnauthorized, op)
	}
	snap := c.store.Snapshot()
	if _, ok := snap.SelectedSong(); !ok {
		return nil, ErrNoSong
	}

	p, l := snap.Selection.Position, snap.LineCount()
	to, moved := next(p, l)
	to = clamp(to, l)
	if !moved || to == p {
		return nil, ErrNoChange
	}

	c.logger.DebugContext(ctx, "lyric navigation", "operation", op, "from", p, "to", to, "lines", l)
	return c.sender.Send(ctx, gateway.LyricSelected{Position: to, Action: Direction(p, to)}), nil
}
