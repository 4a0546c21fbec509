package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/example/liveworship/internal/api"
	"github.com/example/liveworship/internal/application"
	"github.com/example/liveworship/internal/auth"
	"github.com/example/liveworship/internal/authz"
	"github.com/example/liveworship/internal/config"
	"github.com/example/liveworship/internal/gateway"
	httptransport "github.com/example/liveworship/internal/http"
	"github.com/example/liveworship/internal/live"
	"github.com/example/liveworship/internal/navigation"
	"github.com/example/liveworship/internal/persistence/sqlite"
	"github.com/example/liveworship/internal/presence"
	"github.com/example/liveworship/internal/socket"
	"github.com/example/liveworship/internal/worship"
)

// app owns every long-lived component of one open event view.
type app struct {
	logger   *slog.Logger
	db       *sqlite.DB
	session  *auth.Session
	sockets  *socket.Manager
	store    *live.Store
	binder   *live.Binder
	gateway  *gateway.Gateway
	tracker  *presence.Tracker
	handler  http.Handler
	unbind   []func()
	closeOne sync.Once
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	return newAppWithDialer(ctx, cfg, logger, nil)
}

// newAppWithDialer wires the console. A nil dial uses the gorilla dialer
// against cfg.SocketURL.
func newAppWithDialer(ctx context.Context, cfg config.Config, logger *slog.Logger, dial socket.DialFunc) (*app, error) {
	db, err := sqlite.OpenWithLogger(cfg.PreferencesDSN, logger)
	if err != nil {
		return nil, fmt.Errorf("open preferences: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate preferences: %w", err)
	}

	a := &app{logger: logger, db: db}
	a.session = auth.NewSessionWithLogger(time.Now, logger)
	if dial == nil {
		a.sockets = socket.NewManagerWithLogger(cfg.SocketURL, logger)
	} else {
		a.sockets = socket.NewManagerWithDialer(dial, logger)
	}

	client, err := api.New(api.Options{
		BaseURL: cfg.APIURL,
		Token:   a.session.Token,
		Timeout: cfg.RequestTimeout,
		Logger:  logger,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	events := application.NewEventServiceWithLogger(client, logger)

	a.store = live.NewStore(live.Options{
		Preferences: sqlite.NewPreferenceRepository(db, time.Now),
		Connection:  a.sockets,
		Logger:      logger,
	})
	if err := a.store.LoadPreferences(ctx); err != nil {
		logger.Warn("using default display preferences", "error", err)
	}

	if cfg.Token != "" {
		if _, err := a.session.Login(ctx, cfg.Token); err != nil {
			logger.Warn("configured token rejected; console starts logged out", "error", err)
		}
	}

	loadEvent := func(ctx context.Context) (worship.Event, error) {
		return events.LoadEvent(ctx, application.LoadEventParams{BandID: cfg.BandID, EventID: cfg.EventID})
	}
	event, err := loadEvent(ctx)
	if err == nil {
		err = a.store.SetEvent(event)
	}
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load event: %w", err)
	}
	if members, err := events.Memberships(ctx, cfg.BandID); err != nil {
		logger.Warn("band memberships unavailable; controls stay read-only", "error", err)
	} else if err := a.store.SetMembers(members); err != nil {
		a.Close()
		return nil, err
	}

	a.binder = live.Bind(a.store, a.sockets, cfg.EventID, live.BindOptions{Refetch: loadEvent, Logger: logger})

	access := func() authz.Access {
		principal, ok := a.session.Principal()
		if !ok {
			return authz.Access{}
		}
		return authz.Resolve(principal.User(), a.store.Snapshot().Members, cfg.BandID)
	}

	a.gateway, err = gateway.New(gateway.Options{
		EventID:   cfg.EventID,
		Store:     a.store,
		Mutations: client,
		Emitter:   a.sockets,
		Access:    access,
		Timeout:   cfg.RequestTimeout,
		Logger:    logger,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	a.tracker = presence.NewTracker(presence.Options{
		EventID:      cfg.EventID,
		Sender:       a.gateway,
		Subscriber:   a.sockets,
		Connection:   a.sockets,
		Observer:     cfg.Observer,
		PollInterval: cfg.RosterPoll,
		Logger:       logger,
	})

	// The room is joined once the socket is up and left before it closes.
	// A redialed socket announces the view again.
	a.unbind = append(a.unbind,
		a.sockets.OnReconnect(a.tracker.Rejoin),
		a.session.Bind(ctx, presenceConnector{sockets: a.sockets, tracker: a.tracker}),
	)

	controller := navigation.NewController(navigation.Options{
		Store:  a.store,
		Sender: a.gateway,
		Access: access,
		Logger: logger,
	})

	a.handler = httptransport.NewRouter(httptransport.RouterConfig{
		Sessions: httptransport.NewSessionHandler(a.session, logger),
		Live: httptransport.NewLiveHandler(httptransport.LiveConfig{
			State:         a.store,
			Navigator:     controller,
			Sender:        a.gateway,
			Presence:      a.tracker,
			IntentTimeout: cfg.RequestTimeout,
			Logger:        logger,
		}),
		Events:     httptransport.NewEventHandlerWithLogger(events, a.store, cfg.EventScope, logger),
		Session:    httptransport.RequireSession(a.session, logger),
		Middleware: []func(http.Handler) http.Handler{httptransport.RequestLogger(logger, nil)},
	})
	return a, nil
}

func (a *app) Handler() http.Handler {
	return a.handler
}

// Close tears the view down in reverse order of construction.
func (a *app) Close() {
	a.closeOne.Do(func() {
		for _, unbind := range a.unbind {
			unbind()
		}
		if a.tracker != nil {
			a.tracker.Stop(context.Background())
		}
		if a.gateway != nil {
			a.gateway.Close()
		}
		if a.binder != nil {
			a.binder.Close()
		}
		a.sockets.Logout()
		a.store.Close()
		if err := a.db.Close(); err != nil {
			a.logger.Error("failed to close preferences", "error", err)
		}
	})
}

// presenceConnector dials the socket before joining the room and leaves the
// room before the socket closes.
type presenceConnector struct {
	sockets *socket.Manager
	tracker *presence.Tracker
}

// Login leaves the room on the previous connection, if any, so the fresh
// one joins it again.
func (c presenceConnector) Login(ctx context.Context, token string) error {
	c.tracker.Stop(ctx)
	if err := c.sockets.Login(ctx, token); err != nil {
		return err
	}
	c.tracker.Start(ctx)
	return nil
}

func (c presenceConnector) Logout() {
	c.tracker.Stop(context.Background())
	c.sockets.Logout()
}
