package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RouterConfig wires the console handlers. Session guards the routes that
// act on behalf of the logged-in user; nil leaves them unguarded.
type RouterConfig struct {
	Live       *LiveHandler
	Events     *EventHandler
	Sessions   *SessionHandler
	Session    func(http.Handler) http.Handler
	Middleware []func(http.Handler) http.Handler
}

// NewRouter builds the console router.
func NewRouter(cfg RouterConfig) http.Handler {
	router := mux.NewRouter()
	fallback := newResponder(nil)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fallback.writeJSON(r.Context(), w, http.StatusNotFound, errorResponse{ErrorCode: "NOT_FOUND", Message: statusMessage(http.StatusNotFound)})
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fallback.writeJSON(r.Context(), w, http.StatusMethodNotAllowed, errorResponse{ErrorCode: "METHOD_NOT_ALLOWED", Message: http.StatusText(http.StatusMethodNotAllowed)})
	})

	guard := func(h http.HandlerFunc) http.Handler {
		if cfg.Session == nil {
			return h
		}
		return cfg.Session(h)
	}

	if sessions := cfg.Sessions; sessions != nil {
		router.HandleFunc("/session", sessions.Current).Methods(http.MethodGet)
		router.HandleFunc("/session", sessions.Create).Methods(http.MethodPost)
		router.HandleFunc("/session", sessions.Delete).Methods(http.MethodDelete)
	}

	if live := cfg.Live; live != nil {
		router.HandleFunc("/live/state", live.State).Methods(http.MethodGet)
		router.HandleFunc("/live/stream", live.Stream).Methods(http.MethodGet)
		router.Handle("/live/advance", guard(live.Advance)).Methods(http.MethodPost)
		router.Handle("/live/retreat", guard(live.Retreat)).Methods(http.MethodPost)
		router.Handle("/live/keys", guard(live.Key)).Methods(http.MethodPost)
		router.Handle("/live/swipe", guard(live.Swipe)).Methods(http.MethodPost)
		router.Handle("/live/position", guard(live.Position)).Methods(http.MethodPut)
		router.Handle("/live/song", guard(live.Song)).Methods(http.MethodPut)
		router.HandleFunc("/live/view", live.View).Methods(http.MethodPut)
		router.HandleFunc("/presence", live.Presence).Methods(http.MethodGet)
		router.HandleFunc("/preferences", live.Preferences).Methods(http.MethodGet)
		router.HandleFunc("/preferences", live.UpdatePreferences).Methods(http.MethodPut)
		router.HandleFunc("/print", live.PrintHTML).Methods(http.MethodGet)
		router.HandleFunc("/print.md", live.PrintMarkdown).Methods(http.MethodGet)
	}

	if events := cfg.Events; events != nil {
		router.Handle("/event", guard(events.UpdateDetails)).Methods(http.MethodPatch)
		router.Handle("/event/manager", guard(events.ChangeManager)).Methods(http.MethodPut)
		router.Handle("/event/songs", guard(events.AddSong)).Methods(http.MethodPost)
		router.Handle("/event/songs/order", guard(events.ReorderSongs)).Methods(http.MethodPut)
		router.Handle("/event/songs/{id}", guard(events.RemoveSong)).Methods(http.MethodDelete)
		router.Handle("/event/songs/{id}/transpose", guard(events.Transpose)).Methods(http.MethodPut)
	}

	var handler http.Handler = router
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}
	return handler
}
