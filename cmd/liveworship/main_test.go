package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/websocket"

	"github.com/example/liveworship/internal/auth"
	"github.com/example/liveworship/internal/authz"
	"github.com/example/liveworship/internal/config"
	"github.com/example/liveworship/internal/testfixtures"
)

func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /bands/band-1/events/evt-1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(testfixtures.NewEvent())
	})
	mux.HandleFunc("GET /bands/band-1/members", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(testfixtures.Members())
	})
	mux.HandleFunc("PUT /events/evt-1/selected-song", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// channelMessage is one envelope received by fakeChannel, tagged with the
// 1-based number of the connection it arrived on.
type channelMessage struct {
	conn int
	name string
}

// fakeChannel accepts socket connections and reports the names of the
// messages it receives.
type fakeChannel struct {
	url      string
	messages chan channelMessage

	mu    sync.Mutex
	conns []*websocket.Conn
}

func newFakeChannel(t *testing.T) *fakeChannel {
	t.Helper()
	fc := &fakeChannel{messages: make(chan channelMessage, 32)}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		fc.mu.Lock()
		fc.conns = append(fc.conns, conn)
		n := len(fc.conns)
		fc.mu.Unlock()

		for {
			var envelope struct {
				Event string `json:"event"`
			}
			if err := conn.ReadJSON(&envelope); err != nil {
				return
			}
			fc.messages <- channelMessage{conn: n, name: envelope.Event}
		}
	}))
	t.Cleanup(srv.Close)
	fc.url = "ws" + strings.TrimPrefix(srv.URL, "http")
	return fc
}

// drop cuts connection n without a close frame.
func (fc *fakeChannel) drop(t *testing.T, n int) {
	t.Helper()
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if n > len(fc.conns) {
		t.Fatalf("connection %d was never opened", n)
	}
	_ = fc.conns[n-1].Close()
}

func testConfig(t *testing.T, apiURL, socketURL string) config.Config {
	t.Helper()
	return config.Config{
		APIURL:         apiURL,
		SocketURL:      socketURL,
		BandID:         testfixtures.BandID,
		EventID:        testfixtures.EventID,
		PreferencesDSN: filepath.Join(t.TempDir(), "preferences.db"),
		RosterPoll:     time.Minute,
		RequestTimeout: 2 * time.Second,
		EventScope:     authz.ScopeBand,
	}
}

func (fc *fakeChannel) next(t *testing.T) channelMessage {
	t.Helper()
	select {
	case msg := <-fc.messages:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatalf("no message reached the channel")
		return channelMessage{}
	}
}

// expect reads len(want) messages. Messages of one connection must arrive in
// order; connections may interleave.
func (fc *fakeChannel) expect(t *testing.T, want ...channelMessage) {
	t.Helper()
	var got []channelMessage
	for range want {
		got = append(got, fc.next(t))
	}
	for conn := 1; conn <= 8; conn++ {
		var g, w []string
		for _, m := range got {
			if m.conn == conn {
				g = append(g, m.name)
			}
		}
		for _, m := range want {
			if m.conn == conn {
				w = append(w, m.name)
			}
		}
		if strings.Join(g, ",") != strings.Join(w, ",") {
			t.Fatalf("connection %d received %v, want %v (all %v)", conn, g, w, got)
		}
	}
}

func signedToken(t *testing.T, userID, name string) string {
	t.Helper()
	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Name: name,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

// joinedApp starts the console against fakeChannel with a configured manager
// token and waits for the room join.
func joinedApp(t *testing.T) (*app, *fakeChannel) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	channel := newFakeChannel(t)
	cfg := testConfig(t, fakeAPI(t).URL, channel.url)
	cfg.Token = signedToken(t, testfixtures.ManagerID, "Mo Manager")

	a, err := newApp(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("newApp failed: %v", err)
	}
	t.Cleanup(a.Close)

	channel.expect(t,
		channelMessage{conn: 1, name: "joinEvent"},
		channelMessage{conn: 1, name: "getConnectedUsers"},
	)
	return a, channel
}

func TestAppServesEventWithoutSession(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig(t, fakeAPI(t).URL, "ws://127.0.0.1:1/unused")
	a, err := newApp(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("newApp failed: %v", err)
	}
	t.Cleanup(a.Close)

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/live/state", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("state status = %d", rec.Code)
	}
	var state struct {
		EventID   string `json:"eventId"`
		Connected bool   `json:"connected"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.EventID != testfixtures.EventID || state.Connected {
		t.Fatalf("unexpected state %+v", state)
	}

	rec = httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/live/song", strings.NewReader(`{"songId":"song-long"}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("song select without session = %d, want 401", rec.Code)
	}
}

func TestAppJoinsRoomWithConfiguredToken(t *testing.T) {
	t.Parallel()

	a, channel := joinedApp(t)

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/live/song", strings.NewReader(`{"songId":"song-long"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("song select status = %d body %s", rec.Code, rec.Body.String())
	}
	if got := a.store.Snapshot().SelectedSongID; got != testfixtures.LongSongID {
		t.Fatalf("selected song = %q", got)
	}

	a.Close()
	channel.expect(t, channelMessage{conn: 1, name: "leaveEvent"})
}

func TestAppRejoinsRoomOnRelogin(t *testing.T) {
	t.Parallel()

	a, channel := joinedApp(t)

	body := `{"token":"` + signedToken(t, testfixtures.AdminID, "Ada Admin") + `"}`
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/session", strings.NewReader(body)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("login status = %d body %s", rec.Code, rec.Body.String())
	}

	channel.expect(t,
		channelMessage{conn: 1, name: "leaveEvent"},
		channelMessage{conn: 2, name: "joinEvent"},
		channelMessage{conn: 2, name: "getConnectedUsers"},
	)
	if !a.sockets.Connected() {
		t.Fatalf("expected the fresh connection to be up")
	}
}

func TestAppRejoinsRoomAfterDroppedConnection(t *testing.T) {
	t.Parallel()

	a, channel := joinedApp(t)
	first := a.sockets.Current()

	channel.drop(t, 1)
	channel.expect(t,
		channelMessage{conn: 2, name: "joinEvent"},
		channelMessage{conn: 2, name: "getConnectedUsers"},
	)
	if a.sockets.Current() == first || !a.sockets.Connected() {
		t.Fatalf("expected the console to be connected on a fresh socket")
	}

	a.Close()
	channel.expect(t, channelMessage{conn: 2, name: "leaveEvent"})
}
