package socket

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newEventServer(t *testing.T) string {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token-1" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				return
			}
			msg, err := Decode(frame)
			if err != nil {
				continue
			}
			join, ok := msg.(JoinEvent)
			if !ok {
				continue
			}
			reply, _ := Encode(LyricSelected{EventID: join.EventID, Position: 3, Action: "forward"})
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"chatMessage","data":{}}`))
			_ = conn.WriteMessage(websocket.TextMessage, reply)
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClientRoundTrip(t *testing.T) {
	t.Parallel()

	url := newEventServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := Dial(ctx, DialOptions{URL: url, Token: "token-1", Logger: quietLogger()})
	if err != nil {
		t.Fatalf("Dial returned error: %v", err)
	}
	if client.ID() == "" || client.State() != StateConnected {
		t.Fatalf("expected a connected client with an id, got %q/%s", client.ID(), client.State())
	}

	received := make(chan Message, 4)
	client.On(NameLyricSelected, func(msg Message) { received <- msg })

	if err := client.Emit(ctx, JoinEvent{EventID: "evt-1"}); err != nil {
		t.Fatalf("Emit returned error: %v", err)
	}

	select {
	case msg := <-received:
		lyric, ok := msg.(LyricSelected)
		if !ok || lyric.EventID != "evt-1" || lyric.Position != 3 {
			t.Fatalf("unexpected broadcast %#v", msg)
		}
	case <-ctx.Done():
		t.Fatalf("timed out waiting for broadcast")
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if err := client.Emit(ctx, JoinEvent{EventID: "evt-1"}); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("expected ErrDisconnected after close, got %v", err)
	}
}

func TestClientUnsubscribe(t *testing.T) {
	t.Parallel()

	url := newEventServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := Dial(ctx, DialOptions{URL: url, Token: "token-1", Logger: quietLogger()})
	if err != nil {
		t.Fatalf("Dial returned error: %v", err)
	}
	defer client.Close()

	removed := make(chan Message, 1)
	kept := make(chan Message, 1)
	unsubscribe := client.On(NameLyricSelected, func(msg Message) { removed <- msg })
	client.On(AnyEvent, func(msg Message) { kept <- msg })
	unsubscribe()

	if err := client.Emit(ctx, JoinEvent{EventID: "evt-1"}); err != nil {
		t.Fatalf("Emit returned error: %v", err)
	}

	select {
	case <-kept:
	case <-ctx.Done():
		t.Fatalf("timed out waiting for broadcast")
	}
	select {
	case msg := <-removed:
		t.Fatalf("unsubscribed handler received %#v", msg)
	default:
	}
}

func TestDialRejectsBadToken(t *testing.T) {
	t.Parallel()

	url := newEventServer(t)
	if _, err := Dial(context.Background(), DialOptions{URL: url, Token: "wrong", Logger: quietLogger()}); err == nil {
		t.Fatalf("expected dial with a rejected token to fail")
	}
	if _, err := Dial(context.Background(), DialOptions{}); err == nil {
		t.Fatalf("expected dial without url to fail")
	}
}

func TestManagerSessionLifecycle(t *testing.T) {
	t.Parallel()

	url := newEventServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	manager := NewManagerWithLogger(url, quietLogger())
	if err := manager.Emit(ctx, JoinEvent{EventID: "evt-1"}); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("expected ErrDisconnected before login, got %v", err)
	}

	received := make(chan Message, 4)
	manager.On(NameLyricSelected, func(msg Message) { received <- msg })

	if err := manager.Login(ctx, "token-1"); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	first := manager.Current()
	if !manager.Connected() {
		t.Fatalf("expected manager to be connected after login")
	}

	if err := manager.Login(ctx, "token-1"); err != nil {
		t.Fatalf("second Login returned error: %v", err)
	}
	if manager.Current() == first {
		t.Fatalf("expected login to dial a fresh connection")
	}
	if first.Connected() {
		t.Fatalf("expected previous connection to be closed")
	}

	if err := manager.Emit(ctx, JoinEvent{EventID: "evt-9"}); err != nil {
		t.Fatalf("Emit returned error: %v", err)
	}
	select {
	case msg := <-received:
		if msg.(LyricSelected).EventID != "evt-9" {
			t.Fatalf("unexpected broadcast %#v", msg)
		}
	case <-ctx.Done():
		t.Fatalf("timed out waiting for broadcast")
	}

	if err := manager.Login(ctx, ""); err != nil {
		t.Fatalf("Login with empty token returned error: %v", err)
	}
	if manager.Current() != nil || manager.State() != StateDisconnected {
		t.Fatalf("expected empty token to leave the socket closed")
	}
}
