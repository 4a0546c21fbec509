package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/liveworship/internal/worship"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(Options{
		BaseURL: srv.URL + "/v1/",
		Token:   func() string { return "token-1" },
		Timeout: 2 * time.Second,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return client
}

func TestGetEvent(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/v1/bands/band-1/events/evt-1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer token-1" {
			t.Errorf("missing bearer token")
		}
		_ = json.NewEncoder(w).Encode(worship.Event{
			ID:     "evt-1",
			Title:  "Sunday",
			BandID: "band-1",
			Songs:  []worship.EventSong{{ID: "es-1", Order: 1, Song: worship.Song{ID: "song-1", Title: "Grace"}}},
		})
	})

	event, err := client.GetEvent(context.Background(), "band-1", "evt-1")
	if err != nil {
		t.Fatalf("GetEvent returned error: %v", err)
	}
	if event.ID != "evt-1" || len(event.Songs) != 1 || event.Songs[0].Song.Title != "Grace" {
		t.Fatalf("unexpected event %#v", event)
	}
}

func TestMutationsSendBodies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		method string
		path   string
		want   string
		call   func(*Client) error
	}{
		{
			name:   "add song",
			method: http.MethodPost,
			path:   "/v1/events/evt-1/songs",
			want:   `{"songId":"song-2"}`,
			call: func(c *Client) error {
				_, err := c.AddSong(context.Background(), "evt-1", "song-2")
				return err
			},
		},
		{
			name:   "reorder",
			method: http.MethodPut,
			path:   "/v1/events/evt-1/songs/order",
			want:   `{"eventSongIds":["es-2","es-1"]}`,
			call: func(c *Client) error {
				_, err := c.ReorderSongs(context.Background(), "evt-1", []string{"es-2", "es-1"})
				return err
			},
		},
		{
			name:   "transpose",
			method: http.MethodPatch,
			path:   "/v1/events/evt-1/songs/es-1",
			want:   `{"transpose":-2}`,
			call: func(c *Client) error {
				_, err := c.UpdateTranspose(context.Background(), "evt-1", "es-1", -2)
				return err
			},
		},
		{
			name:   "lyric selection",
			method: http.MethodPut,
			path:   "/v1/events/evt-1/lyric-selection",
			want:   `{"position":5,"action":"forward"}`,
			call: func(c *Client) error {
				return c.SelectLyric(context.Background(), "evt-1", worship.Selection{Position: 5, Action: worship.ActionForward})
			},
		},
		{
			name:   "selected song",
			method: http.MethodPut,
			path:   "/v1/events/evt-1/selected-song",
			want:   `{"songId":"song-1"}`,
			call: func(c *Client) error {
				return c.SelectSong(context.Background(), "evt-1", "song-1")
			},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != tc.method || r.URL.Path != tc.path {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				raw, _ := io.ReadAll(r.Body)
				if string(raw) != tc.want {
					t.Errorf("body = %s, want %s", raw, tc.want)
				}
				if r.Header.Get("Content-Type") != "application/json" {
					t.Errorf("missing content type")
				}
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(`{}`))
			})

			if err := tc.call(client); err != nil {
				t.Fatalf("call returned error: %v", err)
			}
		})
	}
}

func TestSetEventManager(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/bands/band-1/event-manager" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"bandId":"band-1","userId":"user-2","userName":"Bea"}`))
	})

	got, err := client.SetEventManager(context.Background(), "band-1", "user-2")
	if err != nil {
		t.Fatalf("SetEventManager returned error: %v", err)
	}
	if got.UserName != "Bea" || got.UserID != "user-2" {
		t.Fatalf("unexpected assignment %#v", got)
	}
}

func TestErrorResponses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		body     string
		wantCode string
		wantMsg  string
	}{
		{name: "structured", status: http.StatusConflict, body: `{"code":"song_already_in_event","message":"Song is already in event"}`, wantCode: "song_already_in_event", wantMsg: "Song is already in event"},
		{name: "legacy error field", status: http.StatusBadRequest, body: `{"error":"Song already added"}`, wantMsg: "Song already added"},
		{name: "plain text", status: http.StatusForbidden, body: "forbidden\n", wantMsg: "forbidden"},
		{name: "empty", status: http.StatusInternalServerError, body: "", wantMsg: "Internal Server Error"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := client.AddSong(context.Background(), "evt-1", "song-1")
			var apiErr *Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if apiErr.Status != tc.status || apiErr.Code != tc.wantCode || apiErr.Message != tc.wantMsg {
				t.Fatalf("unexpected error %#v", apiErr)
			}
			if StatusOf(err) != tc.status {
				t.Fatalf("StatusOf = %d, want %d", StatusOf(err), tc.status)
			}
		})
	}
}

func TestNewRejectsInvalidBaseURL(t *testing.T) {
	t.Parallel()

	if _, err := New(Options{BaseURL: "not a url"}); err == nil {
		t.Fatalf("expected invalid base url to fail")
	}
}
