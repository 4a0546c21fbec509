package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/example/liveworship/internal/api"
	"github.com/example/liveworship/internal/application"
	"github.com/example/liveworship/internal/authz"
	"github.com/example/liveworship/internal/live"
	"github.com/example/liveworship/internal/socket"
	"github.com/example/liveworship/internal/testfixtures"
	"github.com/example/liveworship/internal/worship"
)

type stubMutations struct {
	mu       sync.Mutex
	lyrics   []worship.Selection
	songs    []string
	err      error
	release  chan struct{}
	received chan struct{}
}

func (s *stubMutations) wait(ctx context.Context) error {
	if s.received != nil {
		s.received <- struct{}{}
	}
	if s.release == nil {
		return nil
	}
	select {
	case <-s.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *stubMutations) SelectLyric(ctx context.Context, eventID string, selection worship.Selection) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.lyrics = append(s.lyrics, selection)
	return nil
}

func (s *stubMutations) SelectSong(ctx context.Context, eventID, songID string) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.songs = append(s.songs, songID)
	return nil
}

func (s *stubMutations) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lyrics) + len(s.songs)
}

type harness struct {
	store     *live.Store
	bus       *testfixtures.Bus
	mutations *stubMutations
	gateway   *Gateway
}

func newHarness(t *testing.T, access AccessFunc) *harness {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := live.NewStore(live.Options{Logger: logger})
	t.Cleanup(store.Close)
	if err := store.SetEvent(testfixtures.NewEvent()); err != nil {
		t.Fatalf("SetEvent failed: %v", err)
	}

	h := &harness{store: store, bus: testfixtures.NewBus(), mutations: &stubMutations{}}
	gw, err := New(Options{
		EventID:   testfixtures.EventID,
		Store:     store,
		Mutations: h.mutations,
		Emitter:   h.bus,
		Access:    access,
		Logger:    logger,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(gw.Close)
	h.gateway = gw
	return h
}

func accessFor(userID string) AccessFunc {
	return func() authz.Access {
		return authz.Resolve(testfixtures.User(userID), testfixtures.Members(), testfixtures.BandID)
	}
}

func waitResult(t *testing.T, r *Result) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := r.Wait(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("result for %s did not resolve", r.Intent().Name())
	}
	return err
}

func TestNewRequiresEventAndStore(t *testing.T) {
	t.Parallel()

	if _, err := New(Options{}); err == nil {
		t.Fatalf("expected error without event id")
	}
	if _, err := New(Options{EventID: testfixtures.EventID}); err == nil {
		t.Fatalf("expected error without store")
	}
}

func TestSendSelectedSongCommitsAfterSuccess(t *testing.T) {
	t.Parallel()

	h := newHarness(t, accessFor(testfixtures.ManagerID))
	h.mutations.release = make(chan struct{})
	h.mutations.received = make(chan struct{}, 1)

	result := h.gateway.Send(context.Background(), EventSelectedSong{SongID: testfixtures.LongSongID})
	<-h.mutations.received
	if h.store.Snapshot().SelectedSongID != "" {
		t.Fatalf("expected no local change before the mutation returns")
	}
	if result.Committed() || result.Err() != nil {
		t.Fatalf("expected unresolved result while in flight")
	}

	close(h.mutations.release)
	if err := waitResult(t, result); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if !result.Committed() {
		t.Fatalf("expected committed result")
	}
	snap := h.store.Snapshot()
	if snap.SelectedSongID != testfixtures.LongSongID || snap.Selection.Position != 0 {
		t.Fatalf("unexpected state %q at %d", snap.SelectedSongID, snap.Selection.Position)
	}
	if len(h.bus.Emitted()) != 0 {
		t.Fatalf("durable intents must not be emitted on the channel")
	}
}

func TestSendLyricSelected(t *testing.T) {
	t.Parallel()

	h := newHarness(t, accessFor(testfixtures.AdminID))
	if err := h.store.SelectSong(testfixtures.LongSongID); err != nil {
		t.Fatalf("SelectSong failed: %v", err)
	}

	result := h.gateway.Send(context.Background(), LyricSelected{Position: 5, Action: worship.ActionForward})
	if err := waitResult(t, result); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if got := h.store.Snapshot().Selection; got.Position != 5 || got.Action != worship.ActionForward {
		t.Fatalf("unexpected selection %#v", got)
	}
	if len(h.mutations.lyrics) != 1 || h.mutations.lyrics[0].Position != 5 {
		t.Fatalf("unexpected mutation calls %#v", h.mutations.lyrics)
	}
}

func TestSendDurableFailureLeavesStateUntouched(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	if err := h.store.SelectSong(testfixtures.LongSongID); err != nil {
		t.Fatalf("SelectSong failed: %v", err)
	}
	before := h.store.Snapshot()
	h.mutations.err = &api.Error{Status: http.StatusForbidden, Message: "not the manager"}

	result := h.gateway.Send(context.Background(), LyricSelected{Position: 4, Action: worship.ActionForward})
	err := waitResult(t, result)
	if !errors.Is(err, application.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if result.Committed() {
		t.Fatalf("expected failed result not to commit")
	}
	if after := h.store.Snapshot(); after.Selection != before.Selection || after.Version != before.Version {
		t.Fatalf("expected state to stay at %#v, got %#v", before.Selection, after.Selection)
	}
}

func TestSendDurableRefusedBeforeNetwork(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		access  AccessFunc
		setup   func(*live.Store) error
		intent  Intent
		wantErr error
	}{
		{
			name:    "plain member",
			access:  accessFor(testfixtures.MemberID),
			intent:  EventSelectedSong{SongID: testfixtures.LongSongID},
			wantErr: application.ErrUnauthorized,
		},
		{
			name:    "unknown song",
			access:  accessFor(testfixtures.ManagerID),
			intent:  EventSelectedSong{SongID: "missing"},
			wantErr: live.ErrUnknownSong,
		},
		{
			name:    "no song selected",
			access:  accessFor(testfixtures.ManagerID),
			intent:  LyricSelected{Position: 1, Action: worship.ActionForward},
			wantErr: ErrInvalidIntent,
		},
		{
			name:    "position past end marker",
			access:  accessFor(testfixtures.ManagerID),
			setup:   func(s *live.Store) error { return s.SelectSong(testfixtures.ShortSongID) },
			intent:  LyricSelected{Position: 5, Action: worship.ActionForward},
			wantErr: ErrInvalidIntent,
		},
		{
			name:    "bad action",
			access:  accessFor(testfixtures.ManagerID),
			setup:   func(s *live.Store) error { return s.SelectSong(testfixtures.ShortSongID) },
			intent:  LyricSelected{Position: 1, Action: "sideways"},
			wantErr: ErrInvalidIntent,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, tc.access)
			if tc.setup != nil {
				if err := tc.setup(h.store); err != nil {
					t.Fatalf("setup failed: %v", err)
				}
			}
			result := h.gateway.Send(context.Background(), tc.intent)
			if err := waitResult(t, result); !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if h.mutations.calls() != 0 {
				t.Fatalf("expected no mutation call")
			}
		})
	}
}

func TestSendTransient(t *testing.T) {
	t.Parallel()

	h := newHarness(t, accessFor(testfixtures.MemberID))
	ctx := context.Background()

	intents := []Intent{
		JoinEvent{},
		GetConnectedUsers{},
		VideoProgress{SongID: testfixtures.LongSongID, Seconds: 3, Playing: true},
		VideoSeek{SongID: testfixtures.LongSongID, Seconds: 30},
		LeaveEvent{},
	}
	for _, intent := range intents {
		result := h.gateway.Send(ctx, intent)
		select {
		case <-result.Done():
		default:
			t.Fatalf("expected %s to resolve synchronously", intent.Name())
		}
		if result.Err() != nil || result.Dropped() {
			t.Fatalf("unexpected outcome for %s: err %v dropped %v", intent.Name(), result.Err(), result.Dropped())
		}
	}

	want := []string{socket.NameJoinEvent, socket.NameGetConnectedUsers, socket.NameVideoProgress, socket.NameVideoSeek, socket.NameLeaveEvent}
	got := h.bus.EmittedNames()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if join, ok := h.bus.Emitted()[0].(socket.JoinEvent); !ok || join.EventID != testfixtures.EventID {
		t.Fatalf("expected join to carry the event id, got %#v", h.bus.Emitted()[0])
	}
	if video := h.store.Snapshot().Video; video.Seconds != 30 || !video.Playing {
		t.Fatalf("unexpected local video state %#v", video)
	}
	if h.mutations.calls() != 0 {
		t.Fatalf("transient intents must not call the mutation API")
	}
}

func TestSendTransientDroppedWhileDisconnected(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.bus.SetConnected(false)

	result := h.gateway.Send(context.Background(), VideoSeek{Seconds: 10})
	if result.Err() != nil || !result.Dropped() || result.Committed() {
		t.Fatalf("expected silent drop, got err %v dropped %v", result.Err(), result.Dropped())
	}
	if h.store.Snapshot().Video.Seconds != 0 {
		t.Fatalf("dropped intents must not touch local state")
	}

	h.bus.SetConnected(true)
	if len(h.bus.Emitted()) != 0 {
		t.Fatalf("dropped intents must not be replayed")
	}
}

func TestSendTransientEmitError(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	boom := errors.New("write failed")
	h.bus.FailEmits(boom)

	if err := h.gateway.Send(context.Background(), JoinEvent{}).Err(); !errors.Is(err, boom) {
		t.Fatalf("expected emit error, got %v", err)
	}
}

func TestCloseCancelsInFlightAndRefusesNewIntents(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.mutations.release = make(chan struct{})
	h.mutations.received = make(chan struct{}, 1)

	result := h.gateway.Send(context.Background(), EventSelectedSong{SongID: testfixtures.GapSongID})
	<-h.mutations.received
	h.gateway.Close()

	if err := waitResult(t, result); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected in-flight call to be cancelled, got %v", err)
	}
	if h.store.Snapshot().SelectedSongID != "" {
		t.Fatalf("cancelled call must not commit")
	}
	if err := h.gateway.Send(context.Background(), JoinEvent{}).Err(); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
