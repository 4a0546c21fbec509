package socket

import (
	"errors"
	"strings"
	"testing"
)

func TestEncodeDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		msg  Message
	}{
		{name: "join", msg: JoinEvent{EventID: "evt-1"}},
		{name: "leave", msg: LeaveEvent{}},
		{name: "roster request", msg: GetConnectedUsers{EventID: "evt-1"}},
		{name: "lyric", msg: LyricSelected{EventID: "evt-1", Position: 5, Action: "forward"}},
		{name: "song", msg: SelectedSong{EventID: "evt-1", SongID: "song-2"}},
		{name: "manager", msg: ManagerChanged{BandID: "band-1", UserID: "user-3", UserName: "Ana"}},
		{name: "updated", msg: EventUpdated{EventID: "evt-1"}},
		{name: "seek", msg: VideoSeek{EventID: "evt-1", SongID: "song-2", Seconds: 12.5}},
		{
			name: "roster",
			msg: UsersUpdate{
				EventID:    "evt-1",
				Users:      []ConnectedUser{{ID: "u1", Name: "Ana"}},
				GuestCount: 2,
				TotalCount: 3,
			},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			frame, err := Encode(tc.msg)
			if err != nil {
				t.Fatalf("Encode returned error: %v", err)
			}
			if !strings.Contains(string(frame), `"event":"`+tc.msg.EventName()+`"`) {
				t.Fatalf("frame %s is missing the event name", frame)
			}

			got, err := Decode(frame)
			if err != nil {
				t.Fatalf("Decode returned error: %v", err)
			}
			if got.EventName() != tc.msg.EventName() {
				t.Fatalf("decoded %q, want %q", got.EventName(), tc.msg.EventName())
			}
		})
	}
}

func TestDecodeRejectsUnknownInput(t *testing.T) {
	t.Parallel()

	frames := map[string]string{
		"unknown name":     `{"event":"chatMessage","data":{"text":"hi"}}`,
		"malformed json":   `{"event":`,
		"wrong field type": `{"event":"lyricSelected","data":{"eventId":"e","position":"two","action":"forward"}}`,
		"invalid action":   `{"event":"lyricSelected","data":{"eventId":"e","position":2,"action":"sideways"}}`,
		"missing event id": `{"event":"eventSelectedSong","data":{"songId":"s"}}`,
		"negative guests":  `{"event":"eventUsersUpdate","data":{"eventId":"e","guestCount":-1}}`,
	}

	for name, frame := range frames {
		if _, err := Decode([]byte(frame)); !errors.Is(err, ErrUnknownMessage) {
			t.Fatalf("%s: expected ErrUnknownMessage, got %v", name, err)
		}
	}
}

func TestDecodeSelectedSongAllowsClearing(t *testing.T) {
	t.Parallel()

	msg, err := Decode([]byte(`{"event":"eventSelectedSong","data":{"eventId":"e","songId":""}}`))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if song, ok := msg.(SelectedSong); !ok || song.SongID != "" {
		t.Fatalf("unexpected message %#v", msg)
	}
}

func TestEncodeValidates(t *testing.T) {
	t.Parallel()

	if _, err := Encode(JoinEvent{}); err == nil {
		t.Fatalf("expected missing event id to fail")
	}
	if _, err := Encode(LyricSelected{EventID: "e", Position: -1, Action: "forward"}); err == nil {
		t.Fatalf("expected negative position to fail")
	}
	if _, err := Encode(nil); err == nil {
		t.Fatalf("expected nil message to fail")
	}
}
