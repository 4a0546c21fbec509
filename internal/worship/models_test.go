package worship

import "testing"

func TestAssignManagerKeepsSingleManager(t *testing.T) {
	t.Parallel()

	members := []Membership{
		{BandID: "band-1", UserID: "u1", IsEventManager: true},
		{BandID: "band-1", UserID: "u2"},
		{BandID: "band-1", UserID: "u3"},
		{BandID: "band-2", UserID: "u1", IsEventManager: true},
	}

	got := AssignManager(members, "band-1", "u2")

	managers := 0
	for _, m := range got {
		if m.BandID == "band-1" && m.IsEventManager {
			managers++
			if m.UserID != "u2" {
				t.Fatalf("expected u2 to manage band-1, got %s", m.UserID)
			}
		}
	}
	if managers != 1 {
		t.Fatalf("expected exactly one manager, got %d", managers)
	}
	if !got[3].IsEventManager {
		t.Fatalf("expected other bands to keep their manager")
	}
	if !members[0].IsEventManager {
		t.Fatalf("expected input to be left untouched")
	}

	if m, ok := ManagerOf(got, "band-1"); !ok || m.UserID != "u2" {
		t.Fatalf("ManagerOf = %#v, %v", m, ok)
	}
	if _, ok := ManagerOf(got, "band-9"); ok {
		t.Fatalf("expected no manager for unknown band")
	}
}

func TestClampTranspose(t *testing.T) {
	t.Parallel()

	for input, want := range map[int]int{-9: -6, -6: -6, 0: 0, 4: 4, 7: 6} {
		if got := ClampTranspose(input); got != want {
			t.Fatalf("ClampTranspose(%d) = %d, want %d", input, got, want)
		}
	}
}

func TestRenumberAndSort(t *testing.T) {
	t.Parallel()

	event := Event{Songs: []EventSong{{ID: "c", Order: 7}, {ID: "a", Order: 2}, {ID: "b", Order: 4}}}
	sorted := Renumber(event.SortedSongs())

	for i, want := range []string{"a", "b", "c"} {
		if sorted[i].ID != want || sorted[i].Order != i+1 {
			t.Fatalf("position %d = %s/%d, want %s/%d", i, sorted[i].ID, sorted[i].Order, want, i+1)
		}
	}
	if event.Songs[0].Order != 7 {
		t.Fatalf("expected original slice to be left untouched")
	}
}

func TestEventCloneIsDeep(t *testing.T) {
	t.Parallel()

	key := "G"
	event := Event{Songs: []EventSong{{Song: Song{ID: "s", Key: &key, Lyrics: []Lyric{{Position: 1, Lyrics: "a"}}}}}}
	clone := event.Clone()
	*clone.Songs[0].Song.Key = "A"
	clone.Songs[0].Song.Lyrics[0].Lyrics = "b"

	if event.Songs[0].Song.KeyName() != "G" || event.Songs[0].Song.Lyrics[0].Lyrics != "a" {
		t.Fatalf("expected clone mutations not to leak into the original")
	}
	if _, ok := event.FindSong("s"); !ok {
		t.Fatalf("expected FindSong to locate the song")
	}
}
