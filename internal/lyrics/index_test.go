package lyrics

import (
	"testing"

	"github.com/example/liveworship/internal/worship"
)

func line(position int, structure worship.Structure) worship.Lyric {
	return worship.Lyric{ID: "l" + string(rune('0'+position)), Position: position, Structure: structure, Lyrics: "text"}
}

func gappedSong() []worship.Lyric {
	// Deliberately unsorted with a gap at position 4.
	return []worship.Lyric{
		line(6, worship.StructureBridge),
		line(1, worship.StructureVerse),
		line(3, worship.StructureChorus),
		line(2, worship.StructureVerse),
		line(5, worship.StructureChorus),
	}
}

func TestGroupByStructure(t *testing.T) {
	t.Parallel()

	groups := GroupByStructure(gappedSong())
	want := []struct {
		structure worship.Structure
		positions []int
	}{
		{worship.StructureVerse, []int{1, 2}},
		{worship.StructureChorus, []int{3, 5}},
		{worship.StructureBridge, []int{6}},
	}

	if len(groups) != len(want) {
		t.Fatalf("expected %d groups, got %d", len(want), len(groups))
	}
	for i, g := range groups {
		if g.Structure != want[i].structure {
			t.Fatalf("group %d: structure %q, want %q", i, g.Structure, want[i].structure)
		}
		if len(g.Lines) != len(want[i].positions) {
			t.Fatalf("group %d: %d lines, want %d", i, len(g.Lines), len(want[i].positions))
		}
		for j, l := range g.Lines {
			if l.Position != want[i].positions[j] {
				t.Fatalf("group %d line %d: position %d, want %d", i, j, l.Position, want[i].positions[j])
			}
		}
	}
}

func TestGroupByStructureSplitsRepeatedTags(t *testing.T) {
	t.Parallel()

	groups := GroupByStructure([]worship.Lyric{
		line(1, worship.StructureVerse),
		line(2, worship.StructureChorus),
		line(3, worship.StructureVerse),
	})
	if len(groups) != 3 {
		t.Fatalf("expected non-contiguous verse to open a new group, got %d groups", len(groups))
	}
}

func TestGroupByStructurePreservesLines(t *testing.T) {
	t.Parallel()

	input := gappedSong()
	var flattened []worship.Lyric
	for _, g := range GroupByStructure(input) {
		flattened = append(flattened, g.Lines...)
	}
	if len(flattened) != len(input) {
		t.Fatalf("expected %d lines after grouping, got %d", len(input), len(flattened))
	}
	for i := 1; i < len(flattened); i++ {
		if flattened[i-1].Position >= flattened[i].Position {
			t.Fatalf("grouped lines out of order at %d", i)
		}
	}

	if got := GroupByStructure(nil); len(got) != 0 {
		t.Fatalf("expected no groups for empty input")
	}
}

func TestVisibleSlice(t *testing.T) {
	t.Parallel()

	t.Run("gap counts as missing predecessor", func(t *testing.T) {
		t.Parallel()

		window := VisibleSlice(gappedSong(), 3)
		wantPositions := []int{3, 5, 6}
		wantLabels := []bool{true, true, true}
		if len(window) != len(wantPositions) {
			t.Fatalf("expected %d lines, got %d", len(wantPositions), len(window))
		}
		for i, vl := range window {
			if vl.Position != wantPositions[i] {
				t.Fatalf("line %d: position %d, want %d", i, vl.Position, wantPositions[i])
			}
			if vl.ShowSectionLabel != wantLabels[i] {
				t.Fatalf("line %d: label %v, want %v", i, vl.ShowSectionLabel, wantLabels[i])
			}
		}
	})

	t.Run("same section continues without label", func(t *testing.T) {
		t.Parallel()

		window := VisibleSlice(gappedSong(), 1)
		if len(window) != WindowSize {
			t.Fatalf("expected full window, got %d", len(window))
		}
		labels := []bool{window[0].ShowSectionLabel, window[1].ShowSectionLabel, window[2].ShowSectionLabel, window[3].ShowSectionLabel}
		want := []bool{true, false, true, true}
		for i := range want {
			if labels[i] != want[i] {
				t.Fatalf("labels = %v, want %v", labels, want)
			}
		}
	})

	t.Run("window is bounded and increasing", func(t *testing.T) {
		t.Parallel()

		var lines []worship.Lyric
		for p := 1; p <= 12; p++ {
			lines = append(lines, line(p, worship.StructureVerse))
		}
		for from := 0; from <= 14; from++ {
			window := VisibleSlice(lines, from)
			if len(window) > WindowSize {
				t.Fatalf("from %d: window of %d lines", from, len(window))
			}
			for i, vl := range window {
				if vl.Position < from {
					t.Fatalf("from %d: position %d precedes start", from, vl.Position)
				}
				if i > 0 && window[i-1].Position >= vl.Position {
					t.Fatalf("from %d: positions not strictly increasing", from)
				}
			}
		}
	})

	t.Run("past the end is empty", func(t *testing.T) {
		t.Parallel()

		if window := VisibleSlice(gappedSong(), 7); len(window) != 0 {
			t.Fatalf("expected empty window, got %d lines", len(window))
		}
	})
}

func TestNextPreviewLine(t *testing.T) {
	t.Parallel()

	var lines []worship.Lyric
	for p := 1; p <= 6; p++ {
		lines = append(lines, line(p, worship.StructureVerse))
	}

	next, ok := NextPreviewLine(lines, 1)
	if !ok || next.Position != 5 {
		t.Fatalf("expected preview of position 5, got %v (ok=%v)", next.Position, ok)
	}

	if _, ok := NextPreviewLine(lines, 3); ok {
		t.Fatalf("expected no preview when window reaches the last line")
	}

	// window is 1,2,3,5 and position 6 exists
	if next, ok := NextPreviewLine(gappedSong(), 1); !ok || next.Position != 6 {
		t.Fatalf("expected preview of position 6 after 1,2,3,5, got %v (ok=%v)", next.Position, ok)
	}

	if _, ok := NextPreviewLine(nil, 0); ok {
		t.Fatalf("expected no preview for empty song")
	}
}

func TestAddressableCount(t *testing.T) {
	t.Parallel()

	lines := append(gappedSong(), line(3, worship.StructureChorus))
	if got := AddressableCount(lines); got != 5 {
		t.Fatalf("expected 5 distinct positions, got %d", got)
	}
}
