// Package lyrics derives section groups and the projected window from a
// song's lyric lines.
package lyrics

import (
	"sort"

	"github.com/example/liveworship/internal/worship"
)

// WindowSize is the number of lines projected at once.
const WindowSize = 4

// Group is a contiguous run of lines sharing one structure tag.
type Group struct {
	Structure worship.Structure
	Lines     []worship.Lyric
}

// VisibleLine is a projected line plus whether its section header is drawn.
type VisibleLine struct {
	worship.Lyric
	ShowSectionLabel bool
}

// Sorted returns a copy of lines ordered by position.
func Sorted(lines []worship.Lyric) []worship.Lyric {
	out := make([]worship.Lyric, len(lines))
	copy(out, lines)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// GroupByStructure splits the position-ordered lines into runs of equal
// structure. A tag that reappears later starts a new group.
func GroupByStructure(lines []worship.Lyric) []Group {
	sorted := Sorted(lines)
	groups := make([]Group, 0)
	for _, line := range sorted {
		n := len(groups)
		if n > 0 && groups[n-1].Structure == line.Structure {
			groups[n-1].Lines = append(groups[n-1].Lines, line)
			continue
		}
		groups = append(groups, Group{Structure: line.Structure, Lines: []worship.Lyric{line}})
	}
	return groups
}

// VisibleSlice returns up to WindowSize lines at or after fromPosition.
//
// A line shows its section label when it opens the window, or when the line
// at position-1 is missing or carries a different structure.
func VisibleSlice(lines []worship.Lyric, fromPosition int) []VisibleLine {
	byPosition := make(map[int]worship.Lyric, len(lines))
	for _, line := range lines {
		byPosition[line.Position] = line
	}

	out := make([]VisibleLine, 0, WindowSize)
	for _, line := range Sorted(lines) {
		if line.Position < fromPosition {
			continue
		}
		if len(out) == WindowSize {
			break
		}
		show := len(out) == 0
		if !show {
			prev, ok := byPosition[line.Position-1]
			show = !ok || prev.Structure != line.Structure
		}
		out = append(out, VisibleLine{Lyric: line, ShowSectionLabel: show})
	}
	return out
}

// NextPreviewLine returns the line one position past the end of the visible
// window, if it exists.
func NextPreviewLine(lines []worship.Lyric, fromPosition int) (worship.Lyric, bool) {
	window := VisibleSlice(lines, fromPosition)
	if len(window) == 0 {
		return worship.Lyric{}, false
	}
	want := window[len(window)-1].Position + 1
	for _, line := range lines {
		if line.Position == want {
			return line, true
		}
	}
	return worship.Lyric{}, false
}

// AddressableCount is the number of distinct lyric positions in the song.
func AddressableCount(lines []worship.Lyric) int {
	seen := make(map[int]struct{}, len(lines))
	for _, line := range lines {
		seen[line.Position] = struct{}{}
	}
	return len(seen)
}
