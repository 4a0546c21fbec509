// Package navigation turns keyboard and swipe input into lyric position
// changes for the authorized controller.
package navigation

import "github.com/example/liveworship/internal/worship"

// Advance computes the next lyric position from current position p for a
// song with l addressable lines. It reports false when no branch applies.
//
// Advancing moves in chunks of four so every step reveals a fresh window.
// Position 0 (not started) steps to 1, the last line steps to the l+1 end
// marker, and a chunk that would overshoot lands on l.
func Advance(p, l int) (int, bool) {
	next := p
	switch {
	case p == l:
		next = l + 1
	case p < l && l > 4 && p+3 <= l:
		if p < l-3 && p < 1 {
			next = p + 1
		} else {
			next = p + 4
		}
	case p < l && l > 0 && l < 4:
		next = 1
	case p < l && p+3 > l:
		next = l
	default:
		return p, false
	}
	next = clamp(next, l)
	return next, next != p
}

// Retreat computes the previous lyric position. Inside the first window it
// steps one line at a time, otherwise a chunk of four.
func Retreat(p int) (int, bool) {
	switch {
	case p <= 0:
		return 0, false
	case p <= 4:
		return p - 1, true
	default:
		return p - 4, true
	}
}

// Direction returns the selection action for moving from one position to
// another.
func Direction(from, to int) string {
	if to > from {
		return worship.ActionForward
	}
	return worship.ActionBackward
}

func clamp(p, l int) int {
	if p < 0 {
		return 0
	}
	if p > l+1 {
		return l + 1
	}
	return p
}
