package presence

import (
	"fmt"
	"strings"
)

// Connecting is shown while the channel is down.
const Connecting = "connecting..."

// Summarize renders a roster as "Ada, Mel and 2 guests are connected".
func Summarize(r Roster) string {
	parts := make([]string, 0, len(r.Users)+1)
	for _, u := range r.Users {
		parts = append(parts, u.Name)
	}
	switch {
	case r.Guests == 1:
		parts = append(parts, "1 guest")
	case r.Guests > 1:
		parts = append(parts, fmt.Sprintf("%d guests", r.Guests))
	}

	if len(parts) == 0 {
		return "No one is connected"
	}
	verb := "are"
	if r.Total == 1 {
		verb = "is"
	}
	return fmt.Sprintf("%s %s connected", joinNames(parts), verb)
}

func joinNames(parts []string) string {
	if len(parts) == 1 {
		return parts[0]
	}
	return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
}
