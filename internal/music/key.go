// Package music implements key and chord transposition over a fixed key wheel.
package music

import "strings"

// wheel is the canonical ordered key list. Every semitone occupies two
// adjacent slots: the even slot carries the natural or sharp spelling, the odd
// slot the natural or flat spelling. A transpose step of one semitone therefore
// moves two slots and never changes lane.
var wheel = [...]string{
	"C", "C",
	"C#", "Db",
	"D", "D",
	"D#", "Eb",
	"E", "E",
	"F", "F",
	"F#", "Gb",
	"G", "G",
	"G#", "Ab",
	"A", "A",
	"A#", "Bb",
	"B", "B",
}

// WheelSize is the number of slots in the key wheel.
const WheelSize = len(wheel)

// slotsPerSemitone is the slot distance of one user-facing transpose step.
const slotsPerSemitone = 2

// Key is a position on the key wheel. The zero value is not a valid key; use
// ParseKey to obtain one.
type Key struct {
	slot  int
	minor bool
	valid bool
}

// ParseKey resolves a key name such as "G", "Bb", "F#m" or "Ebm". Naturals and
// sharps resolve to the sharp lane, flats to the flat lane. Blank or unknown
// names report false.
func ParseKey(name string) (Key, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Key{}, false
	}

	minor := false
	root := name
	if strings.HasSuffix(root, "m") && len(root) > 1 {
		minor = true
		root = strings.TrimSuffix(root, "m")
	}

	slot, ok := slotOf(root)
	if !ok {
		return Key{}, false
	}
	return Key{slot: slot, minor: minor, valid: true}, true
}

// MustParseKey is ParseKey for compile-time constants; it panics on unknown names.
func MustParseKey(name string) Key {
	k, ok := ParseKey(name)
	if !ok {
		panic("music: unknown key " + name)
	}
	return k
}

func slotOf(root string) (int, bool) {
	root = normalizeRoot(root)
	flat := strings.HasSuffix(root, "b") && len(root) == 2
	for i, candidate := range wheel {
		if candidate != root {
			continue
		}
		if flat && i%2 == 0 {
			continue
		}
		return i, true
	}
	return 0, false
}

func normalizeRoot(root string) string {
	if root == "" {
		return root
	}
	return strings.ToUpper(root[:1]) + root[1:]
}

// Valid reports whether the key was produced by ParseKey.
func (k Key) Valid() bool {
	return k.valid
}

// Minor reports whether the key is a minor key.
func (k Key) Minor() bool {
	return k.minor
}

// Root returns the key's note spelling without the minor suffix.
func (k Key) Root() string {
	if !k.valid {
		return ""
	}
	return wheel[k.slot]
}

// String renders the key name, e.g. "Bb" or "C#m".
func (k Key) String() string {
	if !k.valid {
		return ""
	}
	if k.minor {
		return wheel[k.slot] + "m"
	}
	return wheel[k.slot]
}

// Transpose moves the key by offset semitone steps. Each step is two wheel
// slots; the result is wrapped into the wheel.
func (k Key) Transpose(offset int) Key {
	if !k.valid {
		return k
	}
	k.slot = wrap(k.slot + offset*slotsPerSemitone)
	return k
}

// Transpose is the string form of Key.Transpose. An empty or unknown key
// yields an empty result.
func Transpose(name string, offset int) string {
	k, ok := ParseKey(name)
	if !ok {
		return ""
	}
	return k.Transpose(offset).String()
}

func wrap(slot int) int {
	slot %= WheelSize
	if slot < 0 {
		slot += WheelSize
	}
	return slot
}
