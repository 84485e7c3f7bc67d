package seed

import (
	"strings"
	"unicode"
)

// UnknownEvent labels event folders whose name has no letter at all.
const UnknownEvent = "Unknown event"

// NormalizeEvent strips ordering prefixes from an event folder name by
// keeping the substring that starts at the first letter:
//
//	"01 - Summer Trip" -> "Summer Trip"
//	"2019"             -> "Unknown event"
func NormalizeEvent(name string) string {
	i := strings.IndexFunc(name, unicode.IsLetter)
	if i < 0 {
		return UnknownEvent
	}
	return strings.TrimSpace(name[i:])
}
