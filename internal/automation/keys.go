// Copyright 2025 Joseph Cumines
//
// Key name to macOS virtual key code mapping

package automation

import (
	"sort"
	"strings"
)

// DefaultKeyCode is the code for the return key. Unknown key names resolve
// to it.
const DefaultKeyCode = 36

var keyCodes = map[string]int{
	"return":    36,
	"enter":     36,
	"escape":    53,
	"esc":       53,
	"tab":       48,
	"space":     49,
	"delete":    51,
	"backspace": 51,
	"up":        126,
	"down":      125,
	"left":      123,
	"right":     124,
	"a":         0,
	"c":         8,
	"v":         9,
	"x":         7,
	"z":         6,
}

// LookupKeyCode returns the key code for name, case-insensitively, and
// whether name is a known key.
func LookupKeyCode(name string) (int, bool) {
	code, ok := keyCodes[strings.ToLower(name)]
	return code, ok
}

// KeyCode returns the key code for name. Unknown names silently map to
// DefaultKeyCode, so a typo in a key name presses return.
func KeyCode(name string) int {
	if code, ok := LookupKeyCode(name); ok {
		return code
	}
	return DefaultKeyCode
}

// KeyNames returns the supported key names, sorted.
func KeyNames() []string {
	names := make([]string, 0, len(keyCodes))
	for k := range keyCodes {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
