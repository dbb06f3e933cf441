package keymap

import (
	"fmt"
	"strings"
)

// ParseCombo splits a combo string like "ctrl+alt+delete" into its key
// names, in order. Each part must resolve to a known key; parts are trimmed
// and lower-cased.
func ParseCombo(combo string) ([]string, error) {
	parts := strings.Split(combo, "+")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		name := strings.ToLower(strings.TrimSpace(p))
		if name == "" {
			return nil, fmt.Errorf("empty key in combo %q", combo)
		}
		if _, ok := codes[name]; !ok {
			return nil, fmt.Errorf("unknown key %q in combo %q", name, combo)
		}
		keys = append(keys, name)
	}
	return keys, nil
}
