// Package macro parses the line-oriented macro language into an executable
// command tree. The parser is lenient: lines it does not recognize are
// skipped, and key names are not validated here (the keyboard layer drops
// unmapped names when rendering reports). The only fatal parse condition is
// malformed loop nesting.
package macro

import (
	"fmt"
	"time"

	"github.com/veltalldev/hid-server/internal/keyboard"
)

// CommandKind discriminates the command tree node variants.
type CommandKind int

const (
	// KindKey presses, releases or taps a single key.
	KindKey CommandKind = iota
	// KindSleep waits for a fixed duration.
	KindSleep
	// KindLoop repeats its body a fixed number of times, or forever.
	KindLoop
)

// Command is one node of a parsed macro. The tree is immutable once built;
// executors hold a read-only reference to it.
type Command struct {
	Kind CommandKind

	// KindKey
	Key  string
	Edge keyboard.Edge

	// KindSleep
	Duration time.Duration

	// KindLoop. A nil Count repeats forever.
	Count *int
	Body  []Command
}

// ParseError reports malformed loop nesting in macro source. All other
// oddities in the source are skipped silently.
type ParseError struct {
	Line int // 1-based line number
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d: %s", e.Line, e.Msg)
}
