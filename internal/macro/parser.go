package macro

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/veltalldev/hid-server/internal/keyboard"
)

// Prefix matches, not whole-line matches: trailing text after a recognized
// construct is tolerated, the same permissiveness the macro format has
// always had.
var (
	loopRe  = regexp.MustCompile(`^Loop(?:,\s*(\d+))?`)
	sendRe  = regexp.MustCompile(`^Send,\s*\{(.+?)\}`)
	sleepRe = regexp.MustCompile(`^Sleep,\s*(\d+)`)
)

// cursor is an explicit position over the source lines, shared by the
// nested sequence parsers so a loop body consumes its lines exactly once.
type cursor struct {
	lines []string
	pos   int
}

// next returns the next trimmed line and advances. ok is false at the end
// of the source.
func (c *cursor) next() (line string, ok bool) {
	if c.pos >= len(c.lines) {
		return "", false
	}
	line = strings.TrimSpace(c.lines[c.pos])
	c.pos++
	return line, true
}

// lineNo is the 1-based number of the line most recently returned by next.
func (c *cursor) lineNo() int {
	return c.pos
}

// Parse converts macro source text into a command sequence. It fails only
// on malformed loop nesting: a loop header without a `{` body, or a body
// the source ends before closing.
func Parse(source string) ([]Command, error) {
	cur := &cursor{lines: strings.Split(source, "\n")}
	cmds, err := parseSequence(cur, false)
	if err != nil {
		return nil, err
	}
	return cmds, nil
}

// parseSequence scans commands until the end of the source, or, inside a
// loop body, until the matching closing brace.
func parseSequence(cur *cursor, inBody bool) ([]Command, error) {
	var cmds []Command
	for {
		line, ok := cur.next()
		if !ok {
			if inBody {
				return nil, &ParseError{Line: cur.lineNo(), Msg: "unclosed loop body"}
			}
			return cmds, nil
		}

		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}
		if inBody && line == "}" {
			return cmds, nil
		}

		if m := loopRe.FindStringSubmatch(line); m != nil {
			loop, err := parseLoop(cur, m[1])
			if err != nil {
				return nil, err
			}
			cmds = append(cmds, loop)
			continue
		}
		if m := sendRe.FindStringSubmatch(line); m != nil {
			if cmd, ok := parseSend(m[1]); ok {
				cmds = append(cmds, cmd)
			}
			continue
		}
		if m := sleepRe.FindStringSubmatch(line); m != nil {
			ms, err := strconv.ParseUint(m[1], 10, 32)
			if err != nil {
				continue
			}
			cmds = append(cmds, Command{Kind: KindSleep, Duration: time.Duration(ms) * time.Millisecond})
			continue
		}

		// Anything else is skipped, including stray braces outside a body.
	}
}

// parseLoop consumes the `{`-delimited body following a loop header.
func parseLoop(cur *cursor, countStr string) (Command, error) {
	headerLine := cur.lineNo()

	var count *int
	if countStr != "" {
		n, err := strconv.Atoi(countStr)
		if err != nil {
			return Command{}, &ParseError{Line: headerLine, Msg: "invalid loop count"}
		}
		count = &n
	}

	// The opening brace must be the next significant line.
	for {
		line, ok := cur.next()
		if !ok {
			return Command{}, &ParseError{Line: headerLine, Msg: "loop header without body"}
		}
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}
		if line != "{" {
			return Command{}, &ParseError{Line: cur.lineNo(), Msg: "expected '{' after loop header"}
		}
		break
	}

	body, err := parseSequence(cur, true)
	if err != nil {
		return Command{}, err
	}
	return Command{Kind: KindLoop, Count: count, Body: body}, nil
}

// parseSend decomposes the braced part of a key-action line: "a Down",
// "space Up", or a bare key name meaning tap. Key names are lower-cased;
// a two-token form with an unrecognized edge is dropped.
func parseSend(content string) (Command, bool) {
	parts := strings.Fields(content)
	if len(parts) == 2 {
		key := strings.ToLower(parts[0])
		switch strings.ToLower(parts[1]) {
		case "down":
			return Command{Kind: KindKey, Key: key, Edge: keyboard.EdgeDown}, true
		case "up":
			return Command{Kind: KindKey, Key: key, Edge: keyboard.EdgeUp}, true
		default:
			return Command{}, false
		}
	}
	return Command{Kind: KindKey, Key: strings.ToLower(content), Edge: keyboard.EdgeTap}, true
}
