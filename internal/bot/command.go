package bot

import (
	"strings"
	"unicode"

	"github.com/rshade/ysyunhei/internal/onebot"
)

// Command is one parsed chat command.
type Command struct {
	Name string
	Args []string
}

// Arg returns the i-th argument or "".
func (c Command) Arg(i int) string {
	if i < 0 || i >= len(c.Args) {
		return ""
	}
	return c.Args[i]
}

// Parse splits a raw CQ message into a command. When prefix is non-empty the
// message must start with it. Names are matched case-insensitively and
// returned lower-cased; ok is false for anything that is not a command.
func Parse(prefix, raw string) (Command, bool) {
	text := strings.TrimSpace(onebot.UnescapeText(raw))
	if prefix != "" {
		var found bool
		if text, found = strings.CutPrefix(text, prefix); !found {
			return Command{}, false
		}
	}

	fields := splitArgs(text)
	if len(fields) == 0 {
		return Command{}, false
	}
	return Command{Name: strings.ToLower(fields[0]), Args: fields[1:]}, true
}

// splitArgs splits on whitespace. A double-quoted run, ASCII or “full
// width”, is kept as one argument so descriptions may contain spaces.
func splitArgs(s string) []string {
	var (
		out     []string
		cur     strings.Builder
		quote   rune
		started bool
	)
	flush := func() {
		if started {
			out = append(out, cur.String())
		}
		cur.Reset()
		started = false
	}

	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
				continue
			}
			cur.WriteRune(r)
		case r == '"':
			quote, started = '"', true
		case r == '“':
			quote, started = '”', true
		case unicode.IsSpace(r):
			flush()
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	flush()
	return out
}
