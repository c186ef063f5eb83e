package command

import (
	"strings"
)

const Prefix = "!"

type ID string

const (
	IDCheck ID = "check"
	IDJoin  ID = "join"
	IDLoud  ID = "loud"
	IDQuiet ID = "quiet"
	IDPing  ID = "ping"
	IDStop  ID = "stop"
)

var aliases = map[string]ID{
	"check":          IDCheck,
	"isuntrustedbot": IDCheck,
	"iub":            IDCheck,
	"join":           IDJoin,
	"loud":           IDLoud,
	"quiet":          IDQuiet,
	"ping":           IDPing,
	"stop":           IDStop,
}

type Command struct {
	Name string
	Args []string
}

// Arg returns the i-th argument or "" when there is none.
func (c Command) Arg(i int) string {
	if i < 0 || i >= len(c.Args) {
		return ""
	}
	return c.Args[i]
}

// Resolve maps the command name or one of its aliases to its canonical id.
func (c Command) Resolve() (ID, bool) {
	id, ok := aliases[strings.ToLower(c.Name)]
	return id, ok
}

// Parse splits a chat message into a command. Tokens are separated by single
// spaces, so consecutive spaces produce empty arguments.
func Parse(message string) (Command, bool) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Command{}, false
	}

	parts := strings.Split(message, " ")
	if !strings.HasPrefix(parts[0], Prefix) {
		return Command{}, false
	}

	name := strings.TrimPrefix(parts[0], Prefix)
	if name == "" {
		return Command{}, false
	}

	return Command{Name: name, Args: parts[1:]}, true
}
