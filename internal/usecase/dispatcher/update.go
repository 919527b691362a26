package dispatcher

import (
	"strings"
	"unicode"
)

// UpdateKind classifies an inbound chat event
type UpdateKind int

const (
	KindCommand UpdateKind = iota
	KindText
	KindCallback
)

// Update is a transport-neutral inbound chat event
type Update struct {
	Kind       UpdateKind
	ActorID    int64  // Sender identity
	Username   string // Sender handle, may be empty
	ChatID     int64
	MessageID  int    // For callbacks, the message carrying the button
	Command    string // Without the leading slash
	Args       string // Raw text after the command
	Text       string // Message text, or the button payload of a callback
	CallbackID string
}

// splitArgs splits s on whitespace into at most n fields.
// The last field keeps the rest of the input, inner spacing included.
func splitArgs(s string, n int) []string {
	var out []string

	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	for s != "" {
		if len(out) == n-1 {
			out = append(out, strings.TrimRightFunc(s, unicode.IsSpace))
			break
		}

		i := strings.IndexFunc(s, unicode.IsSpace)
		if i < 0 {
			out = append(out, s)
			break
		}
		out = append(out, s[:i])
		s = strings.TrimLeftFunc(s[i:], unicode.IsSpace)
	}

	return out
}
