// Package transcript renders a session's messages as the ordered,
// size-bounded text blob sent to the draft composer.
package transcript

import (
	"strings"
	"unicode/utf8"

	"github.com/convergo/drafting-platform/internal/model"
)

// Caps bound transcript size. When a session is too long to send in full,
// the most recent turns are the most relevant drafting context, so
// truncation keeps the tail of the conversation.
type Caps struct {
	MaxMessages int
	MaxChars    int
}

// DefaultCaps are the truncation bounds used when configuration is absent.
func DefaultCaps() Caps {
	return Caps{
		MaxMessages: 120,
		MaxChars:    120000,
	}
}

// Build renders messages as "ROLE: content" blocks separated by blank
// lines, in chronological order. Caps are applied walking backward from
// the newest message; at least one message is always kept, so a non-empty
// input never yields an empty transcript.
func Build(messages []model.Message, caps Caps) string {
	if len(messages) == 0 {
		return ""
	}

	kept := truncate(messages, caps)

	lines := make([]string, len(kept))
	for i, m := range kept {
		lines[i] = strings.ToUpper(string(m.Role)) + ": " + m.Content
	}
	return strings.Join(lines, "\n\n")
}

func truncate(messages []model.Message, caps Caps) []model.Message {
	var chars int
	start := len(messages)

	for i := len(messages) - 1; i >= 0; i-- {
		next := chars + utf8.RuneCountInString(messages[i].Content)
		if start < len(messages) {
			if caps.MaxMessages > 0 && len(messages)-i > caps.MaxMessages {
				break
			}
			if caps.MaxChars > 0 && next > caps.MaxChars {
				break
			}
		}
		chars = next
		start = i
	}

	return messages[start:]
}
