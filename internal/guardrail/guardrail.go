// Package guardrail enforces per-message and per-session limits before any
// write. Validators are pure: they never mutate state.
package guardrail

import (
	"strings"
	"unicode/utf8"

	"github.com/convergo/drafting-platform/internal/apperr"
)

// Limits holds the configured guardrail caps.
type Limits struct {
	MessageMaxChars    int
	SessionMaxMessages int
}

// DefaultLimits are the caps used when configuration is absent.
func DefaultLimits() Limits {
	return Limits{
		MessageMaxChars:    4000,
		SessionMaxMessages: 80,
	}
}

// CheckContent validates message content against the per-message rules.
// Content must be non-empty after trimming and within the character cap.
// The cap counts characters, not bytes, so multi-byte text is not
// penalized.
func CheckContent(content string, limits Limits) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return apperr.New(apperr.KindMissingContent, "content is required")
	}
	if n := utf8.RuneCountInString(trimmed); n > limits.MessageMaxChars {
		return apperr.Newf(apperr.KindMessageTooLong,
			"content too long: %d chars (max %d)", n, limits.MessageMaxChars)
	}
	return nil
}

// CheckSessionCount validates the per-session message-count cap. The count
// is read before the write; a concurrent writer racing near the cap may
// admit one extra message, an accepted soft bound.
func CheckSessionCount(current int, limits Limits) error {
	if current >= limits.SessionMaxMessages {
		return apperr.Newf(apperr.KindSessionMessageLimit,
			"session message limit reached: %d messages (max %d)", current, limits.SessionMaxMessages)
	}
	return nil
}
