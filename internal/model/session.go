package model

import (
	"time"
)

// Session is one bounded, terminable conversational episode within a
// Conversation. A session is ACTIVE while EndedAt is nil and ENDED once it
// is set; EndedAt is set at most once and never changes afterwards.
type Session struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	StartedAt      time.Time  `json:"started_at"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
}

// Ended reports whether the session has been terminated.
func (s *Session) Ended() bool {
	return s.EndedAt != nil
}

// EndSessionRequest is the request to end a session and publish its draft.
type EndSessionRequest struct {
	Site      string `json:"site"`
	SessionID string `json:"sessionId"`
}

// EndSessionResponse is the uniform result envelope for a successful
// end-session pipeline run.
type EndSessionResponse struct {
	OK           bool      `json:"ok"`
	Site         string    `json:"site"`
	SessionID    string    `json:"sessionId"`
	StartedAt    time.Time `json:"startedAt"`
	EndedAt      time.Time `json:"endedAt"`
	MessageCount int       `json:"messageCount"`
	WPPostID     int       `json:"wpPostId"`
	WPLink       string    `json:"wpLink,omitempty"`
	RequestID    string    `json:"requestId,omitempty"`
}
