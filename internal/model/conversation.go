// Package model defines data structures for the drafting platform.
package model

import (
	"time"
)

// Conversation is the durable per-site container of all sessions and
// messages. It is created lazily the first time a site is referenced and
// is never deleted.
type Conversation struct {
	ID        string    `json:"id"`
	Site      string    `json:"site"`
	CreatedAt time.Time `json:"created_at"`
}

// StartSessionRequest is the request to start a session.
type StartSessionRequest struct {
	Site string `json:"site"`
}

// StartSessionResponse is the response after starting a session.
type StartSessionResponse struct {
	OK             bool      `json:"ok"`
	Site           string    `json:"site"`
	ConversationID string    `json:"conversationId"`
	SessionID      string    `json:"sessionId"`
	StartedAt      time.Time `json:"startedAt"`
	RequestID      string    `json:"requestId,omitempty"`
}
