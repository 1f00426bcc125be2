package model

import (
	"strings"
	"time"
)

// Role identifies the speaker of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// NormalizeRole maps free-text role input onto the closed role set.
// Anything that is not exactly "assistant" after trimming becomes "user",
// including the empty string.
func NormalizeRole(raw string) Role {
	if strings.TrimSpace(raw) == string(RoleAssistant) {
		return RoleAssistant
	}
	return RoleUser
}

// Message is one immutable turn in a conversation. SessionID is empty for
// messages recorded against the conversation outside any session; such
// messages can be listed but never drafted.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SessionID      string    `json:"session_id,omitempty"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// WriteMessageRequest is the request to append a message.
type WriteMessageRequest struct {
	Site      string `json:"site"`
	SessionID string `json:"sessionId,omitempty"`
	Role      string `json:"role"`
	Content   string `json:"content"`
}

// WriteMessageResponse is the response after appending a message.
type WriteMessageResponse struct {
	OK        bool     `json:"ok"`
	Site      string   `json:"site"`
	Message   *Message `json:"message"`
	RequestID string   `json:"requestId,omitempty"`
}

// ListMessagesResponse is the response for listing messages.
type ListMessagesResponse struct {
	OK        bool      `json:"ok"`
	Site      string    `json:"site"`
	Messages  []Message `json:"messages"`
	RequestID string    `json:"requestId,omitempty"`
}

// ChatRequest is the request for a companion reply.
type ChatRequest struct {
	Site      string `json:"site"`
	SessionID string `json:"sessionId,omitempty"`
	Message   string `json:"message"`
}

// ChatResponse is the response carrying the companion reply.
type ChatResponse struct {
	Reply     string `json:"reply"`
	RequestID string `json:"requestId,omitempty"`
}
