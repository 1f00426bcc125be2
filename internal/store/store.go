// Package store provides persistence for conversations, sessions, and
// messages.
package store

import (
	"context"

	"github.com/convergo/drafting-platform/internal/model"
)

// Store is the persistence interface consumed by the service layer.
//
// Implementations must provide atomic upsert-on-first-use for conversations
// and set-once semantics for a session's ended_at. Any storage-layer failure
// is reported as an apperr error with kind PERSISTENCE_UNAVAILABLE so
// callers can choose whether to degrade or propagate.
type Store interface {
	// UpsertConversation returns the conversation for site, creating it
	// atomically if absent.
	UpsertConversation(ctx context.Context, site string) (*model.Conversation, error)

	// GetConversationBySite returns the conversation for site, or a
	// CONVERSATION_NOT_FOUND error.
	GetConversationBySite(ctx context.Context, site string) (*model.Conversation, error)

	// CreateSession creates a new active session under a conversation.
	CreateSession(ctx context.Context, conversationID string) (*model.Session, error)

	// GetSession returns a session by ID, or a SESSION_NOT_FOUND error.
	GetSession(ctx context.Context, sessionID string) (*model.Session, error)

	// EndSession sets ended_at if it is still null and returns the session.
	// Calling it on an already-ended session is a no-op that preserves the
	// original ended_at.
	EndSession(ctx context.Context, sessionID string) (*model.Session, error)

	// CreateMessage appends an immutable message.
	CreateMessage(ctx context.Context, msg *model.Message) error

	// ListConversationMessages returns messages for a conversation in
	// created_at order, insertion order breaking ties. limit <= 0 means
	// no limit.
	ListConversationMessages(ctx context.Context, conversationID string, limit int) ([]model.Message, error)

	// ListSessionMessages returns a session's messages in created_at order.
	ListSessionMessages(ctx context.Context, conversationID, sessionID string) ([]model.Message, error)

	// CountSessionMessages returns the number of messages in a session.
	CountSessionMessages(ctx context.Context, sessionID string) (int, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying resources.
	Close() error
}
