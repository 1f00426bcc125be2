// Package apperr defines the stable error taxonomy surfaced by the API.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a stable machine-readable error category.
type Kind string

const (
	// Guardrail violations, detected before any write.
	KindMissingContent      Kind = "MISSING_CONTENT"
	KindMessageTooLong      Kind = "MESSAGE_TOO_LONG"
	KindSessionMessageLimit Kind = "SESSION_MESSAGE_LIMIT_REACHED"

	// State-consistency violations.
	KindSessionNotFound      Kind = "SESSION_NOT_FOUND"
	KindConversationNotFound Kind = "CONVERSATION_NOT_FOUND"
	KindSessionEnded         Kind = "SESSION_ENDED"

	// End-session precondition: the session stays active so the caller
	// can add a message and retry.
	KindNoMessages Kind = "NO_MESSAGES"

	// External-call failures.
	KindDraftGenerationFailed Kind = "DRAFT_GENERATION_FAILED"
	KindWPAuthFailed          Kind = "WP_AUTH_FAILED"
	KindWPForbidden           Kind = "WP_FORBIDDEN"
	KindWPDraftFailed         Kind = "WP_DRAFT_FAILED"

	// Storage layer unreachable.
	KindPersistenceUnavailable Kind = "PERSISTENCE_UNAVAILABLE"

	KindBadRequest Kind = "BAD_REQUEST"
	KindInternal   Kind = "INTERNAL"
)

// Error carries a kind, a client-safe message, and an optional wrapped cause.
// The cause is logged server-side and never rendered to clients.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error with a kind and client-safe message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an error with a formatted client-safe message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause for server-side diagnostics.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of err, or KindInternal for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Message returns the client-safe message of err. Untyped errors are
// sanitized to a generic message.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}

// HTTPStatus maps an error kind to an HTTP status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindMissingContent, KindMessageTooLong, KindSessionMessageLimit,
		KindNoMessages, KindBadRequest:
		return http.StatusBadRequest
	case KindSessionNotFound, KindConversationNotFound:
		return http.StatusNotFound
	case KindSessionEnded:
		return http.StatusConflict
	case KindWPAuthFailed, KindWPForbidden:
		return http.StatusBadGateway
	case KindDraftGenerationFailed, KindWPDraftFailed:
		return http.StatusBadGateway
	case KindPersistenceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
