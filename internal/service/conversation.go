// Package service provides business logic for the drafting platform.
package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/convergo/drafting-platform/internal/apperr"
	"github.com/convergo/drafting-platform/internal/model"
	"github.com/convergo/drafting-platform/internal/store"
	"github.com/convergo/drafting-platform/pkg/logger"
)

// NormalizeSite trims the site identifier and applies the default namespace.
func NormalizeSite(site string) string {
	site = strings.TrimSpace(site)
	if site == "" {
		return "default"
	}
	return site
}

// ConversationService handles conversation-scoped operations.
type ConversationService struct {
	store  store.Store
	logger *logger.Logger
}

// NewConversationService creates a new conversation service.
func NewConversationService(st store.Store, log *logger.Logger) *ConversationService {
	return &ConversationService{
		store:  st,
		logger: log,
	}
}

// Ensure returns the conversation for a site, creating it on first use.
func (s *ConversationService) Ensure(ctx context.Context, site string) (*model.Conversation, error) {
	return s.store.UpsertConversation(ctx, site)
}

// ListMessages returns ordered messages for a site, optionally scoped to a
// session. History reads are fail-soft: if storage is unavailable the
// result degrades to an empty list rather than surfacing the outage to the
// reader. State errors (unknown session) still propagate.
func (s *ConversationService) ListMessages(ctx context.Context, requestID, site, sessionID string) ([]model.Message, error) {
	conv, err := s.Ensure(ctx, site)
	if err != nil {
		return s.degradeRead(requestID, site, err)
	}

	if sessionID == "" {
		msgs, err := s.store.ListConversationMessages(ctx, conv.ID, 200)
		if err != nil {
			return s.degradeRead(requestID, site, err)
		}
		return msgs, nil
	}

	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		if apperr.Is(err, apperr.KindPersistenceUnavailable) {
			return s.degradeRead(requestID, site, err)
		}
		return nil, err
	}
	if sess.ConversationID != conv.ID {
		return nil, apperr.New(apperr.KindSessionNotFound, "session not found for site")
	}

	msgs, err := s.store.ListSessionMessages(ctx, conv.ID, sessionID)
	if err != nil {
		return s.degradeRead(requestID, site, err)
	}
	return msgs, nil
}

func (s *ConversationService) degradeRead(requestID, site string, err error) ([]model.Message, error) {
	if !apperr.Is(err, apperr.KindPersistenceUnavailable) {
		return nil, err
	}
	s.logger.Warn("history read degraded to empty result",
		zap.String("request_id", requestID),
		zap.String("site", site),
		zap.Error(err),
	)
	return []model.Message{}, nil
}
