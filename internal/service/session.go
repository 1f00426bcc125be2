package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/convergo/drafting-platform/internal/apperr"
	"github.com/convergo/drafting-platform/internal/composer"
	"github.com/convergo/drafting-platform/internal/events"
	"github.com/convergo/drafting-platform/internal/model"
	"github.com/convergo/drafting-platform/internal/store"
	"github.com/convergo/drafting-platform/internal/transcript"
	"github.com/convergo/drafting-platform/pkg/logger"
	"github.com/convergo/drafting-platform/pkg/metrics"
)

// DraftComposer turns a transcript into a Draft.
type DraftComposer interface {
	Compose(ctx context.Context, site, transcript string) (*model.Draft, error)
}

// DraftPublisher pushes a composed draft to the external content system.
type DraftPublisher interface {
	CreateDraft(ctx context.Context, title, contentHTML, requestID string) (*model.PublishResult, error)
}

// SessionService governs the session state machine and runs the
// end-session pipeline.
type SessionService struct {
	store     store.Store
	composer  DraftComposer
	publisher DraftPublisher
	caps      transcript.Caps
	events    *events.Publisher
	logger    *logger.Logger
}

// NewSessionService creates a new session service. events may be nil.
func NewSessionService(
	st store.Store,
	comp DraftComposer,
	pub DraftPublisher,
	caps transcript.Caps,
	ev *events.Publisher,
	log *logger.Logger,
) *SessionService {
	return &SessionService{
		store:     st,
		composer:  comp,
		publisher: pub,
		caps:      caps,
		events:    ev,
		logger:    log,
	}
}

// Start creates a new session under the site's conversation, creating the
// conversation on first use.
func (s *SessionService) Start(ctx context.Context, requestID, site string) (*model.StartSessionResponse, error) {
	site = NormalizeSite(site)

	conv, err := s.store.UpsertConversation(ctx, site)
	if err != nil {
		return nil, err
	}

	sess, err := s.store.CreateSession(ctx, conv.ID)
	if err != nil {
		return nil, err
	}

	metrics.SessionsStartedTotal.WithLabelValues(site).Inc()
	s.events.Publish(ctx, events.Event{
		Type:      events.TypeSessionStarted,
		Site:      site,
		SessionID: sess.ID,
		RequestID: requestID,
	})

	s.logger.WithRequest(requestID, site).Info("session started",
		zap.String("session_id", sess.ID),
	)

	return &model.StartSessionResponse{
		OK:             true,
		Site:           site,
		ConversationID: conv.ID,
		SessionID:      sess.ID,
		StartedAt:      sess.StartedAt,
		RequestID:      requestID,
	}, nil
}

// End runs the end-session pipeline: resolve the session, build the
// transcript, compose the draft, publish it, then mark the session ended.
//
// Termination commits only after a successful publish, so NO_MESSAGES and
// transient pipeline failures leave the session active and the call
// retryable. Re-ending an already-ended session re-runs the pipeline but
// preserves the original ended_at (set-once termination).
func (s *SessionService) End(ctx context.Context, requestID, site, sessionID string) (*model.EndSessionResponse, error) {
	site = NormalizeSite(site)
	sessionID = strings.TrimSpace(sessionID)

	resp, err := s.end(ctx, requestID, site, sessionID)
	if err != nil {
		metrics.SessionsEndedTotal.WithLabelValues(site, string(apperr.KindOf(err))).Inc()
		return nil, err
	}
	metrics.SessionsEndedTotal.WithLabelValues(site, "success").Inc()
	return resp, nil
}

func (s *SessionService) end(ctx context.Context, requestID, site, sessionID string) (*model.EndSessionResponse, error) {
	if sessionID == "" {
		return nil, apperr.New(apperr.KindBadRequest, "sessionId is required")
	}

	conv, err := s.store.GetConversationBySite(ctx, site)
	if err != nil {
		return nil, err
	}

	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.ConversationID != conv.ID {
		return nil, apperr.New(apperr.KindSessionNotFound, "session not found for site")
	}

	msgs, err := s.store.ListSessionMessages(ctx, conv.ID, sessionID)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, apperr.New(apperr.KindNoMessages, "session has no messages")
	}

	if s.composer == nil {
		return nil, apperr.New(apperr.KindDraftGenerationFailed, "generation capability not configured")
	}
	if s.publisher == nil {
		return nil, apperr.New(apperr.KindWPDraftFailed, "publishing not configured")
	}

	log := s.logger.WithRequest(requestID, site)

	blob := transcript.Build(msgs, s.caps)

	draft, err := s.composer.Compose(ctx, site, blob)
	if err != nil {
		log.Error("draft composition failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return nil, err
	}

	published, err := s.publisher.CreateDraft(ctx, draft.Title, composer.RenderHTML(draft), requestID)
	if err != nil {
		return nil, err
	}

	ended, err := s.store.EndSession(ctx, sessionID)
	if err != nil {
		// The draft exists externally but the session stayed active; a
		// retried end-session regenerates the draft from scratch.
		log.Error("failed to mark session ended after publish",
			zap.String("session_id", sessionID),
			zap.Int("post_id", published.ID),
			zap.Error(err),
		)
		return nil, err
	}

	s.events.Publish(ctx, events.Event{
		Type:      events.TypeSessionEnded,
		Site:      site,
		SessionID: sessionID,
		RequestID: requestID,
	})
	s.events.Publish(ctx, events.Event{
		Type:      events.TypeDraftPublished,
		Site:      site,
		SessionID: sessionID,
		PostID:    published.ID,
		RequestID: requestID,
	})

	log.Info("session ended and draft published",
		zap.String("session_id", sessionID),
		zap.Int("message_count", len(msgs)),
		zap.Int("post_id", published.ID),
	)

	endedAt := ended.StartedAt
	if ended.EndedAt != nil {
		endedAt = *ended.EndedAt
	}

	return &model.EndSessionResponse{
		OK:           true,
		Site:         site,
		SessionID:    sessionID,
		StartedAt:    ended.StartedAt,
		EndedAt:      endedAt,
		MessageCount: len(msgs),
		WPPostID:     published.ID,
		WPLink:       published.Link,
		RequestID:    requestID,
	}, nil
}
