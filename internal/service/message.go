package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/convergo/drafting-platform/internal/apperr"
	"github.com/convergo/drafting-platform/internal/guardrail"
	"github.com/convergo/drafting-platform/internal/llm"
	"github.com/convergo/drafting-platform/internal/model"
	"github.com/convergo/drafting-platform/internal/store"
	"github.com/convergo/drafting-platform/pkg/logger"
	"github.com/convergo/drafting-platform/pkg/metrics"
)

const companionPrompt = "You are an AI diary companion. Be warm, concise, and helpful. " +
	"Keep responses short unless asked for detail. Use plain ASCII punctuation."

// MessageService handles message writes and companion replies.
type MessageService struct {
	store     store.Store
	limits    guardrail.Limits
	llmClient llm.Client
	llmModel  string
	timeout   time.Duration
	logger    *logger.Logger
}

// NewMessageService creates a new message service. llmClient may be nil;
// the companion reply then degrades to a fixed notice.
func NewMessageService(
	st store.Store,
	limits guardrail.Limits,
	llmClient llm.Client,
	llmModel string,
	timeout time.Duration,
	log *logger.Logger,
) *MessageService {
	return &MessageService{
		store:     st,
		limits:    limits,
		llmClient: llmClient,
		llmModel:  llmModel,
		timeout:   timeout,
		logger:    log,
	}
}

// Write validates a message against the guardrails and appends it. All
// guardrails run before any persistence so a rejected write has no side
// effects. Writing into an ended session fails with SESSION_ENDED.
func (s *MessageService) Write(ctx context.Context, requestID string, req *model.WriteMessageRequest) (*model.Message, error) {
	site := NormalizeSite(req.Site)
	content := strings.TrimSpace(req.Content)

	if err := guardrail.CheckContent(content, s.limits); err != nil {
		return nil, err
	}

	conv, err := s.store.UpsertConversation(ctx, site)
	if err != nil {
		return nil, err
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID != "" {
		sess, err := s.store.GetSession(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if sess.ConversationID != conv.ID {
			return nil, apperr.New(apperr.KindSessionNotFound, "session not found for site")
		}
		if sess.Ended() {
			return nil, apperr.New(apperr.KindSessionEnded, "session has ended")
		}

		count, err := s.store.CountSessionMessages(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if err := guardrail.CheckSessionCount(count, s.limits); err != nil {
			return nil, err
		}
	}

	msg := &model.Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conv.ID,
		SessionID:      sessionID,
		Role:           model.NormalizeRole(req.Role),
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	metrics.MessagesTotal.WithLabelValues(site, string(msg.Role)).Inc()

	return msg, nil
}

// Chat persists the user message, asks the generation backend for a
// companion reply using the conversation history, persists the reply, and
// returns it. The user message survives even when the backend call fails.
func (s *MessageService) Chat(ctx context.Context, requestID string, req *model.ChatRequest) (string, error) {
	site := NormalizeSite(req.Site)

	userMsg, err := s.Write(ctx, requestID, &model.WriteMessageRequest{
		Site:      site,
		SessionID: req.SessionID,
		Role:      string(model.RoleUser),
		Content:   req.Message,
	})
	if err != nil {
		return "", err
	}

	if s.llmClient == nil {
		reply := "Message saved. Configure a generation API key to enable AI replies."
		s.saveReply(ctx, requestID, site, req.SessionID, reply)
		return reply, nil
	}

	history, err := s.store.ListConversationMessages(ctx, userMsg.ConversationID, 200)
	if err != nil {
		// The user message is already persisted; reply from it alone.
		s.logger.Warn("history unavailable for reply, using last message only",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		history = []model.Message{*userMsg}
	}

	chatMessages := make([]llm.ChatMessage, 0, len(history)+1)
	chatMessages = append(chatMessages, llm.ChatMessage{Role: "system", Content: companionPrompt})
	for _, m := range history {
		chatMessages = append(chatMessages, llm.ChatMessage{Role: string(m.Role), Content: m.Content})
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	resp, err := s.llmClient.Complete(callCtx, &llm.CompletionRequest{
		Model:    s.llmModel,
		Messages: chatMessages,
	})
	elapsed := time.Since(start).Seconds()
	if err != nil {
		metrics.LLMRequestDuration.WithLabelValues(s.llmClient.Name(), "error").Observe(elapsed)
		return "", err
	}
	metrics.LLMRequestDuration.WithLabelValues(s.llmClient.Name(), "success").Observe(elapsed)

	reply := strings.TrimSpace(resp.Content)
	if reply == "" {
		reply = "Sorry - no reply returned."
	}
	s.saveReply(ctx, requestID, site, req.SessionID, reply)

	return reply, nil
}

func (s *MessageService) saveReply(ctx context.Context, requestID, site, sessionID, reply string) {
	_, err := s.Write(ctx, requestID, &model.WriteMessageRequest{
		Site:      site,
		SessionID: sessionID,
		Role:      string(model.RoleAssistant),
		Content:   reply,
	})
	if err != nil {
		s.logger.Warn("failed to persist assistant reply",
			zap.String("request_id", requestID),
			zap.String("site", site),
			zap.Error(err),
		)
	}
}
