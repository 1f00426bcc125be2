package handler

import (
	"encoding/json"
	"net/http"

	"github.com/convergo/drafting-platform/internal/middleware"
	"github.com/convergo/drafting-platform/internal/model"
	"github.com/convergo/drafting-platform/internal/service"
	"github.com/convergo/drafting-platform/pkg/logger"
)

// MessageHandler handles message endpoints.
type MessageHandler struct {
	messages      *service.MessageService
	conversations *service.ConversationService
	logger        *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(
	messages *service.MessageService,
	conversations *service.ConversationService,
	log *logger.Logger,
) *MessageHandler {
	return &MessageHandler{
		messages:      messages,
		conversations: conversations,
		logger:        log,
	}
}

// List handles GET /api/v1/messages?site=&sessionId=
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	site := service.NormalizeSite(r.URL.Query().Get("site"))
	sessionID := r.URL.Query().Get("sessionId")

	msgs, err := h.conversations.ListMessages(ctx, requestID, site, sessionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if msgs == nil {
		msgs = []model.Message{}
	}

	writeJSON(w, http.StatusOK, &model.ListMessagesResponse{
		OK:        true,
		Site:      site,
		Messages:  msgs,
		RequestID: requestID,
	})
}

// Write handles POST /api/v1/messages
func (h *MessageHandler) Write(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req model.WriteMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, r, "invalid request body")
		return
	}

	msg, err := h.messages.Write(ctx, requestID, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, &model.WriteMessageResponse{
		OK:        true,
		Site:      service.NormalizeSite(req.Site),
		Message:   msg,
		RequestID: requestID,
	})
}
