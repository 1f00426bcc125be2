package handler

import (
	"encoding/json"
	"net/http"

	"github.com/convergo/drafting-platform/internal/middleware"
	"github.com/convergo/drafting-platform/internal/model"
	"github.com/convergo/drafting-platform/internal/service"
	"github.com/convergo/drafting-platform/pkg/logger"
)

// ChatHandler handles the companion reply endpoint.
type ChatHandler struct {
	messages *service.MessageService
	logger   *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(messages *service.MessageService, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		messages: messages,
		logger:   log,
	}
}

// Chat handles POST /api/v1/chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req model.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, r, "invalid request body")
		return
	}

	reply, err := h.messages.Chat(ctx, requestID, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, &model.ChatResponse{
		Reply:     reply,
		RequestID: requestID,
	})
}
