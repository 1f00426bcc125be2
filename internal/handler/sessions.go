// Package handler provides HTTP handlers for the API.
package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/convergo/drafting-platform/internal/middleware"
	"github.com/convergo/drafting-platform/internal/model"
	"github.com/convergo/drafting-platform/internal/service"
	"github.com/convergo/drafting-platform/pkg/logger"
)

// SessionHandler handles session lifecycle endpoints.
type SessionHandler struct {
	sessions *service.SessionService
	logger   *logger.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(sessions *service.SessionService, log *logger.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		logger:   log,
	}
}

// Start handles POST /api/v1/sessions/start
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	// An unreadable body falls back to the default site, matching the
	// permissive start-session contract.
	var req model.StartSessionRequest
	json.NewDecoder(r.Body).Decode(&req)

	resp, err := h.sessions.Start(ctx, requestID, req.Site)
	if err != nil {
		h.logger.Error("failed to start session",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// End handles POST /api/v1/sessions/end
func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req model.EndSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, r, "invalid request body")
		return
	}

	resp, err := h.sessions.End(ctx, requestID, req.Site, req.SessionID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
