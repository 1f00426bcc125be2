package handler

import (
	"encoding/json"
	"net/http"

	"github.com/convergo/drafting-platform/internal/apperr"
	"github.com/convergo/drafting-platform/internal/middleware"
)

// errorBody is the uniform error envelope: a stable machine-readable kind,
// a sanitized human-readable message, and the request correlation ID.
type errorBody struct {
	OK        bool        `json:"ok"`
	Error     errorDetail `json:"error"`
	RequestID string      `json:"requestId,omitempty"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError renders err through the error taxonomy. Untyped errors are
// sanitized; raw causes never reach the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	writeJSON(w, apperr.HTTPStatus(err), errorBody{
		Error: errorDetail{
			Kind:    string(apperr.KindOf(err)),
			Message: apperr.Message(err),
		},
		RequestID: middleware.GetRequestID(r.Context()),
	})
}

// writeBadRequest renders a plain bad-request error.
func writeBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	writeError(w, r, apperr.New(apperr.KindBadRequest, message))
}
