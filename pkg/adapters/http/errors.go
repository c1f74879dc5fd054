package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aretw0/waypoint/pkg/domain"
)

// errorResponse is the error body, {"detail": "..."}.
type errorResponse struct {
	Detail string `json:"detail"`
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrFlowNotFound), errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNodeMismatch), errors.Is(err, domain.ErrNoTransition):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// detailFor keeps the short messages clients already match on.
func detailFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrFlowNotFound):
		return "Flow not found"
	case errors.Is(err, domain.ErrSessionNotFound):
		return "Session not found"
	case errors.Is(err, domain.ErrNodeMismatch):
		return "Node mismatch"
	case errors.Is(err, domain.ErrNoTransition):
		return "No valid next node found."
	}
	return "Internal server error"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "err", err)
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "err", err)
	} else {
		s.logger.DebugContext(r.Context(), "request rejected", "path", r.URL.Path, "status", status, "err", err)
	}
	writeDetail(w, status, detailFor(err))
}
