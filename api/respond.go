package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/garnizeh/rentops/internal/allocation"
	"github.com/garnizeh/rentops/internal/booking"
	"github.com/garnizeh/rentops/pkg/repository"
)

type errorResponse struct {
	Error   string         `json:"error"`
	Reason  string         `json:"reason,omitempty"`
	Field   string         `json:"field,omitempty"`
	ID      int64          `json:"id,omitempty"`
	Details []fieldProblem `json:"details,omitempty"`
}

type fieldProblem struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("json encode", slog.Any("err", err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, errorResponse{Error: msg}, status)
}

// writeServiceError maps engine errors to HTTP responses. Storage details
// never reach the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve *allocation.ValidationError
		te *booking.TransitionError
		nf *repository.NotFoundError
		ce *repository.ConflictError
		pe *repository.PersistenceError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, errorResponse{Error: "validation failed", Reason: string(ve.Reason), Field: ve.Field, ID: ve.ID}, http.StatusBadRequest)
	case errors.As(err, &nf):
		writeJSON(w, errorResponse{Error: nf.Error(), ID: nf.ID}, http.StatusNotFound)
	case errors.As(err, &te):
		writeJSON(w, errorResponse{Error: te.Error(), Reason: "invalid_transition", ID: te.JobID}, http.StatusConflict)
	case errors.As(err, &ce):
		writeJSON(w, errorResponse{Error: ce.Error(), Reason: "conflict", ID: ce.ID}, http.StatusConflict)
	case errors.As(err, &pe) && pe.Kind == repository.KindConstraint:
		logger.Warn("constraint violation", slog.String("op", pe.Op), slog.Any("err", pe.Err), slog.String("request_id", RequestIDFrom(r.Context())))
		writeError(w, http.StatusConflict, "request conflicts with stored data")
	case errors.As(err, &pe):
		logger.Error("storage failure", slog.String("op", pe.Op), slog.String("kind", string(pe.Kind)), slog.Any("err", pe.Err), slog.String("request_id", RequestIDFrom(r.Context())))
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "storage temporarily unavailable, retry later")
	default:
		logger.Error("unhandled error", slog.Any("err", err), slog.String("request_id", RequestIDFrom(r.Context())))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
