package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/meeting-rooms/internal/application"
	"github.com/example/meeting-rooms/internal/lifecycle"
	"github.com/example/meeting-rooms/internal/logging"
)

var errMissingJobName = errors.New("job name is required")

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	return responder{logger: defaultLogger(logger)}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	switch {
	case errors.Is(err, lifecycle.ErrUnknownJob):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{ErrorCode: "JOB_UNKNOWN", Message: err.Error()})
	case errors.Is(err, lifecycle.ErrLocked):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{ErrorCode: "JOB_LOCKED", Message: "the job is already running"})
	case errors.Is(err, context.Canceled):
		r.writeJSON(ctx, w, http.StatusServiceUnavailable, errorResponse{Message: "the request was cancelled"})
	default:
		kind := application.ErrorKind(err)
		r.loggerFor(ctx).ErrorContext(ctx, "job run failed", "error", err, "error_kind", kind)
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{
			ErrorCode: strings.ToUpper(string(kind)),
			Message:   "the job failed, see the service log",
		})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, r.logger)
}

type errorResponse struct {
	ErrorCode string `json:"error_code,omitempty"`
	Message   string `json:"message"`
}
