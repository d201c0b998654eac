package http

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"
)

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// HealthHandler runs named dependency checks.
type HealthHandler struct {
	checks    map[string]HealthCheck
	timeout   time.Duration
	responder responder
	logger    *slog.Logger
}

// NewHealthHandler constructs a handler running checks with a shared timeout.
func NewHealthHandler(checks map[string]HealthCheck, timeout time.Duration, logger *slog.Logger) *HealthHandler {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	logger = defaultLogger(logger)
	return &HealthHandler{checks: checks, timeout: timeout, responder: newResponder(logger), logger: logger}
}

// Health handles GET /healthz.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(names))}
	status := http.StatusOK
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			handlerLogger(ctx, h.logger, "HealthHandler", "Health", "check", name).
				WarnContext(ctx, "health check failed", "error", err)
			resp.Checks[name] = err.Error()
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	h.responder.writeJSON(r.Context(), w, status, resp)
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
