package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/meeting-rooms/internal/lifecycle"
)

type jobRunner interface {
	Jobs() []string
	RunNow(ctx context.Context, name string) (lifecycle.Report, error)
}

// JobHandler lists lifecycle jobs and runs them on demand.
type JobHandler struct {
	jobs      jobRunner
	responder responder
	logger    *slog.Logger
}

// NewJobHandler constructs a JobHandler backed by a lifecycle scheduler.
func NewJobHandler(jobs jobRunner, logger *slog.Logger) *JobHandler {
	logger = defaultLogger(logger)
	return &JobHandler{jobs: jobs, responder: newResponder(logger), logger: logger}
}

func (h *JobHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "JobHandler", operation, attrs...)
}

// List handles GET /jobs.
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listJobsResponse{Jobs: h.jobs.Jobs()})
}

// Run handles POST /jobs/{name}/run.
func (h *JobHandler) Run(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := strings.TrimSpace(chi.URLParam(r, "name"))
	if name == "" {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errMissingJobName)
		return
	}

	logger := h.log(ctx, "Run", "job", name)
	logger.InfoContext(ctx, "manual job run requested")

	// The run outlives a dropped connection; the lock keeps it exclusive.
	report, err := h.jobs.RunNow(context.WithoutCancel(ctx), name)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, toReportDTO(report))
}

type listJobsResponse struct {
	Jobs []string `json:"jobs"`
}

type reportDTO struct {
	Job        string          `json:"job"`
	RunID      string          `json:"run_id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Items      int             `json:"items"`
	Steps      []stepReportDTO `json:"steps"`
}

type stepReportDTO struct {
	Name   string `json:"name"`
	Chunks int    `json:"chunks"`
	Items  int    `json:"items"`
}

func toReportDTO(report lifecycle.Report) reportDTO {
	steps := make([]stepReportDTO, 0, len(report.Steps))
	for _, s := range report.Steps {
		steps = append(steps, stepReportDTO{Name: s.Name, Chunks: s.Chunks, Items: s.Items})
	}
	return reportDTO{
		Job:        report.Job,
		RunID:      report.RunID,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Items:      report.Items(),
		Steps:      steps,
	}
}
