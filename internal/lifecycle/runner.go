// Package lifecycle runs the scheduled maintenance jobs over static rooms,
// old meetings and old notifications.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/example/meeting-rooms/internal/logging"
	"github.com/example/meeting-rooms/internal/metrics"
	"github.com/example/meeting-rooms/internal/persistence"
)

const (
	// DefaultChunkSize bounds a page when a job does not set one.
	DefaultChunkSize = 200
	// DefaultRetryLimit is the number of attempts per chunk when a job does not set one.
	DefaultRetryLimit = 3
)

// ErrNoProgress is returned when a step reads the same page twice in a row,
// meaning its write does not remove rows from its own predicate.
var ErrNoProgress = errors.New("lifecycle: step made no progress")

// Job is a named sequence of steps.
type Job struct {
	Name       string
	ChunkSize  int
	RetryLimit int
	// Plan returns the steps of a run started at now. Thresholds are fixed
	// for the whole run.
	Plan func(now time.Time) []Step
}

// StepReport summarizes one step of a run.
type StepReport struct {
	Name   string
	Chunks int
	Items  int
}

// Report summarizes a run.
type Report struct {
	Job        string
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Steps      []StepReport
}

// Items returns the number of rows processed across all steps.
func (r Report) Items() int {
	total := 0
	for _, s := range r.Steps {
		total += s.Items
	}
	return total
}

// Runner executes jobs under their named lock.
type Runner struct {
	store      persistence.Store
	locker     Locker
	now        func() time.Time
	logger     *slog.Logger
	newBackOff func() backoff.BackOff
}

// NewRunner constructs a runner. A nil locker serializes runs in-process.
func NewRunner(store persistence.Store, locker Locker, now func() time.Time, logger *slog.Logger) *Runner {
	if locker == nil {
		locker = NewLocalLocker()
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		store:      store,
		locker:     locker,
		now:        now,
		logger:     logger,
		newBackOff: defaultBackOff,
	}
}

// WithBackOff replaces the wait policy between chunk attempts.
func (r *Runner) WithBackOff(fn func() backoff.BackOff) *Runner {
	if fn != nil {
		r.newBackOff = fn
	}
	return r
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// Run executes job once. It returns ErrLocked without touching any row when
// another run holds the job lock. A failing chunk is retried up to the job's
// retry limit; after that the run stops and later steps are skipped. Chunks
// committed before the failure stay committed.
func (r *Runner) Run(ctx context.Context, job Job) (report Report, err error) {
	report = Report{Job: job.Name, RunID: uuid.NewString(), StartedAt: r.now()}
	logger := r.logger.With("job", job.Name, "run_id", report.RunID)
	ctx = logging.IntoContext(ctx, logger)

	lock, err := r.locker.Acquire(ctx, job.Name)
	if errors.Is(err, ErrLocked) {
		metrics.JobRunsTotal.WithLabelValues(job.Name, "locked").Inc()
		logger.InfoContext(ctx, "job skipped, lock held by another run")
		return report, err
	}
	if err != nil {
		metrics.JobRunsTotal.WithLabelValues(job.Name, "failed").Inc()
		logger.ErrorContext(ctx, "failed to acquire job lock", "error", err)
		return report, err
	}

	started := time.Now()
	logger.InfoContext(ctx, "job started")
	defer func() {
		if relErr := lock.Release(context.WithoutCancel(ctx)); relErr != nil {
			logger.WarnContext(ctx, "failed to release job lock", "error", relErr)
			err = multierror.Append(err, relErr).ErrorOrNil()
		}
		report.FinishedAt = r.now()
		metrics.JobRunDuration.WithLabelValues(job.Name).Observe(time.Since(started).Seconds())
		if err != nil {
			metrics.JobRunsTotal.WithLabelValues(job.Name, "failed").Inc()
			logger.ErrorContext(ctx, "job failed", "error", err, "items", report.Items())
			return
		}
		metrics.JobRunsTotal.WithLabelValues(job.Name, "succeeded").Inc()
		logger.InfoContext(ctx, "job finished", "items", report.Items())
	}()

	for _, step := range job.Plan(report.StartedAt) {
		stepReport, stepErr := r.runStep(ctx, job, step, logger)
		report.Steps = append(report.Steps, stepReport)
		if stepErr != nil {
			err = fmt.Errorf("job %s step %s: %w", job.Name, step.Name(), stepErr)
			return
		}
	}
	return
}

func (r *Runner) runStep(ctx context.Context, job Job, step Step, logger *slog.Logger) (StepReport, error) {
	report := StepReport{Name: step.Name()}
	limit := job.ChunkSize
	if limit <= 0 {
		limit = DefaultChunkSize
	}
	attempts := job.RetryLimit
	if attempts <= 0 {
		attempts = DefaultRetryLimit
	}
	logger = logger.With("step", step.Name())

	var previous []string
	for {
		var keys []string
		chunk := func() error {
			return r.store.Atomic(ctx, func(ctx context.Context, uow persistence.UnitOfWork) error {
				var chunkErr error
				keys, chunkErr = step.chunk(ctx, uow, limit)
				return chunkErr
			})
		}
		notify := func(err error, wait time.Duration) {
			metrics.ChunkRetriesTotal.WithLabelValues(job.Name, step.Name()).Inc()
			logger.WarnContext(ctx, "chunk failed, retrying", "chunk", report.Chunks+1, "error", err, "retry_in", wait)
		}
		policy := backoff.WithContext(backoff.WithMaxRetries(r.newBackOff(), uint64(attempts-1)), ctx)
		if err := backoff.RetryNotify(chunk, policy, notify); err != nil {
			return report, fmt.Errorf("chunk %d: %w", report.Chunks+1, err)
		}

		if len(keys) == 0 {
			return report, nil
		}
		if sameKeys(previous, keys) {
			return report, fmt.Errorf("%w: chunk %d repeated %d items", ErrNoProgress, report.Chunks+1, len(keys))
		}
		previous = keys
		report.Chunks++
		report.Items += len(keys)
		metrics.JobItemsTotal.WithLabelValues(job.Name, step.Name()).Add(float64(len(keys)))
		logger.DebugContext(ctx, "chunk committed", "chunk", report.Chunks, "items", len(keys))
	}
}

func sameKeys(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
