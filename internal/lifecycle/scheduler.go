package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrUnknownJob is returned by RunNow for a name that was never registered.
var ErrUnknownJob = errors.New("lifecycle: unknown job")

// JobSpec binds a job to its cron expression. The expression has a leading
// seconds field; an empty expression registers the job for RunNow only.
type JobSpec struct {
	Job  Job
	Cron string
}

// Scheduler triggers registered jobs on their cron expressions and on demand.
// Both paths go through the runner and therefore through the job lock.
type Scheduler struct {
	runner *Runner
	cron   *cron.Cron
	logger *slog.Logger

	mu      sync.RWMutex
	jobs    map[string]Job
	baseCtx context.Context
}

// NewScheduler returns a scheduler evaluating cron expressions in loc.
func NewScheduler(runner *Runner, loc *time.Location, logger *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "scheduler")
	cronLog := cronLogger{logger: logger}
	return &Scheduler{
		runner: runner,
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(loc),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog)),
		),
		logger:  logger,
		jobs:    make(map[string]Job),
		baseCtx: context.Background(),
	}
}

// Register adds a job. Names must be unique.
func (s *Scheduler) Register(spec JobSpec) error {
	name := spec.Job.Name
	if name == "" || spec.Job.Plan == nil {
		return fmt.Errorf("register job: name and plan are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("register job %s: already registered", name)
	}
	if spec.Cron != "" {
		job := spec.Job
		if _, err := s.cron.AddFunc(spec.Cron, func() { s.trigger(job) }); err != nil {
			return fmt.Errorf("register job %s: %w", name, err)
		}
	}
	s.jobs[name] = spec.Job
	s.logger.Info("job registered", "job", name, "cron", spec.Cron)
	return nil
}

// Jobs lists the registered job names in order.
func (s *Scheduler) Jobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start begins evaluating cron expressions. Scheduled runs use ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()
	s.cron.Start()
	s.logger.InfoContext(ctx, "scheduler started", "jobs", len(s.Jobs()))
}

// Stop stops triggering and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop().Done()
	select {
	case <-done:
		s.logger.InfoContext(ctx, "scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop scheduler: %w", ctx.Err())
	}
}

// RunNow runs a registered job immediately. It returns ErrLocked when a run
// of the same job is in progress.
func (s *Scheduler) RunNow(ctx context.Context, name string) (Report, error) {
	s.mu.RLock()
	job, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return Report{}, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.runner.Run(ctx, job)
}

func (s *Scheduler) trigger(job Job) {
	s.mu.RLock()
	ctx := s.baseCtx
	s.mu.RUnlock()
	if ctx.Err() != nil {
		return
	}
	// The runner logs the outcome.
	_, _ = s.runner.Run(ctx, job)
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
