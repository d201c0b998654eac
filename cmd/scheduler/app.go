package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/redis/go-redis/v9"

	"github.com/example/meeting-rooms/internal/config"
	httptransport "github.com/example/meeting-rooms/internal/http"
	"github.com/example/meeting-rooms/internal/identity"
	"github.com/example/meeting-rooms/internal/lifecycle"
	"github.com/example/meeting-rooms/internal/logging"
	"github.com/example/meeting-rooms/internal/notification"
	"github.com/example/meeting-rooms/internal/persistence"
	"github.com/example/meeting-rooms/internal/persistence/memory"
	"github.com/example/meeting-rooms/internal/persistence/sqlstore"
	"github.com/example/meeting-rooms/internal/secrets"
)

// app holds the wired process dependencies.
type app struct {
	cfg       config.Config
	logger    *slog.Logger
	store     persistence.Store
	sql       *sqlstore.Store
	scheduler *lifecycle.Scheduler
	checks    map[string]httptransport.HealthCheck
	closers   []func() error
}

// bootstrap loads the configuration and wires store, lock, jobs and scheduler.
func bootstrap(ctx context.Context, opts config.LoadOptions, migrate bool) (a *app, err error) {
	if opts.Secrets == nil && os.Getenv("VAULT_ADDR") != "" {
		resolver, vErr := secrets.NewVaultResolver()
		if vErr != nil {
			return nil, vErr
		}
		opts.Secrets = resolver
	}

	cfg, err := config.Load(ctx, opts)
	if err != nil {
		return nil, err
	}

	logger, syncLog, err := logging.New(logging.Options{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Stdout:     cfg.Logging.Stdout,
	})
	if err != nil {
		return nil, err
	}

	a = &app{cfg: cfg, logger: logger, checks: make(map[string]httptransport.HealthCheck)}
	a.closers = append(a.closers, func() error {
		// Syncing stdout fails on some terminals; only a file sink matters.
		if err := syncLog(); err != nil && cfg.Logging.File != "" {
			return err
		}
		return nil
	})
	defer func() {
		if err != nil {
			err = a.closeAfter(err)
			a = nil
		}
	}()

	if err = a.openStore(ctx); err != nil {
		return a, err
	}
	if migrate {
		if _, err = a.migrate(); err != nil {
			return a, err
		}
	}

	loc, err := time.LoadLocation(cfg.Jobs.TimeZone)
	if err != nil {
		return a, fmt.Errorf("load time zone %s: %w", cfg.Jobs.TimeZone, err)
	}

	runner := lifecycle.NewRunner(a.store, a.locker(), time.Now, logger)
	a.scheduler = lifecycle.NewScheduler(runner, loc, logger)

	specs, err := buildJobs(cfg, uuid.NewString, time.Now)
	if err != nil {
		return a, err
	}
	for _, spec := range specs {
		if err = a.scheduler.Register(spec); err != nil {
			return a, err
		}
	}
	logger.InfoContext(ctx, "scheduler configured",
		"database", cfg.Database.Driver,
		"jobs", strings.Join(a.scheduler.Jobs(), ","),
		"time_zone", loc.String())
	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	db := a.cfg.Database
	switch db.Driver {
	case "memory":
		store, err := memory.Open()
		if err != nil {
			return err
		}
		a.store = store
		a.closers = append(a.closers, store.Close)
		a.logger.WarnContext(ctx, "using the in-memory store, data is lost on exit")
	case sqlstore.DriverSQLite, sqlstore.DriverPostgres:
		store, err := sqlstore.Open(ctx, sqlstore.Config{
			Driver:          db.Driver,
			DSN:             db.DSN,
			MaxOpenConns:    db.MaxOpenConns,
			MaxIdleConns:    db.MaxIdleConns,
			ConnMaxLifetime: db.ConnMaxLifetime,
		}, a.logger)
		if err != nil {
			return err
		}
		a.store = store
		a.sql = store
		a.closers = append(a.closers, store.Close)
		a.checks["database"] = store.Ping
	default:
		return fmt.Errorf("unsupported database driver %q", db.Driver)
	}
	return nil
}

// migrate applies pending migrations. The memory store has no schema.
func (a *app) migrate() (uint, error) {
	if a.sql == nil {
		return 0, nil
	}
	return a.sql.Migrate()
}

// locker returns a Redis lock when an address is configured, so replicas
// share it, and an in-process lock otherwise.
func (a *app) locker() lifecycle.Locker {
	r := a.cfg.Redis
	if r.Addr == "" {
		return lifecycle.NewLocalLocker()
	}
	client := redis.NewClient(&redis.Options{Addr: r.Addr, Password: r.Password, DB: r.DB})
	a.closers = append(a.closers, client.Close)
	a.checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	return lifecycle.NewRedisLocker(client, r.LockPrefix, r.LockTTL)
}

func (a *app) router() http.Handler {
	return httptransport.NewRouter(httptransport.RouterConfig{
		Jobs:   httptransport.NewJobHandler(a.scheduler, a.logger),
		Health: httptransport.NewHealthHandler(a.checks, 2*time.Second, a.logger),
		Logger: a.logger,
	})
}

// closeAfter releases resources in reverse order and joins their errors with cause.
func (a *app) closeAfter(cause error) error {
	var closeErr *multierror.Error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && !errors.Is(err, os.ErrClosed) {
			closeErr = multierror.Append(closeErr, err)
		}
	}
	a.closers = nil
	if closeErr == nil {
		return cause
	}
	if cause != nil {
		return multierror.Append(cause, closeErr.Errors...)
	}
	return closeErr.ErrorOrNil()
}

// buildJobs turns the configuration into job specs. Disabled jobs are left out.
func buildJobs(cfg config.Config, idGenerator func() string, now func() time.Time) ([]lifecycle.JobSpec, error) {
	jc := cfg.Jobs
	notices := notification.NewBuilder(cfg.Portal.Domain, cfg.Portal.JoinPath, idGenerator, now)
	limits := func(c config.JobConfig) lifecycle.Limits {
		return lifecycle.Limits{ChunkSize: c.ChunkSize, RetryLimit: c.RetryLimit}
	}

	var specs []lifecycle.JobSpec
	add := func(c config.JobConfig, build func() (lifecycle.Job, error)) error {
		if !c.Enabled {
			return nil
		}
		job, err := build()
		if err != nil {
			return err
		}
		specs = append(specs, lifecycle.JobSpec{Job: job, Cron: c.Cron})
		return nil
	}

	builders := []struct {
		cfg   config.JobConfig
		build func() (lifecycle.Job, error)
	}{
		{jc.Deletion.JobConfig, func() (lifecycle.Job, error) {
			policy := lifecycle.StaticRoomPolicy{DaysLimit: jc.Deletion.DaysLimit, DaysBefore: jc.Deletion.DaysBefore}
			return lifecycle.NewStaticRoomDeletionJob(policy, limits(jc.Deletion.JobConfig), notices)
		}},
		{jc.Password.JobConfig, func() (lifecycle.Job, error) {
			passwords, err := lifecycle.NewPasswordGenerator(jc.Password.Charset, jc.Password.Length)
			if err != nil {
				return lifecycle.Job{}, err
			}
			policy := lifecycle.StaticRoomPolicy{DaysLimit: jc.Password.DaysLimit, DaysBefore: jc.Password.DaysBefore}
			return lifecycle.NewStaticRoomPasswordJob(policy, limits(jc.Password.JobConfig), passwords, notices)
		}},
		{jc.DefaultOrganizer.JobConfig, func() (lifecycle.Job, error) {
			organizer := lifecycle.NewDefaultOrganizer(jc.DefaultOrganizer.Email, directoryFrom(cfg.Identity))
			return lifecycle.NewDefaultOrganizerJob(organizer, limits(jc.DefaultOrganizer.JobConfig), idGenerator), nil
		}},
		{jc.OldMeetings.JobConfig, func() (lifecycle.Job, error) {
			return lifecycle.NewOldMeetingsJob(jc.OldMeetings.Days, limits(jc.OldMeetings.JobConfig))
		}},
		{jc.OldNotifications.JobConfig, func() (lifecycle.Job, error) {
			return lifecycle.NewOldNotificationsJob(jc.OldNotifications.Days, limits(jc.OldNotifications.JobConfig))
		}},
	}
	for _, b := range builders {
		if err := add(b.cfg, b.build); err != nil {
			return nil, err
		}
	}
	return specs, nil
}

func directoryFrom(cfg config.IdentityConfig) identity.Directory {
	if len(cfg.Users) == 0 {
		return nil
	}
	users := make([]identity.User, 0, len(cfg.Users))
	for _, u := range cfg.Users {
		users = append(users, identity.User{Email: u.Email, Username: u.Username})
	}
	return identity.NewStaticDirectory(users...)
}
