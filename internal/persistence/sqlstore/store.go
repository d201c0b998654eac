// Package sqlstore implements the repository boundary on SQLite and
// PostgreSQL through sqlx.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/example/meeting-rooms/internal/persistence"
)

const (
	// DriverSQLite selects the pure-Go SQLite driver.
	DriverSQLite = "sqlite"
	// DriverPostgres selects lib/pq.
	DriverPostgres = "postgres"
)

// DefaultRetries is how often Atomic retries a unit of work that failed on a
// busy or serialization error.
const DefaultRetries = 3

// Config describes how to open the database.
type Config struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store is a persistence.Store over a SQL database.
type Store struct {
	db         *sqlx.DB
	logger     *slog.Logger
	retries    uint64
	newBackOff func() backoff.BackOff
}

var _ persistence.Store = (*Store)(nil)

// Open connects to the configured database and checks the connection.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	dsn := cfg.DSN
	switch cfg.Driver {
	case DriverSQLite:
		dsn = sqliteDSN(dsn)
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", cfg.Driver)
	}

	db, err := sqlx.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", cfg.Driver, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore: ping %s: %w", cfg.Driver, err)
	}
	return New(db, logger), nil
}

// New wraps an open database. The sqlx driver name decides the placeholder
// style and the migration set.
func New(db *sqlx.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		db:      db,
		logger:  logger.With("component", "sqlstore", "driver", db.DriverName()),
		retries: DefaultRetries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 50 * time.Millisecond
			b.MaxInterval = time.Second
			return b
		},
	}
}

// WithBackOff replaces the wait policy between Atomic attempts.
func (s *Store) WithBackOff(retries uint64, fn func() backoff.BackOff) *Store {
	s.retries = retries
	if fn != nil {
		s.newBackOff = fn
	}
	return s
}

// DB exposes the underlying handle.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Atomic runs fn in one transaction. Work failing with persistence.ErrTransient
// is rolled back and run again; any other error is returned after rollback.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, uow persistence.UnitOfWork) error) error {
	attempt := func() error {
		err := s.inTx(ctx, fn)
		if err == nil || errors.Is(err, persistence.ErrTransient) {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, wait time.Duration) {
		s.logger.WarnContext(ctx, "transaction failed, retrying", "error", err, "retry_in", wait)
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(s.newBackOff(), s.retries), ctx)
	return backoff.RetryNotify(attempt, policy, notify)
}

func (s *Store) inTx(ctx context.Context, fn func(ctx context.Context, uow persistence.UnitOfWork) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", mapError(err))
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, &unitOfWork{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", mapError(err))
	}
	return nil
}

type unitOfWork struct {
	tx *sqlx.Tx
}

func (u *unitOfWork) Meetings() persistence.MeetingRepository {
	return meetingRepository{tx: u.tx}
}

func (u *unitOfWork) Participants() persistence.ParticipantRepository {
	return participantRepository{tx: u.tx}
}

func (u *unitOfWork) Notifications() persistence.NotificationRepository {
	return notificationRepository{tx: u.tx}
}

// sqliteDSN turns on foreign keys and a busy timeout unless the DSN sets them.
func sqliteDSN(dsn string) string {
	var pragmas []string
	if !strings.Contains(dsn, "foreign_keys") {
		pragmas = append(pragmas, "_pragma=foreign_keys(1)")
	}
	if !strings.Contains(dsn, "busy_timeout") {
		pragmas = append(pragmas, "_pragma=busy_timeout(5000)")
	}
	if len(pragmas) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(pragmas, "&")
}
