package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

// Options configures the process logger.
type Options struct {
	// Level is one of debug, info, warn, error.
	Level string
	// File enables a rotated JSON log file at this path.
	File string
	// MaxSizeMB, MaxBackups and MaxAgeDays tune rotation of File.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	// Stdout tees JSON records to standard output.
	Stdout bool
}

// New builds the process logger: a zap core, optionally backed by a
// lumberjack rotating file, exposed as *slog.Logger. The returned sync
// function flushes buffered entries.
func New(opts Options) (*slog.Logger, func() error, error) {
	level, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("logging: %w", err)
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:      "ts",
		LevelKey:     "level",
		MessageKey:   "msg",
		CallerKey:    "caller",
		NameKey:      "logger",
		EncodeTime:   zapcore.ISO8601TimeEncoder,
		EncodeLevel:  zapcore.LowercaseLevelEncoder,
		EncodeCaller: zapcore.ShortCallerEncoder,
	}

	var cores []zapcore.Core
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("logging: create log directory: %w", err)
		}
		sink := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 50),
			MaxBackups: orDefault(opts.MaxBackups, 7),
			MaxAge:     orDefault(opts.MaxAgeDays, 14),
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(sink), level))
	}
	if opts.Stdout || len(cores) == 0 {
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.Lock(os.Stdout), level))
	}

	core := zapcore.NewTee(cores...)
	zap.ReplaceGlobals(zap.New(core))

	logger := slog.New(zapslog.NewHandler(core, zapslog.WithCaller(true)))
	return logger, core.Sync, nil
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

type loggerKey struct{}

// IntoContext returns ctx carrying logger. Request and job scoped loggers
// travel this way into services and repositories.
func IntoContext(ctx context.Context, logger *slog.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// InContext reports whether ctx carries a logger.
func InContext(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	_, ok := ctx.Value(loggerKey{}).(*slog.Logger)
	return ok
}

// FromContext returns the logger carried by ctx. Without one it returns
// fallback, and slog.Default when fallback is nil.
func FromContext(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return logger
		}
	}
	if fallback != nil {
		return fallback
	}
	return slog.Default()
}
