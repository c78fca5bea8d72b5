// Package logging builds the decred/slog backend shared by every
// subsystem, optionally teeing output into a rotating log file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"
)

// LogConfig configures a LogBackend.
type LogConfig struct {
	// LogFile is the path of the rotating log file. Empty disables file
	// logging.
	LogFile string

	// DebugLevel is a level name (trace, debug, info, warn, error,
	// critical, off) applied to every subsystem.
	DebugLevel string

	// MaxLogFiles is how many rolled files to keep. Defaults to 3.
	MaxLogFiles int

	// MaxLogSizeKB is the size at which the file rolls. Defaults to 10 MiB.
	MaxLogSizeKB int64

	// Stdout mirrors log lines to a writer, typically os.Stdout. Nil
	// writes only to the file.
	Stdout io.Writer
}

// LogBackend hands out subsystem loggers that share one writer and level.
type LogBackend struct {
	backend *slog.Backend
	rotator *rotator.Rotator
	level   slog.Level

	mu      sync.Mutex
	loggers map[string]slog.Logger
}

// NewLogBackend creates the backend described by cfg.
func NewLogBackend(cfg LogConfig) (*LogBackend, error) {
	level := slog.LevelInfo
	if cfg.DebugLevel != "" {
		l, ok := slog.LevelFromString(cfg.DebugLevel)
		if !ok {
			return nil, fmt.Errorf("invalid debug level %q", cfg.DebugLevel)
		}
		level = l
	}

	lb := &LogBackend{
		level:   level,
		loggers: make(map[string]slog.Logger),
	}

	var writers []io.Writer
	if cfg.Stdout != nil {
		writers = append(writers, cfg.Stdout)
	}
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		maxRolls := cfg.MaxLogFiles
		if maxRolls <= 0 {
			maxRolls = 3
		}
		sizeKB := cfg.MaxLogSizeKB
		if sizeKB <= 0 {
			sizeKB = 10 * 1024
		}
		r, err := rotator.New(cfg.LogFile, sizeKB, false, maxRolls)
		if err != nil {
			return nil, fmt.Errorf("failed to create file rotator: %w", err)
		}
		lb.rotator = r
		writers = append(writers, r)
	}

	var w io.Writer = io.Discard
	switch len(writers) {
	case 0:
	case 1:
		w = writers[0]
	default:
		w = io.MultiWriter(writers...)
	}
	lb.backend = slog.NewBackend(w)
	return lb, nil
}

// Logger returns the logger for a subsystem, creating it on first use.
// A nil backend returns slog.Disabled.
func (lb *LogBackend) Logger(subsystem string) slog.Logger {
	if lb == nil {
		return slog.Disabled
	}
	lb.mu.Lock()
	defer lb.mu.Unlock()
	if l, ok := lb.loggers[subsystem]; ok {
		return l
	}
	l := lb.backend.Logger(subsystem)
	l.SetLevel(lb.level)
	lb.loggers[subsystem] = l
	return l
}

// SetLevel changes the level of every subsystem logger.
func (lb *LogBackend) SetLevel(level slog.Level) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	lb.level = level
	for _, l := range lb.loggers {
		l.SetLevel(level)
	}
}

// Close flushes and closes the log file, if any.
func (lb *LogBackend) Close() error {
	if lb == nil || lb.rotator == nil {
		return nil
	}
	return lb.rotator.Close()
}
