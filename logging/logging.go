package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"
)

const defaultMaxLogSizeKB = 10 * 1024

// LogConfig describes where a LogBackend writes and at which level.
type LogConfig struct {
	// LogFile is the path of the rotated log file. Empty disables file
	// logging.
	LogFile string
	// DebugLevel is either a single level ("info") applied to every
	// subsystem or a comma separated list such as "info,Match=debug".
	DebugLevel string
	// MaxLogFiles is the number of rolled files kept next to LogFile.
	MaxLogFiles int
	// MaxLogSizeKB is the size at which LogFile is rolled.
	MaxLogSizeKB int64
	// Stdout also receives every line when set. Defaults to os.Stdout.
	Stdout io.Writer
}

// LogBackend hands out subsystem loggers that share one output.
type LogBackend struct {
	mu      sync.Mutex
	rotator *rotator.Rotator
	stdout  io.Writer
	backend *slog.Backend

	defaultLevel slog.Level
	subsysLevels map[string]slog.Level
	loggers      map[string]slog.Logger
}

// NewLogBackend opens the rotated log file (if configured) and parses the
// debug level string.
func NewLogBackend(cfg LogConfig) (*LogBackend, error) {
	def, subs, err := ParseDebugLevels(cfg.DebugLevel)
	if err != nil {
		return nil, err
	}

	b := &LogBackend{
		stdout:       cfg.Stdout,
		defaultLevel: def,
		subsysLevels: subs,
		loggers:      make(map[string]slog.Logger),
	}
	if b.stdout == nil {
		b.stdout = os.Stdout
	}

	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		maxFiles := cfg.MaxLogFiles
		if maxFiles <= 0 {
			maxFiles = 3
		}
		sizeKB := cfg.MaxLogSizeKB
		if sizeKB <= 0 {
			sizeKB = defaultMaxLogSizeKB
		}
		r, err := rotator.New(cfg.LogFile, sizeKB, false, maxFiles)
		if err != nil {
			return nil, fmt.Errorf("failed to create file rotator: %w", err)
		}
		b.rotator = r
	}

	b.backend = slog.NewBackend(b)
	return b, nil
}

// Write implements io.Writer by teeing every line to stdout and the
// rotated file.
func (b *LogBackend) Write(p []byte) (int, error) {
	b.stdout.Write(p)
	if b.rotator != nil {
		b.rotator.Write(p)
	}
	return len(p), nil
}

// Logger returns the logger for subsys, creating it on first use.
func (b *LogBackend) Logger(subsys string) slog.Logger {
	b.mu.Lock()
	defer b.mu.Unlock()

	if l, ok := b.loggers[subsys]; ok {
		return l
	}
	l := b.backend.Logger(subsys)
	level, ok := b.subsysLevels[subsys]
	if !ok {
		level = b.defaultLevel
	}
	l.SetLevel(level)
	b.loggers[subsys] = l
	return l
}

// SetLevel changes the level of an already created subsystem logger.
func (b *LogBackend) SetLevel(subsys string, level slog.Level) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subsysLevels[subsys] = level
	if l, ok := b.loggers[subsys]; ok {
		l.SetLevel(level)
	}
}

// Close flushes and closes the rotated log file.
func (b *LogBackend) Close() error {
	if b.rotator == nil {
		return nil
	}
	return b.rotator.Close()
}

// ParseDebugLevels parses "level" or "level,SUBSYS=level,..." into a
// default level and per-subsystem overrides. An empty string means info.
func ParseDebugLevels(levels string) (slog.Level, map[string]slog.Level, error) {
	def := slog.LevelInfo
	subs := make(map[string]slog.Level)
	if strings.TrimSpace(levels) == "" {
		return def, subs, nil
	}

	for _, part := range strings.Split(levels, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, lvl, found := strings.Cut(part, "=")
		if !found {
			level, ok := slog.LevelFromString(part)
			if !ok {
				return 0, nil, fmt.Errorf("invalid debug level %q", part)
			}
			def = level
			continue
		}
		level, ok := slog.LevelFromString(lvl)
		if !ok {
			return 0, nil, fmt.Errorf("invalid debug level %q for subsystem %s", lvl, name)
		}
		subs[name] = level
	}
	return def, subs, nil
}
