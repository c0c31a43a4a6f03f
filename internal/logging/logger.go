// Package logging builds the service logger and manages its log files.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/drewdunne/aireview/internal/config"
)

// FilePrefix names the daily log files.
const FilePrefix = "aireview"

// Logger is the configured logger plus the resources behind it.
type Logger struct {
	*slog.Logger

	writer    *DailyWriter
	scheduler *CleanupScheduler
}

// New builds a logger writing to out and, when cfg.Dir is set, to a daily
// file in cfg.Dir whose old files are pruned after cfg.RetentionDays.
func New(cfg config.LoggingConfig, out io.Writer) (*Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	l := &Logger{}
	if cfg.Dir != "" {
		l.writer, err = NewDailyWriter(cfg.Dir, FilePrefix)
		if err != nil {
			return nil, err
		}
		out = io.MultiWriter(out, l.writer)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(out, opts)
	case "", "text":
		handler = slog.NewTextHandler(out, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	l.Logger = slog.New(handler)

	if l.writer != nil && cfg.RetentionDays > 0 {
		cleaner := NewCleaner(cfg.Dir, FilePrefix, cfg.RetentionDays)
		interval := time.Duration(cfg.CleanupIntervalHours) * time.Hour
		l.scheduler = NewCleanupScheduler(cleaner, interval, l.Logger)
		l.scheduler.Start()
	}

	return l, nil
}

// Close stops the cleanup scheduler and closes the log file.
func (l *Logger) Close() error {
	if l.scheduler != nil {
		l.scheduler.Stop()
	}
	if l.writer != nil {
		return l.writer.Close()
	}
	return nil
}

// ParseLevel maps a config level name to a slog level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}
