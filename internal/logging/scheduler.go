package logging

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultCleanupInterval is used when no positive interval is configured.
const DefaultCleanupInterval = 24 * time.Hour

// CleanupScheduler prunes expired log files on a fixed interval.
type CleanupScheduler struct {
	cleaner  *Cleaner
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewCleanupScheduler(cleaner *Cleaner, interval time.Duration, logger *slog.Logger) *CleanupScheduler {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupScheduler{cleaner: cleaner, interval: interval, logger: logger}
}

// Run cleans once immediately and then on every interval until ctx is done.
func (s *CleanupScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.cleanOnce()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Start runs the scheduler in the background. Calling Start on a running
// scheduler does nothing.
func (s *CleanupScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		s.Run(ctx)
	}(s.done)
}

// Stop halts the background loop and waits for a cleanup in progress.
func (s *CleanupScheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *CleanupScheduler) cleanOnce() {
	start := time.Now()
	deleted, err := s.cleaner.Cleanup()
	if err != nil {
		s.logger.Error("log cleanup failed", "dir", s.cleaner.baseDir, "error", err)
		return
	}

	level := slog.LevelDebug
	if deleted > 0 {
		level = slog.LevelInfo
	}
	s.logger.Log(context.Background(), level, "log cleanup finished",
		"dir", s.cleaner.baseDir,
		"deleted", deleted,
		"retention_days", s.cleaner.retentionDays,
		"duration", time.Since(start))
}
