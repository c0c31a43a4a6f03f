// Package dispatch runs pipeline work in the background.
//
// Tasks get a context that is never cancelled: once accepted, an analysis
// runs to completion and only transport timeouts bound it.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/drewdunne/aireview/internal/metrics"
)

// Task is one unit of background work.
type Task func(ctx context.Context) error

// Config configures a Pool.
type Config struct {
	// MaxConcurrent bounds running tasks. Zero means unbounded.
	MaxConcurrent int
}

// Pool runs tasks on their own goroutines. Go never blocks the caller;
// when MaxConcurrent is set, excess tasks wait for a slot in the background.
type Pool struct {
	semaphore chan struct{}
	wg        sync.WaitGroup
	active    atomic.Int64
	logger    *slog.Logger
}

// New creates a Pool.
func New(cfg Config, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{logger: logger}
	if cfg.MaxConcurrent > 0 {
		p.semaphore = make(chan struct{}, cfg.MaxConcurrent)
	}
	return p
}

// Go schedules fn. Errors and panics are logged and counted, never
// propagated.
func (p *Pool) Go(name string, fn Task) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		if p.semaphore != nil {
			p.semaphore <- struct{}{}
			defer func() { <-p.semaphore }()
		}

		p.active.Add(1)
		defer p.active.Add(-1)

		if err := p.run(fn); err != nil {
			metrics.PipelineError()
			p.logger.Error("background task failed", "task", name, "error", err)
		}
	}()
}

func (p *Pool) run(fn Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return fn(context.Background())
}

// Active returns the number of tasks currently running.
func (p *Pool) Active() int {
	return int(p.active.Load())
}

// Wait blocks until every scheduled task has finished or ctx is done.
func (p *Pool) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
