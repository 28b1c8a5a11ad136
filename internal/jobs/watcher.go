package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tempolab/podtempo/internal/shared"
	"github.com/tempolab/podtempo/internal/storage"
)

// Watcher owns all background processing: the periodic storage poll and the
// goroutine per running job. Shutdown is deterministic; it stops the poll
// loop and waits for every job goroutine it started.
type Watcher struct {
	orch     *Orchestrator
	store    storage.Storage
	query    string
	interval time.Duration
	logger   *log.Logger

	mu        sync.Mutex
	lifecycle context.Context
	cancel    context.CancelFunc
	stopped   chan struct{}
	jobs      sync.WaitGroup
}

// NewWatcher creates a Watcher polling storage with the playlist query.
func NewWatcher(orch *Orchestrator, store storage.Storage, query string, interval time.Duration, logger *log.Logger) *Watcher {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Watcher{
		orch:     orch,
		store:    store,
		query:    query,
		interval: interval,
		logger:   logger,
	}
}

// Check lists matching playlist files and starts a job goroutine for each
// newly admitted one. It returns the ids of the jobs it started.
func (w *Watcher) Check(ctx context.Context) ([]string, error) {
	files, err := w.store.List(ctx, w.query)
	if err != nil {
		return nil, fmt.Errorf("playlist check failed: %w", err)
	}

	var started []string
	runCtx := w.runContext(ctx)
	for _, file := range files {
		job, admitted := w.orch.Admit(file)
		if !admitted {
			continue
		}
		started = append(started, job.ID)

		w.jobs.Add(1)
		go func(id string) {
			defer w.jobs.Done()
			w.orch.Run(runCtx, id)
		}(job.ID)
	}

	if len(started) > 0 {
		w.logger.Info("playlists admitted", "count", len(started))
	}
	return started, nil
}

// runContext picks the context job goroutines run on. Trigger contexts such
// as webhook requests are cancelled as soon as the handler returns, so once
// the watcher is running jobs use its lifecycle context instead; before
// Start, the caller's context applies.
func (w *Watcher) runContext(trigger context.Context) context.Context {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lifecycle != nil {
		return w.lifecycle
	}
	return trigger
}

// Start launches the poll loop. A non-positive interval disables polling
// (webhook-only operation); Shutdown still applies to webhook-started jobs.
func (w *Watcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	w.mu.Lock()
	w.lifecycle = ctx
	w.cancel = cancel
	w.stopped = make(chan struct{})
	stopped := w.stopped
	w.mu.Unlock()

	go func() {
		defer close(stopped)

		if w.interval <= 0 {
			w.logger.Info("polling disabled")
			<-ctx.Done()
			return
		}

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		w.logger.Info("watcher started", "interval", w.interval)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := w.Check(ctx); err != nil {
					w.logger.Error("poll failed", "err", err)
				}
			}
		}
	}()
}

// Shutdown stops the poll loop and waits for in-flight job goroutines. It
// returns the context error if the deadline expires first.
func (w *Watcher) Shutdown(ctx context.Context) error {
	w.mu.Lock()
	cancel := w.cancel
	stopped := w.stopped
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if stopped != nil {
		select {
		case <-stopped:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	done := make(chan struct{})
	go func() {
		w.jobs.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("watcher stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
