package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tempolab/podtempo/internal/feed"
	"github.com/tempolab/podtempo/internal/models"
	"github.com/tempolab/podtempo/internal/playlist"
	"github.com/tempolab/podtempo/internal/shared"
	"github.com/tempolab/podtempo/internal/storage"
	"golang.org/x/time/rate"
)

// EntryProcessor runs one playlist entry through the audio pipeline.
type EntryProcessor interface {
	Process(ctx context.Context, entry models.PlaylistEntry) (models.ProcessingResult, error)
	Speed() float64
}

// FeedPublisher folds completed results into the published feed.
type FeedPublisher interface {
	Publish(ctx context.Context, results []models.ProcessingResult) (feed.Document, error)
}

// Notifier delivers a best-effort completion notice.
type Notifier interface {
	Configured() bool
	Send(subject, body string) error
}

// Orchestrator owns the in-memory job table and drives each admitted
// playlist from pending to a terminal state.
//
// Jobs live for the process lifetime only; there is no durable history.
type Orchestrator struct {
	store     storage.Storage
	processor EntryProcessor
	ledger    *Ledger
	publisher FeedPublisher
	notifier  Notifier
	cfg       shared.PipelineConfig
	deadline  time.Duration
	limiter   *rate.Limiter
	logger    *log.Logger

	mu    sync.Mutex
	jobs  map[string]*models.Job
	order []string
}

// OrchestratorOpts carries the optional collaborators.
type OrchestratorOpts struct {
	Publisher FeedPublisher // nil disables feed publication
	Notifier  Notifier      // nil disables notification
	RateLimit float64       // entry admissions per second; zero disables pacing
	Deadline  time.Duration // per-job deadline; zero falls back to the configured job timeout
}

// NewOrchestrator wires the orchestrator. The ledger must be shared with
// every other component that admits files.
func NewOrchestrator(store storage.Storage, processor EntryProcessor, ledger *Ledger, cfg shared.PipelineConfig, opts OrchestratorOpts, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	o := &Orchestrator{
		store:     store,
		processor: processor,
		ledger:    ledger,
		publisher: opts.Publisher,
		notifier:  opts.Notifier,
		cfg:       cfg,
		deadline:  opts.Deadline,
		logger:    logger,
		jobs:      make(map[string]*models.Job),
	}
	if o.deadline == 0 {
		o.deadline = cfg.JobTimeout()
	}
	if opts.RateLimit > 0 {
		o.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	return o
}

// Admit registers a playlist file with the dedup ledger and, when it is new,
// creates a pending job for it.
//
// Admission and job creation happen under one lock, so concurrent triggers
// for the same file produce exactly one job.
func (o *Orchestrator) Admit(file storage.File) (*models.Job, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.ledger.Admit(file.ID) {
		return nil, false
	}

	job := &models.Job{
		ID:           shared.GenerateID(),
		Status:       models.JobPending,
		PlaylistID:   file.ID,
		PlaylistName: file.Name,
		Speed:        o.processor.Speed(),
		CreatedAt:    time.Now().UTC(),
		Results:      []models.ProcessingResult{},
	}
	o.jobs[job.ID] = job
	o.order = append(o.order, job.ID)

	o.logger.Info("job admitted", "job", job.ID, "playlist", file.Name)
	return job.Clone(), true
}

// Run drives one admitted job to a terminal state. It blocks until the job
// finishes and is safe to call from its own goroutine.
func (o *Orchestrator) Run(ctx context.Context, jobID string) {
	parent := ctx
	if o.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.deadline)
		defer cancel()
	}

	o.setStatus(jobID, models.JobProcessing)

	playlistID, playlistName := o.jobSource(jobID)
	content, err := o.store.Download(ctx, playlistID)
	if err != nil {
		o.finalize(jobID, models.JobFailed, fmt.Sprintf("failed to fetch playlist: %v", err))
		return
	}

	entries := playlist.Parse(string(content))
	if len(entries) == 0 {
		o.finalize(jobID, models.JobFailed, fmt.Errorf("%w: %s", shared.ErrNoEntries, playlistName).Error())
		return
	}

	o.logger.Info("processing playlist", "job", jobID, "playlist", playlistName, "entries", len(entries))

	failures := o.fanOut(ctx, jobID, entries)

	// A lapsed deadline only matters if it actually cost us entries; a job
	// whose entries all resolved before the deadline fired stays completed.
	timedOut := len(failures) > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) && parent.Err() == nil
	switch {
	case timedOut:
		o.finalize(jobID, models.JobFailed, fmt.Errorf("%w: deadline %s elapsed", shared.ErrJobTimeout, o.deadline).Error())
		return
	case len(failures) == len(entries):
		o.finalize(jobID, models.JobFailed, aggregateError(failures))
		return
	case len(failures) > 0:
		o.finalize(jobID, models.JobCompleted, aggregateError(failures))
	default:
		o.finalize(jobID, models.JobCompleted, "")
	}

	// Publication and notification run against the parent context: the job
	// deadline bounds entry processing, not the follow-up work.
	o.publishAndNotify(parent, jobID)
}

type indexedEntry struct {
	ordinal int // 1-based playlist position
	entry   models.PlaylistEntry
}

type entryOutcome struct {
	ordinal int
	err     error
}

// fanOut processes entries on a bounded worker pool and joins every
// outcome. Successes are appended to the job in completion order; failures
// are returned for aggregation.
func (o *Orchestrator) fanOut(ctx context.Context, jobID string, entries []models.PlaylistEntry) []entryOutcome {
	workers := o.cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	if workers > len(entries) {
		workers = len(entries)
	}

	work := make(chan indexedEntry, len(entries))
	outcomes := make(chan entryOutcome, len(entries))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range work {
				if o.limiter != nil {
					if err := o.limiter.Wait(ctx); err != nil {
						outcomes <- entryOutcome{ordinal: item.ordinal, err: err}
						continue
					}
				}

				result, err := o.processor.Process(ctx, item.entry)
				if err != nil {
					o.logger.Warn("entry failed", "job", jobID, "entry", item.ordinal, "err", err)
					outcomes <- entryOutcome{ordinal: item.ordinal, err: err}
					continue
				}

				o.appendResult(jobID, result)
				outcomes <- entryOutcome{ordinal: item.ordinal}
			}
		}()
	}

	for i, entry := range entries {
		work <- indexedEntry{ordinal: i + 1, entry: entry}
	}
	close(work)

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	var failures []entryOutcome
	for outcome := range outcomes {
		if outcome.err != nil {
			failures = append(failures, outcome)
		}
	}
	return failures
}

// aggregateError renders failures in playlist order regardless of which
// finished first.
func aggregateError(failures []entryOutcome) string {
	sort.Slice(failures, func(i, j int) bool {
		return failures[i].ordinal < failures[j].ordinal
	})
	parts := make([]string, len(failures))
	for i, f := range failures {
		parts[i] = fmt.Sprintf("entry %d: %v", f.ordinal, f.err)
	}
	return strings.Join(parts, "; ")
}

func (o *Orchestrator) publishAndNotify(ctx context.Context, jobID string) {
	job, err := o.Job(jobID)
	if err != nil || job.Status != models.JobCompleted {
		return
	}

	if o.publisher != nil && len(job.Results) > 0 {
		if _, err := o.publisher.Publish(ctx, job.Results); err != nil {
			o.logger.Error("feed publication failed", "job", job.ID, "err", err)
			o.annotate(jobID, fmt.Sprintf("feed publication failed: %v", err))
		}
	}

	if o.notifier != nil && o.notifier.Configured() {
		subject := fmt.Sprintf("podtempo: %s processed", job.PlaylistName)
		body := fmt.Sprintf("Playlist %q finished: %d entries processed.", job.PlaylistName, len(job.Results))
		if job.Error != "" {
			body += "\n\nPartial failures: " + job.Error
		}
		if err := o.notifier.Send(subject, body); err != nil {
			o.logger.Warn("notification failed", "job", job.ID, "err", err)
		}
	}
}

// Job returns a snapshot of one job.
func (o *Orchestrator) Job(id string) (*models.Job, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	job, ok := o.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrJobNotFound, id)
	}
	return job.Clone(), nil
}

// Jobs returns snapshots of every job, newest first.
func (o *Orchestrator) Jobs() []*models.Job {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]*models.Job, 0, len(o.order))
	for i := len(o.order) - 1; i >= 0; i-- {
		out = append(out, o.jobs[o.order[i]].Clone())
	}
	return out
}

// StatusCounts tallies jobs by status.
func (o *Orchestrator) StatusCounts() map[models.JobStatus]int {
	o.mu.Lock()
	defer o.mu.Unlock()
	counts := make(map[models.JobStatus]int)
	for _, job := range o.jobs {
		counts[job.Status]++
	}
	return counts
}

func (o *Orchestrator) jobSource(id string) (playlistID, playlistName string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if job, ok := o.jobs[id]; ok {
		return job.PlaylistID, job.PlaylistName
	}
	return "", ""
}

func (o *Orchestrator) setStatus(id string, status models.JobStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if job, ok := o.jobs[id]; ok && !job.Status.Terminal() {
		job.Status = status
	}
}

func (o *Orchestrator) appendResult(id string, result models.ProcessingResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if job, ok := o.jobs[id]; ok {
		job.Results = append(job.Results, result)
	}
}

// finalize moves a job to a terminal state. CompletedAt is set exactly
// once; a job already terminal is left untouched.
func (o *Orchestrator) finalize(id string, status models.JobStatus, errText string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	job, ok := o.jobs[id]
	if !ok || job.Status.Terminal() {
		return
	}
	job.Status = status
	job.Error = errText
	now := time.Now().UTC()
	job.CompletedAt = &now

	o.logger.Info("job finished", "job", id, "status", status, "results", len(job.Results), "error", errText != "")
}

// annotate appends supplementary error text to an already terminal job
// without touching its status or completion time.
func (o *Orchestrator) annotate(id, note string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	job, ok := o.jobs[id]
	if !ok {
		return
	}
	if job.Error == "" {
		job.Error = note
		return
	}
	job.Error += "; " + note
}
