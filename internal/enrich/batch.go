package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"camreview/internal/journal"
	"camreview/internal/ledger"
	"camreview/internal/logging"
	"camreview/internal/review"
	"camreview/internal/services"
)

// Scope selects which images a batch considers.
type Scope string

// Batch scopes.
const (
	ScopeAll        Scope = "all"
	ScopeUnreviewed Scope = "unreviewed"
)

// ParseScope maps a request value to a scope; anything but "unreviewed" is all.
func ParseScope(raw string) Scope {
	if raw == string(ScopeUnreviewed) {
		return ScopeUnreviewed
	}
	return ScopeAll
}

// Job states and phases.
const (
	JobStarting = "starting"
	JobRunning  = "running"
	JobDone     = "done"
	JobError    = "error"

	PhaseScanning  = "scanning"
	PhaseDetecting = "detecting"
)

// Job is a snapshot of batch progress.
type Job struct {
	ID         string     `json:"id"`
	Scope      Scope      `json:"scope"`
	Status     string     `json:"status"`
	Phase      string     `json:"phase"`
	Total      int        `json:"total"`
	Processed  int        `json:"processed"`
	Matched    int        `json:"matched"`
	Deleted    int        `json:"deleted"`
	Failed     int        `json:"failed"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt"`
	Error      string     `json:"error,omitempty"`
}

// Active reports whether the job has not finished.
func (j Job) Active() bool {
	return j.Status == JobStarting || j.Status == JobRunning
}

type outcome int

const (
	outcomeMatched outcome = iota
	outcomeDeleted
	outcomeFailed
)

// Batch runs at most one classification sweep at a time.
type Batch struct {
	catalog  *review.Catalog
	ledger   *ledger.Ledger
	detector *Detector
	engine   *review.Engine
	logger   *slog.Logger
	opts     options

	mu   sync.Mutex
	job  *Job
	done chan struct{}
}

// NewBatch wires a batch runner.
func NewBatch(catalog *review.Catalog, store *ledger.Ledger, detector *Detector, engine *review.Engine, logger *slog.Logger, opts ...Option) *Batch {
	o := buildOptions(opts)
	if o.newID == nil {
		o.newID = uuid.NewString
	}
	return &Batch{
		catalog:  catalog,
		ledger:   store,
		detector: detector,
		engine:   engine,
		logger:   logging.NewComponentLogger(logger, "batch"),
		opts:     o,
	}
}

// Start launches a sweep over scope in the background and returns the new
// job. ctx governs the run itself, so callers pass a lifetime context rather
// than a request context. A sweep already in progress yields
// services.ErrAlreadyRunning together with its snapshot.
func (b *Batch) Start(ctx context.Context, scope Scope) (Job, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.job != nil && b.job.Active() {
		return *b.job, services.Wrap(services.ErrAlreadyRunning, "batch", "start", "a batch is already running", nil)
	}
	if !b.detector.Configured() {
		return Job{}, services.Wrap(services.ErrMissingCredentials, "batch", "start", "llm api key not configured", nil)
	}
	job := &Job{
		ID:        b.opts.newID(),
		Scope:     scope,
		Status:    JobStarting,
		Phase:     PhaseDetecting,
		StartedAt: b.opts.now().UTC(),
	}
	done := make(chan struct{})
	b.job = job
	b.done = done

	runCtx := services.WithJobID(ctx, job.ID)
	go func() {
		defer close(done)
		b.run(runCtx)
	}()
	return *job, nil
}

// Status returns the current or most recent job.
func (b *Batch) Status() (Job, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.job == nil {
		return Job{}, false
	}
	return *b.job, true
}

// Wait blocks until the current job finishes and returns its final snapshot.
func (b *Batch) Wait() (Job, bool) {
	b.mu.Lock()
	done := b.done
	b.mu.Unlock()
	if done == nil {
		return Job{}, false
	}
	<-done
	return b.Status()
}

func (b *Batch) update(fn func(*Job)) Job {
	b.mu.Lock()
	fn(b.job)
	snapshot := *b.job
	b.mu.Unlock()
	return snapshot
}

func (b *Batch) finish(status, errMsg string) Job {
	now := b.opts.now().UTC()
	return b.update(func(j *Job) {
		j.Status = status
		j.Error = errMsg
		j.FinishedAt = &now
	})
}

func (b *Batch) run(ctx context.Context) {
	logger := logging.WithContext(ctx, b.logger)
	job := b.update(func(j *Job) {
		j.Status = JobRunning
		j.Phase = PhaseScanning
	})
	logger.Info("batch started", logging.String("scope", string(job.Scope)))

	entries, err := b.catalog.Refresh(ctx)
	if err != nil {
		b.finish(JobError, err.Error())
		logging.ErrorWithContext(logger, "batch scan failed", "batch_scan_failed", logging.Error(err))
		b.journal(ctx, JobError, err.Error())
		return
	}

	candidates := make([]review.Entry, 0, len(entries))
	for _, entry := range entries {
		if !entry.Item.IsImage() {
			continue
		}
		if job.Scope == ScopeUnreviewed && entry.Record.Status != ledger.StatusUnreviewed {
			continue
		}
		candidates = append(candidates, entry)
	}
	job = b.update(func(j *Job) {
		j.Phase = PhaseDetecting
		j.Total = len(candidates)
	})
	b.notify(job)

	for _, entry := range candidates {
		if err := ctx.Err(); err != nil {
			b.finish(JobError, "cancelled")
			logger.Warn("batch cancelled", logging.Int("processed", job.Processed))
			b.journal(ctx, JobError, "cancelled")
			return
		}
		result := b.process(ctx, entry)
		if err := b.ledger.Save(); err != nil {
			logger.Warn("ledger save after batch item failed", logging.Error(err))
		}
		job = b.update(func(j *Job) {
			j.Processed++
			switch result {
			case outcomeMatched:
				j.Matched++
			case outcomeDeleted:
				j.Deleted++
			default:
				j.Failed++
			}
		})
		b.notify(job)
	}

	job = b.finish(JobDone, "")
	logger.Info("batch complete",
		logging.Int("total", job.Total),
		logging.Int("matched", job.Matched),
		logging.Int("deleted", job.Deleted),
		logging.Int("failed", job.Failed))
	b.journal(ctx, JobDone, fmt.Sprintf("scope=%s total=%d matched=%d deleted=%d failed=%d",
		job.Scope, job.Total, job.Matched, job.Deleted, job.Failed))
}

// process handles one candidate. Failures of any kind, panics included, are
// recorded on the item and reported as outcomeFailed.
func (b *Batch) process(ctx context.Context, entry review.Entry) (result outcome) {
	key := entry.Item.Path
	logger := logging.WithContext(services.WithPath(ctx, key), b.logger)
	defer func() {
		if r := recover(); r != nil {
			logging.ErrorWithContext(logger, "batch item panicked", "batch_item_panic",
				logging.String("panic", fmt.Sprint(r)))
			b.detector.recordFailure(key, "exception")
			result = outcomeFailed
		}
	}()

	rec, ok := b.ledger.Get(key)
	if !ok {
		return outcomeFailed
	}
	entry.Record = rec

	// cached successes are reused; cached failures are retried
	if rec.Critter == nil {
		updated, err := b.detector.classify(ctx, entry)
		if err != nil {
			return outcomeFailed
		}
		rec = updated
	}
	if rec.Critter == nil {
		return outcomeFailed
	}
	if *rec.Critter {
		return outcomeMatched
	}

	res, err := b.engine.Apply(ctx, rec.Path, review.ActionDelete)
	if err != nil {
		b.detector.recordFailure(rec.Path, services.Code(err))
		return outcomeFailed
	}
	if res.Missing {
		b.detector.recordFailure(res.Path, services.Code(services.ErrMissingSource))
		return outcomeFailed
	}
	return outcomeDeleted
}

func (b *Batch) notify(job Job) {
	if b.opts.progress != nil {
		b.opts.progress(job)
	}
}

func (b *Batch) journal(ctx context.Context, status, detail string) {
	recordJournal(ctx, b.opts.journal, b.logger, journal.Entry{Kind: journal.KindBatch, Detail: detail, Status: status})
}
