package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"camreview/internal/artifacts"
	"camreview/internal/config"
	"camreview/internal/deps"
	"camreview/internal/enrich"
	"camreview/internal/ffmpeg"
	"camreview/internal/journal"
	"camreview/internal/ledger"
	"camreview/internal/logging"
	"camreview/internal/media"
	"camreview/internal/mediaroot"
	"camreview/internal/review"
	"camreview/internal/services/llm"
	"camreview/internal/vision"
)

// Daemon owns every long-lived component of a CamReview process.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	root      *mediaroot.Root
	ledger    *ledger.Ledger
	journal   *journal.Store
	queue     *review.Catalog
	library   *review.Catalog
	engine    *review.Engine
	ffmpeg    *deps.FFmpegResolver
	artifacts *artifacts.Service
	llm       *llm.Client
	detector  *enrich.Detector
	captioner *enrich.Captioner
	batch     *enrich.Batch

	api *apiServer

	running atomic.Bool
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	MediaRoot    string
	LedgerPath   string
	SessionDate  string
	UndoDepth    int
	PendingJobs  int
	LLMReady     bool
	LLMModel     string
	Dependencies []deps.Status
	Batch        *enrich.Job
	Journal      bool
}

// Option customizes daemon construction.
type Option func(*options)

type options struct {
	llmOpts   []llm.Option
	batchOpts []enrich.Option
}

// WithLLMOptions forwards options to the vision model client.
func WithLLMOptions(opts ...llm.Option) Option {
	return func(o *options) { o.llmOpts = append(o.llmOpts, opts...) }
}

// WithBatchOptions forwards options to the batch pipeline, e.g. a progress
// callback.
func WithBatchOptions(opts ...enrich.Option) Option {
	return func(o *options) { o.batchOpts = append(o.batchOpts, opts...) }
}

// New constructs a daemon with initialized dependencies. The ledger is opened
// for writing, so only one daemon per ledger may exist at a time.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	root, err := mediaroot.New(cfg.Paths.MediaRoot)
	if err != nil {
		return nil, fmt.Errorf("media root: %w", err)
	}
	store, err := ledger.Open(cfg.Paths.LedgerPath, ledger.Options{
		Logger: logging.NewComponentLogger(logger, "ledger"),
	})
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	d := &Daemon{cfg: cfg, logger: logger, root: root, ledger: store}

	var engineOpts []review.Option
	var enrichOpts []enrich.Option
	if j, err := journal.Open(cfg.Paths.JournalPath); err != nil {
		logging.WarnWithContext(logger, "action journal unavailable", "journal_open_failed",
			logging.Error(err),
			logging.String(logging.FieldPath, cfg.Paths.JournalPath),
			logging.String(logging.FieldImpact, "history will not be recorded"),
			logging.String(logging.FieldErrorHint, "check journal_path permissions"))
	} else {
		d.journal = j
		engineOpts = append(engineOpts, review.WithJournal(j))
		enrichOpts = append(enrichOpts, enrich.WithJournal(j))
	}

	scanner := media.NewScanner(root, logging.NewComponentLogger(logger, "scanner"), media.WithCaptureTime(cfg.Scan.CaptureTime))
	d.queue = review.NewCatalog(scanner, store)
	d.library = review.NewCatalog(scanner.With(media.WithActionFolders()), store)
	d.engine = review.NewEngine(root, store, logging.NewComponentLogger(logger, "review"), engineOpts...)

	d.ffmpeg = deps.NewFFmpegResolver(cfg.FFmpeg.Path, logging.NewComponentLogger(logger, "deps"))
	runner := ffmpeg.NewRunner(d.ffmpeg, cfg.FFmpegTimeout(), logging.NewComponentLogger(logger, "ffmpeg"))
	d.artifacts = artifacts.NewService(root, runner, nil, artifacts.PreviewSettings{
		FPS:       cfg.Preview.FPS,
		MaxFrames: cfg.Preview.MaxFrames,
	}, logging.NewComponentLogger(logger, "artifacts"))

	d.llm = llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	}, o.llmOpts...)
	enrichLogger := logging.NewComponentLogger(logger, "enrich")
	classifier := vision.NewClassifier(d.llm, logging.NewComponentLogger(logger, "vision"))
	resolver := enrich.NewImageResolver(root, d.artifacts)
	d.detector = enrich.NewDetector(d.library, store, classifier, resolver, enrichLogger, enrichOpts...)
	d.captioner = enrich.NewCaptioner(d.library, store, classifier, resolver, enrichLogger, enrichOpts...)
	d.batch = enrich.NewBatch(d.queue, store, d.detector, d.engine, enrichLogger, append(enrichOpts, o.batchOpts...)...)

	d.api = newAPIServer(cfg, d, logging.NewComponentLogger(logger, "api-server"))
	return d, nil
}

// Start begins serving the HTTP API. Background work started by requests is
// bound to ctx.
func (d *Daemon) Start(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return errors.New("daemon already running")
	}
	d.mu.Lock()
	d.ctx, d.cancel = context.WithCancel(ctx)
	runCtx := d.ctx
	d.mu.Unlock()

	if err := d.api.start(runCtx); err != nil {
		d.Stop()
		return err
	}
	d.logger.Info("camreview daemon started",
		logging.String("media_root", d.root.Dir()),
		logging.String("ledger", d.ledger.Path()))
	return nil
}

// Stop stops serving and cancels background work.
func (d *Daemon) Stop() {
	if !d.running.CompareAndSwap(true, false) {
		return
	}
	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.mu.Unlock()
	d.api.stop()
	d.logger.Info("camreview daemon stopped")
}

// Close releases resources held by the daemon. A running batch is waited for
// so its final ledger write is not lost.
func (d *Daemon) Close() error {
	d.Stop()
	d.batch.Wait()
	var errs []error
	if err := d.ledger.Save(); err != nil {
		errs = append(errs, err)
	}
	if err := d.ledger.Close(); err != nil {
		errs = append(errs, err)
	}
	if d.journal != nil {
		if err := d.journal.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Addr returns the HTTP listener address once started.
func (d *Daemon) Addr() string {
	return d.api.Addr()
}

// runContext returns the lifetime context for background jobs.
func (d *Daemon) runContext() context.Context {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ctx != nil {
		return d.ctx
	}
	return context.Background()
}

// Items returns the unreviewed queue and counts over the queue scan.
func (d *Daemon) Items(ctx context.Context) ([]review.Entry, review.Counts, error) {
	entries, err := d.queue.Refresh(ctx)
	if err != nil {
		return nil, review.Counts{}, err
	}
	return review.Unreviewed(entries), review.Tally(entries), nil
}

// Library returns every scanned item, including files already filed into
// action folders.
func (d *Daemon) Library(ctx context.Context) ([]review.Entry, review.Counts, error) {
	entries, err := d.library.Refresh(ctx)
	if err != nil {
		return nil, review.Counts{}, err
	}
	return entries, review.Tally(entries), nil
}

// Apply runs a review action.
func (d *Daemon) Apply(ctx context.Context, key, action string) (review.Result, error) {
	return d.engine.Apply(ctx, key, action)
}

// Undo reverts the most recent action.
func (d *Daemon) Undo(ctx context.Context) (review.UndoResult, error) {
	return d.engine.Undo(ctx)
}

// Detect classifies one image.
func (d *Daemon) Detect(ctx context.Context, key string, force bool) (enrich.DetectResult, error) {
	return d.detector.Detect(ctx, key, enrich.DetectOptions{Force: force})
}

// SetCaption stores a manual caption.
func (d *Daemon) SetCaption(ctx context.Context, key, caption string) (ledger.Record, error) {
	return d.captioner.Set(ctx, key, caption)
}

// GenerateCaption asks the model for a caption and stores it.
func (d *Daemon) GenerateCaption(ctx context.Context, key string) (string, string, error) {
	return d.captioner.Generate(ctx, key)
}

// StartBatch launches a batch sweep bound to the daemon lifetime rather than
// to the request that started it.
func (d *Daemon) StartBatch(scope enrich.Scope) (enrich.Job, error) {
	return d.batch.Start(d.runContext(), scope)
}

// BatchStatus returns the current or last batch job.
func (d *Daemon) BatchStatus() (enrich.Job, bool) {
	return d.batch.Status()
}

// WaitBatch blocks until the current batch job finishes.
func (d *Daemon) WaitBatch() (enrich.Job, bool) {
	return d.batch.Wait()
}

// Artifacts exposes the preview and transcode service.
func (d *Daemon) Artifacts() *artifacts.Service {
	return d.artifacts
}

// Root exposes the media root.
func (d *Daemon) Root() *mediaroot.Root {
	return d.root
}

// History returns recent journal entries, newest first. An unavailable journal
// yields an empty list.
func (d *Daemon) History(ctx context.Context, limit int) ([]journal.Entry, error) {
	if d.journal == nil {
		return nil, nil
	}
	return d.journal.List(ctx, limit)
}

// CheckLLM performs a minimal request against the configured model.
func (d *Daemon) CheckLLM(ctx context.Context) error {
	return d.llm.HealthCheck(ctx)
}

// Dependencies reports external tool availability.
func (d *Daemon) Dependencies() []deps.Status {
	return []deps.Status{d.ffmpeg.Status()}
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	status := Status{
		Running:      d.running.Load(),
		MediaRoot:    d.root.Dir(),
		LedgerPath:   d.ledger.Path(),
		SessionDate:  d.engine.SessionDate(),
		UndoDepth:    d.engine.UndoDepth(),
		PendingJobs:  d.artifacts.Registry().Pending(),
		LLMReady:     d.llm.Configured(),
		LLMModel:     d.llm.Model(),
		Dependencies: d.Dependencies(),
		Journal:      d.journal != nil,
	}
	if job, ok := d.batch.Status(); ok {
		status.Batch = &job
	}
	return status
}
