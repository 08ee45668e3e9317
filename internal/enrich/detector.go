package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"time"

	"camreview/internal/journal"
	"camreview/internal/ledger"
	"camreview/internal/logging"
	"camreview/internal/mediaroot"
	"camreview/internal/review"
	"camreview/internal/services"
	"camreview/internal/vision"
)

// Classifier is the vision surface used for detection and captions.
type Classifier interface {
	Configured() bool
	Model() string
	Classify(ctx context.Context, img vision.Image) (vision.Detection, error)
	Caption(ctx context.Context, img vision.Image) (string, error)
}

// DetectOptions controls a single detection.
type DetectOptions struct {
	// Force ignores a cached outcome and calls the classifier again.
	Force bool
}

// DetectResult is the detection state of one record.
type DetectResult struct {
	Path       string     `json:"path"`
	Critter    *bool      `json:"critter"`
	Confidence *float64   `json:"confidence"`
	Model      string     `json:"model"`
	CheckedAt  *time.Time `json:"checkedAt"`
	Cached     bool       `json:"cached"`
	Error      string     `json:"error,omitempty"`
}

// Detector classifies single images and records the outcome.
type Detector struct {
	catalog    *review.Catalog
	ledger     *ledger.Ledger
	classifier Classifier
	resolver   *ImageResolver
	logger     *slog.Logger
	opts       options
}

// NewDetector wires a detector.
func NewDetector(catalog *review.Catalog, store *ledger.Ledger, classifier Classifier, resolver *ImageResolver, logger *slog.Logger, opts ...Option) *Detector {
	return &Detector{
		catalog:    catalog,
		ledger:     store,
		classifier: classifier,
		resolver:   resolver,
		logger:     logging.NewComponentLogger(logger, "detector"),
		opts:       buildOptions(opts),
	}
}

// Configured reports whether the classifier has credentials.
func (d *Detector) Configured() bool {
	return d.classifier != nil && d.classifier.Configured()
}

// Detect returns the animal-presence verdict for an image. A previously
// recorded outcome, success or failure, is returned with Cached set unless
// opts.Force is given. Failures are returned as errors whose services.Code is
// the code stored on the record.
func (d *Detector) Detect(ctx context.Context, key string, opts DetectOptions) (DetectResult, error) {
	if !d.Configured() {
		return DetectResult{}, services.Wrap(services.ErrMissingCredentials, "detector", "detect", "llm api key not configured", nil)
	}
	if kind, _ := mediaroot.KindForExt(path.Ext(key)); kind != mediaroot.KindImage {
		return DetectResult{}, notImage(key)
	}
	entry, err := d.catalog.Lookup(ctx, key)
	if err != nil {
		return DetectResult{}, err
	}
	if !entry.Item.IsImage() {
		return DetectResult{}, notImage(key)
	}

	if !opts.Force && entry.Record.HasDetection() {
		res := resultFromRecord(entry.Record)
		res.Cached = true
		if res.Critter == nil {
			return res, cachedFailure(res.Error)
		}
		return res, nil
	}

	rec, err := d.classify(ctx, entry)
	res := resultFromRecord(rec)
	if err != nil {
		res.Error = services.Code(err)
		return res, err
	}
	return res, nil
}

// classify runs one fresh attempt for entry and records it on the ledger.
func (d *Detector) classify(ctx context.Context, entry review.Entry) (ledger.Record, error) {
	logger := logging.WithContext(services.WithPath(ctx, entry.Item.Path), d.logger)
	model := d.classifier.Model()
	now := d.opts.now()

	detection, err := d.run(ctx, entry)
	code := services.Code(err)
	rec, updateErr := d.ledger.Update(entry.Item.Path, func(r *ledger.Record) error {
		r.CritterCheckedAt = ledger.TimePtr(now)
		r.CritterModel = ledger.StringPtr(model)
		if err != nil {
			r.CritterError = ledger.StringPtr(code)
			return nil
		}
		critter := detection.Critter
		r.Critter = &critter
		r.CritterConfidence = detection.Confidence
		r.CritterError = nil
		return nil
	})
	if updateErr != nil {
		return rec, updateErr
	}

	status, detail := "ok", "critter="+strconv.FormatBool(detection.Critter)
	if err != nil {
		status, detail = "error", code
		logging.WarnWithContext(logger, "classification failed", "detect_failed",
			logging.String("code", code),
			logging.Error(err))
	} else {
		logger.Info("classification recorded",
			logging.Bool("critter", detection.Critter),
			logging.String("model", model))
	}
	recordJournal(ctx, d.opts.journal, d.logger, journal.Entry{Kind: journal.KindClassify, Path: entry.Item.Path, Detail: detail, Status: status})
	return rec, err
}

func (d *Detector) run(ctx context.Context, entry review.Entry) (vision.Detection, error) {
	imagePath, err := d.resolver.Resolve(ctx, entry.Item)
	if err != nil {
		return vision.Detection{}, err
	}
	img, err := vision.LoadImage(imagePath)
	if err != nil {
		return vision.Detection{}, err
	}
	return d.classifier.Classify(ctx, img)
}

// recordFailure stores code on a record without a fresh classification.
func (d *Detector) recordFailure(key, code string) {
	now := d.opts.now()
	model := d.classifier.Model()
	_, err := d.ledger.Update(key, func(r *ledger.Record) error {
		r.CritterError = ledger.StringPtr(code)
		r.CritterCheckedAt = ledger.TimePtr(now)
		if r.CritterModel == nil {
			r.CritterModel = ledger.StringPtr(model)
		}
		return nil
	})
	if err != nil && !errors.Is(err, services.ErrNotFound) {
		d.logger.Warn("failed to record detection failure",
			logging.String(logging.FieldPath, key),
			logging.Error(err))
	}
}

func resultFromRecord(rec ledger.Record) DetectResult {
	res := DetectResult{
		Path:       rec.Path,
		Critter:    rec.Critter,
		Confidence: rec.CritterConfidence,
		CheckedAt:  rec.CritterCheckedAt,
	}
	if rec.CritterModel != nil {
		res.Model = *rec.CritterModel
	}
	if rec.CritterError != nil {
		res.Error = *rec.CritterError
	}
	return res
}

func cachedFailure(code string) error {
	if code == "" {
		code = "exception"
	}
	return services.WithCode(code, fmt.Errorf("previous classification failed with %s; retry with force", code))
}

func notImage(key string) error {
	return services.WithCode("not_image",
		services.Wrap(services.ErrValidation, "enrich", "detect", fmt.Sprintf("%s is not an image", key), nil))
}

func recordJournal(ctx context.Context, j review.Journal, logger *slog.Logger, entry journal.Entry) {
	if j == nil {
		return
	}
	if err := j.Record(context.WithoutCancel(ctx), entry); err != nil {
		logging.WarnWithContext(logger, "journal write failed", "journal_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "history view will miss this entry"))
	}
}
