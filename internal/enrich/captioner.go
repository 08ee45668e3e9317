package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"camreview/internal/journal"
	"camreview/internal/ledger"
	"camreview/internal/logging"
	"camreview/internal/review"
	"camreview/internal/services"
	"camreview/internal/vision"
)

// Captioner stores manual captions and generates new ones.
type Captioner struct {
	catalog    *review.Catalog
	ledger     *ledger.Ledger
	classifier Classifier
	resolver   *ImageResolver
	logger     *slog.Logger
	opts       options
}

// NewCaptioner wires a captioner.
func NewCaptioner(catalog *review.Catalog, store *ledger.Ledger, classifier Classifier, resolver *ImageResolver, logger *slog.Logger, opts ...Option) *Captioner {
	return &Captioner{
		catalog:    catalog,
		ledger:     store,
		classifier: classifier,
		resolver:   resolver,
		logger:     logging.NewComponentLogger(logger, "captioner"),
		opts:       buildOptions(opts),
	}
}

// Set stores caption on the record for key. Captions longer than
// ledger.MaxCaptionLength characters are rejected.
func (c *Captioner) Set(ctx context.Context, key, caption string) (ledger.Record, error) {
	if utf8.RuneCountInString(caption) > ledger.MaxCaptionLength {
		return ledger.Record{}, services.WithCode("caption_too_long",
			services.Wrap(services.ErrValidation, "captioner", "set", fmt.Sprintf("caption exceeds %d characters", ledger.MaxCaptionLength), nil))
	}
	if _, err := c.catalog.Lookup(ctx, key); err != nil {
		return ledger.Record{}, err
	}
	rec, err := c.ledger.Update(key, func(r *ledger.Record) error {
		r.Caption = caption
		return nil
	})
	if err != nil {
		return ledger.Record{}, err
	}
	recordJournal(ctx, c.opts.journal, c.logger, journal.Entry{Kind: journal.KindCaption, Path: key, Detail: "manual", Status: "ok"})
	return rec, nil
}

// Generate asks the model for a caption of the image at key and stores it.
func (c *Captioner) Generate(ctx context.Context, key string) (string, string, error) {
	if c.classifier == nil || !c.classifier.Configured() {
		return "", "", services.Wrap(services.ErrMissingCredentials, "captioner", "generate", "llm api key not configured", nil)
	}
	entry, err := c.catalog.Lookup(ctx, key)
	if err != nil {
		return "", "", err
	}
	if !entry.Item.IsImage() {
		return "", "", notImage(key)
	}
	imagePath, err := c.resolver.Resolve(ctx, entry.Item)
	if err != nil {
		return "", "", err
	}
	img, err := vision.LoadImage(imagePath)
	if err != nil {
		return "", "", err
	}
	model := c.classifier.Model()
	caption, err := c.classifier.Caption(ctx, img)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(services.WithPath(ctx, key), c.logger), "caption generation failed", "caption_failed",
			logging.String("code", services.Code(err)),
			logging.Error(err))
		return "", model, err
	}
	if runes := []rune(caption); len(runes) > ledger.MaxCaptionLength {
		caption = string(runes[:ledger.MaxCaptionLength])
	}
	if _, err := c.ledger.Update(key, func(r *ledger.Record) error {
		r.Caption = caption
		return nil
	}); err != nil {
		return "", model, err
	}
	recordJournal(ctx, c.opts.journal, c.logger, journal.Entry{Kind: journal.KindCaption, Path: key, Detail: "generated", Status: "ok"})
	return caption, model, nil
}
