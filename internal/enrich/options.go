package enrich

import (
	"time"

	"camreview/internal/review"
)

type options struct {
	now      func() time.Time
	journal  review.Journal
	progress func(Job)
	newID    func() string
}

// Option customizes a Detector, Captioner, or Batch.
type Option func(*options)

// WithClock overrides the time source used for recorded timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithJournal records completed operations.
func WithJournal(j review.Journal) Option {
	return func(o *options) { o.journal = j }
}

// WithProgress is called by Batch after every processed item.
func WithProgress(fn func(Job)) Option {
	return func(o *options) { o.progress = fn }
}

// WithJobIDs overrides batch job id generation.
func WithJobIDs(fn func() string) Option {
	return func(o *options) {
		if fn != nil {
			o.newID = fn
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
