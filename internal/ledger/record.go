package ledger

import (
	"encoding/json"
	"time"
)

// SchemaVersion is written to every persisted document.
const SchemaVersion = 1

// Review statuses.
const (
	StatusUnreviewed = "unreviewed"
	StatusKeep       = "keep"
	StatusDelete     = "delete"
	StatusFavorite   = "favorite"
)

// MaxCaptionLength bounds stored captions, in characters.
const MaxCaptionLength = 1000

// Record is the persisted review state of one media file. Path is always the
// current on-disk key; OriginalPath is fixed on the first move.
type Record struct {
	Path              string          `json:"path"`
	Status            string          `json:"status"`
	ReviewedAt        *time.Time      `json:"reviewedAt"`
	FavoritedAt       *time.Time      `json:"favoritedAt"`
	Caption           string          `json:"caption"`
	AI                json.RawMessage `json:"ai"`
	Critter           *bool           `json:"critter"`
	CritterConfidence *float64        `json:"critterConfidence"`
	CritterCheckedAt  *time.Time      `json:"critterCheckedAt"`
	CritterModel      *string         `json:"critterModel"`
	CritterError      *string         `json:"critterError"`
	OriginalPath      string          `json:"originalPath,omitempty"`
	MovedAt           *time.Time      `json:"movedAt,omitempty"`
	Missing           bool            `json:"missing,omitempty"`
	MissingAt         *time.Time      `json:"missingAt,omitempty"`
}

// requiredKeys lists fields every stored record must carry. Records loaded
// without one of them are rewritten with the default on the next sync.
var requiredKeys = []string{
	"status",
	"reviewedAt",
	"favoritedAt",
	"caption",
	"ai",
	"critter",
	"critterConfidence",
	"critterCheckedAt",
	"critterModel",
	"critterError",
}

// NewRecord returns the default record for a newly seen path.
func NewRecord(path string) Record {
	return Record{Path: path, Status: StatusUnreviewed}
}

// ValidStatus reports whether status is one of the review statuses.
func ValidStatus(status string) bool {
	switch status {
	case StatusUnreviewed, StatusKeep, StatusDelete, StatusFavorite:
		return true
	default:
		return false
	}
}

// HasDetection reports whether a classification attempt, successful or not,
// is recorded.
func (r Record) HasDetection() bool {
	return r.Critter != nil || (r.CritterError != nil && *r.CritterError != "")
}

// Clone returns a deep copy so callers never alias ledger state.
func (r Record) Clone() Record {
	out := r
	out.ReviewedAt = cloneTime(r.ReviewedAt)
	out.FavoritedAt = cloneTime(r.FavoritedAt)
	out.CritterCheckedAt = cloneTime(r.CritterCheckedAt)
	out.MovedAt = cloneTime(r.MovedAt)
	out.MissingAt = cloneTime(r.MissingAt)
	if r.AI != nil {
		out.AI = append(json.RawMessage(nil), r.AI...)
	}
	if r.Critter != nil {
		v := *r.Critter
		out.Critter = &v
	}
	if r.CritterConfidence != nil {
		v := *r.CritterConfidence
		out.CritterConfidence = &v
	}
	if r.CritterModel != nil {
		v := *r.CritterModel
		out.CritterModel = &v
	}
	if r.CritterError != nil {
		v := *r.CritterError
		out.CritterError = &v
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// TimePtr returns a pointer to t truncated to milliseconds in UTC, the
// resolution stored in the ledger.
func TimePtr(t time.Time) *time.Time {
	v := t.UTC().Truncate(time.Millisecond)
	return &v
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }
