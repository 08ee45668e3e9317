package api

import (
	"time"

	"camreview/internal/deps"
	"camreview/internal/enrich"
	"camreview/internal/journal"
	"camreview/internal/review"
)

// FromEntry converts a catalog entry to its API representation.
func FromEntry(entry review.Entry) LibraryItem {
	item, rec := entry.Item, entry.Record
	dto := LibraryItem{
		Path:              item.Path,
		Name:              item.Name,
		Folder:            item.Folder,
		Type:              item.Type,
		CapturedAtMs:      item.CapturedAtMs,
		MtimeMs:           item.MtimeMs,
		SizeBytes:         item.SizeBytes,
		Status:            rec.Status,
		ReviewedAt:        formatTime(rec.ReviewedAt),
		FavoritedAt:       formatTime(rec.FavoritedAt),
		Caption:           rec.Caption,
		Critter:           rec.Critter,
		CritterConfidence: rec.CritterConfidence,
		CritterCheckedAt:  formatTime(rec.CritterCheckedAt),
	}
	if rec.CritterModel != nil {
		dto.CritterModel = *rec.CritterModel
	}
	if rec.CritterError != nil {
		dto.CritterError = *rec.CritterError
	}
	return dto
}

// FromEntries converts entries preserving order. The result is never nil.
func FromEntries(entries []review.Entry) []LibraryItem {
	out := make([]LibraryItem, 0, len(entries))
	for _, entry := range entries {
		out = append(out, FromEntry(entry))
	}
	return out
}

// FromCounts converts review counts.
func FromCounts(c review.Counts) Counts {
	return Counts{Total: c.Total, Reviewed: c.Reviewed, Remaining: c.Remaining}
}

// FromActionResult converts the outcome of a review action.
func FromActionResult(res review.Result) ActionResponse {
	return ActionResponse{
		OK:          true,
		PrevPath:    res.PrevPath,
		Path:        res.Path,
		Status:      res.Record.Status,
		ReviewedAt:  formatTime(res.Record.ReviewedAt),
		FavoritedAt: formatTime(res.Record.FavoritedAt),
		Missing:     res.Missing,
	}
}

// FromDetectResult converts a detection result. OK follows the absence of an
// error code.
func FromDetectResult(res enrich.DetectResult) DetectResponse {
	return DetectResponse{
		OK:         res.Error == "",
		Path:       res.Path,
		Critter:    res.Critter,
		Confidence: res.Confidence,
		Model:      res.Model,
		CheckedAt:  formatTime(res.CheckedAt),
		Cached:     res.Cached,
		Error:      res.Error,
	}
}

// FromJob converts a batch job snapshot.
func FromJob(job enrich.Job) *BatchJob {
	dto := &BatchJob{
		ID:         job.ID,
		Scope:      string(job.Scope),
		Status:     job.Status,
		Phase:      job.Phase,
		Total:      job.Total,
		Processed:  job.Processed,
		Matched:    job.Matched,
		Deleted:    job.Deleted,
		Failed:     job.Failed,
		FinishedAt: formatTime(job.FinishedAt),
		Error:      job.Error,
	}
	if !job.StartedAt.IsZero() {
		dto.StartedAt = job.StartedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromDependencies converts dependency checks.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, len(statuses))
	for i, dep := range statuses {
		out[i] = DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		}
	}
	return out
}

// FromJournal converts journal rows.
func FromJournal(entries []journal.Entry) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, HistoryEntry{
			ID:        entry.ID,
			Kind:      entry.Kind,
			Path:      entry.Path,
			Detail:    entry.Detail,
			Status:    entry.Status,
			CreatedAt: entry.CreatedAt.UTC().Format(dateTimeFormat),
		})
	}
	return out
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
