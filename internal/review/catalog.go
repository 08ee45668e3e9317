package review

import (
	"context"
	"fmt"

	"camreview/internal/ledger"
	"camreview/internal/media"
	"camreview/internal/services"
)

// Scanner lists the media currently on disk.
type Scanner interface {
	Scan(ctx context.Context) ([]media.Item, error)
}

// Entry pairs a scanned file with its ledger record.
type Entry struct {
	Item   media.Item
	Record ledger.Record
}

// Counts summarizes review progress over a set of entries.
type Counts struct {
	Total     int `json:"total"`
	Reviewed  int `json:"reviewed"`
	Remaining int `json:"remaining"`
}

// Catalog produces the merged view of the filesystem and the ledger.
type Catalog struct {
	scanner Scanner
	ledger  *ledger.Ledger
}

// NewCatalog constructs a catalog over scanner and store.
func NewCatalog(scanner Scanner, store *ledger.Ledger) *Catalog {
	return &Catalog{scanner: scanner, ledger: store}
}

// Refresh scans, reconciles the ledger, and returns entries in scan order.
func (c *Catalog) Refresh(ctx context.Context) ([]Entry, error) {
	items, err := c.scanner.Scan(ctx)
	if err != nil {
		return nil, err
	}
	records, err := c.ledger.Sync(items)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		rec, ok := records[item.Path]
		if !ok {
			rec = ledger.NewRecord(item.Path)
		}
		entries = append(entries, Entry{Item: item, Record: rec})
	}
	return entries, nil
}

// Lookup refreshes and returns the entry for key.
func (c *Catalog) Lookup(ctx context.Context, key string) (Entry, error) {
	entries, err := c.Refresh(ctx)
	if err != nil {
		return Entry{}, err
	}
	for _, entry := range entries {
		if entry.Item.Path == key {
			return entry, nil
		}
	}
	return Entry{}, services.Wrap(services.ErrNotFound, "review", "lookup", fmt.Sprintf("%s is not in the media root", key), nil)
}

// Unreviewed filters entries down to the review queue.
func Unreviewed(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		if entry.Record.Status == ledger.StatusUnreviewed {
			out = append(out, entry)
		}
	}
	return out
}

// Tally counts reviewed and remaining entries.
func Tally(entries []Entry) Counts {
	remaining := len(Unreviewed(entries))
	return Counts{Total: len(entries), Reviewed: len(entries) - remaining, Remaining: remaining}
}
