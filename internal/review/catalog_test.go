package review_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"camreview/internal/ledger"
	"camreview/internal/logging"
	"camreview/internal/media"
	"camreview/internal/review"
	"camreview/internal/services"
)

func TestCatalogRefreshMergesLedger(t *testing.T) {
	f := newFixture(t, "a.jpg", "b.jpg")
	// c.jpg appears on disk after the fixture synced
	if err := os.WriteFile(filepath.Join(f.dir, "c.jpg"), []byte("c"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := f.engine.Apply(context.Background(), "a.jpg", review.ActionKeep); err != nil {
		t.Fatal(err)
	}

	scanner := media.NewScanner(f.root, logging.NewNop())
	catalog := review.NewCatalog(scanner, f.ledger)
	entries, err := catalog.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected queue scan to skip action folders, got %d entries", len(entries))
	}
	if _, ok := f.ledger.Get("c.jpg"); !ok {
		t.Fatal("new file should receive a record")
	}
	counts := review.Tally(entries)
	if counts.Total != 2 || counts.Remaining != 2 || counts.Reviewed != 0 {
		t.Fatalf("unexpected counts %+v", counts)
	}

	library := review.NewCatalog(scanner.With(media.WithActionFolders()), f.ledger)
	all, err := library.Refresh(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	counts = review.Tally(all)
	if counts.Total != 3 || counts.Reviewed != 1 {
		t.Fatalf("unexpected library counts %+v", counts)
	}
	for _, entry := range all {
		if entry.Item.Path == "Keep_2024-01-01/a.jpg" && entry.Record.Status != ledger.StatusKeep {
			t.Fatalf("moved record not merged: %+v", entry.Record)
		}
	}
}

func TestCatalogLookup(t *testing.T) {
	f := newFixture(t, "a.jpg")
	catalog := review.NewCatalog(media.NewScanner(f.root, logging.NewNop()), f.ledger)

	entry, err := catalog.Lookup(context.Background(), "a.jpg")
	if err != nil || entry.Record.Path != "a.jpg" || !entry.Item.IsImage() {
		t.Fatalf("unexpected lookup %+v %v", entry, err)
	}
	if _, err := catalog.Lookup(context.Background(), "zzz.jpg"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
