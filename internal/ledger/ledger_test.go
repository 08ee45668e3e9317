package ledger_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"camreview/internal/ledger"
	"camreview/internal/media"
	"camreview/internal/services"
)

func openTemp(t *testing.T, opts ledger.Options) (*ledger.Ledger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trailcam_review.json")
	l, err := ledger.Open(path, opts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l, path
}

func readDoc(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read ledger: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode ledger: %v", err)
	}
	return doc
}

func TestOpenMissingFileCreatesEmptyLedger(t *testing.T) {
	l, path := openTemp(t, ledger.Options{})
	if l.Len() != 0 {
		t.Fatalf("expected empty ledger, got %d records", l.Len())
	}
	doc := readDoc(t, path)
	if doc["schemaVersion"].(float64) != 1 {
		t.Fatalf("unexpected schema version: %v", doc["schemaVersion"])
	}
	if items, ok := doc["items"].([]any); !ok || len(items) != 0 {
		t.Fatalf("expected empty items array, got %v", doc["items"])
	}
}

func TestOpenCorruptFileBacksUpAndResets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trailcam_review.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	fixed := time.UnixMilli(1700000000123)
	l, err := ledger.Open(path, ledger.Options{Now: func() time.Time { return fixed }})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer l.Close()

	backup := path + ".corrupt-1700000000123"
	data, err := os.ReadFile(backup)
	if err != nil {
		t.Fatalf("expected backup file: %v", err)
	}
	if string(data) != "{not json" {
		t.Fatalf("backup content mismatch: %q", data)
	}
	if l.Len() != 0 {
		t.Fatalf("expected empty ledger after corruption")
	}
	if items := readDoc(t, path)["items"].([]any); len(items) != 0 {
		t.Fatalf("expected fresh empty ledger persisted, got %v", items)
	}
}

func TestOpenWrongShapeIsCorrupt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trailcam_review.json")
	if err := os.WriteFile(path, []byte(`{"schemaVersion":1,"items":{"a":1}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	l, err := ledger.Open(path, ledger.Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer l.Close()
	matches, _ := filepath.Glob(path + ".corrupt-*")
	if len(matches) != 1 {
		t.Fatalf("expected one backup, got %v", matches)
	}
}

func TestSyncCreatesDefaultsAndIsIdempotent(t *testing.T) {
	l, _ := openTemp(t, ledger.Options{})
	start := l.Writes()
	items := []media.Item{{Path: "a.jpg", Type: "image"}, {Path: "cam/b.mp4", Type: "video"}}

	records, err := l.Sync(items)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	rec := records["a.jpg"]
	if rec.Status != ledger.StatusUnreviewed || rec.Critter != nil || rec.ReviewedAt != nil || rec.Caption != "" {
		t.Fatalf("unexpected default record: %+v", rec)
	}
	if l.Writes() != start+1 {
		t.Fatalf("expected exactly one write, got %d", l.Writes()-start)
	}

	if _, err := l.Sync(items); err != nil {
		t.Fatalf("second Sync: %v", err)
	}
	if l.Writes() != start+1 {
		t.Fatalf("second sync should not write, writes=%d", l.Writes()-start)
	}
}

func TestSyncBackfillsMissingFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trailcam_review.json")
	legacy := `{"schemaVersion":1,"sessionDate":null,"items":[{"path":"a.jpg","status":"keep","reviewedAt":"2024-01-01T10:00:00.000Z","caption":"fox"}]}`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}
	l, err := ledger.Open(path, ledger.Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer l.Close()
	start := l.Writes()

	records, err := l.Sync([]media.Item{{Path: "a.jpg"}})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if l.Writes() != start+1 {
		t.Fatalf("expected one backfill write, got %d", l.Writes()-start)
	}
	rec := records["a.jpg"]
	if rec.Status != ledger.StatusKeep || rec.Caption != "fox" || rec.ReviewedAt == nil {
		t.Fatalf("existing values lost: %+v", rec)
	}

	raw := readDoc(t, path)["items"].([]any)[0].(map[string]any)
	for _, key := range []string{"critter", "critterConfidence", "critterCheckedAt", "critterModel", "critterError", "favoritedAt", "ai"} {
		if _, ok := raw[key]; !ok {
			t.Fatalf("expected %s to be backfilled, got %v", key, raw)
		}
	}

	if _, err := l.Sync([]media.Item{{Path: "a.jpg"}}); err != nil {
		t.Fatalf("second Sync: %v", err)
	}
	if l.Writes() != start+1 {
		t.Fatal("backfill should happen once")
	}
}

func TestUpdateRekeysAndPersists(t *testing.T) {
	l, path := openTemp(t, ledger.Options{})
	if _, err := l.Sync([]media.Item{{Path: "a.jpg"}}); err != nil {
		t.Fatal(err)
	}
	updated, err := l.Update("a.jpg", func(r *ledger.Record) error {
		r.Path = "Trash_2024-01-01/a.jpg"
		r.Status = ledger.StatusDelete
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Path != "Trash_2024-01-01/a.jpg" {
		t.Fatalf("unexpected path %q", updated.Path)
	}
	if _, ok := l.Get("a.jpg"); ok {
		t.Fatal("old key should be gone")
	}
	if rec, ok := l.Get("Trash_2024-01-01/a.jpg"); !ok || rec.Status != ledger.StatusDelete {
		t.Fatalf("expected re-keyed record, got %+v", rec)
	}

	reopened, err := ledger.Open(path, ledger.Options{ReadOnly: true})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if _, ok := reopened.Get("Trash_2024-01-01/a.jpg"); !ok {
		t.Fatal("expected persisted re-key")
	}
}

func TestUpdateErrorLeavesStateUntouched(t *testing.T) {
	l, _ := openTemp(t, ledger.Options{})
	if _, err := l.Sync([]media.Item{{Path: "a.jpg"}}); err != nil {
		t.Fatal(err)
	}
	writes := l.Writes()
	boom := errors.New("boom")
	_, err := l.Update("a.jpg", func(r *ledger.Record) error {
		r.Status = ledger.StatusKeep
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}
	if rec, _ := l.Get("a.jpg"); rec.Status != ledger.StatusUnreviewed {
		t.Fatalf("status leaked: %+v", rec)
	}
	if l.Writes() != writes {
		t.Fatal("failed update should not write")
	}

	if _, err := l.Update("missing.jpg", func(*ledger.Record) error { return nil }); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	l, _ := openTemp(t, ledger.Options{})
	if _, err := l.Sync([]media.Item{{Path: "a.jpg"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Update("a.jpg", func(r *ledger.Record) error {
		v := true
		r.Critter = &v
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	rec, _ := l.Get("a.jpg")
	*rec.Critter = false
	again, _ := l.Get("a.jpg")
	if !*again.Critter {
		t.Fatal("Get must not alias internal state")
	}
}

func TestSecondWriterIsRejected(t *testing.T) {
	_, path := openTemp(t, ledger.Options{})
	if _, err := ledger.Open(path, ledger.Options{}); !errors.Is(err, services.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	ro, err := ledger.Open(path, ledger.Options{ReadOnly: true})
	if err != nil {
		t.Fatalf("read-only open should succeed: %v", err)
	}
	if err := ro.Save(); err != nil {
		t.Fatalf("read-only save: %v", err)
	}
	if ro.Writes() != 0 {
		t.Fatal("read-only ledger must never write")
	}
}

func TestSessionDatePersisted(t *testing.T) {
	l, path := openTemp(t, ledger.Options{})
	l.SetSessionDate("2024-01-01")
	if err := l.Save(); err != nil {
		t.Fatal(err)
	}
	if got := readDoc(t, path)["sessionDate"]; got != "2024-01-01" {
		t.Fatalf("unexpected sessionDate %v", got)
	}
	if !strings.HasSuffix(l.Path(), "trailcam_review.json") {
		t.Fatalf("unexpected path %q", l.Path())
	}
}
