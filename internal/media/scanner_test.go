package media

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"camreview/internal/logging"
	"camreview/internal/mediaroot"
)

func writeFile(t *testing.T, root, rel string) string {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return full
}

func newTestScanner(t *testing.T, dir string, stamps map[string]fileStamps, opts ...Option) *Scanner {
	t.Helper()
	root, err := mediaroot.New(dir)
	if err != nil {
		t.Fatalf("mediaroot.New: %v", err)
	}
	s := NewScanner(root, logging.NewNop(), opts...)
	if stamps != nil {
		s.stat = func(full string) (fileStamps, error) {
			key, _ := root.Key(full)
			if st, ok := stamps[key]; ok {
				return st, nil
			}
			return statFile(full)
		}
	}
	return s
}

func TestScanFiltersAndSkipsReservedDirs(t *testing.T) {
	dir := t.TempDir()
	for _, rel := range []string{
		"a.jpg",
		"cam1/b.JPEG",
		"cam1/clip.mov",
		"cam1/notes.txt",
		".camreview/previews/cam1/clip/frame_001.jpg",
		"trash/old.jpg",
		"Trash_2024-01-01/gone.jpg",
		"keep_2024-01-02/kept.png",
		"Favorites_2024-01-03/fav.mp4",
	} {
		writeFile(t, dir, rel)
	}

	items, err := newTestScanner(t, dir, nil).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	got := map[string]Item{}
	for _, item := range items {
		got[item.Path] = item
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 items, got %v", items)
	}
	if got["cam1/clip.mov"].Type != "video" || got["cam1/b.JPEG"].Type != "image" {
		t.Fatalf("unexpected types: %+v", got)
	}
	if got["a.jpg"].Folder != "." || got["cam1/b.JPEG"].Folder != "cam1" {
		t.Fatalf("unexpected folders: %+v", got)
	}
	if got["a.jpg"].SizeBytes != 1 || got["a.jpg"].Name != "a.jpg" {
		t.Fatalf("unexpected item: %+v", got["a.jpg"])
	}
}

func TestScanWithActionFoldersIncludesMovedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.jpg")
	writeFile(t, dir, "Keep_2024-01-02/kept.png")
	writeFile(t, dir, ".camreview/transcodes/x.mp4")

	items, err := newTestScanner(t, dir, nil, WithActionFolders()).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %+v", items)
	}
}

func TestScanOrdersByCaptureThenPath(t *testing.T) {
	dir := t.TempDir()
	for _, rel := range []string{"b.jpg", "a.jpg", "c.jpg", "d.jpg"} {
		writeFile(t, dir, rel)
	}
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	stamps := map[string]fileStamps{
		"a.jpg": {size: 1, mtime: base.Add(2 * time.Hour)},
		"b.jpg": {size: 1, mtime: base.Add(time.Hour)},
		// birth time wins over mtime when present
		"c.jpg": {size: 1, mtime: base.Add(5 * time.Hour), birth: base},
		"d.jpg": {size: 1, mtime: base.Add(time.Hour)},
	}

	scanner := newTestScanner(t, dir, stamps)
	first, err := scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	want := []string{"c.jpg", "b.jpg", "d.jpg", "a.jpg"}
	for i, item := range first {
		if item.Path != want[i] {
			t.Fatalf("position %d: got %s want %s (%+v)", i, item.Path, want[i], first)
		}
	}
	if first[0].CapturedAtMs != base.UnixMilli() || first[0].MtimeMs != base.Add(5*time.Hour).UnixMilli() {
		t.Fatalf("unexpected timestamps: %+v", first[0])
	}

	second, err := scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("second Scan: %v", err)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("rescan differs at %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestScanSkipsUnreadableSubtree(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission semantics differ")
	}
	dir := t.TempDir()
	writeFile(t, dir, "ok.jpg")
	writeFile(t, dir, "locked/hidden.jpg")
	locked := filepath.Join(dir, "locked")
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	items, err := newTestScanner(t, dir, nil).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(items) != 1 || items[0].Path != "ok.jpg" {
		t.Fatalf("expected only ok.jpg, got %+v", items)
	}
}

func TestScanHonorsCancellation(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.jpg")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newTestScanner(t, dir, nil).Scan(ctx); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestEXIFPreferenceFallsBackWithoutTags(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "plain.jpg")
	base := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	stamps := map[string]fileStamps{"plain.jpg": {size: 1, mtime: base}}

	items, err := newTestScanner(t, dir, stamps, WithCaptureTime("exif")).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(items) != 1 || items[0].CapturedAtMs != base.UnixMilli() {
		t.Fatalf("expected filesystem fallback, got %+v", items)
	}
}
