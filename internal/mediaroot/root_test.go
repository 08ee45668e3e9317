package mediaroot

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"camreview/internal/services"
)

func TestNormalizeKey(t *testing.T) {
	cases := map[string]string{
		"a.jpg":          "a.jpg",
		"./cam1/a.jpg":   "cam1/a.jpg",
		"cam1\\b.jpg":    "cam1/b.jpg",
		"/cam1//c.jpg":   "cam1/c.jpg",
		"cam1/../d.jpg":  "d.jpg",
		"cafe\u0301.jpg": "caf\u00e9.jpg",
		"  spaced.jpg  ": "spaced.jpg",
		"":               "",
	}
	for in, want := range cases {
		if got := NormalizeKey(in); got != want {
			t.Errorf("NormalizeKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResolveRejectsEscapes(t *testing.T) {
	root, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, key := range []string{"", "../outside.jpg", "cam/../../x.jpg", "/etc/passwd"} {
		if _, err := root.Resolve(key); !errors.Is(err, services.ErrInvalidPath) {
			t.Errorf("Resolve(%q) err = %v, want ErrInvalidPath", key, err)
		}
	}
	full, err := root.Resolve("cam1/a.jpg")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if full != filepath.Join(root.Dir(), "cam1", "a.jpg") {
		t.Fatalf("unexpected resolved path %q", full)
	}
	if key, err := root.Clean("./cam1//a.jpg"); err != nil || key != "cam1/a.jpg" {
		t.Fatalf("Clean = %q, %v", key, err)
	}
	if _, err := root.Clean("../a.jpg"); !errors.Is(err, services.ErrInvalidPath) {
		t.Fatalf("Clean should reject escapes, got %v", err)
	}
	key, err := root.Key(full)
	if err != nil || key != "cam1/a.jpg" {
		t.Fatalf("Key round trip = %q, %v", key, err)
	}
}

func TestNewRequiresDirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(file); !errors.Is(err, services.ErrInvalidPath) {
		t.Fatalf("expected ErrInvalidPath for file root, got %v", err)
	}
	if _, err := New(filepath.Join(dir, "missing")); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing root, got %v", err)
	}
}

func TestReservedDirs(t *testing.T) {
	for _, name := range []string{".camreview", ".CamReview", "trash", "Trash_2024-01-01", "keep_2023-12-31", "FAVORITES_2024-02-29"} {
		if !IsReservedDir(name) {
			t.Errorf("expected %q to be reserved", name)
		}
	}
	for _, name := range []string{"cam1", "Keep", "Trash_2024", "keepers_2024-01-01"} {
		if IsReservedDir(name) {
			t.Errorf("expected %q not to be reserved", name)
		}
	}
}

func TestArtifactLayout(t *testing.T) {
	if got := PreviewFramePattern("cam1/clip.mov"); got != ".camreview/previews/cam1/clip/frame_%03d.jpg" {
		t.Fatalf("unexpected frame pattern %q", got)
	}
	if got := PreviewFrameDir("clip.mp4"); got != ".camreview/previews/clip" {
		t.Fatalf("unexpected root frame dir %q", got)
	}
	if got := TranscodeKey("cam1/clip.mov"); got != ".camreview/transcodes/cam1/clip.mp4" {
		t.Fatalf("unexpected transcode key %q", got)
	}
	candidates := PreviewCandidates("cam1/clip.mov")
	if len(candidates) != 8 || candidates[0] != ".camreview/previews/cam1/clip.gif" || candidates[1] != "cam1/clip.gif" {
		t.Fatalf("unexpected candidates %v", candidates)
	}
}

func TestDestinationFolder(t *testing.T) {
	if got := DestinationFolder("delete", "2024-01-01"); got != "Trash_2024-01-01" {
		t.Fatalf("got %q", got)
	}
	if got := DestinationFolder("favorite", "2024-01-01"); got != "Favorites_2024-01-01" {
		t.Fatalf("got %q", got)
	}
	if got := DestinationFolder("keep", "2024-01-01"); got != "Keep_2024-01-01" {
		t.Fatalf("got %q", got)
	}
	if !InFolder("trash_2024-01-01/a.jpg", "Trash_2024-01-01") {
		t.Fatal("expected case-insensitive folder match")
	}
}

func TestKinds(t *testing.T) {
	if kind, ok := KindForKey("a/B.JPG"); !ok || kind != KindImage {
		t.Fatalf("unexpected kind %q %v", kind, ok)
	}
	if kind, ok := KindForKey("clip.MOV"); !ok || kind != KindVideo {
		t.Fatalf("unexpected kind %q %v", kind, ok)
	}
	if _, ok := KindForKey("notes.txt"); ok {
		t.Fatal("txt should be unsupported")
	}
	if ContentType(".mov") != "video/quicktime" || ContentType(".JPG") != "image/jpeg" {
		t.Fatal("unexpected content types")
	}
}
