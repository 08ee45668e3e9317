package mediaroot

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"camreview/internal/services"
)

// Root is an absolute media directory with containment-checked key resolution.
type Root struct {
	dir string
}

// New validates dir and returns a Root anchored at its absolute, cleaned form.
func New(dir string) (*Root, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, services.Wrap(services.ErrValidation, "mediaroot", "open", "media root is empty", nil)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, services.Wrap(services.ErrInvalidPath, "mediaroot", "open", "resolve media root", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "mediaroot", "open", "stat media root", err)
	}
	if !info.IsDir() {
		return nil, services.Wrap(services.ErrInvalidPath, "mediaroot", "open", fmt.Sprintf("%s is not a directory", abs), nil)
	}
	return &Root{dir: abs}, nil
}

// Dir returns the absolute media root directory.
func (r *Root) Dir() string {
	return r.dir
}

// NormalizeKey converts a client or filesystem relative path into the
// canonical key form: NFC, forward slashes, cleaned, no leading slash.
func NormalizeKey(rel string) string {
	rel = norm.NFC.String(strings.TrimSpace(rel))
	rel = strings.ReplaceAll(rel, "\\", "/")
	if rel == "" {
		return ""
	}
	cleaned := path.Clean("/" + rel)
	return strings.TrimPrefix(cleaned, "/")
}

// Resolve maps a key to its absolute filesystem path. Keys that are empty,
// absolute, or climb out of the root are rejected with ErrInvalidPath.
func (r *Root) Resolve(key string) (string, error) {
	raw := strings.ReplaceAll(strings.TrimSpace(key), "\\", "/")
	if raw == "" || strings.ContainsRune(raw, 0) {
		return "", services.Wrap(services.ErrInvalidPath, "mediaroot", "resolve", fmt.Sprintf("invalid key %q", key), nil)
	}
	if strings.HasPrefix(raw, "/") || filepath.IsAbs(raw) {
		return "", services.Wrap(services.ErrInvalidPath, "mediaroot", "resolve", fmt.Sprintf("absolute key %q", key), nil)
	}
	full := filepath.Join(r.dir, filepath.FromSlash(norm.NFC.String(raw)))
	if !r.Contains(full) {
		return "", services.Wrap(services.ErrInvalidPath, "mediaroot", "resolve", fmt.Sprintf("key %q escapes media root", key), nil)
	}
	return full, nil
}

// Clean validates a client-supplied key and returns its canonical form.
func (r *Root) Clean(raw string) (string, error) {
	full, err := r.Resolve(raw)
	if err != nil {
		return "", err
	}
	key, err := r.Key(full)
	if err != nil {
		return "", err
	}
	if key == "" || key == "." {
		return "", services.Wrap(services.ErrInvalidPath, "mediaroot", "clean", "key names the media root", nil)
	}
	return key, nil
}

// Contains reports whether full lies inside the root (or is the root).
func (r *Root) Contains(full string) bool {
	rel, err := filepath.Rel(r.dir, filepath.Clean(full))
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Key converts an absolute path inside the root into its canonical key.
func (r *Root) Key(full string) (string, error) {
	if !r.Contains(full) {
		return "", services.Wrap(services.ErrInvalidPath, "mediaroot", "key", fmt.Sprintf("%s is outside media root", full), nil)
	}
	rel, err := filepath.Rel(r.dir, filepath.Clean(full))
	if err != nil {
		return "", services.Wrap(services.ErrInvalidPath, "mediaroot", "key", "relative path", err)
	}
	return NormalizeKey(filepath.ToSlash(rel)), nil
}
