package media

import (
	"cmp"
	"context"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"camreview/internal/logging"
	"camreview/internal/mediaroot"
	"camreview/internal/services"
)

// CaptureTimeEXIF selects JPEG DateTimeOriginal as the preferred capture time.
const CaptureTimeEXIF = "exif"

// Scanner enumerates supported media beneath a root.
type Scanner struct {
	root          *mediaroot.Root
	logger        *slog.Logger
	preferEXIF    bool
	actionFolders bool
	stat          func(string) (fileStamps, error)
}

// Option customizes a Scanner.
type Option func(*Scanner)

// WithCaptureTime selects the capture time source ("filesystem" or "exif").
func WithCaptureTime(source string) Option {
	return func(s *Scanner) {
		s.preferEXIF = strings.EqualFold(strings.TrimSpace(source), CaptureTimeEXIF)
	}
}

// WithActionFolders includes files already moved into dated action folders.
// The review queue never includes them; library listings do.
func WithActionFolders() Option {
	return func(s *Scanner) {
		s.actionFolders = true
	}
}

// NewScanner constructs a scanner for root.
func NewScanner(root *mediaroot.Root, logger *slog.Logger, opts ...Option) *Scanner {
	s := &Scanner{
		root:   root,
		logger: logging.NewComponentLogger(logger, "scanner"),
		stat:   statFile,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// With returns a copy of the scanner with additional options applied.
func (s *Scanner) With(opts ...Option) *Scanner {
	clone := *s
	for _, opt := range opts {
		if opt != nil {
			opt(&clone)
		}
	}
	return &clone
}

// Scan walks the root and returns supported items sorted by capture time,
// then by path. Unreadable subtrees and unstatable files are logged and
// skipped; only an unreadable root or a cancelled context fails the scan.
func (s *Scanner) Scan(ctx context.Context) ([]Item, error) {
	rootDir := s.root.Dir()
	var items []Item

	walkErr := filepath.WalkDir(rootDir, func(full string, entry fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if full == rootDir {
				return services.Wrap(services.ErrNotFound, "scanner", "read root", rootDir, err)
			}
			logging.WarnWithContext(s.logger, "directory unreadable; skipping subtree", "directory_unreadable",
				logging.String(logging.FieldPath, full),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check directory permissions"),
				logging.String(logging.FieldImpact, "files beneath this directory are not listed"),
			)
			if entry != nil && entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			if full != rootDir && s.skipDir(entry.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		kind, ok := mediaroot.KindForExt(filepath.Ext(entry.Name()))
		if !ok {
			return nil
		}
		item, err := s.buildItem(full, kind)
		if err != nil {
			logging.WarnWithContext(s.logger, "file stat failed; skipping", "file_stat_failed",
				logging.String(logging.FieldPath, full),
				logging.Error(err),
				logging.String(logging.FieldImpact, "file omitted from this scan"),
			)
			return nil
		}
		items = append(items, item)
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	SortItems(items)
	s.logger.Debug("scan complete", logging.Int("items", len(items)))
	return items, nil
}

func (s *Scanner) skipDir(name string) bool {
	if s.actionFolders && mediaroot.IsDestinationFolder(name) {
		return false
	}
	return mediaroot.IsReservedDir(name)
}

func (s *Scanner) buildItem(full, kind string) (Item, error) {
	key, err := s.root.Key(full)
	if err != nil {
		return Item{}, err
	}
	stamps, err := s.stat(full)
	if err != nil {
		return Item{}, err
	}

	captured := stamps.mtime
	if !stamps.birth.IsZero() && stamps.birth.UnixMilli() > 0 {
		captured = stamps.birth
	}
	if s.preferEXIF && kind == mediaroot.KindImage {
		if taken, err := exifCaptureTime(full); err == nil && !taken.IsZero() {
			captured = taken
		}
	}

	folder := path.Dir(key)
	return Item{
		Path:         key,
		Name:         path.Base(key),
		Folder:       folder,
		Type:         kind,
		CapturedAtMs: captured.UnixMilli(),
		MtimeMs:      stamps.mtime.UnixMilli(),
		SizeBytes:    stamps.size,
	}, nil
}

// SortItems orders items by capture time ascending, ties broken by byte-wise
// path order.
func SortItems(items []Item) {
	slices.SortStableFunc(items, func(a, b Item) int {
		if c := cmp.Compare(a.CapturedAtMs, b.CapturedAtMs); c != 0 {
			return c
		}
		return strings.Compare(a.Path, b.Path)
	})
}

type fileStamps struct {
	size  int64
	mtime time.Time
	birth time.Time
}
