package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"camreview/internal/fileutil"
	"camreview/internal/logging"
	"camreview/internal/media"
	"camreview/internal/services"
)

// Options configures Open.
type Options struct {
	// ReadOnly skips the writer lock and never persists. Used for inspection.
	ReadOnly bool
	Logger   *slog.Logger
	// Now overrides the clock; tests use it to fix backup names.
	Now func() time.Time
}

// Ledger is the in-memory view of the persisted review document.
type Ledger struct {
	path     string
	logger   *slog.Logger
	readOnly bool
	lock     *flock.Flock
	now      func() time.Time

	mu          sync.Mutex
	sessionDate string
	records     map[string]*Record
	order       []string
	stale       map[string]struct{}
	writes      int
}

type document struct {
	SchemaVersion int               `json:"schemaVersion"`
	SessionDate   *string           `json:"sessionDate"`
	Items         []json.RawMessage `json:"items"`
}

type persistedDocument struct {
	SchemaVersion int      `json:"schemaVersion"`
	SessionDate   *string  `json:"sessionDate"`
	Items         []Record `json:"items"`
}

// Open loads the ledger at path. Writable opens take an exclusive advisory
// lock on <path>.lock and fail with ErrAlreadyRunning when another process
// holds it.
func Open(path string, opts Options) (*Ledger, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, services.Wrap(services.ErrValidation, "ledger", "open", "ledger path is empty", nil)
	}
	logger := logging.NewComponentLogger(opts.Logger, "ledger")
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	l := &Ledger{
		path:     path,
		logger:   logger,
		readOnly: opts.ReadOnly,
		now:      now,
		records:  make(map[string]*Record),
		stale:    make(map[string]struct{}),
	}

	if !opts.ReadOnly {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, services.Wrap(services.ErrValidation, "ledger", "open", "create ledger directory", err)
		}
		l.lock = flock.New(path + ".lock")
		locked, err := l.lock.TryLock()
		if err != nil {
			return nil, services.Wrap(services.ErrProcessingFailed, "ledger", "lock", path, err)
		}
		if !locked {
			return nil, services.Wrap(services.ErrAlreadyRunning, "ledger", "lock", "ledger is in use by another process", nil)
		}
	}

	if err := l.Load(); err != nil {
		_ = l.Close()
		return nil, err
	}
	return l, nil
}

// Close releases the writer lock.
func (l *Ledger) Close() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}

// Path returns the ledger file location.
func (l *Ledger) Path() string { return l.path }

// Load replaces in-memory state with the persisted document. A missing file
// yields an empty ledger that is written immediately; a malformed file is
// copied aside as <name>.corrupt-<unixmillis> and replaced with an empty one.
func (l *Ledger) Load() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.reset()
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			l.logger.Info("ledger not found; starting empty", logging.String(logging.FieldPath, l.path))
			return l.saveLocked()
		}
		return services.Wrap(services.ErrProcessingFailed, "ledger", "read", l.path, err)
	}

	if err := l.decode(data); err != nil {
		backup := l.backupCorrupt()
		logging.WarnWithContext(l.logger, "ledger unreadable; starting empty", "ledger_corrupt",
			logging.String(logging.FieldPath, l.path),
			logging.String("backup", backup),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect the backup file to recover review state"),
			logging.String(logging.FieldImpact, "review history reset to empty"),
		)
		l.reset()
		return l.saveLocked()
	}

	l.logger.Debug("ledger loaded",
		logging.Int("records", len(l.order)),
		logging.Int("stale", len(l.stale)),
		logging.String(logging.FieldPath, l.path))
	return nil
}

func (l *Ledger) reset() {
	l.sessionDate = ""
	l.records = make(map[string]*Record)
	l.order = nil
	l.stale = make(map[string]struct{})
}

func (l *Ledger) decode(data []byte) error {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse ledger: %w", err)
	}
	if doc.Items == nil {
		return errors.New("parse ledger: items is not an array")
	}
	if doc.SessionDate != nil {
		l.sessionDate = *doc.SessionDate
	}
	for i, raw := range doc.Items {
		var keys map[string]json.RawMessage
		if err := json.Unmarshal(raw, &keys); err != nil {
			l.logger.Debug("skipping non-object ledger item", logging.Int("index", i))
			continue
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("parse ledger item %d: %w", i, err)
		}
		rec.Path = strings.TrimSpace(rec.Path)
		if rec.Path == "" {
			continue
		}
		stale := false
		for _, key := range requiredKeys {
			if _, ok := keys[key]; !ok {
				stale = true
				break
			}
		}
		if !ValidStatus(rec.Status) {
			rec.Status = StatusUnreviewed
			stale = true
		}
		if _, dup := l.records[rec.Path]; dup {
			continue
		}
		stored := rec
		l.records[rec.Path] = &stored
		l.order = append(l.order, rec.Path)
		if stale {
			l.stale[rec.Path] = struct{}{}
		}
	}
	return nil
}

func (l *Ledger) backupCorrupt() string {
	backup := fmt.Sprintf("%s.corrupt-%s", l.path, strconv.FormatInt(l.now().UnixMilli(), 10))
	if l.readOnly {
		return ""
	}
	if err := fileutil.CopyFile(l.path, backup); err != nil {
		l.logger.Error("failed to back up corrupt ledger",
			logging.String(logging.FieldEventType, "ledger_backup_failed"),
			logging.Error(err))
		return ""
	}
	return backup
}

// Sync reconciles scanned items with stored records. New paths receive
// default records and stale records are backfilled; the ledger is persisted
// once when anything changed and not at all otherwise. The returned map holds
// copies of every record keyed by path.
func (l *Ledger) Sync(items []media.Item) (map[string]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	dirty := false
	for _, item := range items {
		if _, ok := l.records[item.Path]; !ok {
			rec := NewRecord(item.Path)
			l.records[item.Path] = &rec
			l.order = append(l.order, item.Path)
			dirty = true
			continue
		}
		if _, ok := l.stale[item.Path]; ok {
			delete(l.stale, item.Path)
			dirty = true
		}
	}

	if dirty {
		if err := l.saveLocked(); err != nil {
			return nil, err
		}
	}
	return l.snapshotLocked(), nil
}

// Save persists the current state.
func (l *Ledger) Save() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.saveLocked()
}

// Get returns a copy of the record stored under path.
func (l *Ledger) Get(path string) (Record, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[path]
	if !ok {
		return Record{}, false
	}
	return rec.Clone(), true
}

// Update applies fn to a copy of the record at path and, when fn succeeds,
// commits and persists it. When fn changes Path the record is re-keyed. An
// error from fn leaves the ledger untouched and unsaved.
func (l *Ledger) Update(path string, fn func(*Record) error) (Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	current, ok := l.records[path]
	if !ok {
		return Record{}, services.Wrap(services.ErrNotFound, "ledger", "update", fmt.Sprintf("no record for %q", path), nil)
	}
	working := current.Clone()
	if err := fn(&working); err != nil {
		return current.Clone(), err
	}
	if working.Path == "" {
		working.Path = path
	}
	previous := *current
	l.commitLocked(path, working)
	if err := l.saveLocked(); err != nil {
		l.commitLocked(working.Path, previous)
		return previous.Clone(), err
	}
	return working.Clone(), nil
}

func (l *Ledger) commitLocked(oldPath string, rec Record) {
	if rec.Path == oldPath {
		*l.records[oldPath] = rec
		return
	}
	if _, clash := l.records[rec.Path]; clash {
		logging.WarnWithContext(l.logger, "replacing record at move destination", "ledger_record_replaced",
			logging.String(logging.FieldPath, rec.Path))
		l.removeLocked(rec.Path)
	}
	delete(l.records, oldPath)
	delete(l.stale, oldPath)
	stored := rec
	l.records[rec.Path] = &stored
	for i, key := range l.order {
		if key == oldPath {
			l.order[i] = rec.Path
			break
		}
	}
}

func (l *Ledger) removeLocked(path string) {
	delete(l.records, path)
	delete(l.stale, path)
	for i, key := range l.order {
		if key == path {
			l.order = append(l.order[:i], l.order[i+1:]...)
			return
		}
	}
}

// Records returns copies of all records in stored order.
func (l *Ledger) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Record, 0, len(l.order))
	for _, key := range l.order {
		out = append(out, l.records[key].Clone())
	}
	return out
}

// Len returns the number of stored records.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.order)
}

// SessionDate returns the stored session date stamp, or "" when unset.
func (l *Ledger) SessionDate() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sessionDate
}

// SetSessionDate records the process session date. It is persisted with the
// next write.
func (l *Ledger) SetSessionDate(date string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sessionDate = date
}

// Writes reports how many times the ledger has been persisted since Open.
func (l *Ledger) Writes() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writes
}

func (l *Ledger) snapshotLocked() map[string]Record {
	out := make(map[string]Record, len(l.records))
	for key, rec := range l.records {
		out[key] = rec.Clone()
	}
	return out
}

// saveLocked writes the ledger atomically via a temp file and rename.
func (l *Ledger) saveLocked() error {
	if l.readOnly {
		return nil
	}
	doc := persistedDocument{
		SchemaVersion: SchemaVersion,
		Items:         make([]Record, 0, len(l.order)),
	}
	if l.sessionDate != "" {
		date := l.sessionDate
		doc.SessionDate = &date
	}
	for _, key := range l.order {
		doc.Items = append(doc.Items, *l.records[key])
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrProcessingFailed, "ledger", "marshal", l.path, err)
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return services.Wrap(services.ErrProcessingFailed, "ledger", "save", "create ledger directory", err)
	}

	tmpPath := l.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return services.Wrap(services.ErrProcessingFailed, "ledger", "save", "write temp file", err)
	}
	if err := os.Rename(tmpPath, l.path); err != nil {
		os.Remove(tmpPath)
		return services.Wrap(services.ErrProcessingFailed, "ledger", "save", "rename temp file", err)
	}
	l.writes++
	return nil
}
