package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sync"
	"time"

	"camreview/internal/fileutil"
	"camreview/internal/journal"
	"camreview/internal/ledger"
	"camreview/internal/logging"
	"camreview/internal/mediaroot"
	"camreview/internal/services"
)

// Actions a reviewer can apply.
const (
	ActionKeep     = ledger.StatusKeep
	ActionDelete   = ledger.StatusDelete
	ActionFavorite = ledger.StatusFavorite
)

const sessionDateLayout = "2006-01-02"

// ValidAction reports whether action is keep, delete, or favorite.
func ValidAction(action string) bool {
	switch action {
	case ActionKeep, ActionDelete, ActionFavorite:
		return true
	default:
		return false
	}
}

// Journal receives an entry for each completed action and undo.
type Journal interface {
	Record(ctx context.Context, entry journal.Entry) error
}

// Result describes the outcome of Apply.
type Result struct {
	PrevPath string        `json:"prevPath"`
	Path     string        `json:"path"`
	Missing  bool          `json:"missing"`
	Record   ledger.Record `json:"record"`
}

// UndoResult describes the outcome of Undo. OK is false when there was
// nothing to undo.
type UndoResult struct {
	OK     bool          `json:"ok"`
	Path   string        `json:"path,omitempty"`
	Record ledger.Record `json:"record"`
}

// Engine serializes review actions against one media root and ledger.
type Engine struct {
	root    *mediaroot.Root
	ledger  *ledger.Ledger
	undo    *UndoStack
	journal Journal
	logger  *slog.Logger
	now     func() time.Time

	mu          sync.Mutex
	sessionOnce sync.Once
	sessionDate string
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithSessionDate fixes the session date instead of deriving it from the clock.
func WithSessionDate(date string) Option {
	return func(e *Engine) { e.sessionDate = date }
}

// WithJournal records completed actions.
func WithJournal(j Journal) Option {
	return func(e *Engine) { e.journal = j }
}

// NewEngine constructs an engine with an empty undo stack.
func NewEngine(root *mediaroot.Root, store *ledger.Ledger, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		root:   root,
		ledger: store,
		undo:   &UndoStack{},
		logger: logging.NewComponentLogger(logger, "review"),
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// UndoDepth returns the number of undoable actions.
func (e *Engine) UndoDepth() int { return e.undo.Len() }

// SessionDate returns the date stamp used for destination folders. It is
// computed on first use and fixed for the life of the engine.
func (e *Engine) SessionDate() string {
	e.sessionOnce.Do(func() {
		if e.sessionDate == "" {
			e.sessionDate = e.now().Format(sessionDateLayout)
		}
		e.ledger.SetSessionDate(e.sessionDate)
	})
	return e.sessionDate
}

// Apply moves the file at key into the destination folder for action and
// records the decision. A vanished source marks the record missing and
// returns Result.Missing with a nil error.
func (e *Engine) Apply(ctx context.Context, key, action string) (Result, error) {
	if !ValidAction(action) {
		return Result{}, services.Wrap(services.ErrValidation, "review", "apply", fmt.Sprintf("unknown action %q", action), nil)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	logger := logging.WithContext(services.WithPath(ctx, key), e.logger)

	rec, ok := e.ledger.Get(key)
	if !ok {
		return Result{}, services.Wrap(services.ErrNotFound, "review", "apply", fmt.Sprintf("no record for %q", key), nil)
	}
	entry := UndoEntry{
		PrevPath:        rec.Path,
		PrevStatus:      rec.Status,
		PrevReviewedAt:  rec.ReviewedAt,
		PrevFavoritedAt: rec.FavoritedAt,
	}

	folder := mediaroot.DestinationFolder(action, e.SessionDate())
	srcFull, err := e.root.Resolve(rec.Path)
	if err != nil {
		return Result{}, err
	}
	inPlace := mediaroot.InFolder(rec.Path, folder)
	destKey := rec.Path
	if !inPlace {
		base := rec.OriginalPath
		if base == "" {
			base = rec.Path
		}
		destKey = path.Join(folder, base)
	}
	destFull, err := e.root.Resolve(destKey)
	if err != nil {
		return Result{}, err
	}

	now := e.now()
	present, statErr := fileutil.Exists(srcFull)
	if statErr == nil && !present {
		updated, err := e.ledger.Update(rec.Path, func(r *ledger.Record) error {
			r.Missing = true
			r.MissingAt = ledger.TimePtr(now)
			return nil
		})
		if err != nil {
			return Result{}, err
		}
		logging.WarnWithContext(logger, "source missing; action not applied", "review_source_missing",
			logging.String("action", action),
			logging.String(logging.FieldImpact, "status unchanged; file may have been removed externally"))
		return Result{PrevPath: rec.Path, Path: updated.Path, Missing: true, Record: updated}, nil
	}

	moved := false
	updated, err := e.ledger.Update(rec.Path, func(r *ledger.Record) error {
		if statErr != nil {
			return services.Wrap(services.ErrMoveFailed, "review", "apply", "stat source", statErr)
		}
		if !inPlace {
			if err := fileutil.MoveNoReplace(srcFull, destFull); err != nil {
				return services.Wrap(services.ErrMoveFailed, "review", "apply", fmt.Sprintf("move to %s", destKey), err)
			}
			moved = true
			if r.OriginalPath == "" {
				r.OriginalPath = r.Path
			}
			r.Path = destKey
			r.MovedAt = ledger.TimePtr(now)
		}
		r.Status = action
		r.ReviewedAt = ledger.TimePtr(now)
		if action == ActionFavorite {
			r.FavoritedAt = ledger.TimePtr(now)
		} else {
			r.FavoritedAt = nil
		}
		r.Missing = false
		r.MissingAt = nil
		return nil
	})
	if err != nil {
		if moved {
			// the rename happened but the ledger could not be written
			if rbErr := fileutil.MoveNoReplace(destFull, srcFull); rbErr != nil {
				logger.Error("failed to restore file after ledger write error",
					logging.String(logging.FieldEventType, "review_restore_failed"),
					logging.Error(rbErr))
			}
		}
		if errors.Is(err, services.ErrMoveFailed) {
			if saveErr := e.ledger.Save(); saveErr != nil {
				logger.Warn("ledger save after failed move", logging.Error(saveErr))
			}
		}
		logging.ErrorWithContext(logger, "action failed", "review_action_failed",
			logging.String("action", action),
			logging.Error(err))
		return Result{}, err
	}

	entry.NextPath = updated.Path
	e.undo.Push(entry)
	e.recordJournal(ctx, journal.Entry{Kind: journal.KindAction, Path: updated.Path, Detail: action, Status: "ok"})
	logger.Info("action applied",
		logging.String("action", action),
		logging.String("destination", updated.Path))

	return Result{PrevPath: entry.PrevPath, Path: updated.Path, Record: updated}, nil
}

// Undo reverses the most recent action. An empty stack yields OK=false with
// a nil error. When the file cannot be moved back the entry stays on the
// stack and the error is returned.
func (e *Engine) Undo(ctx context.Context) (UndoResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, ok := e.undo.Pop()
	if !ok {
		return UndoResult{OK: false}, nil
	}
	logger := logging.WithContext(services.WithPath(ctx, entry.NextPath), e.logger)

	rec, found := e.ledger.Get(entry.NextPath)
	if !found {
		rec, found = e.ledger.Get(entry.PrevPath)
	}
	if !found {
		e.undo.Push(entry)
		return UndoResult{}, services.Wrap(services.ErrNotFound, "review", "undo", fmt.Sprintf("no record for %q", entry.NextPath), nil)
	}

	now := e.now()
	updated, err := e.ledger.Update(rec.Path, func(r *ledger.Record) error {
		if r.Path != entry.PrevPath {
			src, err := e.root.Resolve(r.Path)
			if err != nil {
				return err
			}
			dst, err := e.root.Resolve(entry.PrevPath)
			if err != nil {
				return err
			}
			present, err := fileutil.Exists(src)
			if err != nil {
				return services.Wrap(services.ErrMoveFailed, "review", "undo", "stat source", err)
			}
			if !present {
				return services.Wrap(services.ErrMissingSource, "review", "undo", fmt.Sprintf("%s no longer exists", r.Path), nil)
			}
			if err := fileutil.MoveNoReplace(src, dst); err != nil {
				return services.Wrap(services.ErrMoveFailed, "review", "undo", fmt.Sprintf("move back to %s", entry.PrevPath), err)
			}
			r.Path = entry.PrevPath
			r.MovedAt = ledger.TimePtr(now)
		}
		r.Status = entry.PrevStatus
		if r.Status == "" {
			r.Status = ledger.StatusUnreviewed
		}
		r.ReviewedAt = entry.PrevReviewedAt
		r.FavoritedAt = entry.PrevFavoritedAt
		return nil
	})
	if err != nil {
		e.undo.Push(entry)
		logging.ErrorWithContext(logger, "undo failed", "review_undo_failed", logging.Error(err))
		return UndoResult{}, err
	}

	e.recordJournal(ctx, journal.Entry{Kind: journal.KindUndo, Path: updated.Path, Detail: entry.NextPath, Status: "ok"})
	logger.Info("action undone", logging.String("restored", updated.Path))
	return UndoResult{OK: true, Path: updated.Path, Record: updated}, nil
}

func (e *Engine) recordJournal(ctx context.Context, entry journal.Entry) {
	if e.journal == nil {
		return
	}
	if err := e.journal.Record(context.WithoutCancel(ctx), entry); err != nil {
		logging.WarnWithContext(e.logger, "journal write failed", "journal_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "history view will miss this entry"))
	}
}
