package review

import (
	"sync"
	"time"
)

// UndoEntry captures what is needed to reverse one applied action.
type UndoEntry struct {
	PrevPath        string     `json:"prevPath"`
	NextPath        string     `json:"nextPath"`
	PrevStatus      string     `json:"prevStatus"`
	PrevReviewedAt  *time.Time `json:"prevReviewedAt"`
	PrevFavoritedAt *time.Time `json:"prevFavoritedAt"`
}

// UndoStack is an unbounded LIFO of UndoEntry values held in memory for the
// life of the process.
type UndoStack struct {
	mu      sync.Mutex
	entries []UndoEntry
}

// Push adds an entry to the top of the stack.
func (s *UndoStack) Push(entry UndoEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
}

// Pop removes and returns the most recent entry.
func (s *UndoStack) Pop() (UndoEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return UndoEntry{}, false
	}
	last := s.entries[len(s.entries)-1]
	s.entries = s.entries[:len(s.entries)-1]
	return last, true
}

// Peek returns the most recent entry without removing it.
func (s *UndoStack) Peek() (UndoEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return UndoEntry{}, false
	}
	return s.entries[len(s.entries)-1], true
}

// Len returns the stack depth.
func (s *UndoStack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
