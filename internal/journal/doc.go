// Package journal keeps an append-only history of review activity in SQLite.
//
// Every applied action, undo, classification, caption change, and batch
// completion is recorded with its outcome. The journal is diagnostic: callers
// log and ignore write failures so a broken journal never blocks a review.
package journal
