// Package review applies reviewer decisions to media files.
//
// Engine.Apply moves a file into the dated destination folder for its action
// and records the new status in the ledger, pushing an UndoEntry that
// Engine.Undo can reverse. The ledger never reflects a move that did not
// happen on disk: a failed rename leaves the record as it was, and a source
// that vanished is flagged missing without changing status.
package review
