// Package enrich attaches AI-derived data to ledger records.
//
// Detector runs the animal-presence classifier for one image and records every
// attempt on the record, successful or not, so later requests reuse the cached
// outcome until a caller forces a retry. Captioner stores reviewer-written or
// generated captions. Batch walks the library sequentially, classifying
// images and sending negatives through the review engine's delete path so each
// batch decision stays individually undoable.
package enrich
