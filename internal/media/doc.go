// Package media walks the media root and produces the review queue.
//
// Scanner recurses from the root, skipping the artifact cache and dated action
// folders, keeps only supported photo and video extensions, and derives a
// capture timestamp per file. Results are sorted by capture time with the
// path as tie-break, which is the order items are presented for review.
package media
