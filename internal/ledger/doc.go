// Package ledger persists the review record for every media path ever scanned.
//
// The ledger is a single JSON document rewritten atomically on each mutation.
// Load recovers from a missing or malformed file by starting empty (keeping a
// timestamped backup of the bad file). Sync reconciles a scan with the stored
// records, creating defaults and backfilling fields that older documents lack,
// and writes at most once per call. All mutations are serialized behind one
// mutex, and a flock guard keeps a second process from writing concurrently.
package ledger
