package testsupport

import (
	"testing"

	"camreview/internal/ledger"
)

// MustOpenLedger opens a writable ledger for tests and registers cleanup.
func MustOpenLedger(t testing.TB, path string) *ledger.Ledger {
	t.Helper()

	store, err := ledger.Open(path, ledger.Options{})
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
