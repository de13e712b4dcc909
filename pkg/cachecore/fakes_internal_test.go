package cachecore

// Minimal Transaction/Entry doubles for white-box tests in this package.
// internal/testutil's richer doubles can't be imported here without
// creating an import cycle (testutil imports cachecore), so external-
// package tests (cache_test.go) use testutil and these package-internal
// tests use these instead.

type stubTransaction struct {
	key         Key
	mode        TransactionMode
	truncate    bool
	writerState LoadState

	results []struct {
		status Status
		entry  *ActiveEntry
	}
}

func (t *stubTransaction) Key() Key                    { return t.key }
func (t *stubTransaction) TransactionMode() TransactionMode { return t.mode }
func (t *stubTransaction) WriterLoadState() LoadState  { return t.writerState }
func (t *stubTransaction) MarkTruncated() bool         { return t.truncate }
func (t *stubTransaction) OnIOComplete(status Status, entry *ActiveEntry) {
	t.results = append(t.results, struct {
		status Status
		entry  *ActiveEntry
	}{status, entry})
}

type stubEntry struct {
	key    Key
	closed bool
	doomed bool
}

func (e *stubEntry) Key() Key  { return e.key }
func (e *stubEntry) Close()    { e.closed = true }
func (e *stubEntry) Doom()     { e.doomed = true }
