package cachecore

// ActiveEntry is the in-memory coordinator for one opened backend Entry:
// it bundles the entry handle with the reader/writer admission state
// described in spec.md §3-§4.3. Callers receive a *ActiveEntry from
// OpenEntry/CreateEntry and pass it back into AddTransaction/
// DoneWithEntry/ConvertWriterToReader; they never touch its fields. The
// underlying Entry is handed out by Entry, and calls made on it there
// are not mediated by cachecore.
type ActiveEntry struct {
	diskEntry Entry

	writer  Transaction
	readers map[Transaction]struct{}

	pendingQueue []Transaction

	doomed                  bool
	willProcessPendingQueue bool
}

func newActiveEntry(e Entry) *ActiveEntry {
	return &ActiveEntry{
		diskEntry: e,
		readers:   make(map[Transaction]struct{}),
	}
}

// Entry returns the backend Entry this active entry wraps. Transactions
// that have been admitted as writer or reader use this to perform their
// actual reads/writes against the backend; cachecore itself never
// interprets its contents.
func (e *ActiveEntry) Entry() Entry {
	return e.diskEntry
}

// hasUsers reports whether any transaction currently holds this entry,
// directly or through the pending queue.
func (e *ActiveEntry) hasUsers() bool {
	return e.writer != nil || len(e.readers) > 0 || len(e.pendingQueue) > 0
}

// removeFromPendingQueue removes trans from the entry's pending queue if
// present, reporting whether it was found.
func (e *ActiveEntry) removeFromPendingQueue(trans Transaction) bool {
	for i, t := range e.pendingQueue {
		if t == trans {
			e.pendingQueue = append(e.pendingQueue[:i], e.pendingQueue[i+1:]...)
			return true
		}
	}
	return false
}
