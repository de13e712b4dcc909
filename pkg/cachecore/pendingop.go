package cachecore

// pendingOp tracks the single outstanding backend call for one key (or for
// "" — the backend-creation gate, see gate.go). Concurrent Work Items for
// the same key coalesce onto one pendingOp: the first becomes the writer
// and actually issues the backend call, and everyone else queues.
type pendingOp struct {
	writer       *workItem
	pendingQueue []*workItem

	// entry and backend are out-parameters filled in by the completion
	// handler once the backend call for writer resolves successfully.
	entry   Entry
	backend Backend
}

// enqueue appends item to the op's FIFO queue.
func (p *pendingOp) enqueue(item *workItem) {
	p.pendingQueue = append(p.pendingQueue, item)
}

// drainQueue removes and returns the op's entire pending queue, leaving it
// empty. Draining before notifying the writer (see gate.go's
// onEntryOpComplete) ensures re-entrant requests attach to a fresh pendingOp
// rather than this one.
func (p *pendingOp) drainQueue() []*workItem {
	items := p.pendingQueue
	p.pendingQueue = nil
	return items
}

// pendingOpRegistry is keyed by cache key, with "" reserved for the
// backend-creation gate. It enforces at most one concurrent backend call
// per key (Invariant D of spec.md §3).
type pendingOpRegistry struct {
	byKey map[Key]*pendingOp
}

func newPendingOpRegistry() *pendingOpRegistry {
	return &pendingOpRegistry{byKey: make(map[Key]*pendingOp)}
}

// getOrCreate returns the current pendingOp for key, creating an empty one
// if none exists.
func (r *pendingOpRegistry) getOrCreate(key Key) *pendingOp {
	if op, ok := r.byKey[key]; ok {
		return op
	}
	op := &pendingOp{}
	r.byKey[key] = op
	return op
}

// find returns the pendingOp for key, if any.
func (r *pendingOpRegistry) find(key Key) (*pendingOp, bool) {
	op, ok := r.byKey[key]
	return op, ok
}

// delete removes op from the registry. If op's entry carries a key it is
// used directly; otherwise (CreateBackend, or a DoomEntry issued before
// any entry existed) the registry falls back to a linear identity search,
// per spec.md §9's Open Question — the op was created for a key-less
// operation and never got assigned one.
func (r *pendingOpRegistry) delete(op *pendingOp) {
	if op.entry != nil {
		key := op.entry.Key()
		if _, ok := r.byKey[key]; ok {
			delete(r.byKey, key)
			return
		}
	}
	for k, v := range r.byKey {
		if v == op {
			delete(r.byKey, k)
			return
		}
	}
}
