package cachecore

import "context"

// workItemOperation is the kind of backend operation a workItem requests.
type workItemOperation int

const (
	opCreateBackend workItemOperation = iota
	opOpenEntry
	opCreateEntry
	opDoomEntry
)

func (o workItemOperation) String() string {
	switch o {
	case opCreateBackend:
		return "create_backend"
	case opOpenEntry:
		return "open_entry"
	case opCreateEntry:
		return "create_entry"
	case opDoomEntry:
		return "doom_entry"
	default:
		return "unknown"
	}
}

// workItem encodes one queued request against the backend. At least one
// of trans, entrySlot, or backendCallback must be live for the item to be
// valid; once all are cleared (the owning transaction cancelled and no
// caller is waiting on the out-slot or an end-user callback) the item is
// dead and its eventual result is discarded.
type workItem struct {
	operation workItemOperation
	ctx       context.Context
	trans     Transaction
	entrySlot **ActiveEntry

	// backendCallback is only set for a CreateBackend item issued
	// directly by an embedder (not on behalf of a transaction).
	backendCallback func(Status, Backend)
}

func newTransactionWorkItem(ctx context.Context, op workItemOperation, trans Transaction, entrySlot **ActiveEntry) *workItem {
	return &workItem{operation: op, ctx: ctx, trans: trans, entrySlot: entrySlot}
}

func newBackendWorkItem(ctx context.Context, trans Transaction, cb func(Status, Backend)) *workItem {
	return &workItem{operation: opCreateBackend, ctx: ctx, trans: trans, backendCallback: cb}
}

// notifyTransaction delivers the result to the owning transaction and
// fills the caller's out-slot, if either is still present.
func (w *workItem) notifyTransaction(result Status, entry *ActiveEntry) {
	if w.entrySlot != nil {
		*w.entrySlot = entry
	}
	if w.trans != nil {
		w.trans.OnIOComplete(result, entry)
	}
}

// notifyBackend delivers a CreateBackend result to the end-user callback,
// if one was registered. Returns true if a callback was invoked.
func (w *workItem) notifyBackend(result Status, backend Backend) bool {
	if w.backendCallback != nil {
		w.backendCallback(result, backend)
		return true
	}
	return false
}

// matches reports whether this item was issued on behalf of trans.
func (w *workItem) matches(trans Transaction) bool {
	return w.trans != nil && w.trans == trans
}

// isValid reports whether anyone is still interested in this item's
// result.
func (w *workItem) isValid() bool {
	return w.trans != nil || w.entrySlot != nil || w.backendCallback != nil
}

// clearTransaction detaches the owning transaction, e.g. because it was
// cancelled while the backend call it triggered is still in flight.
func (w *workItem) clearTransaction() {
	w.trans = nil
}

// clearEntry detaches the caller's out-slot.
func (w *workItem) clearEntry() {
	w.entrySlot = nil
}

// clearCallback detaches the end-user CreateBackend callback.
func (w *workItem) clearCallback() {
	w.backendCallback = nil
}
