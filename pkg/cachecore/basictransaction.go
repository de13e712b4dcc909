package cachecore

import "github.com/google/uuid"

// basicTransaction is the Transaction CreateTransaction hands back to
// callers who don't need their own concrete type. It carries an opaque
// UUID, reported by ID; cachecore itself tells transactions apart by
// comparing the Transaction values it holds (pointer equality for this
// type), not by that UUID.
type basicTransaction struct {
	id         uuid.UUID
	key        Key
	mode       TransactionMode
	onComplete func(Status, *ActiveEntry)
	truncate   bool
}

func newBasicTransaction(key Key, mode TransactionMode, onComplete func(Status, *ActiveEntry)) *basicTransaction {
	return &basicTransaction{
		id:         uuid.New(),
		key:        key,
		mode:       mode,
		onComplete: onComplete,
	}
}

// ID returns the transaction's opaque identity.
func (t *basicTransaction) ID() uuid.UUID { return t.id }

func (t *basicTransaction) Key() Key                    { return t.key }
func (t *basicTransaction) TransactionMode() TransactionMode { return t.mode }

func (t *basicTransaction) OnIOComplete(status Status, entry *ActiveEntry) {
	if t.onComplete != nil {
		t.onComplete(status, entry)
	}
}

// WriterLoadState always reports LoadStateWaitingForWrite: a
// basicTransaction has no finer-grained state machine of its own to
// report through.
func (t *basicTransaction) WriterLoadState() LoadState { return LoadStateWaitingForWrite }

// MarkTruncated keeps whatever value SetTruncateOnCancel last set,
// defaulting to false (discard the partial write).
func (t *basicTransaction) MarkTruncated() bool { return t.truncate }

// SetTruncateOnCancel controls what MarkTruncated reports if this
// transaction is released as a cancelled writer.
func (t *basicTransaction) SetTruncateOnCancel(keep bool) { t.truncate = keep }
