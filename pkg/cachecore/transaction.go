package cachecore

// TransactionMode describes the access a Transaction needs on the entry
// it is waiting for.
type TransactionMode int

const (
	// None is used by transactions that do not need entry access at all
	// (e.g. one only interested in GetBackend).
	None TransactionMode = 0
	// Read grants read-only access; multiple readers may hold an entry
	// concurrently.
	Read TransactionMode = 1 << iota
	// Write grants exclusive write access; at most one writer at a time,
	// and only when there are no concurrent readers.
	Write
	// ReadWrite grants write access that can later be downgraded to read
	// access via Cache.ConvertWriterToReader.
	ReadWrite = Read | Write
)

func (m TransactionMode) String() string {
	switch m {
	case None:
		return "none"
	case Read:
		return "read"
	case Write:
		return "write"
	case ReadWrite:
		return "read_write"
	default:
		return "unknown"
	}
}

// LoadState is returned by Cache.GetLoadStateForPending to describe what a
// still-pending transaction is waiting on.
type LoadState int

const (
	// LoadStateWaitingForCache indicates the transaction has no active
	// entry yet — it is waiting on the backend-creation gate or a
	// pending backend Open/Create/Doom call.
	LoadStateWaitingForCache LoadState = iota
	// LoadStateWaitingForWrite indicates the transaction's key has an
	// active entry whose writer is still working.
	LoadStateWaitingForWrite
)

// Transaction is the opaque external participant that drives one cache
// interaction. Callers either pass in their own implementation or ask
// Cache.CreateTransaction for a basic one; cachecore only ever calls back
// through this interface.
type Transaction interface {
	// Key returns the transaction's current cache key.
	Key() Key

	// TransactionMode returns the access this transaction needs.
	TransactionMode() TransactionMode

	// OnIOComplete delivers the result of a pending operation. It is
	// called at most once per pending operation, and never after the
	// transaction has been removed via Cache.RemovePendingTransaction.
	OnIOComplete(status Status, entry *ActiveEntry)

	// WriterLoadState is consulted by GetLoadStateForPending when this
	// transaction is the current writer of an entry another transaction
	// is queued behind.
	WriterLoadState() LoadState

	// MarkTruncated is invoked when a writer is released via
	// DoneWithEntry(cancel=true). It returns whether the partially
	// written entry should be kept (true) or discarded as a failure
	// (false).
	MarkTruncated() bool
}
