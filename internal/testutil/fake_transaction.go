package testutil

import (
	"sync"
	"time"

	"github.com/entrycache/cachecore/pkg/cachecore"
)

// Result is one delivery of cachecore.Transaction.OnIOComplete.
type Result struct {
	Status cachecore.Status
	Entry  *cachecore.ActiveEntry
}

// FakeTransaction is a configurable cachecore.Transaction double.
// Everything it records is safe for concurrent access, since completion
// callbacks may arrive from cachecore's Loop goroutine while a test
// goroutine is asserting on FakeTransaction's state.
type FakeTransaction struct {
	key  cachecore.Key
	mode cachecore.TransactionMode

	mu          sync.Mutex
	truncate    bool
	writerState cachecore.LoadState
	results     []Result
	onComplete  func(cachecore.Status, *cachecore.ActiveEntry)
	notify      chan struct{}
}

// NewFakeTransaction returns a transaction bound to key and mode with no
// completion callback registered.
func NewFakeTransaction(key cachecore.Key, mode cachecore.TransactionMode) *FakeTransaction {
	return &FakeTransaction{
		key:         key,
		mode:        mode,
		writerState: cachecore.LoadStateWaitingForWrite,
		notify:      make(chan struct{}, 8),
	}
}

func (t *FakeTransaction) Key() cachecore.Key                        { return t.key }
func (t *FakeTransaction) TransactionMode() cachecore.TransactionMode { return t.mode }

func (t *FakeTransaction) OnIOComplete(status cachecore.Status, entry *cachecore.ActiveEntry) {
	t.mu.Lock()
	t.results = append(t.results, Result{Status: status, Entry: entry})
	cb := t.onComplete
	t.mu.Unlock()

	select {
	case t.notify <- struct{}{}:
	default:
	}

	if cb != nil {
		cb(status, entry)
	}
}

func (t *FakeTransaction) WriterLoadState() cachecore.LoadState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.writerState
}

func (t *FakeTransaction) MarkTruncated() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.truncate
}

// SetTruncateOnCancel controls what MarkTruncated reports.
func (t *FakeTransaction) SetTruncateOnCancel(keep bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.truncate = keep
}

// SetWriterLoadState controls what WriterLoadState reports.
func (t *FakeTransaction) SetWriterLoadState(state cachecore.LoadState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writerState = state
}

// OnComplete registers fn to run, in addition to internal bookkeeping,
// every time OnIOComplete fires.
func (t *FakeTransaction) OnComplete(fn func(cachecore.Status, *cachecore.ActiveEntry)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onComplete = fn
}

// Results returns a snapshot of every delivered completion, in order.
func (t *FakeTransaction) Results() []Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Result, len(t.results))
	copy(out, t.results)
	return out
}

// LastResult returns the most recent completion, if any.
func (t *FakeTransaction) LastResult() (Result, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.results) == 0 {
		return Result{}, false
	}
	return t.results[len(t.results)-1], true
}

// Wait blocks until a completion is delivered or timeout elapses,
// reporting which happened. Tests use this instead of sleeping when a
// FakeBackend is running Async.
func (t *FakeTransaction) Wait(timeout time.Duration) bool {
	select {
	case <-t.notify:
		return true
	case <-time.After(timeout):
		return false
	}
}
