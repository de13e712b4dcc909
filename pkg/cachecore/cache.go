package cachecore

import (
	"context"
	"sync"
)

// gateKey is the reserved Pending Op key for the backend-creation gate
// (§4.6). It is a convention rather than a distinct type: one reserved
// key gives the gate the same FIFO coalescing machinery every other key
// gets, for free.
const gateKey Key = ""

// Config configures a Cache. BackendFactory is required; Mode defaults to
// Normal.
type Config struct {
	// Mode selects the KeyGenerator's key-computation strategy.
	Mode Mode

	// BackendFactory asynchronously constructs the Backend the Cache will
	// drive. Construction is deferred until the first operation that
	// needs the backend arrives.
	BackendFactory BackendFactory

	// LoopQueueDepth sizes the Cache's internal task queue. Zero selects
	// a sensible default.
	LoopQueueDepth int
}

// DefaultConfig returns a Config in Normal mode using factory.
func DefaultConfig(factory BackendFactory) Config {
	return Config{
		Mode:           Normal,
		BackendFactory: factory,
		LoopQueueDepth: 256,
	}
}

// Cache mediates concurrent Transactions against a pluggable Backend: it
// owns the active-entry table, the doomed-entry set, and the pending-op
// registry, and enforces the reader/writer admission discipline described
// by the Admission & Lock Manager. Every backend completion and every
// deferred drain re-enters Cache through Loop.Post rather than mutating
// state from whatever goroutine the backend used. The public methods run
// on the caller's goroutine; a sync.Mutex guards Cache's state so
// ordinary Go callers and the loop can both call the public API directly — reentrant calls made from inside a Transaction's
// completion callback are safe because notifications are always delivered
// after Cache has released the lock, never while still holding it.
type Cache struct {
	mu sync.Mutex

	keys *KeyGenerator

	factory BackendFactory
	backend Backend

	active map[Key]*ActiveEntry
	doomed map[*ActiveEntry]struct{}

	ops *pendingOpRegistry

	loop *Loop

	closed bool
}

// NewCache validates cfg and returns a running Cache.
func NewCache(cfg Config) (*Cache, error) {
	if cfg.BackendFactory == nil {
		return nil, ErrNoBackendFactory
	}
	switch cfg.Mode {
	case Normal, Record, Playback, Disable:
	default:
		return nil, ErrInvalidMode
	}
	depth := cfg.LoopQueueDepth
	if depth <= 0 {
		depth = 256
	}
	return &Cache{
		keys:    NewKeyGenerator(cfg.Mode),
		factory: cfg.BackendFactory,
		active:  make(map[Key]*ActiveEntry),
		doomed:  make(map[*ActiveEntry]struct{}),
		ops:     newPendingOpRegistry(),
		loop:    NewLoop(depth),
	}, nil
}

// Close stops the Cache's Loop. Tasks already queued are discarded;
// backend callbacks that fire afterward find Loop.Post a no-op, so they
// cannot touch Cache state after Close returns — the cancellation-safety
// guarantee of §4.6/§9.
func (c *Cache) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.loop.Stop()
}

// GenerateKey computes a Key for method/url/uploadID using the Cache's
// configured Mode.
func (c *Cache) GenerateKey(method, url string, uploadID int64) (Key, error) {
	return c.keys.Generate(method, url, uploadID)
}

// CreateTransaction mints a Transaction bound to key and mode, delivering
// completions to onComplete. Embedders with their own Transaction type
// never need this — it exists for callers happy to let cachecore own
// transaction identity.
func (c *Cache) CreateTransaction(key Key, mode TransactionMode, onComplete func(Status, *ActiveEntry)) Transaction {
	return newBasicTransaction(key, mode, onComplete)
}

// OpenEntry looks up key in the active table, returning immediately on a
// hit. On a miss it issues an OPEN_ENTRY Work Item (queuing behind the
// backend-creation gate first if no Backend exists yet) and returns
// StatusPending; trans is notified later via OnIOComplete.
func (c *Cache) OpenEntry(ctx context.Context, key Key, trans Transaction) (Status, *ActiveEntry) {
	c.mu.Lock()
	if e, ok := c.active[key]; ok {
		c.mu.Unlock()
		return StatusOK, e
	}
	c.issueLocked(ctx, opOpenEntry, key, trans)
	c.mu.Unlock()
	return StatusPending, nil
}

// CreateEntry issues a CREATE_ENTRY Work Item for key. The caller must
// ensure no active entry exists for key (e.g. by dooming it first); this
// is a precondition, not something CreateEntry checks defensively.
func (c *Cache) CreateEntry(ctx context.Context, key Key, trans Transaction) Status {
	c.mu.Lock()
	c.issueLocked(ctx, opCreateEntry, key, trans)
	c.mu.Unlock()
	return StatusPending
}

// DoomEntry detaches the active entry for key, if any, moving it into the
// doomed set: it stays alive for its current holders but is no longer
// reachable by key. If no active entry exists, DoomEntry falls back to
// AsyncDoomEntry, which fails every item already queued for key with
// StatusCacheRace once the backend confirms the doom.
func (c *Cache) DoomEntry(ctx context.Context, key Key, trans Transaction) Status {
	c.mu.Lock()
	entry, ok := c.active[key]
	if !ok {
		c.mu.Unlock()
		return c.AsyncDoomEntry(ctx, key, trans)
	}
	delete(c.active, key)
	c.doomed[entry] = struct{}{}
	entry.doomed = true
	entry.Entry().Doom()
	c.refreshGaugesLocked()
	entryDoomsTotal.Inc()
	c.mu.Unlock()
	return StatusOK
}

// AsyncDoomEntry issues a DOOM_ENTRY Work Item for a key that has no
// active entry, so the caller can still be told when a backend-level
// doom (of an entry cachecore never activated) has completed.
func (c *Cache) AsyncDoomEntry(ctx context.Context, key Key, trans Transaction) Status {
	c.mu.Lock()
	c.issueLocked(ctx, opDoomEntry, key, trans)
	c.mu.Unlock()
	return StatusPending
}

// issueLocked routes a new transaction-owned Work Item either onto the
// backend-creation gate (if no Backend exists yet) or onto key's own
// Pending Op. Callers hold c.mu.
func (c *Cache) issueLocked(ctx context.Context, operation workItemOperation, key Key, trans Transaction) {
	item := newTransactionWorkItem(ctx, operation, trans, nil)
	if c.backend == nil {
		gate := c.ensureBackendBuildingLocked(ctx)
		gate.enqueue(item)
		return
	}
	op := c.ops.getOrCreate(key)
	if op.writer == nil {
		op.writer = item
		c.callBackend(ctx, key, item)
	} else {
		op.enqueue(item)
	}
}

// GetBackend returns the live Backend immediately if one exists. Otherwise
// it registers cb against the backend-creation gate and returns
// StatusPending; cb fires once construction completes, successfully or
// not.
func (c *Cache) GetBackend(ctx context.Context, trans Transaction, cb func(Status, Backend)) (Status, Backend) {
	c.mu.Lock()
	if c.backend != nil {
		b := c.backend
		c.mu.Unlock()
		return StatusOK, b
	}
	gate := c.ensureBackendBuildingLocked(ctx)
	gate.enqueue(newBackendWorkItem(ctx, trans, cb))
	c.mu.Unlock()
	return StatusPending, nil
}

// activateLocked installs diskEntry into the active table under key,
// returning the new ActiveEntry.
func (c *Cache) activateLocked(key Key, diskEntry Entry) *ActiveEntry {
	e := newActiveEntry(diskEntry)
	c.active[key] = e
	c.refreshGaugesLocked()
	return e
}

// destroyEntryLocked removes entry from whichever table holds it and
// closes its underlying disk entry. Invariant C (writer, readers, and the
// pending queue are all empty, and no drain is scheduled) is the caller's
// responsibility to have already established.
func (c *Cache) destroyEntryLocked(entry *ActiveEntry) {
	key := entry.Entry().Key()
	if got, ok := c.active[key]; ok && got == entry {
		delete(c.active, key)
	}
	delete(c.doomed, entry)
	entry.Entry().Close()
	c.refreshGaugesLocked()
}

func (c *Cache) refreshGaugesLocked() {
	activeEntriesGauge.Set(float64(len(c.active)))
	doomedEntriesGauge.Set(float64(len(c.doomed)))
	pendingOpsGauge.Set(float64(len(c.ops.byKey)))
}

// scheduleDrainLocked arranges for onProcessPendingQueue to run once on
// the Loop, coalescing bursts of releases into a single drain per entry
// (§4.3's batching rationale).
//
// onProcessPendingQueue itself runs on the Loop and can re-enter here
// through addTransactionLocked, so this must never block the Loop
// goroutine waiting on its own task queue. TryPost is non-blocking; if
// the queue is momentarily saturated the drain is dropped and
// willProcessPendingQueue is cleared so the next AddTransaction or
// DoneWithEntry against entry schedules it again.
func (c *Cache) scheduleDrainLocked(entry *ActiveEntry) {
	if entry.willProcessPendingQueue {
		return
	}
	entry.willProcessPendingQueue = true
	if !c.loop.TryPost(func() { c.onProcessPendingQueue(entry) }) {
		entry.willProcessPendingQueue = false
	}
}

// AddTransaction admits trans onto entry as writer, reader, or into the
// pending queue, per the Admission contract (§4.3).
func (c *Cache) AddTransaction(entry *ActiveEntry, trans Transaction) Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addTransactionLocked(entry, trans)
}

func (c *Cache) addTransactionLocked(entry *ActiveEntry, trans Transaction) Status {
	var status Status
	switch {
	case entry.writer != nil || entry.willProcessPendingQueue:
		entry.pendingQueue = append(entry.pendingQueue, trans)
		status = StatusPending
	case trans.TransactionMode()&Write != 0:
		if len(entry.readers) == 0 {
			entry.writer = trans
			status = StatusOK
		} else {
			entry.pendingQueue = append(entry.pendingQueue, trans)
			status = StatusPending
		}
	default:
		entry.readers[trans] = struct{}{}
		status = StatusOK
	}
	if entry.writer == nil && len(entry.pendingQueue) > 0 {
		c.scheduleDrainLocked(entry)
	}
	return status
}

// DoneWithEntry releases trans's hold on entry. If trans is the writer and
// cancel is true, trans.MarkTruncated determines whether the partial write
// is kept; on failure the entry is doomed, destroyed, and every queued
// transaction is failed with StatusCacheRace.
func (c *Cache) DoneWithEntry(entry *ActiveEntry, trans Transaction, cancel bool) {
	c.mu.Lock()

	if entry.writer == trans {
		success := true
		if cancel {
			success = trans.MarkTruncated()
		}
		entry.writer = nil
		if success {
			c.scheduleDrainLocked(entry)
			c.mu.Unlock()
			return
		}

		waiters := entry.pendingQueue
		entry.pendingQueue = nil
		if !entry.doomed {
			entry.Entry().Doom()
		}
		c.destroyEntryLocked(entry)
		entryRacesTotal.Add(float64(len(waiters)))
		c.mu.Unlock()

		for _, w := range waiters {
			w.OnIOComplete(StatusCacheRace, nil)
		}
		return
	}

	if _, ok := entry.readers[trans]; ok {
		delete(entry.readers, trans)
		c.scheduleDrainLocked(entry)
		c.mu.Unlock()
		return
	}

	entry.removeFromPendingQueue(trans)
	c.mu.Unlock()
}

// ConvertWriterToReader downgrades entry's writer into its sole reader.
// Permitted only when the writer's mode is ReadWrite and there are no
// concurrent readers.
func (c *Cache) ConvertWriterToReader(entry *ActiveEntry) Status {
	c.mu.Lock()
	if entry.writer == nil || len(entry.readers) != 0 {
		c.mu.Unlock()
		return StatusFailed
	}
	if entry.writer.TransactionMode() != ReadWrite {
		c.mu.Unlock()
		return StatusFailed
	}
	reader := entry.writer
	entry.writer = nil
	entry.readers[reader] = struct{}{}
	c.scheduleDrainLocked(entry)
	c.mu.Unlock()
	return StatusOK
}

// onProcessPendingQueue is the deferred drain tick scheduled by
// scheduleDrainLocked. It clears will_process_pending_queue, destroys the
// entry if it has gone idle, and otherwise admits at most one queued
// transaction (§4.3).
func (c *Cache) onProcessPendingQueue(entry *ActiveEntry) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	entry.willProcessPendingQueue = false

	if !entry.hasUsers() {
		c.destroyEntryLocked(entry)
		c.mu.Unlock()
		return
	}
	if len(entry.pendingQueue) == 0 {
		c.mu.Unlock()
		return
	}

	head := entry.pendingQueue[0]
	if head.TransactionMode()&Write != 0 && len(entry.readers) > 0 {
		// A writer at the head must wait for the current readers to
		// drain first.
		c.mu.Unlock()
		return
	}

	entry.pendingQueue = entry.pendingQueue[1:]
	status := c.addTransactionLocked(entry, head)
	c.mu.Unlock()

	if status != StatusPending {
		head.OnIOComplete(status, entry)
	}
}

// GetLoadStateForPending reports what trans is waiting on: the writer's
// own load state, if trans is queued behind one, or
// LoadStateWaitingForCache otherwise (no active entry yet, or queued
// behind the backend-creation gate).
func (c *Cache) GetLoadStateForPending(trans Transaction) LoadState {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := trans.Key()
	if entry, ok := c.active[key]; ok {
		if state, found := writerStateIfQueued(entry, trans); found {
			return state
		}
	}
	for entry := range c.doomed {
		if state, found := writerStateIfQueued(entry, trans); found {
			return state
		}
	}
	return LoadStateWaitingForCache
}

func writerStateIfQueued(entry *ActiveEntry, trans Transaction) (LoadState, bool) {
	for _, t := range entry.pendingQueue {
		if t == trans {
			if entry.writer != nil {
				return entry.writer.WriterLoadState(), true
			}
			return LoadStateWaitingForCache, true
		}
	}
	return LoadStateWaitingForCache, false
}

// RemovePendingTransaction locates and removes trans from wherever it is
// still waiting — an active entry's pending queue, a keyed Pending Op's
// writer slot or queue, the backend-creation gate, or a doomed entry's
// queue — in that order (§4.7). If trans was a Pending Op's lead writer,
// only its transaction/entry back-pointers are cleared: the in-flight
// backend call cannot be cancelled, so its eventual completion treats the
// lead as "no longer valid" per §4.5 step 3.
func (c *Cache) RemovePendingTransaction(trans Transaction) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := trans.Key()

	if entry, ok := c.active[key]; ok {
		if entry.removeFromPendingQueue(trans) {
			return true
		}
	}

	if op, ok := c.ops.find(key); ok {
		if clearFromOp(op, trans) {
			return true
		}
	}

	if gate, ok := c.ops.find(gateKey); ok {
		if clearFromOp(gate, trans) {
			return true
		}
	}

	for entry := range c.doomed {
		if entry.removeFromPendingQueue(trans) {
			return true
		}
	}

	return false
}

// clearFromOp detaches trans's work item from op — the transaction slot,
// the caller's entry out-slot, and (for a GetBackend/CreateBackend item)
// the end-user callback, so a cancelled caller can't still be notified once
// the in-flight backend call it triggered resolves.
func clearFromOp(op *pendingOp, trans Transaction) bool {
	if op.writer != nil && op.writer.matches(trans) {
		op.writer.clearTransaction()
		op.writer.clearEntry()
		op.writer.clearCallback()
		return true
	}
	for _, item := range op.pendingQueue {
		if item.matches(trans) {
			item.clearTransaction()
			item.clearEntry()
			item.clearCallback()
			return true
		}
	}
	return false
}

// EntrySnapshot describes one active entry's admission state at the moment
// Snapshot was called.
type EntrySnapshot struct {
	Key          Key
	HasWriter    bool
	ReaderCount  int
	PendingCount int
}

// Snapshot is a point-in-time debugging view of Cache's internal state. It
// is not part of the admission protocol — nothing blocks on it — and
// exists so an operator-facing endpoint can report what the cache is
// doing without reaching into private fields.
type Snapshot struct {
	Entries       []EntrySnapshot
	DoomedCount   int
	PendingOpKeys []Key
	BackendReady  bool
}

// Snapshot captures the current active-entry table, doomed set, and
// outstanding Pending Ops. Doomed entries are reported only as a count:
// they have already been detached from the active table by key, so
// listing them by key would be misleading.
func (c *Cache) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{BackendReady: c.backend != nil, DoomedCount: len(c.doomed)}
	for key, entry := range c.active {
		snap.Entries = append(snap.Entries, EntrySnapshot{
			Key:          key,
			HasWriter:    entry.writer != nil,
			ReaderCount:  len(entry.readers),
			PendingCount: len(entry.pendingQueue),
		})
	}
	for key := range c.ops.byKey {
		if key != gateKey {
			snap.PendingOpKeys = append(snap.PendingOpKeys, key)
		}
	}
	return snap
}
