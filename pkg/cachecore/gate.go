package cachecore

import "context"

// ensureBackendBuildingLocked returns the gate's Pending Op, issuing a
// CREATE_BACKEND call against the factory if nobody has started one yet.
// The lead item is synthetic (no transaction, no callback) — it exists
// only to mark "construction is under way"; every real caller, including
// the very first one, is enqueued as its own Work Item so it drains FIFO
// through deliverGateQueue exactly like every later arrival. Callers hold
// c.mu.
func (c *Cache) ensureBackendBuildingLocked(ctx context.Context) *pendingOp {
	gate := c.ops.getOrCreate(gateKey)
	if gate.writer == nil {
		lead := newBackendWorkItem(ctx, nil, nil)
		gate.writer = lead
		c.callBackend(ctx, gateKey, lead)
	}
	return gate
}

// callBackend issues the backend call item represents, wrapping the
// adapter's completion callback so it always re-enters Cache through
// Loop.Post — regardless of which goroutine the backend eventually calls
// it from, and even if the backend resolves the call synchronously. This
// is what makes §4.1's "completion delivered on the same logical
// execution context" hold for adapters that know nothing about Cache's
// Loop. Callers hold c.mu; callBackend does not release it, so backend
// implementations must return promptly.
func (c *Cache) callBackend(ctx context.Context, key Key, item *workItem) {
	switch item.operation {
	case opCreateBackend:
		cb := func(status Status, backend Backend) {
			c.loop.Post(func() { c.onBackendCreateComplete(status, backend) })
		}
		status, backend := c.factory.CreateBackend(ctx, cb)
		if status != StatusPending {
			c.loop.Post(func() { c.onBackendCreateComplete(status, backend) })
		}
	case opOpenEntry:
		cb := func(status Status, entry Entry) {
			c.loop.Post(func() { c.onEntryOpComplete(key, status, entry) })
		}
		status, entry := c.backend.OpenEntry(ctx, key, cb)
		if status != StatusPending {
			c.loop.Post(func() { c.onEntryOpComplete(key, status, entry) })
		}
	case opCreateEntry:
		cb := func(status Status, entry Entry) {
			c.loop.Post(func() { c.onEntryOpComplete(key, status, entry) })
		}
		status, entry := c.backend.CreateEntry(ctx, key, cb)
		if status != StatusPending {
			c.loop.Post(func() { c.onEntryOpComplete(key, status, entry) })
		}
	case opDoomEntry:
		cb := func(status Status) {
			c.loop.Post(func() { c.onEntryOpComplete(key, status, nil) })
		}
		status := c.backend.DoomEntry(ctx, key, cb)
		if status != StatusPending {
			c.loop.Post(func() { c.onEntryOpComplete(key, status, nil) })
		}
	}
}

// onBackendCreateComplete runs on the Loop once CREATE_BACKEND resolves.
// It installs the backend on success, then hands the gate's drained queue
// to deliverGateQueue, which delivers one waiter per Loop tick (§4.6).
func (c *Cache) onBackendCreateComplete(status Status, backend Backend) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	gate, ok := c.ops.find(gateKey)
	if !ok {
		c.mu.Unlock()
		return
	}
	if status == StatusOK {
		c.backend = backend
		gate.backend = backend
	}
	queue := gate.drainQueue()
	c.ops.delete(gate)
	c.refreshGaugesLocked()
	c.mu.Unlock()

	c.deliverGateQueue(status, backend, queue)
}

// deliverGateQueue notifies exactly one gate waiter and, if more remain,
// re-posts itself for the next Loop tick — "at most one gate-drain
// callback per scheduler tick" (§9), so a waiter that tears the Cache
// down mid-drain cannot corrupt the delivery of later waiters: the next
// tick's deliverGateQueueTick checks c.closed before doing anything else.
// The next tick is posted before the head waiter's request is issued, so
// that request's backend completion is queued behind the remaining
// waiters and they coalesce onto its Pending Op.
func (c *Cache) deliverGateQueue(status Status, backend Backend, queue []*workItem) {
	if len(queue) == 0 {
		return
	}
	rest := queue[1:]
	if len(rest) > 0 {
		c.loop.Post(func() { c.deliverGateQueueTick(status, backend, rest) })
	}
	c.deliverGateWaiter(status, backend, queue[0])
}

func (c *Cache) deliverGateQueueTick(status Status, backend Backend, queue []*workItem) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}
	c.deliverGateQueue(status, backend, queue)
}

// deliverGateWaiter resolves one item that queued behind the
// backend-creation gate. A bare CreateBackend/GetBackend caller is
// notified directly; a transaction whose real request was OPEN/CREATE/
// DOOM_ENTRY has that request replayed now that the backend exists.
func (c *Cache) deliverGateWaiter(status Status, backend Backend, item *workItem) {
	if item.operation == opCreateBackend {
		item.notifyBackend(status, backend)
		return
	}
	if item.trans == nil {
		return
	}
	if status != StatusOK {
		item.notifyTransaction(StatusFailed, nil)
		return
	}
	c.mu.Lock()
	if entry, ok := c.active[item.trans.Key()]; ok {
		c.mu.Unlock()
		item.notifyTransaction(StatusOK, entry)
		return
	}
	op := c.ops.getOrCreate(item.trans.Key())
	if op.writer == nil {
		op.writer = item
		c.callBackend(item.ctx, item.trans.Key(), item)
	} else {
		op.enqueue(item)
	}
	c.mu.Unlock()
}

// onEntryOpComplete runs on the Loop once an OPEN/CREATE/DOOM_ENTRY call
// resolves. It implements the Pending-Op Completion Protocol of §4.5
// exactly: activate on success, drain and delete the Pending Op before
// any notification fires (so re-entrant requests land on a fresh op), and
// then walk the drained queue applying the Open/Create race table.
func (c *Cache) onEntryOpComplete(key Key, r Status, diskEntry Entry) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	op, ok := c.ops.find(key)
	if !ok {
		c.mu.Unlock()
		return
	}
	lead := op.writer

	var active *ActiveEntry
	fail := false
	if r == StatusOK {
		switch {
		case lead.operation == opDoomEntry:
			// Anything after a Doom has to be restarted.
			fail = true
		case lead.isValid():
			active = c.activateLocked(diskEntry.Key(), diskEntry)
			op.entry = diskEntry
		default:
			// The transaction that requested this call vanished
			// (RemovePendingTransaction ran before the backend replied).
			if lead.operation == opCreateEntry {
				diskEntry.Doom()
			}
			diskEntry.Close()
			fail = true
		}
	}

	queue := op.drainQueue()
	c.ops.delete(op)
	c.refreshGaugesLocked()
	c.mu.Unlock()

	lead.notifyTransaction(r, active)

	for _, item := range queue {
		fail = c.notifyQueuedEntryItem(item, r, active, lead.operation, fail)
	}
}

// notifyQueuedEntryItem applies §4.5 step 6's race table to one item that
// coalesced onto the same Pending Op as lead, returning the fail state to
// thread into the next item: a race discovered partway through the queue —
// a queued doom, or the active entry disappearing under a re-entrant
// callback — must also fail every item still to come.
func (c *Cache) notifyQueuedEntryItem(item *workItem, r Status, active *ActiveEntry, leadOp workItemOperation, fail bool) bool {
	switch {
	case item.operation == opDoomEntry:
		// A queued doom request is always a race.
		fail = true
	case r == StatusOK:
		if active == nil || !c.entryStillActive(active) {
			fail = true
		}
	}

	if fail {
		item.notifyTransaction(StatusCacheRace, nil)
		return fail
	}

	if item.operation == opCreateEntry {
		if r == StatusOK {
			// A second Create request, but the first request succeeded.
			item.notifyTransaction(StatusCacheCreateFailure, nil)
			return fail
		}
		if leadOp != opCreateEntry {
			// Failed Open followed by a Create.
			item.notifyTransaction(StatusCacheRace, nil)
			return true
		}
		item.notifyTransaction(r, active)
		return fail
	}

	// OPEN_ENTRY
	if leadOp == opCreateEntry && r != StatusOK {
		// Failed Create followed by an Open.
		item.notifyTransaction(StatusCacheRace, nil)
		return true
	}
	item.notifyTransaction(r, active)
	return fail
}

// entryStillActive reports whether e is still reachable by key in the
// active table — false if a re-entrant callback doomed or destroyed it
// while notifyQueuedEntryItem was still walking the drained queue.
func (c *Cache) entryStillActive(e *ActiveEntry) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	got, ok := c.active[e.Entry().Key()]
	return ok && got == e
}
