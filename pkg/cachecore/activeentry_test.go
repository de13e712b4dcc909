package cachecore

import "testing"

func TestActiveEntryHasUsers(t *testing.T) {
	e := newActiveEntry(&stubEntry{key: "k"})
	if e.hasUsers() {
		t.Fatal("freshly created entry should have no users")
	}

	trans := &stubTransaction{key: "k"}
	e.writer = trans
	if !e.hasUsers() {
		t.Fatal("entry with a writer should report users")
	}
	e.writer = nil

	e.readers[trans] = struct{}{}
	if !e.hasUsers() {
		t.Fatal("entry with a reader should report users")
	}
	delete(e.readers, trans)

	e.pendingQueue = append(e.pendingQueue, trans)
	if !e.hasUsers() {
		t.Fatal("entry with a queued waiter should report users")
	}
}

func TestActiveEntryRemoveFromPendingQueue(t *testing.T) {
	e := newActiveEntry(&stubEntry{key: "k"})
	t1 := &stubTransaction{key: "k"}
	t2 := &stubTransaction{key: "k"}
	t3 := &stubTransaction{key: "k"}
	e.pendingQueue = []Transaction{t1, t2, t3}

	if !e.removeFromPendingQueue(t2) {
		t.Fatal("expected t2 to be found and removed")
	}
	if len(e.pendingQueue) != 2 || e.pendingQueue[0] != t1 || e.pendingQueue[1] != t3 {
		t.Fatalf("pendingQueue = %v, want [t1 t3]", e.pendingQueue)
	}
	if e.removeFromPendingQueue(t2) {
		t.Fatal("removing an absent transaction should report false")
	}
}
