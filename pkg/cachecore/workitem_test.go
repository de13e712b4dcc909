package cachecore

import "testing"

func TestWorkItemNotifyTransactionFillsSlotAndCallsBack(t *testing.T) {
	trans := &stubTransaction{key: "k"}
	var slot *ActiveEntry
	item := newTransactionWorkItem(nil, opOpenEntry, trans, &slot)

	entry := newActiveEntry(&stubEntry{key: "k"})
	item.notifyTransaction(StatusOK, entry)

	if slot != entry {
		t.Errorf("out-slot = %v, want %v", slot, entry)
	}
	if len(trans.results) != 1 || trans.results[0].status != StatusOK {
		t.Errorf("trans did not receive OK: %+v", trans.results)
	}
}

func TestWorkItemIsValidAndClear(t *testing.T) {
	trans := &stubTransaction{key: "k"}
	var slot *ActiveEntry
	item := newTransactionWorkItem(nil, opOpenEntry, trans, &slot)

	if !item.isValid() {
		t.Fatal("expected item to be valid with a transaction and slot set")
	}

	item.clearTransaction()
	if !item.isValid() {
		t.Fatal("expected item to remain valid: entry slot is still live")
	}

	item.clearEntry()
	if item.isValid() {
		t.Fatal("expected item to be dead once transaction and slot are both cleared")
	}
}

func TestWorkItemNotifyTransactionAfterCancelIsNoop(t *testing.T) {
	trans := &stubTransaction{key: "k"}
	item := newTransactionWorkItem(nil, opOpenEntry, trans, nil)
	item.clearTransaction()

	item.notifyTransaction(StatusOK, nil)

	if len(trans.results) != 0 {
		t.Errorf("cancelled transaction should not be notified, got %+v", trans.results)
	}
}

func TestWorkItemNotifyBackend(t *testing.T) {
	var got Status
	var gotBackend Backend
	item := newBackendWorkItem(nil, nil, func(s Status, b Backend) {
		got = s
		gotBackend = b
	})

	if !item.notifyBackend(StatusOK, nil) {
		t.Fatal("expected notifyBackend to report a callback was invoked")
	}
	if got != StatusOK || gotBackend != nil {
		t.Errorf("callback got (%v, %v)", got, gotBackend)
	}
}

func TestWorkItemMatches(t *testing.T) {
	trans := &stubTransaction{key: "k"}
	other := &stubTransaction{key: "k"}
	item := newTransactionWorkItem(nil, opOpenEntry, trans, nil)

	if !item.matches(trans) {
		t.Error("expected item to match its own transaction")
	}
	if item.matches(other) {
		t.Error("expected item not to match an unrelated transaction")
	}
}
