package cachecore

import "context"

// Entry is a handle into the backing store for one key. cachecore wraps it
// in an ActiveEntry and calls Close and Doom itself; ActiveEntry.Entry
// returns it to callers unmediated.
type Entry interface {
	// Key returns the key this entry was opened or created under. It must
	// be returned faithfully — cachecore uses it to activate the entry in
	// its lookup table.
	Key() Key

	// Close releases the entry. Called exactly once, when the owning
	// ActiveEntry is destroyed.
	Close()

	// Doom marks the entry for deletion. The entry remains valid for
	// existing holders until they release it and Close is called.
	Doom()
}

// EntryCallback is invoked exactly once when an asynchronous
// OpenEntry/CreateEntry call completes. result is one of StatusOK,
// StatusNotFound, StatusAlreadyExists, or StatusFailed — never
// StatusPending. entry is non-nil only when result is StatusOK.
type EntryCallback func(result Status, entry Entry)

// DoomCallback is invoked exactly once when an asynchronous DoomEntry call
// completes, with StatusOK, StatusNotFound, or StatusFailed.
type DoomCallback func(result Status)

// BackendReadyCallback is invoked exactly once when an asynchronous
// backend construction completes.
type BackendReadyCallback func(result Status, backend Backend)

// Backend is the storage adapter cachecore drives. Every method either
// completes synchronously (returning anything but StatusPending, with cb
// never called) or returns StatusPending and later invokes cb exactly
// once from any goroutine. Implementations must tolerate cb being invoked
// after the Cache that issued the call has been closed — see Cache.Close.
type Backend interface {
	// OpenEntry looks up an existing entry by key.
	OpenEntry(ctx context.Context, key Key, cb EntryCallback) (Status, Entry)

	// CreateEntry creates a new entry by key, failing with
	// StatusAlreadyExists if one is already present.
	CreateEntry(ctx context.Context, key Key, cb EntryCallback) (Status, Entry)

	// DoomEntry marks the entry for the given key for deletion, without
	// requiring it to be open.
	DoomEntry(ctx context.Context, key Key, cb DoomCallback) Status
}

// BackendFactory asynchronously constructs the Backend a Cache will drive.
// It follows the same completion contract as Backend's methods.
type BackendFactory interface {
	// CreateBackend starts backend construction.
	CreateBackend(ctx context.Context, cb BackendReadyCallback) (Status, Backend)
}
