// Package testutil provides configurable test doubles for
// cachecore.Backend and cachecore.Transaction, letting scenario tests
// control completion timing and count backend calls without standing up
// a real store.
package testutil

import (
	"context"
	"sync"

	"github.com/entrycache/cachecore/pkg/cachecore"
)

// FakeEntry is the Entry FakeBackend hands back from a
// successful Open/Create.
type FakeEntry struct {
	mu     sync.Mutex
	key    cachecore.Key
	closed bool
	doomed bool
}

func (e *FakeEntry) Key() cachecore.Key { return e.key }

func (e *FakeEntry) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
}

func (e *FakeEntry) Doom() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.doomed = true
}

// Closed reports whether Close has been called.
func (e *FakeEntry) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Doomed reports whether Doom has been called.
func (e *FakeEntry) Doomed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doomed
}

// FakeBackend is an in-memory cachecore.Backend double. By default every
// call completes synchronously (Async is false); setting Async makes
// every call return StatusPending and complete on a background goroutine,
// exercising cachecore's asynchronous completion path.
type FakeBackend struct {
	Async bool

	mu      sync.Mutex
	entries map[cachecore.Key]*FakeEntry

	OpenCalls   int
	CreateCalls int
	DoomCalls   int
}

// NewFakeBackend returns an empty FakeBackend.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{entries: make(map[cachecore.Key]*FakeEntry)}
}

// Seed pre-populates key as if a prior CreateEntry had already succeeded,
// without going through the callback machinery.
func (b *FakeBackend) Seed(key cachecore.Key) *FakeEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	e := &FakeEntry{key: key}
	b.entries[key] = e
	return e
}

func (b *FakeBackend) OpenEntry(ctx context.Context, key cachecore.Key, cb cachecore.EntryCallback) (cachecore.Status, cachecore.Entry) {
	b.mu.Lock()
	b.OpenCalls++
	entry, ok := b.entries[key]
	b.mu.Unlock()

	if !ok {
		return b.completeEntry(cachecore.StatusNotFound, nil, cb)
	}
	return b.completeEntry(cachecore.StatusOK, entry, cb)
}

func (b *FakeBackend) CreateEntry(ctx context.Context, key cachecore.Key, cb cachecore.EntryCallback) (cachecore.Status, cachecore.Entry) {
	b.mu.Lock()
	b.CreateCalls++
	if _, ok := b.entries[key]; ok {
		b.mu.Unlock()
		return b.completeEntry(cachecore.StatusAlreadyExists, nil, cb)
	}
	entry := &FakeEntry{key: key}
	b.entries[key] = entry
	b.mu.Unlock()

	return b.completeEntry(cachecore.StatusOK, entry, cb)
}

func (b *FakeBackend) DoomEntry(ctx context.Context, key cachecore.Key, cb cachecore.DoomCallback) cachecore.Status {
	b.mu.Lock()
	b.DoomCalls++
	entry, ok := b.entries[key]
	if ok {
		delete(b.entries, key)
	}
	b.mu.Unlock()

	if entry != nil {
		entry.Doom()
	}
	status := cachecore.StatusNotFound
	if ok {
		status = cachecore.StatusOK
	}

	if !b.Async {
		return status
	}
	go cb(status)
	return cachecore.StatusPending
}

func (b *FakeBackend) completeEntry(status cachecore.Status, entry cachecore.Entry, cb cachecore.EntryCallback) (cachecore.Status, cachecore.Entry) {
	if !b.Async {
		return status, entry
	}
	go cb(status, entry)
	return cachecore.StatusPending, nil
}

// FakeBackendFactory is a cachecore.BackendFactory double that hands out
// a fixed FakeBackend. Setting FailOnce makes the first CreateBackend call
// fail with StatusFailed; every subsequent call succeeds.
type FakeBackendFactory struct {
	Backend  *FakeBackend
	Async    bool
	FailOnce bool

	mu     sync.Mutex
	failed bool
}

// NewFakeBackendFactory returns a factory that hands out backend.
func NewFakeBackendFactory(backend *FakeBackend) *FakeBackendFactory {
	return &FakeBackendFactory{Backend: backend}
}

func (f *FakeBackendFactory) CreateBackend(ctx context.Context, cb cachecore.BackendReadyCallback) (cachecore.Status, cachecore.Backend) {
	f.mu.Lock()
	failThisCall := f.FailOnce && !f.failed
	if failThisCall {
		f.failed = true
	}
	f.mu.Unlock()

	if failThisCall {
		if !f.Async {
			return cachecore.StatusFailed, nil
		}
		go cb(cachecore.StatusFailed, nil)
		return cachecore.StatusPending, nil
	}

	if !f.Async {
		return cachecore.StatusOK, f.Backend
	}
	go cb(cachecore.StatusOK, f.Backend)
	return cachecore.StatusPending, nil
}
