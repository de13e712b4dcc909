// Package membackend is an in-memory cachecore.Backend, useful for tests,
// examples, and single-process deployments that don't need persistence
// across restarts.
package membackend

import (
	"context"
	"sync"

	"github.com/entrycache/cachecore/pkg/cachecore"
)

// entry is the in-memory storage record backing one key.
type entry struct {
	key    cachecore.Key
	mu     sync.Mutex
	doomed bool
	closed bool
}

func (e *entry) Key() cachecore.Key { return e.key }

func (e *entry) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
}

func (e *entry) Doom() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.doomed = true
}

// Backend is an in-memory cachecore.Backend. Every call runs its completion
// on its own goroutine, so callers see the same asynchronous contract they
// would against a real disk or network-backed adapter.
type Backend struct {
	mu      sync.Mutex
	entries map[cachecore.Key]*entry
}

// New returns an empty in-memory Backend.
func New() *Backend {
	return &Backend{entries: make(map[cachecore.Key]*entry)}
}

func (b *Backend) OpenEntry(ctx context.Context, key cachecore.Key, cb cachecore.EntryCallback) (cachecore.Status, cachecore.Entry) {
	go func() {
		b.mu.Lock()
		e, ok := b.entries[key]
		b.mu.Unlock()
		if !ok {
			cb(cachecore.StatusNotFound, nil)
			return
		}
		cb(cachecore.StatusOK, e)
	}()
	return cachecore.StatusPending, nil
}

func (b *Backend) CreateEntry(ctx context.Context, key cachecore.Key, cb cachecore.EntryCallback) (cachecore.Status, cachecore.Entry) {
	go func() {
		b.mu.Lock()
		if _, exists := b.entries[key]; exists {
			b.mu.Unlock()
			cb(cachecore.StatusAlreadyExists, nil)
			return
		}
		e := &entry{key: key}
		b.entries[key] = e
		b.mu.Unlock()
		cb(cachecore.StatusOK, e)
	}()
	return cachecore.StatusPending, nil
}

func (b *Backend) DoomEntry(ctx context.Context, key cachecore.Key, cb cachecore.DoomCallback) cachecore.Status {
	go func() {
		b.mu.Lock()
		e, ok := b.entries[key]
		if ok {
			delete(b.entries, key)
		}
		b.mu.Unlock()
		if !ok {
			cb(cachecore.StatusNotFound)
			return
		}
		e.Doom()
		cb(cachecore.StatusOK)
	}()
	return cachecore.StatusPending
}

// Factory constructs Backend instances on demand, following
// cachecore.BackendFactory's asynchronous completion contract.
type Factory struct{}

// NewFactory returns a BackendFactory that hands out fresh in-memory
// Backends.
func NewFactory() Factory { return Factory{} }

func (Factory) CreateBackend(ctx context.Context, cb cachecore.BackendReadyCallback) (cachecore.Status, cachecore.Backend) {
	go func() {
		cb(cachecore.StatusOK, New())
	}()
	return cachecore.StatusPending, nil
}
