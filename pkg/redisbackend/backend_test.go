package redisbackend

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/entrycache/cachecore/pkg/cachecore"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	client := setupTestRedis(t)
	b := &Backend{
		client:     client,
		dispatcher: newDispatcher(4, 64),
		health:     NewHealthTracker(client, zerolog.Nop()),
		keyPrefix:  "cachecoretest",
		logger:     zerolog.Nop(),
	}
	t.Cleanup(b.Close)
	return b
}

func waitEntryCallback(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for backend callback")
	}
}

func TestBackendCreateThenOpen(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	created := make(chan struct{})
	var createStatus cachecore.Status
	b.CreateEntry(ctx, "k", func(s cachecore.Status, e cachecore.Entry) {
		createStatus = s
		close(created)
	})
	waitEntryCallback(t, created)
	if createStatus != cachecore.StatusOK {
		t.Fatalf("create status = %v, want OK", createStatus)
	}

	opened := make(chan struct{})
	var openStatus cachecore.Status
	var openEntry cachecore.Entry
	b.OpenEntry(ctx, "k", func(s cachecore.Status, e cachecore.Entry) {
		openStatus, openEntry = s, e
		close(opened)
	})
	waitEntryCallback(t, opened)
	if openStatus != cachecore.StatusOK || openEntry == nil {
		t.Fatalf("open = (%v, %v), want (OK, non-nil)", openStatus, openEntry)
	}
}

func TestBackendCreateEntryAlreadyExists(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	first := make(chan struct{})
	b.CreateEntry(ctx, "dup", func(s cachecore.Status, e cachecore.Entry) { close(first) })
	waitEntryCallback(t, first)

	second := make(chan struct{})
	var status cachecore.Status
	b.CreateEntry(ctx, "dup", func(s cachecore.Status, e cachecore.Entry) {
		status = s
		close(second)
	})
	waitEntryCallback(t, second)
	if status != cachecore.StatusAlreadyExists {
		t.Fatalf("status = %v, want AlreadyExists", status)
	}
}

func TestBackendOpenEntryNotFound(t *testing.T) {
	b := newTestBackend(t)
	done := make(chan struct{})
	var status cachecore.Status
	b.OpenEntry(context.Background(), "nowhere", func(s cachecore.Status, e cachecore.Entry) {
		status = s
		close(done)
	})
	waitEntryCallback(t, done)
	if status != cachecore.StatusNotFound {
		t.Fatalf("status = %v, want NotFound", status)
	}
}

func TestBackendDoomEntryHidesFromOpen(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	created := make(chan struct{})
	b.CreateEntry(ctx, "d", func(s cachecore.Status, e cachecore.Entry) { close(created) })
	waitEntryCallback(t, created)

	doomed := make(chan struct{})
	var doomStatus cachecore.Status
	b.DoomEntry(ctx, "d", func(s cachecore.Status) {
		doomStatus = s
		close(doomed)
	})
	waitEntryCallback(t, doomed)
	if doomStatus != cachecore.StatusOK {
		t.Fatalf("doom status = %v, want OK", doomStatus)
	}

	opened := make(chan struct{})
	var openStatus cachecore.Status
	b.OpenEntry(ctx, "d", func(s cachecore.Status, e cachecore.Entry) {
		openStatus = s
		close(opened)
	})
	waitEntryCallback(t, opened)
	if openStatus != cachecore.StatusNotFound {
		t.Fatalf("post-doom open = %v, want NotFound", openStatus)
	}
}

func TestEntryCloseDeletesRecord(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	created := make(chan struct{})
	var createdEntry cachecore.Entry
	b.CreateEntry(ctx, "close-me", func(s cachecore.Status, e cachecore.Entry) {
		createdEntry = e
		close(created)
	})
	waitEntryCallback(t, created)

	createdEntry.Close()
	// Close dispatches asynchronously; give the worker pool a moment.
	time.Sleep(100 * time.Millisecond)

	val, err := b.client.Get(ctx, b.redisKey("close-me")).Result()
	if err == nil {
		t.Fatalf("expected key to be gone after Close, got %q", val)
	}
}
