package membackend

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/entrycache/cachecore/pkg/cachecore"
)

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for backend callback")
	}
}

func TestOpenEntryMiss(t *testing.T) {
	b := New()
	done := make(chan struct{})
	var status cachecore.Status
	status, entry := b.OpenEntry(context.Background(), "k", func(s cachecore.Status, e cachecore.Entry) {
		status = s
		close(done)
	})
	if status != cachecore.StatusPending {
		t.Fatalf("status = %v, want Pending", status)
	}
	if entry != nil {
		t.Fatalf("entry = %v, want nil", entry)
	}
	waitFor(t, done)
	if status != cachecore.StatusNotFound {
		t.Fatalf("callback status = %v, want NotFound", status)
	}
}

func TestCreateThenOpen(t *testing.T) {
	b := New()

	created := make(chan struct{})
	var createStatus cachecore.Status
	b.CreateEntry(context.Background(), "k", func(s cachecore.Status, e cachecore.Entry) {
		createStatus = s
		close(created)
	})
	waitFor(t, created)
	if createStatus != cachecore.StatusOK {
		t.Fatalf("create status = %v, want OK", createStatus)
	}

	opened := make(chan struct{})
	var openStatus cachecore.Status
	var openEntry cachecore.Entry
	b.OpenEntry(context.Background(), "k", func(s cachecore.Status, e cachecore.Entry) {
		openStatus, openEntry = s, e
		close(opened)
	})
	waitFor(t, opened)
	if openStatus != cachecore.StatusOK || openEntry == nil || openEntry.Key() != "k" {
		t.Fatalf("open = (%v, %v), want (OK, entry with key k)", openStatus, openEntry)
	}
}

func TestCreateEntryAlreadyExists(t *testing.T) {
	b := New()

	first := make(chan struct{})
	b.CreateEntry(context.Background(), "k", func(s cachecore.Status, e cachecore.Entry) { close(first) })
	waitFor(t, first)

	second := make(chan struct{})
	var status cachecore.Status
	b.CreateEntry(context.Background(), "k", func(s cachecore.Status, e cachecore.Entry) {
		status = s
		close(second)
	})
	waitFor(t, second)
	if status != cachecore.StatusAlreadyExists {
		t.Fatalf("status = %v, want AlreadyExists", status)
	}
}

func TestDoomEntryRemovesIt(t *testing.T) {
	b := New()

	created := make(chan struct{})
	b.CreateEntry(context.Background(), "k", func(s cachecore.Status, e cachecore.Entry) { close(created) })
	waitFor(t, created)

	doomed := make(chan struct{})
	var doomStatus cachecore.Status
	b.DoomEntry(context.Background(), "k", func(s cachecore.Status) {
		doomStatus = s
		close(doomed)
	})
	waitFor(t, doomed)
	if doomStatus != cachecore.StatusOK {
		t.Fatalf("doom status = %v, want OK", doomStatus)
	}

	opened := make(chan struct{})
	var openStatus cachecore.Status
	b.OpenEntry(context.Background(), "k", func(s cachecore.Status, e cachecore.Entry) {
		openStatus = s
		close(opened)
	})
	waitFor(t, opened)
	if openStatus != cachecore.StatusNotFound {
		t.Fatalf("post-doom open = %v, want NotFound", openStatus)
	}
}

func TestDoomEntryMissing(t *testing.T) {
	b := New()
	done := make(chan struct{})
	var status cachecore.Status
	b.DoomEntry(context.Background(), "nowhere", func(s cachecore.Status) {
		status = s
		close(done)
	})
	waitFor(t, done)
	if status != cachecore.StatusNotFound {
		t.Fatalf("status = %v, want NotFound", status)
	}
}

func TestFactoryCreateBackend(t *testing.T) {
	f := NewFactory()
	done := make(chan struct{})
	var status cachecore.Status
	var backend cachecore.Backend
	status, backend = f.CreateBackend(context.Background(), func(s cachecore.Status, b cachecore.Backend) {
		status, backend = s, b
		close(done)
	})
	if status != cachecore.StatusPending {
		t.Fatalf("initial status = %v, want Pending", status)
	}
	waitFor(t, done)
	if status != cachecore.StatusOK || backend == nil {
		t.Fatalf("callback = (%v, %v), want (OK, non-nil)", status, backend)
	}
}

func TestConcurrentCreateEntrySameKey(t *testing.T) {
	b := New()
	const n = 10
	var wg sync.WaitGroup
	results := make(chan cachecore.Status, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			done := make(chan struct{})
			var s cachecore.Status
			b.CreateEntry(context.Background(), "race", func(status cachecore.Status, e cachecore.Entry) {
				s = status
				close(done)
			})
			<-done
			results <- s
		}()
	}
	wg.Wait()
	close(results)

	oks, exists := 0, 0
	for s := range results {
		switch s {
		case cachecore.StatusOK:
			oks++
		case cachecore.StatusAlreadyExists:
			exists++
		default:
			t.Fatalf("unexpected status %v", s)
		}
	}
	if oks != 1 || exists != n-1 {
		t.Fatalf("oks=%d exists=%d, want oks=1 exists=%d", oks, exists, n-1)
	}
}
