// Package cachecore coordinates concurrent transactions against a
// pluggable, asynchronous storage backend.
//
// For any given cache key it guarantees:
//
//   - at most one active entry and one in-flight backend call per key
//   - a multi-reader/single-writer discipline over each active entry,
//     with FIFO admission for queued transactions
//   - deterministic recovery from cache races, cancellations, and doomed
//     entries
//   - lazy, coalesced initialization of the backend itself
//
// The core does not perform any I/O on its own. It drives a Backend
// implementation (see backend.go) and never touches goroutines started by
// that backend directly — all reentry into the Cache happens through its
// Loop, so callers only ever observe cachecore state changing from a
// single logical execution context.
//
// # Basic usage
//
//	c, err := cachecore.NewCache(cachecore.Config{
//		Mode:           cachecore.Normal,
//		BackendFactory: membackend.NewFactory(),
//	})
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	key := cachecore.Key("https://example.com/thing")
//	trans := c.CreateTransaction(key, cachecore.ReadWrite, func(status cachecore.Status, entry *cachecore.ActiveEntry) {
//		// trans is now the writer (or reader) on entry, or status carries
//		// a terminal StatusCacheRace/StatusFailed that means try again.
//	})
//	status, entry := c.OpenEntry(context.Background(), key, trans)
//	if status != cachecore.StatusPending {
//		// entry is already usable; the callback above will not fire.
//	}
package cachecore
