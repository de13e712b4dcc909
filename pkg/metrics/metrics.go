// Package metrics provides centralized Prometheus metrics registry
// documentation for cachecore. All metrics are defined in their
// respective packages (cachecore, redisbackend) to maintain modularity and
// avoid circular dependencies.
//
// This package provides documentation and reference for all available
// metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by cachecore. All
// metrics are automatically registered via promauto in their respective
// packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Coordination Core Metrics (pkg/cachecore):
//   - cachecore_active_entries (Gauge): Entries currently in the active table
//   - cachecore_doomed_entries (Gauge): Entries detached into the doomed set,
//     awaiting release by their last holder
//   - cachecore_pending_ops (Gauge): Outstanding Pending Ops (coalesced
//     backend calls plus the backend-creation gate)
//   - cachecore_entry_dooms_total (Counter): Entries doomed via DoomEntry
//   - cachecore_entry_races_total (Counter): Transactions failed with
//     CACHE_RACE because the writer they were queued behind released the
//     entry with a failure
//
// Redis Backend Metrics (pkg/redisbackend):
//   - cachecore_redisbackend_calls_total{op, status} (Counter): Backend
//     calls by operation (open, create, doom) and outcome (ok, not_found,
//     exists, failed)
//   - cachecore_redisbackend_call_duration_seconds{op} (Histogram): Backend
//     call latency by operation
//   - cachecore_redisbackend_health_blocks_total (Counter): Calls refused
//     because consecutive backend failures crossed the critical threshold
//   - cachecore_redisbackend_health_throttles_total (Counter): Calls
//     throttled because consecutive backend failures crossed the warning
//     threshold
//
// Example Prometheus Queries:
//
//   # Active-to-doomed ratio
//   cachecore_doomed_entries / cachecore_active_entries
//
//   # Redis backend error rate
//   rate(cachecore_redisbackend_calls_total{status="failed"}[5m])
//
//   # P95 backend call latency
//   histogram_quantile(0.95, rate(cachecore_redisbackend_call_duration_seconds_bucket[5m]))
//
//   # Cache race rate (failed writer releases with other transactions queued)
//   rate(cachecore_entry_races_total[5m])
