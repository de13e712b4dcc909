package cachecore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Package-level promauto collectors, registered once at import time and
// updated directly by Cache's admission and completion-protocol methods.
// Mirrors the one-file-per-package metrics convention the rest of this
// module follows.
var (
	activeEntriesGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "cachecore",
		Name:      "active_entries",
		Help:      "Number of entries currently in the active table.",
	})

	doomedEntriesGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "cachecore",
		Name:      "doomed_entries",
		Help:      "Number of entries detached from the active table but still held by a user.",
	})

	pendingOpsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "cachecore",
		Name:      "pending_ops",
		Help:      "Number of in-flight backend calls, including the backend-creation gate.",
	})

	entryDoomsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cachecore",
		Name:      "entry_dooms_total",
		Help:      "Entries explicitly doomed via DoomEntry.",
	})

	entryRacesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cachecore",
		Name:      "entry_races_total",
		Help:      "Transactions failed with StatusCacheRace after a writer's release invalidated their wait.",
	})
)
