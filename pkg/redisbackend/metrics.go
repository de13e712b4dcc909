package redisbackend

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	backendCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cachecore",
		Subsystem: "redisbackend",
		Name:      "calls_total",
		Help:      "Total backend calls by operation and outcome.",
	}, []string{"op", "status"})

	backendCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cachecore",
		Subsystem: "redisbackend",
		Name:      "call_duration_seconds",
		Help:      "Backend call latency by operation.",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
	}, []string{"op"})

	backendHealthBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cachecore",
		Subsystem: "redisbackend",
		Name:      "health_blocks_total",
		Help:      "Total calls refused because backend health was critical.",
	})

	backendHealthThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cachecore",
		Subsystem: "redisbackend",
		Name:      "health_throttles_total",
		Help:      "Total calls throttled because backend health was in warning.",
	})
)
