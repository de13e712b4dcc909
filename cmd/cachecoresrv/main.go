// Command cachecoresrv wires cachecore.Cache to a Redis-backed storage
// adapter and exposes it over HTTP: a health check, Prometheus metrics,
// and a debug snapshot of the cache's internal admission state.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/entrycache/cachecore/pkg/cachecore"
	"github.com/entrycache/cachecore/pkg/logging"
	"github.com/entrycache/cachecore/pkg/redisbackend"
)

func main() {
	redisAddr := getEnv("REDIS_ADDR", "localhost:6379")
	port := getEnv("PORT", "8080")
	keyPrefix := getEnv("CACHE_KEY_PREFIX", "cachecore")
	workers := getEnvInt("BACKEND_WORKERS", 8)

	logger := logging.Setup(logging.DefaultConfig())

	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect to Redis at %s: %v", redisAddr, err)
	}
	logger.Info().Str("addr", redisAddr).Msg("connected to Redis")

	factory := redisbackend.NewFactory(redisbackend.Config{
		RedisClient: redisClient,
		KeyPrefix:   keyPrefix,
		Workers:     workers,
		Logger:      logger,
	})

	c, err := cachecore.NewCache(cachecore.DefaultConfig(factory))
	if err != nil {
		log.Fatalf("failed to create cache: %v", err)
	}
	defer c.Close()

	http.HandleFunc("/health", healthHandler)
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/debug/entries", debugEntriesHandler(c))

	addr := ":" + port
	logger.Info().Str("addr", addr).Msg("starting cachecoresrv")
	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func debugEntriesHandler(c *cachecore.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := c.Snapshot()
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snap); err != nil {
			http.Error(w, fmt.Sprintf("encode snapshot: %v", err), http.StatusInternalServerError)
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
