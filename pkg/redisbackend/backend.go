// Package redisbackend adapts a Redis client to cachecore.Backend, storing
// one key per cache entry and gating calls behind a Redis-shared health
// budget so every process pointed at the same store backs off together.
package redisbackend

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/entrycache/cachecore/pkg/cachecore"
)

const doomedMarker = "doomed"

// entry is the Redis-backed handle returned to cachecore for one key. It
// carries no payload — this backend coordinates entry lifecycle only, not
// the content stored under it.
type entry struct {
	key        cachecore.Key
	redisKey   string
	client     *redis.Client
	dispatcher *dispatcher
	logger     zerolog.Logger
}

func (e *entry) Key() cachecore.Key { return e.key }

// Close deletes the Redis record for this entry. Deletion happens off the
// caller's goroutine; failures are logged, not surfaced, since Close has no
// return path in the Entry contract.
func (e *entry) Close() {
	e.dispatcher.submit(context.Background(), func(ctx context.Context) {
		if err := e.client.Del(ctx, e.redisKey).Err(); err != nil {
			e.logger.Warn().Err(err).Str("key", string(e.key)).Msg("redisbackend: close delete failed")
		}
	})
}

// Doom marks the record so a later OpenEntry treats it as gone, without
// requiring existing holders to release it first. CreateEntry for the key
// still reports StatusAlreadyExists until Close deletes the marked record.
func (e *entry) Doom() {
	e.dispatcher.submit(context.Background(), func(ctx context.Context) {
		if err := e.client.Set(ctx, e.redisKey, doomedMarker, 0).Err(); err != nil {
			e.logger.Warn().Err(err).Str("key", string(e.key)).Msg("redisbackend: doom mark failed")
		}
	})
}

// Backend drives a Redis client on cachecore's behalf. Every call gates on
// HealthTracker before touching Redis, then dispatches the actual I/O onto
// a bounded worker pool.
type Backend struct {
	client     *redis.Client
	dispatcher *dispatcher
	health     *HealthTracker
	keyPrefix  string
	logger     zerolog.Logger
}

func (b *Backend) redisKey(key cachecore.Key) string {
	return fmt.Sprintf("%s:entry:%s", b.keyPrefix, key)
}

func (b *Backend) newEntry(key cachecore.Key) *entry {
	return &entry{
		key:        key,
		redisKey:   b.redisKey(key),
		client:     b.client,
		dispatcher: b.dispatcher,
		logger:     b.logger,
	}
}

// OpenEntry looks up an existing, non-doomed record.
func (b *Backend) OpenEntry(ctx context.Context, key cachecore.Key, cb cachecore.EntryCallback) (cachecore.Status, cachecore.Entry) {
	b.dispatcher.submit(ctx, func(ctx context.Context) {
		if allowed, err := b.health.ShouldAllowCall(ctx); err != nil || !allowed {
			cb(cachecore.StatusFailed, nil)
			return
		}

		start := time.Now()
		val, err := b.client.Get(ctx, b.redisKey(key)).Result()
		backendCallDuration.WithLabelValues("open").Observe(time.Since(start).Seconds())

		switch {
		case err == redis.Nil:
			_ = b.health.RecordSuccess(ctx)
			backendCallsTotal.WithLabelValues("open", "not_found").Inc()
			cb(cachecore.StatusNotFound, nil)
		case err != nil:
			_ = b.health.RecordFailure(ctx)
			backendCallsTotal.WithLabelValues("open", "failed").Inc()
			b.logger.Warn().Err(err).Str("key", string(key)).Msg("redisbackend: open failed")
			cb(cachecore.StatusFailed, nil)
		case val == doomedMarker:
			_ = b.health.RecordSuccess(ctx)
			backendCallsTotal.WithLabelValues("open", "not_found").Inc()
			cb(cachecore.StatusNotFound, nil)
		default:
			_ = b.health.RecordSuccess(ctx)
			backendCallsTotal.WithLabelValues("open", "ok").Inc()
			cb(cachecore.StatusOK, b.newEntry(key))
		}
	})
	return cachecore.StatusPending, nil
}

// CreateEntry atomically creates a record, failing with StatusAlreadyExists
// if any record, live or doomed, is already present under the key.
func (b *Backend) CreateEntry(ctx context.Context, key cachecore.Key, cb cachecore.EntryCallback) (cachecore.Status, cachecore.Entry) {
	b.dispatcher.submit(ctx, func(ctx context.Context) {
		if allowed, err := b.health.ShouldAllowCall(ctx); err != nil || !allowed {
			cb(cachecore.StatusFailed, nil)
			return
		}

		start := time.Now()
		created, err := b.client.SetNX(ctx, b.redisKey(key), "active", 0).Result()
		backendCallDuration.WithLabelValues("create").Observe(time.Since(start).Seconds())

		if err != nil {
			_ = b.health.RecordFailure(ctx)
			backendCallsTotal.WithLabelValues("create", "failed").Inc()
			b.logger.Warn().Err(err).Str("key", string(key)).Msg("redisbackend: create failed")
			cb(cachecore.StatusFailed, nil)
			return
		}
		_ = b.health.RecordSuccess(ctx)

		if !created {
			backendCallsTotal.WithLabelValues("create", "exists").Inc()
			cb(cachecore.StatusAlreadyExists, nil)
			return
		}
		backendCallsTotal.WithLabelValues("create", "ok").Inc()
		cb(cachecore.StatusOK, b.newEntry(key))
	})
	return cachecore.StatusPending, nil
}

// DoomEntry deletes the record for key outright, without requiring it to
// be open first.
func (b *Backend) DoomEntry(ctx context.Context, key cachecore.Key, cb cachecore.DoomCallback) cachecore.Status {
	b.dispatcher.submit(ctx, func(ctx context.Context) {
		if allowed, err := b.health.ShouldAllowCall(ctx); err != nil || !allowed {
			cb(cachecore.StatusFailed)
			return
		}

		start := time.Now()
		deleted, err := b.client.Del(ctx, b.redisKey(key)).Result()
		backendCallDuration.WithLabelValues("doom").Observe(time.Since(start).Seconds())

		if err != nil {
			_ = b.health.RecordFailure(ctx)
			backendCallsTotal.WithLabelValues("doom", "failed").Inc()
			b.logger.Warn().Err(err).Str("key", string(key)).Msg("redisbackend: doom failed")
			cb(cachecore.StatusFailed)
			return
		}
		_ = b.health.RecordSuccess(ctx)

		if deleted == 0 {
			backendCallsTotal.WithLabelValues("doom", "not_found").Inc()
			cb(cachecore.StatusNotFound)
			return
		}
		backendCallsTotal.WithLabelValues("doom", "ok").Inc()
		cb(cachecore.StatusOK)
	})
	return cachecore.StatusPending
}

// Close stops the backend's worker pool. It does not close the underlying
// Redis client, which the caller owns.
func (b *Backend) Close() {
	b.dispatcher.stop()
}
