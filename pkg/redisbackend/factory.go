package redisbackend

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/entrycache/cachecore/pkg/cachecore"
)

// Config configures a Factory. RedisClient is required; the rest have
// sane defaults.
type Config struct {
	RedisClient *redis.Client
	KeyPrefix   string
	Workers     int
	QueueDepth  int
	Logger      zerolog.Logger
}

// Factory constructs redisbackend.Backend instances, verifying
// connectivity to Redis as part of construction.
type Factory struct {
	cfg Config
}

// NewFactory returns a Factory over cfg, applying defaults for any zero
// fields except RedisClient.
func NewFactory(cfg Config) Factory {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "cachecore"
	}
	return Factory{cfg: cfg}
}

// CreateBackend pings Redis to confirm the store is reachable, then hands
// back a Backend wired to a fresh worker pool and health tracker.
func (f Factory) CreateBackend(ctx context.Context, cb cachecore.BackendReadyCallback) (cachecore.Status, cachecore.Backend) {
	go func() {
		if err := f.cfg.RedisClient.Ping(ctx).Err(); err != nil {
			f.cfg.Logger.Error().Err(err).Msg("redisbackend: ping failed during backend construction")
			cb(cachecore.StatusFailed, nil)
			return
		}

		b := &Backend{
			client:     f.cfg.RedisClient,
			dispatcher: newDispatcher(f.cfg.Workers, f.cfg.QueueDepth),
			health:     NewHealthTracker(f.cfg.RedisClient, f.cfg.Logger),
			keyPrefix:  f.cfg.KeyPrefix,
			logger:     f.cfg.Logger,
		}
		cb(cachecore.StatusOK, b)
	}()
	return cachecore.StatusPending, nil
}
