package redisbackend

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Redis keys for backend health state storage.
const (
	redisKeyConsecutiveFailures = "cachecore:health:consecutive_failures"
	redisKeyLastFailure         = "cachecore:health:last_failure"
	redisKeyLastSuccess         = "cachecore:health:last_success"
)

// Thresholds for backend health decisions, expressed as consecutive I/O
// failures against the store rather than a remote error budget.
const (
	// FailureThresholdCritical blocks new backend calls once consecutive
	// failures reach this value, giving the store time to recover instead
	// of piling on load it has already shown it can't serve.
	FailureThresholdCritical = 5

	// FailureThresholdWarning throttles calls once consecutive failures
	// reach this value, before the critical threshold trips outright.
	FailureThresholdWarning = 2
)

// HealthState is the current view of backend I/O health, shared across
// every process driving the same store via Redis.
type HealthState struct {
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastFailure         time.Time `json:"last_failure"`
	LastSuccess         time.Time `json:"last_success"`
	IsHealthy           bool      `json:"is_healthy"`
}

// NeedsCriticalBlock reports whether new calls should be refused outright.
func (s *HealthState) NeedsCriticalBlock() bool {
	return s.ConsecutiveFailures >= FailureThresholdCritical
}

// NeedsThrottling reports whether calls should be slowed but still allowed.
func (s *HealthState) NeedsThrottling() bool {
	return s.ConsecutiveFailures >= FailureThresholdWarning && !s.NeedsCriticalBlock()
}

// UpdateHealth recomputes IsHealthy from ConsecutiveFailures.
func (s *HealthState) UpdateHealth() {
	s.IsHealthy = s.ConsecutiveFailures == 0
}

// HealthTracker gates redisbackend calls behind a failure budget stored in
// Redis, so every process sharing that Redis instance backs off together.
type HealthTracker struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// NewHealthTracker creates a HealthTracker over the given Redis client.
func NewHealthTracker(redisClient *redis.Client, logger zerolog.Logger) *HealthTracker {
	return &HealthTracker{redis: redisClient, logger: logger}
}

// GetState retrieves the current health state, defaulting to healthy if no
// state has been recorded yet.
func (t *HealthTracker) GetState(ctx context.Context) (*HealthState, error) {
	failures, err := t.redis.Get(ctx, redisKeyConsecutiveFailures).Int()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get consecutive failures: %w", err)
	}
	if err == redis.Nil {
		return &HealthState{IsHealthy: true}, nil
	}

	lastFailureUnix, err := t.redis.Get(ctx, redisKeyLastFailure).Int64()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get last failure: %w", err)
	}
	lastSuccessUnix, err := t.redis.Get(ctx, redisKeyLastSuccess).Int64()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get last success: %w", err)
	}

	state := &HealthState{
		ConsecutiveFailures: failures,
		LastFailure:         time.Unix(lastFailureUnix, 0),
		LastSuccess:         time.Unix(lastSuccessUnix, 0),
	}
	state.UpdateHealth()
	return state, nil
}

// RecordSuccess resets the consecutive-failure counter.
func (t *HealthTracker) RecordSuccess(ctx context.Context) error {
	pipe := t.redis.Pipeline()
	pipe.Set(ctx, redisKeyConsecutiveFailures, 0, 0)
	pipe.Set(ctx, redisKeyLastSuccess, time.Now().Unix(), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record backend success: %w", err)
	}
	return nil
}

// RecordFailure increments the consecutive-failure counter and logs a
// warning or error once a threshold trips.
func (t *HealthTracker) RecordFailure(ctx context.Context) error {
	pipe := t.redis.Pipeline()
	incr := pipe.Incr(ctx, redisKeyConsecutiveFailures)
	pipe.Set(ctx, redisKeyLastFailure, time.Now().Unix(), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record backend failure: %w", err)
	}

	failures := int(incr.Val())
	state := &HealthState{ConsecutiveFailures: failures}
	switch {
	case state.NeedsCriticalBlock():
		t.logger.Error().Int("consecutive_failures", failures).Msg("backend health CRITICAL - calls will be blocked")
	case state.NeedsThrottling():
		t.logger.Warn().Int("consecutive_failures", failures).Msg("backend health WARNING - calls will be throttled")
	}
	return nil
}

// ShouldAllowCall reports whether a new backend call should proceed,
// sleeping briefly first if the store is in the warning band.
func (t *HealthTracker) ShouldAllowCall(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get backend health state: %w", err)
	}

	if state.NeedsCriticalBlock() {
		backendHealthBlocksTotal.Inc()
		t.logger.Error().Int("consecutive_failures", state.ConsecutiveFailures).Msg("backend health critical, blocking call")
		return false, nil
	}
	if state.NeedsThrottling() {
		backendHealthThrottlesTotal.Inc()
		select {
		case <-time.After(200 * time.Millisecond):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	return true, nil
}
