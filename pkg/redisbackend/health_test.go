package redisbackend

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func TestHealthTrackerDefaultsToHealthy(t *testing.T) {
	client := setupTestRedis(t)
	tracker := NewHealthTracker(client, zerolog.Nop())

	state, err := tracker.GetState(context.Background())
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if !state.IsHealthy || state.ConsecutiveFailures != 0 {
		t.Fatalf("state = %+v, want healthy with zero failures", state)
	}
}

func TestHealthTrackerRecordFailureAccumulates(t *testing.T) {
	client := setupTestRedis(t)
	tracker := NewHealthTracker(client, zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < FailureThresholdWarning; i++ {
		if err := tracker.RecordFailure(ctx); err != nil {
			t.Fatalf("RecordFailure: %v", err)
		}
	}

	state, err := tracker.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if !state.NeedsThrottling() || state.NeedsCriticalBlock() {
		t.Fatalf("state = %+v, want warning band", state)
	}
}

func TestHealthTrackerCriticalBlocksAfterThreshold(t *testing.T) {
	client := setupTestRedis(t)
	tracker := NewHealthTracker(client, zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < FailureThresholdCritical; i++ {
		if err := tracker.RecordFailure(ctx); err != nil {
			t.Fatalf("RecordFailure: %v", err)
		}
	}

	allowed, err := tracker.ShouldAllowCall(ctx)
	if err != nil {
		t.Fatalf("ShouldAllowCall: %v", err)
	}
	if allowed {
		t.Fatal("expected call to be blocked once critical threshold is reached")
	}
}

func TestHealthTrackerRecordSuccessResets(t *testing.T) {
	client := setupTestRedis(t)
	tracker := NewHealthTracker(client, zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < FailureThresholdWarning; i++ {
		tracker.RecordFailure(ctx)
	}
	if err := tracker.RecordSuccess(ctx); err != nil {
		t.Fatalf("RecordSuccess: %v", err)
	}

	state, err := tracker.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if !state.IsHealthy || state.ConsecutiveFailures != 0 {
		t.Fatalf("state = %+v, want reset to healthy", state)
	}
}
