package cachecore

import "errors"

// Errors returned by NewCache and Cache construction helpers. These are
// ordinary Go errors — distinct from the Status values the running cache
// hands back to transactions (§7 of the coordination spec draws the same
// line between construction failures and in-flight operation results).
var (
	// ErrNoBackendFactory is returned by NewCache when Config.BackendFactory
	// is nil.
	ErrNoBackendFactory = errors.New("cachecore: backend factory is required")

	// ErrInvalidMode is returned by NewCache when Config.Mode is not one
	// of Normal, Record, Playback, or Disable.
	ErrInvalidMode = errors.New("cachecore: invalid key mode")
)
