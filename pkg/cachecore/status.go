package cachecore

// Status is the result of a cachecore operation. Unlike a Go error, a
// Status is a value the core hands back to a Transaction's completion
// callback, not something that propagates via the error interface.
type Status int

const (
	// StatusOK indicates the operation completed successfully.
	StatusOK Status = iota

	// StatusPending indicates the operation will complete asynchronously;
	// the caller must wait for the transaction's completion callback.
	StatusPending

	// StatusFailed indicates a generic failure (backend factory
	// unavailable, or a backend call failed for a reason other than
	// NotFound/AlreadyExists).
	StatusFailed

	// StatusNotFound indicates OpenEntry found no entry for the key.
	StatusNotFound

	// StatusAlreadyExists indicates CreateEntry found an entry already
	// present for the key.
	StatusAlreadyExists

	// StatusCacheRace indicates a concurrent doom or failed create
	// invalidated this waiter's assumptions; the transaction must restart
	// its cache interaction from scratch.
	StatusCacheRace

	// StatusCacheCreateFailure indicates a Create lost a race to a
	// concurrent, successful Create for the same key.
	StatusCacheCreateFailure
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusPending:
		return "pending"
	case StatusFailed:
		return "failed"
	case StatusNotFound:
		return "not_found"
	case StatusAlreadyExists:
		return "already_exists"
	case StatusCacheRace:
		return "cache_race"
	case StatusCacheCreateFailure:
		return "cache_create_failure"
	default:
		return "unknown"
	}
}
