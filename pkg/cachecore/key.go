package cachecore

import (
	"fmt"
	"strconv"
	"sync"
)

// Key is an opaque cache key. Keys are compared by exact equality, so any
// two byte-identical strings refer to the same active entry.
type Key string

// Mode selects how KeyGenerator turns a request into a Key.
type Mode int

const (
	// Normal computes a key from the canonicalized URL alone (optionally
	// prefixed by an upload-body identifier). This is the mode used for
	// ordinary browsing.
	Normal Mode = iota

	// Record computes a key tagged with a per-URL generation counter, so
	// that repeated fetches of the same URL are stored as distinct,
	// ordered entries.
	Record

	// Playback mirrors Record's key shape so a previously recorded
	// sequence of fetches for one URL can be replayed in order.
	Playback

	// Disable forbids key computation; callers using this mode are
	// expected to bypass cachecore entirely.
	Disable
)

func (m Mode) String() string {
	switch m {
	case Normal:
		return "normal"
	case Record:
		return "record"
	case Playback:
		return "playback"
	case Disable:
		return "disable"
	default:
		return "unknown"
	}
}

// KeyGenerator produces Keys for a fixed Mode. It is safe for concurrent
// use; Record/Playback modes keep a per-URL generation counter that must
// be shared across all callers computing keys for the same logical cache.
type KeyGenerator struct {
	mode Mode

	mu         sync.Mutex
	generation map[string]int
}

// NewKeyGenerator returns a KeyGenerator for the given mode.
func NewKeyGenerator(mode Mode) *KeyGenerator {
	return &KeyGenerator{
		mode:       mode,
		generation: make(map[string]int),
	}
}

// Mode returns the generator's configured mode.
func (g *KeyGenerator) Mode() Mode {
	return g.mode
}

// Generate computes a Key for a canonicalized URL (already stripped of
// reference/auth by the caller) and HTTP method. uploadID is the request's
// upload-body identifier, or 0 if the request carries no upload body.
//
// In Normal mode the key is the URL, optionally prefixed "<uploadID>/".
// In Record/Playback mode the key is "<generation><method><url>", where
// generation increments on every call for the same URL — regardless of
// method — so repeated fetches of one URL, GET or POST alike, yield
// distinct, ordered keys drawn from one shared counter. Disable mode
// returns an error: key computation is forbidden in that mode.
func (g *KeyGenerator) Generate(method, url string, uploadID int64) (Key, error) {
	switch g.mode {
	case Disable:
		return "", fmt.Errorf("cachecore: key computation is disabled")
	case Normal:
		if uploadID != 0 {
			return Key(fmt.Sprintf("%d/%s", uploadID, url)), nil
		}
		return Key(url), nil
	case Record, Playback:
		g.mu.Lock()
		defer g.mu.Unlock()
		generation := g.generation[url]
		g.generation[url] = generation + 1
		return Key(strconv.Itoa(generation) + method + url), nil
	default:
		return "", fmt.Errorf("cachecore: unknown key mode %v", g.mode)
	}
}
