// Package cache provides the dual-tier response cache used by the
// CampusFix client: a fast in-memory tier with TTL-based freshness
// layered over a persistent key/value store that survives restarts.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// DefaultTTL is how long a memory-tier entry is considered fresh.
const DefaultTTL = 5 * time.Minute

// ErrNotFound is returned when a key is absent from a tier.
var ErrNotFound = errors.New("cache: entry not found")

// Entry is a memory-tier cache entry. Persistent-tier entries carry no
// timestamp; they are stale-but-usable until overwritten.
type Entry struct {
	Payload  json.RawMessage
	StoredAt time.Time
}

// Fresh reports whether the entry is within its TTL window.
func (e Entry) Fresh(ttl time.Duration, now time.Time) bool {
	return now.Sub(e.StoredAt) < ttl
}

// StoreError describes a persistent-tier failure. The public boundary
// collapses these to a miss (reads) or a no-op (writes); the typed
// error exists so internal callers and tests can tell a real miss from
// a broken store.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("cache: %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Reader retrieves entries from the persistent tier.
type Reader interface {
	// Get returns the payload stored under key. A missing key or an
	// entry that fails to deserialize yields ErrNotFound; storage
	// failures yield a *StoreError.
	Get(key string) (json.RawMessage, error)
}

// Writer stores entries in the persistent tier.
type Writer interface {
	Put(key string, payload json.RawMessage) error
	Delete(key string) error
}

// Store is the persistent tier contract.
type Store interface {
	Reader
	Writer

	// InvalidateAll removes every entry under the cache namespace,
	// leaving unrelated keys untouched. Returns the number removed.
	InvalidateAll() (int, error)
}
