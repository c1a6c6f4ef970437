package portal

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/campusfix/campusfix/cache"
)

// snapshotPrefix namespaces last-known-good snapshots in the shared
// store. It sits outside the response-cache namespace on purpose:
// snapshots survive cache invalidation so a freshly signed-in user on
// a flaky connection still gets an instant paint.
const snapshotPrefix = "snapshot:"

// Fetcher wraps one GET endpoint with a device-local last-known-good
// snapshot. Load prefers the network (the client's cache still
// applies underneath) and falls back to the snapshot when the network
// fails; Refetch always surfaces the network error.
type Fetcher[T any] struct {
	client   *Client
	endpoint string
	key      string

	mu   sync.Mutex
	last *T
}

// NewFetcher builds a fetcher for endpoint, persisting its snapshot
// under the given key.
func NewFetcher[T any](c *Client, endpoint, key string) *Fetcher[T] {
	return &Fetcher[T]{client: c, endpoint: endpoint, key: key}
}

// Load fetches the endpoint. On network failure it serves the stored
// snapshot when one exists; stale reports which happened. The error is
// returned only when there is nothing at all to serve.
func (f *Fetcher[T]) Load(ctx context.Context) (val T, stale bool, err error) {
	val, err = f.fetch(ctx)
	if err == nil {
		return val, false, nil
	}
	if snap, ok := f.Snapshot(); ok {
		f.client.log.Warn().
			Str("endpoint", f.endpoint).
			Err(err).
			Msg("fetch failed, serving snapshot")
		return snap, true, nil
	}
	return val, false, err
}

// Refetch forces a network round (manual refresh); the caller handles
// the error.
func (f *Fetcher[T]) Refetch(ctx context.Context) (T, error) {
	return f.fetch(ctx)
}

// Snapshot returns the last successfully fetched value, from process
// memory or the persistent store.
func (f *Fetcher[T]) Snapshot() (T, bool) {
	f.mu.Lock()
	if f.last != nil {
		v := *f.last
		f.mu.Unlock()
		return v, true
	}
	f.mu.Unlock()

	var zero T
	if f.client.store == nil {
		return zero, false
	}
	raw, err := f.client.store.Get(snapshotPrefix + f.key)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			f.client.log.Warn().Str("key", f.key).Err(err).Msg("snapshot read failed")
		}
		return zero, false
	}
	var v T
	if json.Unmarshal(raw, &v) != nil {
		return zero, false
	}
	f.remember(v)
	return v, true
}

func (f *Fetcher[T]) fetch(ctx context.Context) (T, error) {
	var v T
	if err := f.client.Get(ctx, f.endpoint, &v); err != nil {
		return v, err
	}
	f.remember(v)

	if f.client.store != nil {
		if b, err := json.Marshal(v); err == nil {
			if err := f.client.store.Put(snapshotPrefix+f.key, b); err != nil {
				f.client.log.Warn().Str("key", f.key).Err(err).Msg("snapshot write failed")
			}
		}
	}
	return v, nil
}

func (f *Fetcher[T]) remember(v T) {
	f.mu.Lock()
	f.last = &v
	f.mu.Unlock()
}
