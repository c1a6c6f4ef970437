package cache

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"
)

// Dual layers the memory tier over an optional persistent store.
// Persistent-tier failures are logged and collapse to hit/miss at this
// boundary; the memory tier stays authoritative for the session.
type Dual struct {
	mem  *Memory
	disk Store
	log  zerolog.Logger
}

// NewDual combines the two tiers. disk may be nil for a memory-only
// cache.
func NewDual(mem *Memory, disk Store, log zerolog.Logger) *Dual {
	return &Dual{mem: mem, disk: disk, log: log}
}

// Memory exposes the memory tier.
func (d *Dual) Memory() *Memory { return d.mem }

// FreshMemory returns the memory payload for key if it is fresh.
func (d *Dual) FreshMemory(key string) (json.RawMessage, bool) {
	return d.mem.GetFresh(key)
}

// Persistent returns the stale-but-usable payload for key from the
// persistent tier. A read failure is treated as a miss and logged.
func (d *Dual) Persistent(key string) (json.RawMessage, bool) {
	if d.disk == nil {
		return nil, false
	}
	payload, err := d.disk.Get(Namespaced(key))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			d.log.Warn().Str("key", key).Err(err).Msg("persistent cache read failed")
		}
		return nil, false
	}
	return payload, true
}

// StoreMemory overwrites the memory tier entry for key.
func (d *Dual) StoreMemory(key string, payload json.RawMessage) {
	d.mem.Put(key, payload)
}

// StorePersistent writes the payload to the persistent tier. Write
// failures (quota, unavailable storage) are swallowed and logged.
func (d *Dual) StorePersistent(key string, payload json.RawMessage) {
	if d.disk == nil {
		return
	}
	if err := d.disk.Put(Namespaced(key), payload); err != nil {
		d.log.Warn().Str("key", key).Err(err).Msg("persistent cache write failed")
	}
}

// InvalidateAll wipes the persistent cache namespace.
func (d *Dual) InvalidateAll() {
	if d.disk == nil {
		return
	}
	n, err := d.disk.InvalidateAll()
	if err != nil {
		d.log.Warn().Err(err).Msg("cache invalidation failed")
		return
	}
	d.log.Debug().Int("removed", n).Msg("persistent cache invalidated")
}
