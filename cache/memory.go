package cache

import (
	"encoding/json"
	"sync"
	"time"
)

// Memory is the in-memory cache tier. It lives for the process and is
// shared by all concurrent callers; writes are last-write-wins.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]Entry
	ttl     time.Duration

	now func() time.Time
}

// NewMemory returns an empty memory tier. A non-positive ttl falls
// back to DefaultTTL.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{
		entries: make(map[string]Entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the entry stored under key, fresh or not.
func (m *Memory) Get(key string) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	return e, ok
}

// GetFresh returns the payload under key only if it is within the TTL
// window.
func (m *Memory) GetFresh(key string) (json.RawMessage, bool) {
	e, ok := m.Get(key)
	if !ok || !e.Fresh(m.ttl, m.now()) {
		return nil, false
	}
	return e.Payload, true
}

// Put overwrites the entry under key unconditionally, stamping it with
// the current time.
func (m *Memory) Put(key string, payload json.RawMessage) {
	m.mu.Lock()
	m.entries[key] = Entry{Payload: payload, StoredAt: m.now()}
	m.mu.Unlock()
}

// Reset drops every entry.
func (m *Memory) Reset() {
	m.mu.Lock()
	m.entries = make(map[string]Entry)
	m.mu.Unlock()
}

// Len reports the number of entries, fresh or stale.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// TTL returns the freshness window.
func (m *Memory) TTL() time.Duration { return m.ttl }
