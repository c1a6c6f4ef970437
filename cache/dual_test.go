package cache

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

// brokenStore fails every operation, standing in for disabled or
// quota-exhausted storage.
type brokenStore struct{}

func (brokenStore) Get(key string) (json.RawMessage, error) {
	return nil, &StoreError{Op: "get", Key: key, Err: errors.New("storage unavailable")}
}
func (brokenStore) Put(key string, _ json.RawMessage) error {
	return &StoreError{Op: "put", Key: key, Err: errors.New("quota exceeded")}
}
func (brokenStore) Delete(string) error         { return nil }
func (brokenStore) InvalidateAll() (int, error) { return 0, nil }

func TestDualTiers(t *testing.T) {
	disk := openTestLevel(t)
	d := NewDual(NewMemory(DefaultTTL), disk, zerolog.Nop())

	key := "http://x/issues"
	if _, ok := d.FreshMemory(key); ok {
		t.Fatal("unexpected memory hit")
	}
	if _, ok := d.Persistent(key); ok {
		t.Fatal("unexpected persistent hit")
	}

	d.StoreMemory(key, json.RawMessage(`[1]`))
	d.StorePersistent(key, json.RawMessage(`[1]`))

	if payload, ok := d.FreshMemory(key); !ok || string(payload) != `[1]` {
		t.Errorf("memory tier = (%s, %v)", payload, ok)
	}
	if payload, ok := d.Persistent(key); !ok || string(payload) != `[1]` {
		t.Errorf("persistent tier = (%s, %v)", payload, ok)
	}

	d.InvalidateAll()
	if _, ok := d.Persistent(key); ok {
		t.Error("persistent entry survived invalidation")
	}
	// memory tier is untouched by persistent invalidation
	if _, ok := d.FreshMemory(key); !ok {
		t.Error("memory entry should survive persistent invalidation")
	}
}

func TestDualBrokenStoreDegradesToMiss(t *testing.T) {
	d := NewDual(NewMemory(DefaultTTL), brokenStore{}, zerolog.Nop())

	// writes are swallowed
	d.StorePersistent("k", json.RawMessage(`1`))

	// reads collapse to miss
	if _, ok := d.Persistent("k"); ok {
		t.Error("broken store should read as miss")
	}

	// memory tier still works
	d.StoreMemory("k", json.RawMessage(`1`))
	if _, ok := d.FreshMemory("k"); !ok {
		t.Error("memory tier should remain authoritative")
	}
}

func TestDualNilDisk(t *testing.T) {
	d := NewDual(NewMemory(DefaultTTL), nil, zerolog.Nop())

	d.StorePersistent("k", json.RawMessage(`1`))
	if _, ok := d.Persistent("k"); ok {
		t.Error("nil disk should always miss")
	}
	d.InvalidateAll()
}
