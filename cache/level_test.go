package cache

import (
	"encoding/json"
	"errors"
	"testing"
)

func openTestLevel(t *testing.T) *Level {
	t.Helper()
	l, err := OpenLevel(t.TempDir())
	if err != nil {
		t.Fatalf("OpenLevel: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestLevelRoundTrip(t *testing.T) {
	l := openTestLevel(t)

	key := Namespaced("http://x/issues")
	if _, err := l.Get(key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := l.Put(key, json.RawMessage(`[{"id":1}]`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	payload, err := l.Get(key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(payload) != `[{"id":1}]` {
		t.Errorf("payload = %s", payload)
	}

	if err := l.Delete(key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := l.Get(key); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	// deleting again is fine
	if err := l.Delete(key); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}

func TestLevelCorruptPayloadIsMiss(t *testing.T) {
	l := openTestLevel(t)

	key := Namespaced("http://x/stats")
	if err := l.Put(key, json.RawMessage(`{"ok":true}`)); err != nil {
		t.Fatal(err)
	}
	// simulate a truncated write
	if err := l.db.Put([]byte(key), []byte(`{"ok":tr`), nil); err != nil {
		t.Fatal(err)
	}

	if _, err := l.Get(key); !errors.Is(err, ErrNotFound) {
		t.Errorf("corrupt entry should read as miss, got %v", err)
	}
}

func TestLevelInvalidateAllScope(t *testing.T) {
	l := openTestLevel(t)

	cached := []string{
		Namespaced("http://x/issues"),
		Namespaced("http://x/stats"),
		Namespaced("https://y/users/me"),
	}
	for _, k := range cached {
		if err := l.Put(k, json.RawMessage(`{}`)); err != nil {
			t.Fatal(err)
		}
	}
	// unrelated keys outside the namespace
	if err := l.Put("session:token", json.RawMessage(`"tok"`)); err != nil {
		t.Fatal(err)
	}
	if err := l.Put("snapshot:issues", json.RawMessage(`[]`)); err != nil {
		t.Fatal(err)
	}

	n, err := l.InvalidateAll()
	if err != nil {
		t.Fatalf("InvalidateAll: %v", err)
	}
	if n != len(cached) {
		t.Errorf("removed %d keys, want %d", n, len(cached))
	}

	for _, k := range cached {
		if _, err := l.Get(k); !errors.Is(err, ErrNotFound) {
			t.Errorf("key %q survived invalidation", k)
		}
	}
	if _, err := l.Get("session:token"); err != nil {
		t.Errorf("session key should survive invalidation: %v", err)
	}
	if _, err := l.Get("snapshot:issues"); err != nil {
		t.Errorf("snapshot key should survive invalidation: %v", err)
	}

	// empty namespace is a no-op
	if n, err = l.InvalidateAll(); err != nil || n != 0 {
		t.Errorf("second InvalidateAll = (%d, %v), want (0, nil)", n, err)
	}
}
