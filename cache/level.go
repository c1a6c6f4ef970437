package cache

import (
	"encoding/json"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Level is the persistent cache tier, backed by a local leveldb
// database. Keys are stored verbatim; cached responses live under the
// Namespace prefix while session and snapshot keys use their own
// prefixes, so InvalidateAll can wipe responses alone.
type Level struct {
	db *leveldb.DB
}

// OpenLevel opens (creating if needed) the database at dir.
func OpenLevel(dir string) (*Level, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, err
	}
	return &Level{db: db}, nil
}

// Close releases the underlying database.
func (l *Level) Close() error { return l.db.Close() }

// Get implements Reader. Corrupt payloads count as a miss so a bad
// write can never break a read path.
func (l *Level) Get(key string) (json.RawMessage, error) {
	b, err := l.db.Get([]byte(key), nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StoreError{Op: "get", Key: key, Err: err}
	}
	if !json.Valid(b) {
		return nil, ErrNotFound
	}
	return json.RawMessage(b), nil
}

// Put implements Writer.
func (l *Level) Put(key string, payload json.RawMessage) error {
	if err := l.db.Put([]byte(key), payload, nil); err != nil {
		return &StoreError{Op: "put", Key: key, Err: err}
	}
	return nil
}

// Delete implements Writer. Deleting an absent key is not an error.
func (l *Level) Delete(key string) error {
	if err := l.db.Delete([]byte(key), nil); err != nil {
		return &StoreError{Op: "delete", Key: key, Err: err}
	}
	return nil
}

// InvalidateAll removes every key under the cache namespace in one
// batch. Keys outside the namespace are untouched.
func (l *Level) InvalidateAll() (int, error) {
	it := l.db.NewIterator(util.BytesPrefix([]byte(Namespace)), nil)
	defer it.Release()

	batch := new(leveldb.Batch)
	n := 0
	for it.Next() {
		k := make([]byte, len(it.Key()))
		copy(k, it.Key())
		batch.Delete(k)
		n++
	}
	if err := it.Error(); err != nil {
		return 0, &StoreError{Op: "invalidate", Key: Namespace, Err: err}
	}
	if n == 0 {
		return 0, nil
	}
	if err := l.db.Write(batch, nil); err != nil {
		return 0, &StoreError{Op: "invalidate", Key: Namespace, Err: err}
	}
	return n, nil
}
