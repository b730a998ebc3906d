// Package docstore is the document backend of the vault. Patterns are stored
// as JSON documents in a Badger key-value store, one key per record:
//
//	pattern/<ulid>   domain.Pattern
//	garment/<name>   domain.GarmentType
//	blob/<key>       raw bytes
//
// ULID keys sort by creation time, so prefix iteration yields patterns in
// creation order.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/msomdec/sewing-vault/internal/domain"
)

var (
	patternPrefix = []byte("pattern/")
	garmentPrefix = []byte("garment/")
	blobPrefix    = []byte("blob/")
)

// DB wraps a Badger database. It implements domain.Database.
type DB struct {
	bdb *badger.DB
}

// New opens (or creates) a Badger store in dir.
func New(dir string) (*DB, error) {
	return open(badger.DefaultOptions(dir))
}

// NewInMemory opens a store that lives only for the life of the process.
func NewInMemory() (*DB, error) {
	return open(badger.DefaultOptions("").WithInMemory(true))
}

func open(opts badger.Options) (*DB, error) {
	bdb, err := badger.Open(opts.WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &DB{bdb: bdb}, nil
}

// Migrate is a no-op: documents are schemaless. It only logs the store size
// so startup output matches the relational backend.
func (db *DB) Migrate(ctx context.Context) error {
	lsm, vlog := db.bdb.Size()
	slog.Debug("badger store ready", "lsm_bytes", lsm, "vlog_bytes", vlog)
	return nil
}

func (db *DB) Close() error {
	return db.bdb.Close()
}

func (db *DB) Patterns() domain.PatternRepository {
	return &patternRepo{db: db.bdb}
}

func (db *DB) GarmentTypes() domain.GarmentTypeRepository {
	return &garmentRepo{db: db.bdb}
}

func (db *DB) FileStore() domain.FileStore {
	return &fileStore{db: db.bdb}
}

func key(prefix []byte, id string) []byte {
	k := make([]byte, 0, len(prefix)+len(id))
	k = append(k, prefix...)
	return append(k, id...)
}

// getJSON loads and decodes one document. Missing keys map to ErrNotFound.
func getJSON(txn *badger.Txn, k []byte, dst any) error {
	item, err := txn.Get(k)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return domain.ErrNotFound
		}
		return storageErr("get "+string(k), err)
	}
	return item.Value(func(val []byte) error {
		if err := json.Unmarshal(val, dst); err != nil {
			return storageErr("decode "+string(k), err)
		}
		return nil
	})
}

func setJSON(txn *badger.Txn, k []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", k, err)
	}
	if err := txn.Set(k, data); err != nil {
		return storageErr("set "+string(k), err)
	}
	return nil
}

// each calls fn with the value of every key under prefix, in key order.
func each(txn *badger.Txn, prefix []byte, fn func(k, val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		k := item.KeyCopy(nil)
		if err := item.Value(func(val []byte) error { return fn(k, val) }); err != nil {
			return err
		}
	}
	return nil
}

// storageErr wraps a badger failure; ErrNotFound passes through untouched.
func storageErr(op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorage, err)
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound) || errors.Is(err, badger.ErrKeyNotFound)
}
