package docstore

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/msomdec/sewing-vault/internal/domain"
)

// fileStore implements domain.FileStore with raw Badger values.
type fileStore struct {
	db *badger.DB
}

func (s *fileStore) Save(ctx context.Context, k string, data []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(blobPrefix, k), data)
	})
	if err != nil {
		return storageErr("save blob", err)
	}
	return nil
}

func (s *fileStore) Get(ctx context.Context, k string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(blobPrefix, k))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, storageErr("get blob", err)
	}
	return data, nil
}

func (s *fileStore) Delete(ctx context.Context, k string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(blobPrefix, k))
	})
	if err != nil {
		return storageErr("delete blob", err)
	}
	return nil
}
