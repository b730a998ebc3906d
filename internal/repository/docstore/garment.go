package docstore

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/msomdec/sewing-vault/internal/domain"
)

// garmentRepo implements domain.GarmentTypeRepository over garment/ keys.
type garmentRepo struct {
	db *badger.DB
}

func (r *garmentRepo) List(ctx context.Context) ([]domain.GarmentType, error) {
	var types []domain.GarmentType
	err := r.db.View(func(txn *badger.Txn) error {
		return each(txn, garmentPrefix, func(_, val []byte) error {
			var g domain.GarmentType
			if err := json.Unmarshal(val, &g); err != nil {
				return err
			}
			types = append(types, g)
			return nil
		})
	})
	if err != nil {
		return nil, storageErr("list garment types", err)
	}
	return types, nil
}

// Prune scans every pattern for referenced labels and deletes the rest in
// the same transaction.
func (r *garmentRepo) Prune(ctx context.Context) ([]string, error) {
	var removed []string
	err := r.db.Update(func(txn *badger.Txn) error {
		removed = nil
		used := make(map[string]bool)
		err := each(txn, patternPrefix, func(_, val []byte) error {
			var p domain.Pattern
			if err := json.Unmarshal(val, &p); err != nil {
				return err
			}
			for _, g := range p.Garments {
				used[g] = true
			}
			return nil
		})
		if err != nil {
			return err
		}

		var orphans []string
		err = each(txn, garmentPrefix, func(k, _ []byte) error {
			name := string(k[len(garmentPrefix):])
			if !used[name] {
				orphans = append(orphans, name)
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, name := range orphans {
			if err := txn.Delete(key(garmentPrefix, name)); err != nil {
				return err
			}
			removed = append(removed, name)
		}
		return nil
	})
	if err != nil {
		return nil, storageErr("prune garment types", err)
	}
	return removed, nil
}

// ensureGarments writes vocabulary entries for labels that do not exist yet.
func ensureGarments(txn *badger.Txn, labels []string) error {
	for _, l := range labels {
		k := key(garmentPrefix, l)
		_, err := txn.Get(k)
		if err == nil {
			continue
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return storageErr("get garment type", err)
		}
		if err := setJSON(txn, k, domain.GarmentType{Name: l}); err != nil {
			return err
		}
	}
	return nil
}
