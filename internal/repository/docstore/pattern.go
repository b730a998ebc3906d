package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/msomdec/sewing-vault/internal/domain"
	"github.com/oklog/ulid/v2"
)

// patternRepo implements domain.PatternRepository over pattern/ documents.
type patternRepo struct {
	db *badger.DB
}

func (r *patternRepo) List(ctx context.Context) ([]domain.Pattern, error) {
	return r.scan("list patterns", func(*domain.Pattern) bool { return true })
}

func (r *patternRepo) FindByName(ctx context.Context, name string) ([]domain.Pattern, error) {
	if name == "" {
		return r.List(ctx)
	}
	needle := strings.ToLower(name)
	return r.scan("find patterns by name", func(p *domain.Pattern) bool {
		return strings.Contains(strings.ToLower(p.Name), needle)
	})
}

func (r *patternRepo) GetByID(ctx context.Context, id string) (*domain.Pattern, error) {
	var p domain.Pattern
	err := r.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, key(patternPrefix, id), &p)
	})
	if err != nil {
		return nil, wrapPattern(id, err)
	}
	return &p, nil
}

func (r *patternRepo) Create(ctx context.Context, pattern *domain.Pattern) error {
	doc := *pattern
	doc.ID = ulid.Make().String()
	doc.Garments = domain.NormalizeGarments(pattern.Garments)
	doc.CreatedAt = time.Now().UTC()
	doc.UpdatedAt = doc.CreatedAt

	err := r.db.Update(func(txn *badger.Txn) error {
		if err := ensureGarments(txn, doc.Garments); err != nil {
			return err
		}
		return setJSON(txn, key(patternPrefix, doc.ID), &doc)
	})
	if err != nil {
		return storageErr("insert pattern", err)
	}

	*pattern = doc
	return nil
}

func (r *patternRepo) Update(ctx context.Context, pattern *domain.Pattern) error {
	doc := *pattern
	doc.Garments = domain.NormalizeGarments(pattern.Garments)
	doc.UpdatedAt = time.Now().UTC()

	err := r.db.Update(func(txn *badger.Txn) error {
		var existing domain.Pattern
		if err := getJSON(txn, key(patternPrefix, doc.ID), &existing); err != nil {
			return err
		}
		doc.CreatedAt = existing.CreatedAt

		if err := ensureGarments(txn, doc.Garments); err != nil {
			return err
		}
		return setJSON(txn, key(patternPrefix, doc.ID), &doc)
	})
	if err != nil {
		return wrapPattern(doc.ID, err)
	}

	*pattern = doc
	return nil
}

func (r *patternRepo) Delete(ctx context.Context, id string) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		k := key(patternPrefix, id)
		if _, err := txn.Get(k); err != nil {
			return err
		}
		return txn.Delete(k)
	})
	if err != nil {
		return wrapPattern(id, err)
	}
	return nil
}

func (r *patternRepo) RemoveImage(ctx context.Context, patternID string, localID int) (*domain.Pattern, error) {
	var p domain.Pattern
	err := r.db.Update(func(txn *badger.Txn) error {
		k := key(patternPrefix, patternID)
		if err := getJSON(txn, k, &p); err != nil {
			return err
		}
		if err := p.RemoveImage(localID); err != nil {
			return err
		}
		p.UpdatedAt = time.Now().UTC()
		return setJSON(txn, k, &p)
	})
	if err != nil {
		return nil, wrapPattern(patternID, err)
	}
	return &p, nil
}

func (r *patternRepo) scan(op string, keep func(*domain.Pattern) bool) ([]domain.Pattern, error) {
	var patterns []domain.Pattern
	err := r.db.View(func(txn *badger.Txn) error {
		return each(txn, patternPrefix, func(_, val []byte) error {
			var p domain.Pattern
			if err := json.Unmarshal(val, &p); err != nil {
				return err
			}
			if keep(&p) {
				patterns = append(patterns, p)
			}
			return nil
		})
	})
	if err != nil {
		return nil, storageErr(op, err)
	}
	return patterns, nil
}

// wrapPattern maps a missing key to ErrNotFound and everything else to a
// storage error.
func wrapPattern(id string, err error) error {
	if isNotFound(err) {
		return fmt.Errorf("pattern %s: %w", id, domain.ErrNotFound)
	}
	return storageErr("pattern "+id, err)
}
