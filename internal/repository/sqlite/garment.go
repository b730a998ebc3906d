package sqlite

import (
	"context"
	"database/sql"

	"github.com/msomdec/sewing-vault/internal/domain"
)

// garmentRepo implements domain.GarmentTypeRepository using SQLite.
type garmentRepo struct {
	db *sql.DB
}

func (r *garmentRepo) List(ctx context.Context) ([]domain.GarmentType, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT name FROM garment_types ORDER BY name")
	if err != nil {
		return nil, storageErr("list garment types", err)
	}
	defer rows.Close()

	var types []domain.GarmentType
	for rows.Next() {
		var g domain.GarmentType
		if err := rows.Scan(&g.Name); err != nil {
			return nil, storageErr("scan garment type", err)
		}
		types = append(types, g)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list garment types", err)
	}
	return types, nil
}

func (r *garmentRepo) Prune(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`DELETE FROM garment_types
		 WHERE name NOT IN (SELECT DISTINCT garment FROM pattern_garments)
		 RETURNING name`)
	if err != nil {
		return nil, storageErr("prune garment types", err)
	}
	defer rows.Close()

	var removed []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, storageErr("scan pruned garment type", err)
		}
		removed = append(removed, name)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("prune garment types", err)
	}
	return removed, nil
}

// ensureGarments inserts any labels missing from the vocabulary. It runs
// inside the caller's transaction, before the pattern links are written.
func ensureGarments(ctx context.Context, q querier, labels []string) error {
	for _, l := range labels {
		if _, err := q.ExecContext(ctx, "INSERT OR IGNORE INTO garment_types (name) VALUES (?)", l); err != nil {
			return storageErr("insert garment type", err)
		}
	}
	return nil
}
