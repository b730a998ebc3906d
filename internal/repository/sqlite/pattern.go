package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/msomdec/sewing-vault/internal/domain"
	"github.com/oklog/ulid/v2"
)

const patternColumns = `id, name, cover, company, year, notes, created_at, updated_at`

// patternRepo implements domain.PatternRepository using SQLite.
type patternRepo struct {
	db *sql.DB
}

func (r *patternRepo) List(ctx context.Context) ([]domain.Pattern, error) {
	return r.query(ctx, "list patterns",
		`SELECT `+patternColumns+` FROM patterns ORDER BY id`)
}

func (r *patternRepo) FindByName(ctx context.Context, name string) ([]domain.Pattern, error) {
	if name == "" {
		return r.List(ctx)
	}
	// Both sides are lowered in Go so non-ASCII letters fold too.
	return r.query(ctx, "find patterns by name",
		`SELECT `+patternColumns+` FROM patterns WHERE `+lowerFunc+`(name) LIKE ? ESCAPE '\' ORDER BY id`,
		"%"+escapeLike(strings.ToLower(name))+"%")
}

func (r *patternRepo) GetByID(ctx context.Context, id string) (*domain.Pattern, error) {
	return getPattern(ctx, r.db, id)
}

func (r *patternRepo) Create(ctx context.Context, pattern *domain.Pattern) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin tx", err)
	}
	defer tx.Rollback()

	id := ulid.Make().String()
	now := time.Now().UTC()
	garments := domain.NormalizeGarments(pattern.Garments)

	if err := ensureGarments(ctx, tx, garments); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO patterns (id, name, cover, company, year, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, pattern.Name, nullBlob(pattern.Cover), pattern.Company, pattern.Year, pattern.Notes, now, now,
	)
	if err != nil {
		return storageErr("insert pattern", err)
	}

	if err := insertChildren(ctx, tx, id, pattern.AdditionalImages, garments); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return storageErr("commit", err)
	}

	pattern.ID = id
	pattern.Garments = garments
	pattern.CreatedAt = now
	pattern.UpdatedAt = now
	return nil
}

func (r *patternRepo) Update(ctx context.Context, pattern *domain.Pattern) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin tx", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	garments := domain.NormalizeGarments(pattern.Garments)

	result, err := tx.ExecContext(ctx,
		`UPDATE patterns SET name = ?, cover = ?, company = ?, year = ?, notes = ?, updated_at = ?
		 WHERE id = ?`,
		pattern.Name, nullBlob(pattern.Cover), pattern.Company, pattern.Year, pattern.Notes, now, pattern.ID,
	)
	if err != nil {
		return storageErr("update pattern", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return storageErr("rows affected", err)
	}
	if rows == 0 {
		return fmt.Errorf("pattern %s: %w", pattern.ID, domain.ErrNotFound)
	}

	if err := ensureGarments(ctx, tx, garments); err != nil {
		return err
	}

	// Replace images and garment links wholesale.
	if _, err := tx.ExecContext(ctx, "DELETE FROM pattern_images WHERE pattern_id = ?", pattern.ID); err != nil {
		return storageErr("delete images", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM pattern_garments WHERE pattern_id = ?", pattern.ID); err != nil {
		return storageErr("delete garment links", err)
	}
	if err := insertChildren(ctx, tx, pattern.ID, pattern.AdditionalImages, garments); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return storageErr("commit", err)
	}

	pattern.Garments = garments
	pattern.UpdatedAt = now
	return nil
}

func (r *patternRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM patterns WHERE id = ?", id)
	if err != nil {
		return storageErr("delete pattern", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return storageErr("rows affected", err)
	}
	if rows == 0 {
		return fmt.Errorf("pattern %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *patternRepo) RemoveImage(ctx context.Context, patternID string, localID int) (*domain.Pattern, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageErr("begin tx", err)
	}
	defer tx.Rollback()

	p, err := getPattern(ctx, tx, patternID)
	if err != nil {
		return nil, err
	}
	if err := p.RemoveImage(localID); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM pattern_images WHERE pattern_id = ? AND local_id = ?", patternID, localID,
	); err != nil {
		return nil, storageErr("delete image", err)
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, "UPDATE patterns SET updated_at = ? WHERE id = ?", now, patternID); err != nil {
		return nil, storageErr("touch pattern", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storageErr("commit", err)
	}

	p.UpdatedAt = now
	return p, nil
}

func (r *patternRepo) query(ctx context.Context, op, query string, args ...any) ([]domain.Pattern, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr(op, err)
	}

	var patterns []domain.Pattern
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			rows.Close()
			return nil, storageErr("scan pattern", err)
		}
		patterns = append(patterns, *p)
	}
	err = rows.Err()
	// Close before loading children: the pool holds a single connection.
	rows.Close()
	if err != nil {
		return nil, storageErr(op, err)
	}

	for i := range patterns {
		if err := loadChildren(ctx, r.db, &patterns[i]); err != nil {
			return nil, err
		}
	}
	return patterns, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPattern(s scanner) (*domain.Pattern, error) {
	p := &domain.Pattern{}
	err := s.Scan(&p.ID, &p.Name, &p.Cover, &p.Company, &p.Year, &p.Notes, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func getPattern(ctx context.Context, q querier, id string) (*domain.Pattern, error) {
	p, err := scanPattern(q.QueryRowContext(ctx,
		`SELECT `+patternColumns+` FROM patterns WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("pattern %s: %w", id, domain.ErrNotFound)
		}
		return nil, storageErr("get pattern", err)
	}

	if err := loadChildren(ctx, q, p); err != nil {
		return nil, err
	}
	return p, nil
}

func loadChildren(ctx context.Context, q querier, p *domain.Pattern) error {
	rows, err := q.QueryContext(ctx,
		`SELECT local_id, image FROM pattern_images WHERE pattern_id = ? ORDER BY sort_order`, p.ID)
	if err != nil {
		return storageErr("load images", err)
	}
	p.AdditionalImages = nil
	for rows.Next() {
		var img domain.AdditionalImage
		if err := rows.Scan(&img.LocalID, &img.Image); err != nil {
			rows.Close()
			return storageErr("scan image", err)
		}
		p.AdditionalImages = append(p.AdditionalImages, img)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return storageErr("load images", err)
	}

	rows, err = q.QueryContext(ctx,
		`SELECT garment FROM pattern_garments WHERE pattern_id = ? ORDER BY garment`, p.ID)
	if err != nil {
		return storageErr("load garments", err)
	}
	defer rows.Close()

	p.Garments = nil
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return storageErr("scan garment", err)
		}
		p.Garments = append(p.Garments, g)
	}
	if err := rows.Err(); err != nil {
		return storageErr("load garments", err)
	}
	return nil
}

func insertChildren(ctx context.Context, tx *sql.Tx, patternID string, images []domain.AdditionalImage, garments []string) error {
	for i, img := range images {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pattern_images (pattern_id, local_id, sort_order, image) VALUES (?, ?, ?, ?)`,
			patternID, img.LocalID, i, img.Image,
		); err != nil {
			return storageErr(fmt.Sprintf("insert image %d", img.LocalID), err)
		}
	}

	for _, g := range garments {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pattern_garments (pattern_id, garment) VALUES (?, ?)`, patternID, g,
		); err != nil {
			return storageErr("link garment "+g, err)
		}
	}
	return nil
}

// nullBlob stores an absent cover as NULL rather than an empty blob.
func nullBlob(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
