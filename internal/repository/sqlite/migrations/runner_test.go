package migrations_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/msomdec/sewing-vault/internal/repository/sqlite/migrations"
	_ "modernc.org/sqlite"
)

func openMemory(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// A single connection keeps the in-memory database alive across queries.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRun(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()

	files, err := migrations.Run(ctx, db)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 migrations applied, got %v", files)
	}

	// The patterns table exists after the first run.
	if _, err := db.ExecContext(ctx, "INSERT INTO patterns (id, name) VALUES (?, ?)", "p1", "Vogue 1234"); err != nil {
		t.Fatalf("insert into patterns: %v", err)
	}
}

func TestRunIdempotent(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()

	if _, err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("first run: %v", err)
	}
	files, err := migrations.Run(ctx, db)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("expected nothing applied on second run, got %v", files)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("count schema_migrations: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 migration records, got %d", count)
	}
}
