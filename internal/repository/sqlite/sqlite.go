package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/msomdec/sewing-vault/internal/domain"
	"github.com/msomdec/sewing-vault/internal/repository/sqlite/migrations"
	msqlite "modernc.org/sqlite"
)

// lowerFunc is the SQL name of the Unicode lowercase function. SQLite's own
// lower() and LIKE only fold ASCII.
const lowerFunc = "vault_lower"

var (
	registerOnce sync.Once
	registerErr  error
)

// registerFunctions adds the vault's SQL functions to the driver. The
// driver keeps them globally, so it runs once per process.
func registerFunctions() error {
	registerOnce.Do(func() {
		registerErr = msqlite.RegisterDeterministicScalarFunction(lowerFunc, 1, unicodeLower)
	})
	return registerErr
}

func unicodeLower(_ *msqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return nil, fmt.Errorf("%s: unsupported argument type %T", lowerFunc, v)
	}
}

// DB is the relational backend of the vault. It implements domain.Database.
type DB struct {
	SqlDB *sql.DB
}

// New opens a SQLite database at the given path and configures it for use.
// It enables WAL mode and foreign keys.
func New(dbPath string) (*DB, error) {
	if err := registerFunctions(); err != nil {
		return nil, fmt.Errorf("register sql functions: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.ExecContext(context.Background(), "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	// One connection: SQLite serializes writers anyway, and pragmas are
	// per connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{SqlDB: db}, nil
}

// Migrate applies pending schema migrations.
func (db *DB) Migrate(ctx context.Context) error {
	files, err := migrations.Run(ctx, db.SqlDB)
	if err != nil {
		return err
	}
	slog.Debug("sqlite migrations complete", "applied", len(files))
	return nil
}

func (db *DB) Close() error {
	return db.SqlDB.Close()
}

func (db *DB) Patterns() domain.PatternRepository {
	return &patternRepo{db: db.SqlDB}
}

func (db *DB) GarmentTypes() domain.GarmentTypeRepository {
	return &garmentRepo{db: db.SqlDB}
}

func (db *DB) FileStore() domain.FileStore {
	return &fileStore{db: db.SqlDB}
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorage, err)
}
