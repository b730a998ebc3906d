package domain

import "context"

// Database defines lifecycle operations for the underlying database and
// hands out its repositories. Each implementation (SQLite, Badger) owns its
// own schema and migration strategy, so the backend is swappable at startup.
type Database interface {
	Migrate(ctx context.Context) error
	Close() error

	Patterns() PatternRepository
	GarmentTypes() GarmentTypeRepository
	FileStore() FileStore
}
