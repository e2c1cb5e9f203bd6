// Package backend opens a store.Store by driver name.
package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/xraph/fundraise/store"
	"github.com/xraph/fundraise/store/memory"
	"github.com/xraph/fundraise/store/mongo"
	"github.com/xraph/fundraise/store/postgres"
	"github.com/xraph/fundraise/store/sqlite"
)

// Supported driver names.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Config selects and addresses a backend.
type Config struct {
	// Driver is one of memory, sqlite, postgres or mongo.
	Driver string

	// DSN is the file path for sqlite, the connection string for
	// postgres and the URI for mongo. Ignored by memory.
	DSN string

	// Database is the mongo database name.
	Database string
}

// Open connects the configured backend. It does not migrate.
func Open(ctx context.Context, cfg Config) (store.Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverMemory:
		return memory.New(), nil
	case DriverSQLite, "sqlite3":
		return sqlite.Open(cfg.DSN)
	case DriverPostgres, "postgresql", "pg":
		return postgres.Open(ctx, cfg.DSN)
	case DriverMongo, "mongodb":
		if cfg.Database == "" {
			return nil, fmt.Errorf("backend: mongo requires a database name")
		}
		return mongo.Open(ctx, cfg.DSN, cfg.Database)
	default:
		return nil, fmt.Errorf("backend: unknown driver %q", cfg.Driver)
	}
}
