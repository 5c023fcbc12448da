// Package storageutils selects a storage driver from configuration.
package storageutils

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/thoughtstream/pkg/logger"
	"github.com/papercomputeco/thoughtstream/pkg/storage"
	"github.com/papercomputeco/thoughtstream/pkg/storage/inmemory"
	"github.com/papercomputeco/thoughtstream/pkg/storage/postgres"
	"github.com/papercomputeco/thoughtstream/pkg/storage/sqlite"
)

type NewDriverOpts struct {
	SQLitePath  string
	PostgresDSN string
	Logger      *slog.Logger
}

// Backend names reported by NewDriver.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMemory   = "inmemory"
)

// NewDriver opens Postgres when a DSN is set, then SQLite when a path is
// set, and falls back to the in-memory store.
func NewDriver(ctx context.Context, o *NewDriverOpts) (storage.Driver, string, error) {
	log := o.Logger
	if log == nil {
		log = logger.Nop()
	}

	switch {
	case o.PostgresDSN != "":
		driver, err := postgres.NewDriver(ctx, o.PostgresDSN)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create Postgres driver: %w", err)
		}
		log.Info("using Postgres storage")
		return driver, BackendPostgres, nil

	case o.SQLitePath != "":
		driver, err := sqlite.NewDriver(ctx, o.SQLitePath)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create SQLite driver: %w", err)
		}
		log.Info("using SQLite storage", "path", o.SQLitePath)
		return driver, BackendSQLite, nil

	default:
		log.Info("using in-memory storage")
		return inmemory.NewDriver(), BackendMemory, nil
	}
}
