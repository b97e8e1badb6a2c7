package core

import (
	"context"
	"fmt"
	"os"

	"stockroom/internal/infra/persistence/fs"
	"stockroom/internal/infra/persistence/memory"
	"stockroom/internal/infra/persistence/postgres"
	"stockroom/internal/infra/persistence/sqlite"
	"stockroom/pkg/domain"
)

// StorageDriver identifies a concrete table store implementation.
type StorageDriver string

const (
	StorageFS       StorageDriver = "fs"       // one text file per kind (default)
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// StorageOptions selects and configures a table store. Empty fields fall back
// to each backend's default.
type StorageOptions struct {
	Driver      StorageDriver
	DataDir     string
	SQLitePath  string
	PostgresDSN string
}

// StorageOptionsFromEnv reads storage settings from the environment:
//
//	STOCKROOM_STORAGE_DRIVER: fs|memory|sqlite|postgres (default fs)
//	STOCKROOM_DATA_DIR: directory for the fs driver (default ./data)
//	STOCKROOM_SQLITE_PATH: path to sqlite file (default ./stockroom.db)
//	STOCKROOM_POSTGRES_DSN: postgres DSN when driver=postgres
func StorageOptionsFromEnv() StorageOptions {
	return StorageOptions{
		Driver:      StorageDriver(os.Getenv("STOCKROOM_STORAGE_DRIVER")),
		DataDir:     os.Getenv("STOCKROOM_DATA_DIR"),
		SQLitePath:  os.Getenv("STOCKROOM_SQLITE_PATH"),
		PostgresDSN: os.Getenv("STOCKROOM_POSTGRES_DSN"),
	}
}

// OpenTableStore opens the backend named by opts.Driver.
func OpenTableStore(ctx context.Context, opts StorageOptions) (domain.TableStore, error) {
	driver := opts.Driver
	if driver == "" {
		driver = StorageFS
	}
	switch driver {
	case StorageFS:
		s, err := fs.Open(opts.DataDir)
		if err != nil {
			return nil, err
		}
		return s, nil
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		s, err := sqlite.NewStore(opts.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case StoragePostgres:
		s, err := postgres.NewStore(ctx, opts.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}

// OpenFromEnv opens the backend configured in the environment and a registry
// over it. The backend is closed if the registry fails to load.
func OpenFromEnv(ctx context.Context, opts ...Option) (*Registry, error) {
	store, err := OpenTableStore(ctx, StorageOptionsFromEnv())
	if err != nil {
		return nil, err
	}
	reg, err := Open(ctx, store, opts...)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return reg, nil
}
