package core

import (
	"fmt"
	"os"

	"deepcopy/internal/infra/persistence/memory"
	"deepcopy/internal/infra/persistence/postgres"
	"deepcopy/internal/infra/persistence/sqlite"
	"deepcopy/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

type (
	Transaction     = domain.Transaction
	TransactionView = domain.TransactionView
	PersistentStore = domain.PersistentStore
)

// OpenPersistentStore selects a backend using environment variables.
// Defaults to sqlite when unset.
//
//	DEEPCOPY_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	DEEPCOPY_SQLITE_PATH: path to sqlite file (default ./deepcopy.db)
//	DEEPCOPY_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenPersistentStore(schema memory.Schema, engine *RulesEngine) (PersistentStore, error) {
	driver := os.Getenv("DEEPCOPY_STORAGE_DRIVER")
	if driver == "" {
		driver = string(StorageSQLite)
	}
	switch StorageDriver(driver) {
	case StorageMemory:
		return memory.NewStore(schema, engine), nil
	case StorageSQLite:
		ss, err := sqlite.NewStore(os.Getenv("DEEPCOPY_SQLITE_PATH"), schema, engine)
		if err != nil {
			return nil, err
		}
		return ss, nil
	case StoragePostgres:
		ps, err := postgres.NewStore(os.Getenv("DEEPCOPY_POSTGRES_DSN"), schema, engine)
		if err != nil {
			return nil, err
		}
		return ps, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
