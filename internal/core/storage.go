package core

import (
	"context"
	"fmt"

	"nfirscore/internal/infra/persistence/memory"
	"nfirscore/internal/infra/persistence/postgres"
	"nfirscore/internal/infra/persistence/sqlite"
	"nfirscore/pkg/domain"
)

// StorageDriver identifies a concrete incident store implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// StorageOptions selects and locates the incident store.
type StorageOptions struct {
	Driver      StorageDriver
	SQLitePath  string
	PostgresDSN string
}

// ChangeHistory is implemented by stores that keep per-incident change
// records.
type ChangeHistory interface {
	History(ctx context.Context, incidentID string) ([]domain.Change, error)
}

// OpenIncidentStore opens the configured backend. An empty driver means
// sqlite.
func OpenIncidentStore(ctx context.Context, opts StorageOptions) (domain.IncidentStore, error) {
	driver := opts.Driver
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		return sqlite.NewStore(ctx, opts.SQLitePath)
	case StoragePostgres:
		return postgres.NewStore(ctx, opts.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
