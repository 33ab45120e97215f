package core

import (
	"fmt"

	"vnastore/internal/config"
	"vnastore/internal/infra/persistence/postgres"
	"vnastore/internal/infra/persistence/sqlite"
	"vnastore/internal/persistence"
)

// OpenBackend selects the profile store backend named by cfg.Driver. An empty driver
// selects SQLite; an empty SQLite path selects the XDG data directory default.
func OpenBackend(cfg config.Storage) (persistence.Backend, error) {
	switch cfg.Driver {
	case "", config.DriverSQLite:
		return sqlite.New(cfg.SQLitePath), nil
	case config.DriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres driver requires a DSN")
		}
		return postgres.New(cfg.PostgresDSN), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}
}
