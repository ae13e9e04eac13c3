package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/odyssey-erp/stockdesk/internal/audit"
	"github.com/odyssey-erp/stockdesk/internal/catalog"
	"github.com/odyssey-erp/stockdesk/internal/platform/db"
)

// Stores bundles the repositories of the selected backend.
type Stores struct {
	Catalog catalog.RepositoryPort
	Audit   audit.Repository
	close   func() error
}

// Close releases the backend connection.
func (s *Stores) Close() error {
	if s == nil || s.close == nil {
		return nil
	}
	return s.close()
}

// OpenStores opens the backend named by cfg.StoreDriver and prepares its schema.
func OpenStores(ctx context.Context, cfg *Config, logger *slog.Logger) (*Stores, error) {
	switch cfg.StoreDriver {
	case StorePostgres:
		pool, err := db.OpenPostgres(ctx, cfg.PGDSN)
		if err != nil {
			return nil, err
		}
		logger.Info("store opened", slog.String("driver", StorePostgres))
		return &Stores{
			Catalog: catalog.NewRepository(pool),
			Audit:   audit.NewRepository(pool),
			close: func() error {
				pool.Close()
				return nil
			},
		}, nil
	case StoreSQLite:
		models := append(catalog.SQLiteModels(), audit.SQLiteModels()...)
		gdb, err := db.OpenSQLite(cfg.SQLitePath, models...)
		if err != nil {
			return nil, err
		}
		logger.Info("store opened", slog.String("driver", StoreSQLite), slog.String("path", cfg.SQLitePath))
		return &Stores{
			Catalog: catalog.NewSQLiteRepository(gdb),
			Audit:   audit.NewSQLiteRepository(gdb),
			close:   func() error { return db.CloseSQLite(gdb) },
		}, nil
	default:
		return nil, fmt.Errorf("app: unknown store driver %q", cfg.StoreDriver)
	}
}
