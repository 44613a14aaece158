package devapi

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/heartmarshall/stockroom/internal/adapter/inventoryapi/inventoryapitest"
	"github.com/heartmarshall/stockroom/internal/adapter/postgres"
	"github.com/heartmarshall/stockroom/internal/adapter/postgres/inventory"
	"github.com/heartmarshall/stockroom/internal/config"
)

// OpenBackend builds the storage named by cfg.DevAPI.Storage. For postgres it
// applies migrations first. With cfg.DevAPI.Seed set, an empty backend gets
// the demo inventory. The returned close function releases the backend.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (inventoryapitest.Backend, func(), error) {
	log := logger.With("component", "devapi")

	var (
		backend inventoryapitest.Backend
		closeFn = func() {}
	)
	switch cfg.DevAPI.Storage {
	case config.StoragePostgres:
		if err := postgres.Migrate(ctx, cfg.Database.DSN, log); err != nil {
			return nil, nil, fmt.Errorf("devapi: %w", err)
		}
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("devapi: %w", err)
		}
		backend, closeFn = inventory.New(pool), pool.Close
	default:
		backend = inventoryapitest.NewStore()
	}
	log.Info("storage ready", slog.String("storage", cfg.DevAPI.Storage))

	if !cfg.DevAPI.Seed {
		return backend, closeFn, nil
	}
	counts, err := backend.Summary(ctx)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("devapi: summary: %w", err)
	}
	if counts.Items > 0 {
		log.Info("seed skipped, storage not empty", slog.Int("items", counts.Items))
		return backend, closeFn, nil
	}
	if err := inventoryapitest.Seed(ctx, backend); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("devapi: %w", err)
	}
	log.Info("demo inventory seeded", slog.Int("items", len(inventoryapitest.DemoItems)))
	return backend, closeFn, nil
}
