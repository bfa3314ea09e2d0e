package migrate

import (
	"context"
	"fmt"

	"github.com/igolaizola/zhiyin/pkg/storage"
)

type Config struct {
	Debug     bool
	StoreType string
	StoreConn string
}

// Run creates the tables used by the sql balance stores.
func Run(ctx context.Context, cfg *Config) error {
	store, err := storage.New(cfg.StoreType, cfg.StoreConn, cfg.Debug)
	if err != nil {
		return fmt.Errorf("migrate: couldn't create: %w", err)
	}
	if err := store.Start(ctx); err != nil {
		return fmt.Errorf("migrate: couldn't start: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: couldn't migrate: %w", err)
	}
	return nil
}
