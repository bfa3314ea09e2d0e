package credits

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/igolaizola/zhiyin/pkg/credit"
	"github.com/igolaizola/zhiyin/pkg/logging"
	"go.uber.org/zap"
)

type Config struct {
	Debug     bool
	StoreType string
	StoreConn string

	// Add credits the balance after a purchase was verified by hand.
	Add int
}

func Run(ctx context.Context, cfg *Config) error {
	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	return run(ctx, cfg, logger, os.Stdout)
}

func run(ctx context.Context, cfg *Config, logger *zap.Logger, w io.Writer) error {
	if cfg.Add < 0 {
		return fmt.Errorf("credits: invalid amount %d", cfg.Add)
	}
	store, err := credit.NewStore(ctx, cfg.StoreType, cfg.StoreConn, cfg.Debug)
	if err != nil {
		return fmt.Errorf("credits: %w", err)
	}
	if c, ok := store.(io.Closer); ok {
		defer func() { _ = c.Close() }()
	}
	ledger := credit.NewLedger(store)
	if _, err := ledger.Initialize(ctx); err != nil {
		return fmt.Errorf("credits: %w", err)
	}
	if cfg.Add > 0 {
		if err := ledger.Credit(ctx, cfg.Add); err != nil {
			return fmt.Errorf("credits: %w", err)
		}
		logger.Info("credits: topped up", zap.Int("amount", cfg.Add), zap.Int("balance", ledger.Balance()))
	}
	fmt.Fprintln(w, ledger.Balance())
	return nil
}
