package generate

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/igolaizola/zhiyin"
	"github.com/igolaizola/zhiyin/pkg/logging"
	"github.com/igolaizola/zhiyin/pkg/song"
	"github.com/igolaizola/zhiyin/pkg/studio"
	"go.uber.org/zap"
)

type Config struct {
	zhiyin.Config

	Hint     string
	Template string
	Output   string
}

// Run generates a single twin song and prints it or exports it to the output
// file.
func Run(ctx context.Context, cfg *Config) error {
	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	return run(ctx, cfg, logger, os.Stdout)
}

func run(ctx context.Context, cfg *Config, logger *zap.Logger, w io.Writer) error {
	logger.Info("generate: process started")
	defer logger.Info("generate: process ended")

	app, err := zhiyin.New(ctx, &cfg.Config, logger)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	defer func() { _ = app.Close() }()

	hint, err := app.ResolveHint(cfg.Hint, cfg.Template)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	if hint == "" {
		return fmt.Errorf("generate: %w", zhiyin.ErrEmptyHint)
	}

	res, err := app.Studio.Generate(ctx, hint)
	if err != nil {
		return fmt.Errorf("generate: %s: %w", studio.Message(err), err)
	}
	if res == nil {
		return fmt.Errorf("generate: %w", zhiyin.ErrEmptyHint)
	}
	logger.Info("generate: song generated", zap.String("id", res.ID), zap.Int("balance", app.Studio.Balance()))

	if cfg.Output != "" {
		if err := app.Studio.History().Export(cfg.Output); err != nil {
			return fmt.Errorf("generate: %w", err)
		}
		logger.Info("generate: exported", zap.String("output", cfg.Output))
		return nil
	}
	fmt.Fprint(w, song.Format(res))
	return nil
}
