package zhiyin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/igolaizola/zhiyin/pkg/catalog"
	"github.com/igolaizola/zhiyin/pkg/credit"
	"github.com/igolaizola/zhiyin/pkg/history"
	"github.com/igolaizola/zhiyin/pkg/studio"
	"github.com/igolaizola/zhiyin/pkg/transport"
	"go.uber.org/zap"
)

var ErrEmptyHint = errors.New("zhiyin: hint is empty")

// Config holds the settings shared by the commands that generate songs.
type Config struct {
	Debug bool

	StoreType string
	StoreConn string

	APIKey   string
	Engine   string
	Model    string
	BaseURL  string
	Endpoint string
	Proxy    string
	Timeout  time.Duration
}

// App wires the ledger, the transport and the session history into a studio.
type App struct {
	Studio  *studio.Studio
	Catalog *catalog.Catalog
	Logger  *zap.Logger

	store credit.Store
}

func New(ctx context.Context, cfg *Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}

	store, err := credit.NewStore(ctx, cfg.StoreType, cfg.StoreConn, cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("zhiyin: couldn't create balance store: %w", err)
	}
	ledger := credit.NewLedger(store)
	balance, err := ledger.Initialize(ctx)
	if err != nil {
		closeStore(store)
		return nil, fmt.Errorf("zhiyin: couldn't initialize ledger: %w", err)
	}
	logger.Debug("zhiyin: ledger ready", zap.Int("balance", balance), zap.String("store", cfg.StoreType))

	tr, err := transport.New(ctx, &transport.Config{
		APIKey:   cfg.APIKey,
		Engine:   cfg.Engine,
		Model:    cfg.Model,
		BaseURL:  cfg.BaseURL,
		Endpoint: cfg.Endpoint,
		Proxy:    cfg.Proxy,
		Timeout:  timeout,
		Logger:   logger,
	})
	if err != nil {
		closeStore(store)
		return nil, fmt.Errorf("zhiyin: couldn't create transport: %w", err)
	}

	cat, err := catalog.Load()
	if err != nil {
		closeStore(store)
		return nil, fmt.Errorf("zhiyin: %w", err)
	}

	return &App{
		Studio: studio.New(&studio.Config{
			Ledger:    ledger,
			Transport: tr,
			History:   history.New(),
			Logger:    logger,
		}),
		Catalog: cat,
		Logger:  logger,
		store:   store,
	}, nil
}

// Close releases the balance store connection if it holds one.
func (a *App) Close() error {
	if c, ok := a.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func closeStore(s credit.Store) {
	if c, ok := s.(io.Closer); ok {
		_ = c.Close()
	}
}

// ResolveHint returns the hint text, using the catalog template when the hint
// is empty and a template id is given.
func (a *App) ResolveHint(hint, templateID string) (string, error) {
	if hint != "" || templateID == "" {
		return hint, nil
	}
	t, err := a.Catalog.Template(templateID)
	if err != nil {
		return "", err
	}
	return t.Template, nil
}
