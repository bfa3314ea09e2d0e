package serve

import (
	"context"
	"time"

	"github.com/igolaizola/zhiyin/pkg/logging"
	"github.com/igolaizola/zhiyin/pkg/server"
	"github.com/igolaizola/zhiyin/pkg/transport"
	"github.com/pkg/browser"
	"go.uber.org/zap"
)

type Config struct {
	Debug   bool
	Addr    string
	APIKey  string
	Engine  string
	Model   string
	BaseURL string
	Proxy   string
	Timeout time.Duration
	Open    bool

	Credentials map[string]string
}

// Serve runs the generation proxy that holds the api key server side.
func Serve(ctx context.Context, cfg *Config) error {
	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	newUpstream := func(ctx context.Context, apiKey string) (server.Upstream, error) {
		return transport.NewEngine(ctx, &transport.Config{
			APIKey:  apiKey,
			Engine:  cfg.Engine,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			Proxy:   cfg.Proxy,
			Timeout: cfg.Timeout,
			Logger:  logger,
		})
	}

	var ready func(string)
	if cfg.Open {
		ready = func(baseURL string) {
			u := baseURL + "/healthz"
			if err := browser.OpenURL(u); err != nil {
				logger.Warn("serve: couldn't open browser", zap.String("url", u), zap.Error(err))
			}
		}
	}
	return server.Serve(ctx, &server.Config{
		Debug:       cfg.Debug,
		Addr:        cfg.Addr,
		APIKey:      cfg.APIKey,
		Credentials: cfg.Credentials,
		Timeout:     cfg.Timeout,
		Logger:      logger,
		NewUpstream: newUpstream,
	}, ready)
}
