package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/igolaizola/zhiyin/pkg/gemini"
	"github.com/igolaizola/zhiyin/pkg/openai"
	"github.com/igolaizola/zhiyin/pkg/song"
	"go.uber.org/zap"
)

// DefaultEndpoint is the proxy endpoint used when no api key is configured.
const DefaultEndpoint = "http://localhost:1337/api/generate"

// Transport performs one remote generation for a hint.
type Transport interface {
	Generate(ctx context.Context, hint string) (*song.Payload, error)
}

type Config struct {
	// APIKey selects direct mode when set.
	APIKey  string
	Engine  string
	Model   string
	BaseURL string

	// Endpoint is the proxy url used in proxied mode.
	Endpoint string

	Proxy   string
	Timeout time.Duration
	Logger  *zap.Logger
}

// Engine is a generation backend called with a locally held api key.
type Engine interface {
	Transport
	GenerateJSON(ctx context.Context, contents string) ([]byte, error)
}

// New selects the transport once from the configuration: direct when a local
// api key is present, proxied otherwise.
func New(ctx context.Context, cfg *Config) (Transport, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	httpClient, err := newHTTPClient(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.APIKey == "" {
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = DefaultEndpoint
		}
		logger.Debug("transport: proxied mode", zap.String("endpoint", endpoint))
		return NewProxied(httpClient, endpoint, logger), nil
	}

	logger.Warn("transport: direct mode, the api key is held locally", zap.String("engine", cfg.Engine))
	engine, err := NewEngine(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Direct{engine: engine}, nil
}

// NewEngine creates the engine named in the configuration.
func NewEngine(ctx context.Context, cfg *Config) (Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	httpClient, err := newHTTPClient(cfg)
	if err != nil {
		return nil, err
	}
	switch cfg.Engine {
	case "", "gemini":
		c, err := gemini.New(ctx, &gemini.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			Client:  httpClient,
			Logger:  logger,
		})
		if err != nil {
			return nil, fmt.Errorf("transport: %w", err)
		}
		return c, nil
	case "openai":
		c, err := openai.New(&openai.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			Client:  httpClient,
			Logger:  logger,
		})
		if err != nil {
			return nil, fmt.Errorf("transport: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("transport: unknown engine %q", cfg.Engine)
	}
}

func newHTTPClient(cfg *Config) (*http.Client, error) {
	httpClient := &http.Client{
		Timeout: cfg.Timeout,
	}
	if cfg.Proxy != "" {
		u, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("transport: invalid proxy URL: %w", err)
		}
		httpClient.Transport = &http.Transport{
			Proxy: http.ProxyURL(u),
		}
	}
	return httpClient, nil
}

// Direct calls the generation engine with a locally held credential.
type Direct struct {
	engine Transport
}

func (d *Direct) Generate(ctx context.Context, hint string) (*song.Payload, error) {
	return d.engine.Generate(ctx, hint)
}
