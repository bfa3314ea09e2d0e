package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/igolaizola/zhiyin/pkg/metrics"
	"github.com/igolaizola/zhiyin/pkg/song"
	"go.uber.org/zap"
)

// DefaultPrompt is forwarded when the request carries no prompt.
const DefaultPrompt = song.RandomHint

// MissingKeyMessage is returned when the server has no credential configured.
const MissingKeyMessage = "CRITICAL: 请在服务器环境变量中配置 API_KEY (ZHIYIN_API_KEY)"

// Upstream is the generation engine the proxy forwards prompts to.
type Upstream interface {
	GenerateJSON(ctx context.Context, contents string) ([]byte, error)
}

// UpstreamFunc builds the upstream for the server held api key.
type UpstreamFunc func(ctx context.Context, apiKey string) (Upstream, error)

type Config struct {
	Debug       bool
	Addr        string
	APIKey      string
	Credentials map[string]string
	Timeout     time.Duration
	Logger      *zap.Logger
	NewUpstream UpstreamFunc
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

// Handler returns the proxy router.
func Handler(cfg *Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	mux := chi.NewRouter()
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.Timeout(timeout))
	mux.Use(instrument)

	if len(cfg.Credentials) > 0 {
		mux.Use(middleware.BasicAuth("private", cfg.Credentials))
	}

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", metrics.Handler())

	mux.Group(func(r chi.Router) {
		if cfg.Debug {
			r.Use(middleware.Logger)
		}
		r.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				writeJSON(w, http.StatusMethodNotAllowed, &errorResponse{Error: "Method not allowed"})
				return
			}
			generate(w, r, cfg, logger)
		})
	})
	return mux
}

func generate(w http.ResponseWriter, r *http.Request, cfg *Config, logger *zap.Logger) {
	if cfg.APIKey == "" {
		logger.Error("server: api key is missing")
		writeJSON(w, http.StatusInternalServerError, &errorResponse{Error: MissingKeyMessage})
		return
	}
	fail := func(err error) {
		logger.Error("server: generate failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, &errorResponse{
			Error:   "Gemini API Call Failed",
			Details: err.Error(),
		})
	}

	var req generateRequest
	body, err := io.ReadAll(r.Body)
	if err != nil {
		fail(fmt.Errorf("couldn't read body: %w", err))
		return
	}
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			fail(fmt.Errorf("couldn't decode body: %w", err))
			return
		}
	}
	prompt := req.Prompt
	if prompt == "" {
		prompt = DefaultPrompt
	}

	if cfg.NewUpstream == nil {
		fail(errors.New("no upstream configured"))
		return
	}
	upstream, err := cfg.NewUpstream(r.Context(), cfg.APIKey)
	if err != nil {
		fail(err)
		return
	}

	start := time.Now()
	data, err := upstream.GenerateJSON(r.Context(), prompt)
	if err == nil && !json.Valid(data) {
		err = errors.New("upstream returned invalid json")
	}
	metrics.RecordUpstreamCall(err == nil, time.Since(start))
	if err != nil {
		fail(err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.RecordHTTPRequest(r.Method, path, status)
	})
}

// Serve runs the proxy until the context is cancelled. Ready, if not nil, is
// called with the base url the server listens on.
func Serve(ctx context.Context, cfg *Config, ready func(baseURL string)) error {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("server: started")
	defer logger.Info("server: ended")

	host, portStr, err := net.SplitHostPort(cfg.Addr)
	if err != nil {
		return fmt.Errorf("server: invalid address %s: %w", cfg.Addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("server: invalid port: %s", portStr)
	}
	if cfg.APIKey == "" {
		logger.Warn("server: no api key configured, generate requests will fail")
	}

	server := &http.Server{
		Addr:    net.JoinHostPort(host, strconv.Itoa(port)),
		Handler: Handler(cfg),
	}
	errC := make(chan error, 1)
	go func() {
		note := fmt.Sprintf("http://%s:%d", host, port)
		if host == "" {
			note = fmt.Sprintf("all interfaces http://localhost:%d", port)
		}
		logger.Info("server: listening", zap.String("address", note))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errC <- fmt.Errorf("server: couldn't listen: %w", err)
		}
	}()
	if ready != nil {
		if host == "" {
			host = "localhost"
		}
		ready(fmt.Sprintf("http://%s:%d", host, port))
	}

	select {
	case err := <-errC:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: couldn't shutdown: %w", err)
	}
	return nil
}
