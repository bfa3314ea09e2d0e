package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/igolaizola/zhiyin/pkg/song"
	"go.uber.org/zap"
)

// StatusError is returned when the proxy answers with a non 200 status.
type StatusError struct {
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Server Error (%d): %s", e.Code, e.Detail)
}

// Proxied posts the hint to a proxy endpoint that holds the credential.
type Proxied struct {
	client   *http.Client
	endpoint string
	logger   *zap.Logger
}

func NewProxied(client *http.Client, endpoint string, logger *zap.Logger) *Proxied {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Proxied{
		client:   client,
		endpoint: endpoint,
		logger:   logger,
	}
}

type proxyRequest struct {
	Prompt string `json:"prompt"`
}

type proxyError struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

func (p *Proxied) Generate(ctx context.Context, hint string) (*song.Payload, error) {
	body, err := json.Marshal(&proxyRequest{Prompt: hint})
	if err != nil {
		return nil, fmt.Errorf("transport: couldn't marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("transport: couldn't create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	p.logger.Debug("transport: post", zap.String("endpoint", p.endpoint))
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transport: couldn't post %s: %w", p.endpoint, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("transport: couldn't read response body: %w", err)
	}
	p.logger.Debug("transport: response", zap.Int("status", resp.StatusCode), zap.Int("length", len(respBody)))

	if resp.StatusCode != http.StatusOK {
		detail := http.StatusText(resp.StatusCode)
		var perr proxyError
		if err := json.Unmarshal(respBody, &perr); err == nil {
			if perr.Error != "" {
				detail = perr.Error
			}
			if perr.Details != "" {
				detail += fmt.Sprintf(" (%s)", perr.Details)
			}
		}
		return nil, &StatusError{Code: resp.StatusCode, Detail: detail}
	}

	payload, err := song.ParsePayload(respBody)
	if err != nil {
		return nil, fmt.Errorf("transport: %w", err)
	}
	if payload.Empty() {
		return nil, errors.New("transport: response has no song fields")
	}
	return payload, nil
}
