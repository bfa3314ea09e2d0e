package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/igolaizola/zhiyin/pkg/song"
	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const DefaultModel = "gpt-4o"

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	// Client, if set, carries the proxy and timeout settings.
	Client *http.Client
	Logger *zap.Logger
}

// Client generates twin song payloads with an OpenAI compatible chat model
// in JSON mode.
type Client struct {
	client *goopenai.Client
	model  string
	logger *zap.Logger
}

func New(cfg *Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: api key is required")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clientConfig := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.Client != nil {
		clientConfig.HTTPClient = cfg.Client
	}
	return &Client{
		client: goopenai.NewClientWithConfig(clientConfig),
		model:  model,
		logger: logger,
	}, nil
}

// GenerateJSON sends the contents as the user message and returns the raw
// JSON text of the first choice.
func (c *Client) GenerateJSON(ctx context.Context, contents string) ([]byte, error) {
	c.logger.Debug("openai: generate", zap.String("model", c.model), zap.Int("length", len(contents)))
	resp, err := c.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: song.SystemInstruction + "\n" + song.JSONShape},
			{Role: goopenai.ChatMessageRoleUser, Content: contents},
		},
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai: couldn't create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai: no choices returned")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		text = "{}"
	}
	return []byte(text), nil
}

func (c *Client) Generate(ctx context.Context, hint string) (*song.Payload, error) {
	b, err := c.GenerateJSON(ctx, song.UserInput(hint))
	if err != nil {
		return nil, err
	}
	p, err := song.ParsePayload(b)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	return p, nil
}
