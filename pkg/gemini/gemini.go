package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/igolaizola/zhiyin/pkg/song"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const DefaultModel = "gemini-3-pro-preview"

type Config struct {
	APIKey string
	Model  string
	// BaseURL overrides the API endpoint, empty means the public one.
	BaseURL string
	Client  *http.Client
	Logger  *zap.Logger
}

// Client generates twin song payloads with a Gemini model.
type Client struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

func New(ctx context.Context, cfg *Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clientConfig := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.Client,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("gemini: couldn't create client: %w", err)
	}
	return &Client{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

// Schema is the strict response schema requested from the model.
func Schema() *genai.Schema {
	str := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: desc}
	}
	version := func(label string) *genai.Schema {
		return &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"label":      str(label),
				"lyrics":     str("Lyrics with \\n for line breaks"),
				"sunoPrompt": str("English prompt for music AI"),
			},
			Required: []string{"label", "lyrics", "sunoPrompt"},
		}
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":    str("The song title"),
			"mood":     str("Mood keywords"),
			"style":    str("Genre/Style keywords"),
			"versionA": version("e.g. 经典叙事版"),
			"versionB": version("e.g. 情感进阶版"),
		},
		Required: []string{"title", "mood", "style", "versionA", "versionB"},
	}
}

// GenerateJSON sends the contents to the model and returns the raw JSON text
// of the response.
func (c *Client) GenerateJSON(ctx context.Context, contents string) ([]byte, error) {
	c.logger.Debug("gemini: generate", zap.String("model", c.model), zap.Int("length", len(contents)))
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(contents), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(song.SystemInstruction, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    Schema(),
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: couldn't generate content: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		text = "{}"
	}
	c.logger.Debug("gemini: response", zap.Int("length", len(text)))
	return []byte(text), nil
}

// Generate asks for a twin song for the given hint.
func (c *Client) Generate(ctx context.Context, hint string) (*song.Payload, error) {
	b, err := c.GenerateJSON(ctx, song.UserInput(hint))
	if err != nil {
		return nil, err
	}
	p, err := song.ParsePayload(b)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return p, nil
}
