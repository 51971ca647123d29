package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/ramshi122/crazy-time-predictor/internal/config"
)

const anthropicVersion = "2023-06-01"

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// AnthropicProvider asks Claude through the Messages API with the Markov
// persona.
type AnthropicProvider struct {
	cfg    config.ProviderConfig
	key    string
	client *http.Client
}

// NewAnthropic creates the Claude provider. The key is resolved once.
func NewAnthropic(cfg config.ProviderConfig) *AnthropicProvider {
	return &AnthropicProvider{
		cfg:    cfg,
		key:    cfg.Key(),
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (p *AnthropicProvider) Name() string { return Claude }

func (p *AnthropicProvider) Configured() bool { return p.key != "" }

// Predict sends the Markov prompt and parses the JSON reply.
func (p *AnthropicProvider) Predict(ctx context.Context, req Request) (*Prediction, error) {
	if !p.Configured() {
		return nil, fmt.Errorf("claude: %w: set %s", ErrNotConfigured, p.cfg.KeyEnv)
	}

	body := anthropicRequest{
		Model:       p.cfg.Model,
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: p.cfg.Temperature,
		Messages:    []anthropicMessage{{Role: "user", Content: markovPrompt(req)}},
	}
	headers := map[string]string{
		"x-api-key":         p.key,
		"anthropic-version": anthropicVersion,
	}

	var resp anthropicResponse
	if err := postJSON(ctx, p.client, p.cfg.Endpoint, headers, body, &resp); err != nil {
		return nil, fmt.Errorf("claude: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	pred, err := ParsePrediction(text.String())
	if err != nil {
		return nil, fmt.Errorf("claude: %w", err)
	}
	return pred, nil
}
