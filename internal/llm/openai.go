package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ramshi122/crazy-time-predictor/internal/config"
)

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// OpenAIProvider asks GPT through chat completions with the gap persona.
type OpenAIProvider struct {
	cfg    config.ProviderConfig
	key    string
	client *http.Client
}

// NewOpenAI creates the GPT provider.
func NewOpenAI(cfg config.ProviderConfig) *OpenAIProvider {
	return &OpenAIProvider{
		cfg:    cfg,
		key:    cfg.Key(),
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (p *OpenAIProvider) Name() string { return GPT }

func (p *OpenAIProvider) Configured() bool { return p.key != "" }

// Predict sends the gap-analysis prompt and parses the JSON reply.
func (p *OpenAIProvider) Predict(ctx context.Context, req Request) (*Prediction, error) {
	if !p.Configured() {
		return nil, fmt.Errorf("gpt: %w: set %s", ErrNotConfigured, p.cfg.KeyEnv)
	}

	body := openAIRequest{
		Model: p.cfg.Model,
		Messages: []openAIMessage{
			{Role: "system", Content: gptSystem},
			{Role: "user", Content: gapPrompt(req)},
		},
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: p.cfg.Temperature,
	}
	headers := map[string]string{"Authorization": "Bearer " + p.key}

	var resp openAIResponse
	if err := postJSON(ctx, p.client, p.cfg.Endpoint, headers, body, &resp); err != nil {
		return nil, fmt.Errorf("gpt: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("gpt: no choices returned")
	}
	pred, err := ParsePrediction(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("gpt: %w", err)
	}
	return pred, nil
}
