package llm

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"

	"github.com/ramshi122/crazy-time-predictor/internal/config"
)

// GeminiProvider asks Gemini through the GenAI SDK with the Bayesian persona.
// The SDK client is created lazily on first use.
type GeminiProvider struct {
	cfg config.ProviderConfig
	key string

	once    sync.Once
	client  *genai.Client
	initErr error
}

// NewGemini creates the Gemini provider.
func NewGemini(cfg config.ProviderConfig) *GeminiProvider {
	return &GeminiProvider{cfg: cfg, key: cfg.Key()}
}

func (p *GeminiProvider) Name() string { return Gemini }

func (p *GeminiProvider) Configured() bool { return p.key != "" }

func (p *GeminiProvider) sdk(ctx context.Context) (*genai.Client, error) {
	p.once.Do(func() {
		cc := &genai.ClientConfig{
			APIKey:  p.key,
			Backend: genai.BackendGeminiAPI,
		}
		if p.cfg.Endpoint != "" {
			cc.HTTPOptions = genai.HTTPOptions{BaseURL: p.cfg.Endpoint}
		}
		p.client, p.initErr = genai.NewClient(ctx, cc)
	})
	return p.client, p.initErr
}

// Predict sends the Bayesian prompt and parses the JSON reply.
func (p *GeminiProvider) Predict(ctx context.Context, req Request) (*Prediction, error) {
	if !p.Configured() {
		return nil, fmt.Errorf("gemini: %w: set %s", ErrNotConfigured, p.cfg.KeyEnv)
	}
	client, err := p.sdk(ctx)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	gen := &genai.GenerateContentConfig{MaxOutputTokens: int32(p.cfg.MaxTokens)}
	if p.cfg.Temperature != 0 {
		gen.Temperature = genai.Ptr(float32(p.cfg.Temperature))
	}
	resp, err := client.Models.GenerateContent(ctx, p.cfg.Model, genai.Text(bayesPrompt(req)), gen)
	if err != nil {
		return nil, fmt.Errorf("gemini: generate: %w", err)
	}
	pred, err := ParsePrediction(resp.Text())
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return pred, nil
}
