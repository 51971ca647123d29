package llm

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ramshi122/crazy-time-predictor/internal/config"
)

// Observer is told about every provider call.
type Observer func(provider string, took time.Duration, err error)

// Registry holds the three providers in slot order: claude, gpt, gemini.
type Registry struct {
	providers []Provider
	byName    map[string]Provider
}

// NewRegistry builds all three providers from cfg. Each call made through
// the registry is logged and passed to observe, which may be nil.
func NewRegistry(cfg config.ProvidersConfig, observe Observer) *Registry {
	return NewRegistryFrom(observe,
		NewAnthropic(cfg.Anthropic),
		NewOpenAI(cfg.OpenAI),
		NewGemini(cfg.Google),
	)
}

// NewRegistryFrom wraps arbitrary providers. Order is preserved.
func NewRegistryFrom(observe Observer, providers ...Provider) *Registry {
	r := &Registry{byName: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		o := &observed{Provider: p, observe: observe}
		r.providers = append(r.providers, o)
		r.byName[p.Name()] = o
	}
	return r
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.byName[name]
	return p, ok
}

// All returns the providers in slot order.
func (r *Registry) All() []Provider { return r.providers }

// Status reports which providers have a key.
func (r *Registry) Status() map[string]bool {
	out := make(map[string]bool, len(r.providers))
	for _, p := range r.providers {
		out[p.Name()] = p.Configured()
	}
	return out
}

// AnyConfigured reports whether at least one provider has a key.
func (r *Registry) AnyConfigured() bool {
	for _, p := range r.providers {
		if p.Configured() {
			return true
		}
	}
	return false
}

type observed struct {
	Provider
	observe Observer
}

func (o *observed) Predict(ctx context.Context, req Request) (*Prediction, error) {
	start := time.Now()
	pred, err := o.Provider.Predict(ctx, req)
	took := time.Since(start)

	log := zap.L().With(zap.String("provider", o.Name()), zap.Duration("took", took))
	switch {
	case errors.Is(err, ErrNotConfigured):
		log.Debug("llm: provider not configured")
	case err != nil:
		log.Warn("llm: predict failed", zap.Error(err))
	default:
		log.Debug("llm: predict ok", zap.String("prediction", pred.Prediction), zap.Int("confidence", pred.Confidence))
	}
	if o.observe != nil {
		o.observe(o.Name(), took, err)
	}
	return pred, err
}
