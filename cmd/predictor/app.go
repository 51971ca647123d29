package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ramshi122/crazy-time-predictor/internal/config"
	"github.com/ramshi122/crazy-time-predictor/internal/feed"
	"github.com/ramshi122/crazy-time-predictor/internal/llm"
	"github.com/ramshi122/crazy-time-predictor/internal/metrics"
	"github.com/ramshi122/crazy-time-predictor/internal/predictor"
	"github.com/ramshi122/crazy-time-predictor/internal/scraper"
)

// core holds the components every command needs to run a round.
type core struct {
	metrics  *metrics.Registry
	cache    feed.Cache
	feed     *feed.Fetcher
	registry *llm.Registry
	pred     *predictor.Predictor
}

func newCore(ctx context.Context, cfg *config.Config) (*core, error) {
	m := metrics.New()

	cache, err := feed.NewCache(ctx, cfg.Feed)
	if err != nil {
		return nil, err
	}
	sources, err := feed.Sources(cfg.Sources)
	if err != nil {
		if cache != nil {
			_ = cache.Close()
		}
		return nil, err
	}

	fetcher := feed.New(cfg.Feed, sources, cache, feed.WithObserver(func(r *scraper.ScrapeResult) {
		m.Inc(metrics.ScrapesTotal, r.SourceID, result(r.Err))
	}))
	reg := llm.NewRegistry(cfg.Providers, func(provider string, took time.Duration, err error) {
		m.Inc(metrics.ProviderCallsTotal, provider, result(err))
		m.Set(metrics.ProviderLatency, took.Seconds(), provider)
	})

	zap.L().Info("providers",
		zap.Any("configured", reg.Status()),
		zap.Int("sources", len(sources)))

	return &core{
		metrics:  m,
		cache:    cache,
		feed:     fetcher,
		registry: reg,
		pred:     predictor.New(cfg.Predictor, fetcher, reg),
	}, nil
}

// observe records round metrics.
func (c *core) observe(_ context.Context, r *predictor.Round) {
	c.metrics.Inc(metrics.RoundsTotal, r.Status, r.DataSource)
	if b, ok := r.Boxes[predictor.SlotEnsemble]; ok {
		c.metrics.Set(metrics.LastConfidence, float64(b.Display))
	}
}

func (c *core) Close() error {
	if c.cache == nil {
		return nil
	}
	if err := c.cache.Close(); err != nil {
		return fmt.Errorf("close feed cache: %w", err)
	}
	return nil
}

func result(err error) string {
	if err != nil {
		return metrics.Fail
	}
	return metrics.OK
}
