package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ramshi122/crazy-time-predictor/internal/config"
	"github.com/ramshi122/crazy-time-predictor/internal/scraper"
)

// ErrNoData is returned when no source produced a usable history.
var ErrNoData = errors.New("feed: no data sources available")

// signatureLen is how many newest results identify a feed.
const signatureLen = 5

// Feed is an accepted live history from one source.
type Feed struct {
	Source    string         `json:"source"`
	Spins     []scraper.Spin `json:"spins"`
	FetchedAt time.Time      `json:"fetched_at"`
	Signature string         `json:"signature"`
}

// Results returns the raw outcome labels, newest first.
func (f *Feed) Results() []string {
	out := make([]string, len(f.Spins))
	for i, s := range f.Spins {
		out[i] = s.Result
	}
	return out
}

// IsNew reports whether f differs from a previously seen signature. The
// very first feed (empty prev) is not considered new.
func (f *Feed) IsNew(prev string) bool {
	return prev != "" && f.Signature != prev
}

// Signature joins the first five results with commas.
func Signature(spins []scraper.Spin) string {
	n := min(len(spins), signatureLen)
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = spins[i].Result
	}
	return strings.Join(parts, ",")
}

// Source pairs a scraper with its configured ID. Order in the Fetcher's
// source list is priority order.
type Source struct {
	ID      string
	Scraper scraper.Scraper
}

// Sources builds scrapers for every configured source, preserving order.
func Sources(srcs []config.Source) ([]Source, error) {
	out := make([]Source, 0, len(srcs))
	for _, src := range srcs {
		s, err := scraper.New(src)
		if err != nil {
			return nil, fmt.Errorf("feed: %w", err)
		}
		out = append(out, Source{ID: src.ID, Scraper: s})
	}
	return out, nil
}

// Option customises a Fetcher.
type Option func(*Fetcher)

// WithObserver registers a callback invoked with every scrape result,
// successful or not. It must be safe for concurrent use.
func WithObserver(fn func(*scraper.ScrapeResult)) Option {
	return func(f *Fetcher) { f.observe = fn }
}

// WithClock replaces the clock used to stamp feeds.
func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) { f.now = now }
}

// Fetcher races all sources and returns the highest-priority usable feed.
type Fetcher struct {
	sources  []Source
	minSpins int
	timeout  time.Duration
	cache    Cache
	observe  func(*scraper.ScrapeResult)
	now      func() time.Time

	mu   sync.RWMutex
	last *Feed
}

// New creates a Fetcher. cache may be nil to disable caching.
func New(cfg config.FeedConfig, sources []Source, cache Cache, opts ...Option) *Fetcher {
	f := &Fetcher{
		sources:  sources,
		minSpins: cfg.MinSpins,
		timeout:  cfg.Timeout,
		cache:    cache,
		observe:  func(*scraper.ScrapeResult) {},
		now:      time.Now,
	}
	if f.minSpins <= 0 {
		f.minSpins = config.DefaultMinSpins
	}
	if f.timeout <= 0 {
		f.timeout = config.DefaultFeedTimeout
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Last returns the most recent feed this Fetcher accepted, or nil.
func (f *Fetcher) Last() *Feed {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.last
}

// Fetch returns the live feed. A cached feed is served while fresh;
// otherwise every source is scraped concurrently and the first source in
// configured order with at least min_spins entries wins. Fetch returns as
// soon as that winner is known; lower-priority scrapes still in flight are
// cancelled.
func (f *Fetcher) Fetch(ctx context.Context) (*Feed, error) {
	if f.cache != nil {
		if cached, ok := f.cache.Get(ctx); ok {
			return cached, nil
		}
	}

	feed, err := f.race(ctx)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.last = feed
	f.mu.Unlock()

	if f.cache != nil {
		f.cache.Put(ctx, feed)
	}
	return feed, nil
}

type outcome struct {
	idx int
	res *scraper.ScrapeResult
}

func (f *Fetcher) race(ctx context.Context) (*Feed, error) {
	if len(f.sources) == 0 {
		return nil, ErrNoData
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	g, gctx := errgroup.WithContext(ctx)
	done := make(chan outcome, len(f.sources))
	for i, src := range f.sources {
		g.Go(func() error {
			res, err := src.Scraper.Scrape(gctx)
			if res == nil {
				res = &scraper.ScrapeResult{SourceID: src.ID}
			}
			if err != nil && res.Err == nil {
				res.Err = err
			}
			// Sources cut off after a winner was picked did not fail.
			if res.Err == nil || !errors.Is(gctx.Err(), context.Canceled) {
				f.observe(res)
			}
			done <- outcome{idx: i, res: res}
			return nil
		})
	}
	// Cancel stragglers before waiting; each goroutine sends exactly once
	// into a buffered channel so none can block.
	defer func() {
		cancel()
		_ = g.Wait()
	}()

	results := make([]*scraper.ScrapeResult, len(f.sources))
	finished := 0
	for finished < len(f.sources) {
		select {
		case o := <-done:
			results[o.idx] = o.res
			finished++
		case <-ctx.Done():
			zap.L().Warn("feed: race timed out", zap.Int("finished", finished), zap.Error(ctx.Err()))
			return f.pick(results, true)
		}
		if feed, err := f.pick(results, false); feed != nil || err != nil {
			return feed, err
		}
	}
	return f.pick(results, true)
}

// pick walks results in priority order. A pending higher-priority source
// blocks the decision unless final is set.
func (f *Fetcher) pick(results []*scraper.ScrapeResult, final bool) (*Feed, error) {
	for i, res := range results {
		if res == nil {
			if final {
				continue
			}
			return nil, nil
		}
		if res.Err != nil || len(res.Spins) < f.minSpins {
			continue
		}
		zap.L().Debug("feed: source accepted",
			zap.String("source", f.sources[i].ID), zap.Int("spins", len(res.Spins)))
		return &Feed{
			Source:    f.sources[i].ID,
			Spins:     res.Spins,
			FetchedAt: f.now().UTC(),
			Signature: Signature(res.Spins),
		}, nil
	}
	if !final {
		return nil, nil
	}
	return nil, ErrNoData
}
