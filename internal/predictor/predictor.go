package predictor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ramshi122/crazy-time-predictor/internal/analytics"
	"github.com/ramshi122/crazy-time-predictor/internal/config"
	"github.com/ramshi122/crazy-time-predictor/internal/consensus"
	"github.com/ramshi122/crazy-time-predictor/internal/feed"
	"github.com/ramshi122/crazy-time-predictor/internal/llm"
	"github.com/ramshi122/crazy-time-predictor/internal/scraper"
	"github.com/ramshi122/crazy-time-predictor/internal/wheel"
)

// ErrBusy is returned when a round is requested while one is running.
var ErrBusy = errors.New("predictor: prediction already running")

const (
	// historyLen is how many newest spins a Round carries for display.
	historyLen = 50

	providerConfidence = 78
	providerReason     = "Server AI analysis"
)

// Fetcher supplies the live feed.
type Fetcher interface {
	Fetch(ctx context.Context) (*feed.Feed, error)
}

// Option customises a Predictor.
type Option func(*Predictor)

// WithClock replaces the clock used to stamp rounds.
func WithClock(now func() time.Time) Option {
	return func(p *Predictor) { p.now = now }
}

// WithRNG replaces the scorer random source.
func WithRNG(rng analytics.Source) Option {
	return func(p *Predictor) { p.rng = rng }
}

// WithIDs replaces the round ID generator.
func WithIDs(next func() string) Option {
	return func(p *Predictor) { p.newID = next }
}

// Predictor runs prediction rounds. Only one round runs at a time.
type Predictor struct {
	cfg   config.PredictorConfig
	feed  Fetcher
	reg   *llm.Registry
	now   func() time.Time
	newID func() string

	busy atomic.Bool

	mu       sync.Mutex // guards everything below
	rng      analytics.Source
	stats    Stats
	lastFeed *feed.Feed
	lastSig  string
}

// New creates a Predictor.
func New(cfg config.PredictorConfig, fetcher Fetcher, reg *llm.Registry, opts ...Option) *Predictor {
	p := &Predictor{
		cfg:   cfg,
		feed:  fetcher,
		reg:   reg,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, o := range opts {
		o(p)
	}
	if p.rng == nil {
		p.rng = analytics.NewMulberry32(cfg.Seed)
	}
	return p
}

// Busy reports whether a round is running.
func (p *Predictor) Busy() bool { return p.busy.Load() }

// Stats returns the session totals.
func (p *Predictor) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// LastFeed returns the last live feed accepted by a round, or nil.
func (p *Predictor) LastFeed() *feed.Feed {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastFeed
}

// Run executes one round: fetch, score locally, ask the providers, combine.
// Provider failures never fail the round; their boxes keep the local score.
func (p *Predictor) Run(ctx context.Context) (*Round, error) {
	if !p.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer p.busy.Store(false)

	round := &Round{
		ID:        p.newID(),
		StartedAt: p.now().UTC(),
		Boxes:     make(map[Slot]Box, len(Slots)),
		Providers: make(map[string]string, 3),
		Status:    StatusLocal,
	}
	log := zap.L().With(zap.String("round", round.ID))

	keys, spins := p.history(ctx, round, log)
	an := analytics.Build(keys)
	round.SpinCount = len(keys)
	round.History = spins[:min(historyLen, len(spins))]
	round.Hot, round.Due, round.Cold = an.Hot, an.Due, an.Cold
	round.Frequency = analytics.Frequency(keys)
	round.Recent = analytics.RecentLine(keys, p.cfg.RecentWindow)
	round.FrequencyLine = analytics.FrequencyLine(keys)

	p.mu.Lock()
	markov := analytics.Markov(keys, an, p.rng)
	pattern := analytics.Pattern(keys, an, p.rng, p.cfg.PatternSims)
	bayes := analytics.Bayes(keys, an, p.rng)
	p.mu.Unlock()
	local := analytics.Ensemble([]analytics.Score{markov, pattern, bayes})

	for slot, s := range map[Slot]analytics.Score{
		SlotClaude: markov, SlotGPT: pattern, SlotGemini: bayes, SlotEnsemble: local,
	} {
		round.Boxes[slot] = newBox(slot, s.Top, s.Confidence, s.Reason, SourceStatistical)
	}

	preds := p.askProviders(ctx, round, llm.Request{Recent: round.Recent, Frequency: round.FrequencyLine})
	if len(preds) > 0 {
		round.Status = StatusLive
	}
	if len(preds) >= 2 {
		res, err := consensus.Combine(preds)
		if err == nil {
			round.Ensemble = &res
			round.Boxes[SlotEnsemble] = newBox(SlotEnsemble, res.Key, res.Confidence, res.Reason, SourceEnsemble)
		}
	}

	round.Consensus = consensus.Tally(round.Tops())

	p.mu.Lock()
	p.stats.Total += len(Slots)
	p.stats.Rounds++
	if round.AnyBonus() {
		p.stats.Bonus++
	}
	round.Stats = p.stats
	p.mu.Unlock()

	round.FinishedAt = p.now().UTC()
	log.Info("predictor: round finished",
		zap.String("data", round.DataSource),
		zap.Int("spins", round.SpinCount),
		zap.String("status", round.Status),
		zap.Int("providers_live", len(preds)),
		zap.Duration("took", round.FinishedAt.Sub(round.StartedAt)))
	return round, nil
}

// history returns normalised keys and the matching spins. Live data is used
// when at least min_live_spins are available from this or an earlier fetch;
// otherwise a synthetic history is generated.
func (p *Predictor) history(ctx context.Context, round *Round, log *zap.Logger) ([]wheel.Key, []scraper.Spin) {
	fctx, cancel := context.WithTimeout(ctx, p.cfg.FetchTimeout)
	f, err := p.feed.Fetch(fctx)
	cancel()

	p.mu.Lock()
	if err != nil {
		log.Warn("predictor: live fetch failed, keeping previous feed", zap.Error(err))
	} else {
		round.NewData = f.IsNew(p.lastSig)
		p.lastFeed = f
		p.lastSig = f.Signature
	}
	last := p.lastFeed
	p.mu.Unlock()

	if last != nil && len(last.Spins) >= p.cfg.MinLiveSpins {
		round.DataSource = DataLive
		round.FeedSource = last.Source
		return wheel.NormalizeAll(last.Results()), last.Spins
	}

	p.mu.Lock()
	keys := analytics.Mock(p.cfg.MockSpins, p.rng)
	p.mu.Unlock()

	round.DataSource = DataMock
	spins := make([]scraper.Spin, len(keys))
	for i, k := range keys {
		spins[i] = scraper.Spin{Result: wheel.Label(k)}
	}
	return keys, spins
}

type answer struct {
	pred *llm.Prediction
	err  error
}

// askProviders calls every configured provider concurrently and waits for
// all of them. Successful answers replace their slot's box; the returned
// predictions are in slot order with default confidence applied.
func (p *Predictor) askProviders(ctx context.Context, round *Round, req llm.Request) []llm.Prediction {
	providers := p.reg.All()
	answers := make([]answer, len(providers))

	var g errgroup.Group
	for i, prov := range providers {
		if !prov.Configured() {
			answers[i].err = llm.ErrNotConfigured
			continue
		}
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
			defer cancel()
			pred, err := prov.Predict(cctx, req)
			answers[i] = answer{pred: pred, err: err}
			return nil
		})
	}
	_ = g.Wait()

	var preds []llm.Prediction
	for i, prov := range providers {
		a := answers[i]
		switch {
		case errors.Is(a.err, llm.ErrNotConfigured):
			round.Providers[prov.Name()] = "not configured"
			continue
		case a.err != nil:
			round.Providers[prov.Name()] = "error: " + a.err.Error()
			continue
		case a.pred == nil:
			round.Providers[prov.Name()] = "error: empty answer"
			continue
		}
		round.Providers[prov.Name()] = "ok"

		pred := *a.pred
		if pred.Confidence == 0 {
			pred.Confidence = providerConfidence
		}
		if pred.Reason == "" {
			pred.Reason = providerReason
		}
		slot := Slot(prov.Name())
		round.Boxes[slot] = newBox(slot, wheel.Normalize(pred.Prediction), pred.Confidence, pred.Reason, prov.Name())
		preds = append(preds, pred)
	}
	return preds
}

func newBox(slot Slot, k wheel.Key, conf int, reason, source string) Box {
	seg := wheel.Lookup(k)
	return Box{
		Slot:       slot,
		Key:        seg.Key,
		Label:      seg.Label,
		Bonus:      seg.Bonus,
		Confidence: conf,
		Display:    DisplayConfidence(conf),
		Reason:     reason,
		Source:     source,
	}
}
