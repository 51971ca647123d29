package predictor

import (
	"time"

	"github.com/ramshi122/crazy-time-predictor/internal/analytics"
	"github.com/ramshi122/crazy-time-predictor/internal/consensus"
	"github.com/ramshi122/crazy-time-predictor/internal/scraper"
	"github.com/ramshi122/crazy-time-predictor/internal/wheel"
)

// Slot is one of the four displayed prediction boxes.
type Slot string

const (
	SlotClaude   Slot = "claude"
	SlotGPT      Slot = "gpt"
	SlotGemini   Slot = "gemini"
	SlotEnsemble Slot = "ensemble"
)

// Slots lists the boxes in display order.
var Slots = []Slot{SlotClaude, SlotGPT, SlotGemini, SlotEnsemble}

// Box sources.
const (
	SourceStatistical = "statistical"
	SourceEnsemble    = "ensemble"
)

// Data sources.
const (
	DataLive = "live"
	DataMock = "mock"
)

// Round statuses.
const (
	StatusLive  = "live"
	StatusLocal = "local"
)

// Box is the content of one prediction slot.
type Box struct {
	Slot  Slot      `json:"slot"`
	Key   wheel.Key `json:"key"`
	Label string    `json:"label"`
	Bonus bool      `json:"bonus"`

	// Confidence is the value produced by the scorer or model; Display is
	// the clamped percentage shown to users.
	Confidence int `json:"confidence"`
	Display    int `json:"display"`

	Reason string `json:"reason"`

	// Source is "statistical", "ensemble", or the provider name.
	Source string `json:"source"`
}

// Stats are running session totals.
type Stats struct {
	Total  int `json:"total"`
	Bonus  int `json:"bonus"`
	Rounds int `json:"rounds"`
}

// Round is the full outcome of one prediction run.
type Round struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// DataSource is "live" or "mock"; FeedSource names the winning source
	// for live data.
	DataSource string `json:"data_source"`
	FeedSource string `json:"feed_source,omitempty"`
	NewData    bool   `json:"new_data"`
	SpinCount  int    `json:"spin_count"`

	// History holds the newest outcomes used, at most historyLen.
	History []scraper.Spin `json:"history"`

	Recent        string `json:"recent"`
	FrequencyLine string `json:"frequency_line"`

	Boxes     map[Slot]Box      `json:"boxes"`
	Consensus []consensus.Vote  `json:"consensus"`
	Ensemble  *consensus.Result `json:"ensemble,omitempty"`
	Frequency []analytics.Row   `json:"frequency"`
	Providers map[string]string `json:"providers"`
	Status    string            `json:"status"`

	Hot  wheel.Key `json:"hot"`
	Due  wheel.Key `json:"due"`
	Cold wheel.Key `json:"cold"`

	Stats Stats `json:"stats"`
}

// Tops returns the box keys in slot order.
func (r *Round) Tops() []wheel.Key {
	out := make([]wheel.Key, 0, len(Slots))
	for _, s := range Slots {
		if b, ok := r.Boxes[s]; ok {
			out = append(out, b.Key)
		}
	}
	return out
}

// ProvidersLive counts the providers that answered this round.
func (r *Round) ProvidersLive() int {
	n := 0
	for _, b := range r.Boxes {
		if b.Slot != SlotEnsemble && b.Source != SourceStatistical {
			n++
		}
	}
	return n
}

// AnyBonus reports whether any box picked a bonus segment.
func (r *Round) AnyBonus() bool {
	for _, b := range r.Boxes {
		if b.Bonus {
			return true
		}
	}
	return false
}

// Winner returns the top consensus vote, if any.
func (r *Round) Winner() (consensus.Vote, bool) {
	if len(r.Consensus) == 0 {
		return consensus.Vote{}, false
	}
	return r.Consensus[0], true
}

// Agreement is the server ensemble agreement, or empty when no ensemble ran.
func (r *Round) Agreement() string {
	if r.Ensemble == nil {
		return ""
	}
	return r.Ensemble.Agreement
}

// DisplayConfidence clamps a confidence into [60, 97]; zero means 75.
func DisplayConfidence(c int) int {
	if c == 0 {
		c = 75
	}
	return max(60, min(97, c))
}
