package api

import (
	"github.com/ramshi122/crazy-time-predictor/internal/analytics"
	"github.com/ramshi122/crazy-time-predictor/internal/consensus"
	"github.com/ramshi122/crazy-time-predictor/internal/history"
	"github.com/ramshi122/crazy-time-predictor/internal/llm"
	"github.com/ramshi122/crazy-time-predictor/internal/predictor"
	"github.com/ramshi122/crazy-time-predictor/internal/scraper"
)

// HealthResponse is the body for GET /api/health.
type HealthResponse struct {
	Status        string          `json:"status"`
	Timestamp     string          `json:"timestamp"`
	AIProviders   map[string]bool `json:"aiProviders"`
	AnyConfigured bool            `json:"anyConfigured"`
}

// LiveDataResponse is the body for GET /api/live-data.
type LiveDataResponse struct {
	Success   bool           `json:"success"`
	Data      []scraper.Spin `json:"data,omitempty"`
	Source    string         `json:"source,omitempty"`
	Error     string         `json:"error,omitempty"`
	Timestamp string         `json:"timestamp"`
}

// ProviderRequest is the body for POST /api/ai/{provider}. Prompt is
// accepted for compatibility; each provider builds its own prompt.
type ProviderRequest struct {
	Prompt    string `json:"prompt"`
	Recent    string `json:"recent"`
	Frequency string `json:"frequency"`
}

// ProviderResponse is the body returned by POST /api/ai/{provider}.
type ProviderResponse struct {
	Success   bool            `json:"success"`
	Data      *llm.Prediction `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	Provider  string          `json:"provider,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// EnsembleResponse is the body returned by POST /api/ai/ensemble.
type EnsembleResponse struct {
	Success   bool              `json:"success"`
	Data      *consensus.Result `json:"data,omitempty"`
	Error     string            `json:"error,omitempty"`
	Provider  string            `json:"provider,omitempty"`
	Timestamp string            `json:"timestamp,omitempty"`
}

// FrequencyResponse is the body for GET /api/frequency.
type FrequencyResponse struct {
	Source string          `json:"source"`
	Spins  int             `json:"spins"`
	Rows   []analytics.Row `json:"rows"`
}

// RoundsResponse is the body for GET /api/rounds.
type RoundsResponse struct {
	Rounds []history.Summary `json:"rounds"`
}

// StatusResponse is the body for GET /api/status and the websocket status
// event.
type StatusResponse struct {
	Busy        bool            `json:"busy"`
	Auto        bool            `json:"auto"`
	Interval    string          `json:"interval,omitempty"`
	NextRun     string          `json:"next_run,omitempty"`
	Stats       predictor.Stats `json:"stats"`
	Clients     int             `json:"clients"`
	Providers   map[string]bool `json:"providers"`
	LatestRound string          `json:"latest_round,omitempty"`
	Timestamp   string          `json:"timestamp"`
}

// errorResponse is the standard error body.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
