package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Provider names as they appear in routes and round slots.
const (
	Claude = "claude"
	GPT    = "gpt"
	Gemini = "gemini"
)

var (
	// ErrNotConfigured is returned when a provider has no API key.
	ErrNotConfigured = errors.New("llm: provider not configured")

	// ErrNoJSON is returned when a model reply contains no JSON object.
	ErrNoJSON = errors.New("llm: no JSON found in response")
)

// Request carries the two prompt strings every persona embeds.
type Request struct {
	// Recent is the newest outcomes as labels, e.g. "1, 2, Pachinko".
	Recent string `json:"recent"`

	// Frequency is per-key counts, e.g. "1:20/60, 2:15/60".
	Frequency string `json:"frequency"`
}

// Prediction is a model's answer. Fields are free text as produced by the
// model; callers normalise Prediction with wheel.Normalize.
type Prediction struct {
	Prediction string `json:"prediction"`
	Confidence int    `json:"confidence"`
	Reason     string `json:"reason"`
	Hot        string `json:"hot"`
	Due        string `json:"due"`
	Cold       string `json:"cold"`
}

// Provider is one external model vendor.
type Provider interface {
	Name() string
	Configured() bool
	Predict(ctx context.Context, req Request) (*Prediction, error)
}

// ExtractJSON returns the substring from the first '{' to the last '}'.
func ExtractJSON(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return "", ErrNoJSON
	}
	return text[start : end+1], nil
}

// ParsePrediction extracts and decodes a Prediction from a model reply.
// Models are loose with types, so numbers and strings are accepted for
// every field and a confidence like "82%" is understood.
func ParsePrediction(text string) (*Prediction, error) {
	p, err := decodePrediction(text)
	if err != nil {
		return nil, err
	}
	if p.Prediction == "" {
		return nil, errors.New("llm: prediction field missing")
	}
	return p, nil
}

// ParseEntry decodes a client-supplied prediction as far as it can. Unlike
// ParsePrediction it never fails: an entry without a usable prediction
// comes back with an empty Prediction field.
func ParseEntry(text string) Prediction {
	p, err := decodePrediction(text)
	if err != nil {
		return Prediction{}
	}
	return *p
}

func decodePrediction(text string) (*Prediction, error) {
	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("llm: decode prediction: %w", err)
	}
	return &Prediction{
		Prediction: str(m["prediction"]),
		Confidence: confidence(m["confidence"]),
		Reason:     str(m["reason"]),
		Hot:        str(m["hot"]),
		Due:        str(m["due"]),
		Cold:       str(m["cold"]),
	}, nil
}

func str(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return ""
	}
}

// confidence reads a percentage. Fractions in (0, 1] are scaled to percent.
func confidence(v any) int {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(x), "%"), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if f > 0 && f <= 1 {
		f *= 100
	}
	return int(math.Round(math.Max(0, math.Min(100, f))))
}
