package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ramshi122/crazy-time-predictor/internal/config"
)

// jsonFormat describes where a JSON history endpoint keeps its items and
// which fields carry the outcome and timestamp.
type jsonFormat struct {
	name string

	// containers are tried in order on an object body; a bare array body is
	// used as-is.
	containers []string
	resultKeys []string
	timeKeys   []string
}

var (
	tracksinoFormat = jsonFormat{
		name:       "tracksino",
		containers: []string{"data", "results"},
		resultKeys: []string{"result", "outcome"},
		timeKeys:   []string{"when", "time"},
	}
	ltccasinoFormat = jsonFormat{
		name:       "ltccasino",
		containers: []string{"data"},
		resultKeys: []string{"result", "outcome"},
		timeKeys:   []string{"time"},
	}
)

type jsonScraper struct {
	src    config.Source
	client *http.Client
	format jsonFormat
}

// Scrape fetches the source's history endpoint and extracts outcomes.
func (s *jsonScraper) Scrape(ctx context.Context) (*ScrapeResult, error) {
	res := newResult(s.src.ID, s.format.name)

	body, err := fetch(ctx, s.client, s.src.Endpoint, "application/json")
	if err != nil {
		res.Err = fmt.Errorf("%s scrape %q: %w", s.format.name, s.src.ID, err)
		zap.L().Warn("scraper: fetch failed",
			zap.String("source", s.src.ID), zap.String("type", s.format.name), zap.Error(err))
		return res, nil
	}

	spins, err := parseJSONHistory(body, s.format)
	if err != nil {
		res.Err = fmt.Errorf("%s parse %q: %w", s.format.name, s.src.ID, err)
		zap.L().Warn("scraper: parse failed",
			zap.String("source", s.src.ID), zap.String("type", s.format.name), zap.Error(err))
		return res, nil
	}
	res.Spins = spins
	return res, nil
}

// parseJSONHistory decodes body according to f. A body whose items are not
// an array yields no spins rather than an error, matching how the upstreams
// answer when they have nothing to report.
func parseJSONHistory(body []byte, f jsonFormat) ([]Spin, error) {
	var root any
	if err := json.Unmarshal(body, &root); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}

	items := root
	if obj, ok := root.(map[string]any); ok {
		items = nil
		for _, c := range f.containers {
			if v, ok := obj[c]; ok && v != nil {
				items = v
				break
			}
		}
	}

	arr, ok := items.([]any)
	if !ok {
		return nil, nil
	}

	spins := make([]Spin, 0, len(arr))
	for _, it := range arr {
		obj, ok := it.(map[string]any)
		if !ok {
			continue
		}
		result := firstString(obj, f.resultKeys)
		if result == "" {
			continue
		}
		spins = append(spins, Spin{Result: result, Time: firstTime(obj, f.timeKeys)})
	}
	return spins, nil
}

// firstString returns the first non-empty value among keys, stringifying
// numeric outcomes such as 10.
func firstString(obj map[string]any, keys []string) string {
	for _, k := range keys {
		switch v := obj[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// firstTime parses the first usable timestamp among keys. Strings are tried
// as RFC 3339 then as unix seconds; numbers are unix seconds.
func firstTime(obj map[string]any, keys []string) *time.Time {
	for _, k := range keys {
		var t time.Time
		switch v := obj[k].(type) {
		case string:
			if parsed, err := time.Parse(time.RFC3339, v); err == nil {
				t = parsed
			} else if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
				t = unixSeconds(secs)
			}
		case float64:
			if v > 0 {
				t = unixSeconds(v)
			}
		}
		if !t.IsZero() {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func unixSeconds(secs float64) time.Time {
	whole := int64(secs)
	return time.Unix(whole, int64((secs-float64(whole))*1e9))
}
