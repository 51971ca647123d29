package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ramshi122/crazy-time-predictor/internal/config"
)

const (
	defaultScrapeTimeout = 7 * time.Second

	// maxBody caps how much of an upstream response is read.
	maxBody = 4 << 20
)

// Spin is one historical wheel outcome as reported upstream. Result is the
// raw upstream label; wheel.Normalize maps it to a key.
type Spin struct {
	Result string     `json:"result"`
	Time   *time.Time `json:"time"`
}

// ScrapeResult is the normalized output of one scrape of a single source.
type ScrapeResult struct {
	SourceID   string
	SourceType string
	ScrapedAt  time.Time

	// Spins is newest first, with empty results already filtered out.
	Spins []Spin

	// Err is non-nil if the scrape itself failed (connectivity, status,
	// parse). The feed treats such a result as an unusable source.
	Err error
}

// Scraper is the common interface implemented by every history source.
type Scraper interface {
	Scrape(ctx context.Context) (*ScrapeResult, error)
}

// New returns the appropriate Scraper for the given source configuration.
// It builds the HTTP client once and reuses it across scrape calls.
func New(src config.Source) (Scraper, error) {
	client := buildHTTPClient(src)
	switch src.Type {
	case "tracksino":
		return &jsonScraper{src: src, client: client, format: tracksinoFormat}, nil
	case "ltccasino":
		return &jsonScraper{src: src, client: client, format: ltccasinoFormat}, nil
	case "html":
		return &htmlScraper{src: src, client: client}, nil
	default:
		return nil, fmt.Errorf("scraper: unsupported type %q", src.Type)
	}
}

// browserRoundTripper makes every outgoing request look like a browser page
// load; several upstreams reject default Go clients.
type browserRoundTripper struct {
	base      http.RoundTripper
	userAgent string
}

func (t *browserRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	return t.base.RoundTrip(req)
}

// buildHTTPClient constructs an http.Client for the source's timeout and
// user agent settings.
func buildHTTPClient(src config.Source) *http.Client {
	timeout := src.Timeout
	if timeout <= 0 {
		timeout = defaultScrapeTimeout
	}
	ua := src.UserAgent
	if ua == "" {
		ua = config.DefaultUserAgent
	}
	return &http.Client{
		Transport: &browserRoundTripper{base: http.DefaultTransport, userAgent: ua},
		Timeout:   timeout,
	}
}

// fetch performs an HTTP GET to url and returns the response body.
func fetch(ctx context.Context, client *http.Client, url, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", accept)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// newResult initialises an empty ScrapeResult.
func newResult(sourceID, sourceType string) *ScrapeResult {
	return &ScrapeResult{
		SourceID:   sourceID,
		SourceType: sourceType,
		ScrapedAt:  time.Now().UTC(),
	}
}
