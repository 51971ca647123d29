// Package scraper provides one scraper per upstream history source. Each
// scraper GETs its endpoint and returns a ScrapeResult holding the spins it
// found, newest first.
//
// Implemented scrapers: the tracksino and ltccasino JSON APIs (json.go,
// which differ only in where items live and which field carries the
// timestamp) and generic results pages (html.go, parsed with
// golang.org/x/net/html). Factory: New(config.Source) returns the correct
// Scraper.
//
// Failures never surface as a returned error; they are recorded in
// ScrapeResult.Err so the feed can race sources and keep whichever answered.
// Browser headers are injected by the shared browserRoundTripper in base.go.
package scraper
