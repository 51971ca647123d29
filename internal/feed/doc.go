// Package feed turns several unreliable history sources into one live feed.
//
// Fetcher.Fetch scrapes every configured source concurrently under an
// overall timeout. Sources are ranked by their order in the configuration:
// the first one that answered with at least min_spins outcomes wins, even if
// a lower-ranked source answered sooner. When nothing qualifies Fetch
// returns ErrNoData.
//
// Accepted feeds are cached for a short TTL, in memory (internal/store) or in
// redis when several predictor processes share one upstream budget.
package feed
