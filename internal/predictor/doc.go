// Package predictor runs one prediction round end to end.
//
// A round fetches the live feed (falling back to the last good feed, then to
// a synthetic history when fewer than min_live_spins are available), fills
// the four boxes from the local scorers, then asks every configured model
// concurrently. Each model that answers replaces its box; with two or more
// answers the ensemble box is replaced by consensus.Combine. The round ends
// with a tally of the four picks and updated session stats.
//
// Run refuses to overlap: a second caller gets ErrBusy.
package predictor
