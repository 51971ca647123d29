// Package analytics holds the local heuristic scorers. Every function is
// pure given its inputs and a Source; none of them has predictive value,
// since spins are independent draws.
//
// Build summarises a newest-first history (counts, gaps, window counts,
// deviation from expectation, gap scores, hot/due/cold). Markov, Pattern and
// Bayes each turn that summary into a Score; Ensemble folds scores together
// with fixed weights and an agreement bonus. Frequency, RecentLine and
// FrequencyLine render the same history for display and for model prompts.
package analytics
