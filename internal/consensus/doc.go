// Package consensus folds several model predictions into one displayed
// answer (Combine) and counts the per-slot picks of a round (Tally).
package consensus
