// Package wheel defines the outcome keys of the game wheel and the static
// table describing each segment: display label, icon, whether it triggers a
// bonus round, and its nominal share of the wheel.
//
// Normalize maps the many spellings upstream sources use ("x10", "Cash Hunt",
// "coin_flip", "ten") onto one canonical Key. It never fails; unrecognised
// input collapses to Key1, the most common segment.
package wheel
