// Package tui renders prediction rounds in the terminal: recent result
// tiles, the frequency table, the four prediction boxes with confidence
// bars, the consensus tally and a status line with the auto-predict
// countdown.
package tui
