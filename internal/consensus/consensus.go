package consensus

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/ramshi122/crazy-time-predictor/internal/llm"
	"github.com/ramshi122/crazy-time-predictor/internal/wheel"
)

// ErrTooFewPredictions is returned by Combine for fewer than two inputs.
var ErrTooFewPredictions = errors.New("consensus: need at least 2 predictions to create ensemble")

// ErrNoVotes is returned by Combine when no input names a prediction.
var ErrNoVotes = errors.New("consensus: no prediction to vote on")

// Agreement levels.
const (
	Unanimous = "unanimous"
	Majority  = "majority"
	Split     = "split"
)

// defaultConfidence stands in for a prediction that carried none.
const defaultConfidence = 75

// Result is the combined answer of several model predictions.
type Result struct {
	Key        wheel.Key `json:"key"`
	Prediction string    `json:"prediction"`
	Confidence int       `json:"confidence"`
	Reason     string    `json:"reason"`
	Hot        string    `json:"hot"`
	Due        string    `json:"due"`
	Cold       string    `json:"cold"`
	Agreement  string    `json:"agreement"`
	Votes      int       `json:"votes"`
}

// Combine majority-votes preds on their normalised key. Ties are broken
// as in Tally. Confidence is the rounded mean (missing values count as 75),
// raised by 8 (cap 98) when unanimous or by 4 (cap 95) when at least two
// agree. Inputs with an empty Prediction count towards the total and the
// average but cast no vote, so they rule out unanimity. Hot, due and cold
// are taken from the first prediction.
func Combine(preds []llm.Prediction) (Result, error) {
	if len(preds) < 2 {
		return Result{}, ErrTooFewPredictions
	}

	keys := make([]wheel.Key, 0, len(preds))
	for _, p := range preds {
		if p.Prediction != "" {
			keys = append(keys, wheel.Normalize(p.Prediction))
		}
	}
	votes := Tally(keys)
	if len(votes) == 0 {
		return Result{}, ErrNoVotes
	}
	top, count := votes[0].Key, votes[0].Count

	var sum int
	for _, p := range preds {
		c := p.Confidence
		if c == 0 {
			c = defaultConfidence
		}
		sum += c
	}
	avg := int(math.Round(float64(sum) / float64(len(preds))))

	res := Result{
		Key:        top,
		Prediction: wheel.Label(top),
		Votes:      count,
		Hot:        orDefault(preds[0].Hot, "1"),
		Due:        orDefault(preds[0].Due, "5"),
		Cold:       orDefault(preds[0].Cold, "Crazy Time"),
	}
	switch {
	case count == len(preds):
		res.Confidence = min(98, avg+8)
		res.Agreement = Unanimous
		res.Reason = "All AIs agree on this prediction"
	case count >= 2:
		res.Confidence = min(95, avg+4)
		res.Agreement = Majority
		res.Reason = fmt.Sprintf("%d/%d AIs agree", count, len(preds))
	default:
		res.Confidence = avg
		res.Agreement = Split
		res.Reason = "Split decision - combined analysis"
	}
	return res, nil
}

// Vote is one row of a consensus tally.
type Vote struct {
	Key    wheel.Key `json:"key"`
	Label  string    `json:"label"`
	Count  int       `json:"count"`
	Winner bool      `json:"winner"`
}

// Tally counts tops, sorted by count descending. Equal counts keep tie
// order: number segments first in ascending value, then the bonus
// segments in first-seen order. Every row holding the maximum count is
// marked Winner. Invalid keys are skipped.
func Tally(tops []wheel.Key) []Vote {
	idx := make(map[wheel.Key]int, len(tops))
	var out []Vote
	for _, k := range tops {
		if !k.Valid() {
			continue
		}
		if i, ok := idx[k]; ok {
			out[i].Count++
			continue
		}
		idx[k] = len(out)
		out = append(out, Vote{Key: k, Label: wheel.Label(k), Count: 1})
	}
	if len(out) == 0 {
		return nil
	}
	sort.SliceStable(out, func(i, j int) bool { return tieLess(out[i].Key, out[j].Key) })
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	for i := range out {
		out[i].Winner = out[i].Count == out[0].Count
	}
	return out
}

// tieLess orders integer keys ascending ahead of all other keys, which
// keep their relative order.
func tieLess(a, b wheel.Key) bool {
	na, aok := number(a)
	nb, bok := number(b)
	switch {
	case aok && bok:
		return na < nb
	default:
		return aok && !bok
	}
}

func number(k wheel.Key) (int, bool) {
	n, err := strconv.Atoi(string(k))
	if err != nil || n < 0 || strconv.Itoa(n) != string(k) {
		return 0, false
	}
	return n, true
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
