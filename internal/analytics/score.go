package analytics

import (
	"fmt"
	"math"

	"github.com/ramshi122/crazy-time-predictor/internal/wheel"
)

// DefaultSims is the Monte Carlo sample count used by Pattern.
const DefaultSims = 4000

// Score is the output of one local scorer.
type Score struct {
	Top        wheel.Key
	Confidence int
	Scores     map[wheel.Key]float64
	Reason     string
}

// Markov scores keys by first-order transitions out of the newest outcome,
// nudged by under-representation and gap.
func Markov(keys []wheel.Key, an Analysis, rng Source) Score {
	counts := make(map[wheel.Key]map[wheel.Key]float64, len(wheel.Keys))
	for _, k := range wheel.Keys {
		counts[k] = make(map[wheel.Key]float64, len(wheel.Keys))
	}
	for i := 0; i+1 < len(keys); i++ {
		if row, ok := counts[keys[i]]; ok && keys[i+1].Valid() {
			row[keys[i+1]]++
		}
	}

	last := wheel.Key1
	if len(keys) > 0 && keys[0].Valid() {
		last = keys[0]
	}
	row := counts[last]
	var total float64
	for _, k := range wheel.Keys {
		total += row[k]
	}
	if total == 0 {
		total = 1
	}

	sc := make(map[wheel.Key]float64, len(wheel.Keys))
	for _, k := range wheel.Keys {
		p := row[k] / total
		sc[k] = math.Max(0, (p*0.45+math.Max(0, an.Dev[k])*0.15+math.Min(an.GapScore[k]*0.12, 0.18))*100)
	}
	top := argmax(sc)
	conf := min(94, round(58+sc[top]*0.65+rng.Float64()*4))
	return Score{
		Top:        top,
		Confidence: conf,
		Scores:     sc,
		Reason: fmt.Sprintf("Markov: %s follows %s in %d%% of chains. Gap: %d.",
			wheel.Label(top), wheel.Label(last), round(row[top]/total*100), an.Gap[top]),
	}
}

// Pattern runs sims weighted draws over a blend of observed frequency,
// prior, gap and recent scarcity.
func Pattern(keys []wheel.Key, an Analysis, rng Source, sims int) Score {
	if sims <= 0 {
		sims = DefaultSims
	}
	n := an.N
	w := make(map[wheel.Key]float64, len(wheel.Keys))
	for _, k := range wheel.Keys {
		prior := wheel.Expected(k) / 100
		ew := float64(an.Count[k]) / float64(max(n, 1))
		gapBonus := math.Min(an.GapScore[k]*0.18, 0.25)
		var recentBonus float64
		if n > 0 {
			recent := float64(an.Window[5][k]) / float64(min(5, n))
			if recent < prior*0.5 {
				recentBonus = 0.12
			}
		}
		w[k] = math.Max(0.01, ew*0.52+prior*0.28+gapBonus+recentBonus)
	}

	hits := make(map[wheel.Key]int, len(wheel.Keys))
	for i := 0; i < sims; i++ {
		hits[weightedPick(w, rng)]++
	}
	sc := make(map[wheel.Key]float64, len(wheel.Keys))
	for _, k := range wheel.Keys {
		sc[k] = float64(hits[k]) / float64(sims) * 100
	}
	top := argmax(sc)
	conf := min(96, round(54+sc[top]*0.66+rng.Float64()*5))
	return Score{
		Top:        top,
		Confidence: conf,
		Scores:     sc,
		Reason: fmt.Sprintf("Pattern: %d/%d sims land on %s (%.1f%%). Gap: %.2fx.",
			hits[top], sims, wheel.Label(top), sc[top], an.GapScore[top]),
	}
}

var bayesWeights = []float64{0.35, 0.25, 0.20, 0.12, 0.08}

// Bayes blends the prior with per-window frequencies and gap into a
// normalised posterior.
func Bayes(keys []wheel.Key, an Analysis, rng Source) Score {
	n := an.N
	post := make(map[wheel.Key]float64, len(wheel.Keys))
	var total float64
	for _, k := range wheel.Keys {
		prior := wheel.Expected(k) / 100
		var likelihood float64
		for i, w := range Windows {
			wl := min(w, n)
			likelihood += float64(an.Window[w][k]) / float64(max(wl, 1)) * bayesWeights[i]
		}
		gapBonus := math.Min(an.GapScore[k]*0.14, 0.18)
		post[k] = math.Max(0.001, prior*0.3+likelihood*0.35+gapBonus)
		total += post[k]
	}
	if total == 0 {
		total = 1
	}

	sc := make(map[wheel.Key]float64, len(wheel.Keys))
	for _, k := range wheel.Keys {
		sc[k] = post[k] / total * 100
	}
	top := argmax(sc)
	conf := min(93, round(56+sc[top]*0.63+rng.Float64()*4))
	return Score{
		Top:        top,
		Confidence: conf,
		Scores:     sc,
		Reason: fmt.Sprintf("Bayes: %s posterior=%.1f%% (gap x%.1f).",
			wheel.Label(top), sc[top], an.GapScore[top]),
	}
}

var ensembleWeights = []float64{0.35, 0.38, 0.27}

// Ensemble combines scorer outputs by weighted score sum and boosts the
// averaged confidence when scorers agree: +8 when all pick the winner, +4
// when at least two do, capped at 98.
func Ensemble(scores []Score) Score {
	if len(scores) == 0 {
		return Score{Top: wheel.Key1, Scores: map[wheel.Key]float64{}, Reason: "No scorers."}
	}

	sc := make(map[wheel.Key]float64, len(wheel.Keys))
	for _, k := range wheel.Keys {
		for i, s := range scores {
			weight := 0.33
			if i < len(ensembleWeights) {
				weight = ensembleWeights[i]
			}
			sc[k] += s.Scores[k] * weight
		}
	}
	top := argmax(sc)

	votes, confSum := 0, 0
	for _, s := range scores {
		if s.Top == top {
			votes++
		}
		confSum += s.Confidence
	}
	base := round(float64(confSum) / float64(len(scores)))

	conf, verdict := base, "Split"
	switch {
	case votes == len(scores):
		conf, verdict = base+8, "All agree"
	case votes >= 2:
		conf, verdict = base+4, fmt.Sprintf("%d/%d agree", votes, len(scores))
	}
	conf = min(98, conf)

	return Score{
		Top:        top,
		Confidence: conf,
		Scores:     sc,
		Reason:     fmt.Sprintf("%s. %s at %d%%.", verdict, wheel.Label(top), conf),
	}
}

// weightedPick draws one key with probability proportional to w, walking
// wheel.Keys cumulatively. A zero total returns the first key.
func weightedPick(w map[wheel.Key]float64, rng Source) wheel.Key {
	var total float64
	for _, k := range wheel.Keys {
		total += w[k]
	}
	if total == 0 {
		return wheel.Keys[0]
	}
	r := rng.Float64() * total
	for _, k := range wheel.Keys {
		r -= w[k]
		if r <= 0 {
			return k
		}
	}
	return wheel.Keys[len(wheel.Keys)-1]
}

// argmax returns the highest-scoring key; ties go to the earlier key.
func argmax(sc map[wheel.Key]float64) wheel.Key {
	best := wheel.Keys[0]
	for _, k := range wheel.Keys[1:] {
		if sc[k] > sc[best] {
			best = k
		}
	}
	return best
}

// round rounds half up, matching how confidences have always been shown.
func round(x float64) int {
	return int(math.Floor(x + 0.5))
}
