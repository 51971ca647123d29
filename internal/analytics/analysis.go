package analytics

import (
	"math"

	"github.com/ramshi122/crazy-time-predictor/internal/wheel"
)

// Windows are the recent-history window sizes tracked by Build.
var Windows = []int{3, 5, 10, 20, 50}

// Analysis summarises a newest-first history.
type Analysis struct {
	N     int
	Count map[wheel.Key]int

	// Gap is the index of the newest occurrence, N when absent.
	Gap map[wheel.Key]int

	// Window maps each size in Windows to per-key counts over the newest
	// min(size, N) outcomes.
	Window map[int]map[wheel.Key]int

	// Dev is the relative shortfall against the expected count:
	// (expected-count)/max(expected,1).
	Dev map[wheel.Key]float64

	// GapScore is the gap measured in expected return periods.
	GapScore map[wheel.Key]float64

	Hot  wheel.Key
	Due  wheel.Key
	Cold wheel.Key
}

// Build computes the Analysis of keys. Keys outside wheel.Keys are ignored
// in counts but still occupy a position.
func Build(keys []wheel.Key) Analysis {
	n := len(keys)
	an := Analysis{
		N:        n,
		Count:    make(map[wheel.Key]int, len(wheel.Keys)),
		Gap:      make(map[wheel.Key]int, len(wheel.Keys)),
		Window:   make(map[int]map[wheel.Key]int, len(Windows)),
		Dev:      make(map[wheel.Key]float64, len(wheel.Keys)),
		GapScore: make(map[wheel.Key]float64, len(wheel.Keys)),
	}
	for _, k := range wheel.Keys {
		an.Count[k] = 0
		an.Gap[k] = n
	}

	found := make(map[wheel.Key]bool, len(wheel.Keys))
	for i, k := range keys {
		if !k.Valid() {
			continue
		}
		an.Count[k]++
		if !found[k] {
			an.Gap[k] = i
			found[k] = true
		}
	}

	for _, w := range Windows {
		wc := make(map[wheel.Key]int, len(wheel.Keys))
		for _, k := range wheel.Keys {
			wc[k] = 0
		}
		for _, k := range keys[:min(w, n)] {
			if k.Valid() {
				wc[k]++
			}
		}
		an.Window[w] = wc
	}

	for _, k := range wheel.Keys {
		exp := wheel.Expected(k)
		e := exp / 100 * float64(n)
		an.Dev[k] = (e - float64(an.Count[k])) / math.Max(e, 1)
		an.GapScore[k] = float64(an.Gap[k]) / math.Max(100/exp, 1)
	}

	an.Hot, an.Due, an.Cold = wheel.Keys[0], wheel.Keys[0], wheel.Keys[0]
	for _, k := range wheel.Keys {
		if an.Count[k] > an.Count[an.Hot] {
			an.Hot = k
		}
		if an.GapScore[k] > an.GapScore[an.Due] {
			an.Due = k
		}
		if an.Count[k] < an.Count[an.Cold] {
			an.Cold = k
		}
	}
	return an
}
