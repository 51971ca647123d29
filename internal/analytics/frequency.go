package analytics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ramshi122/crazy-time-predictor/internal/wheel"
)

// Frequency tags.
const (
	TagHot  = "HOT"
	TagCold = "COLD"
	TagDue  = "DUE"
)

// Row is one line of the frequency table.
type Row struct {
	Key     wheel.Key `json:"key"`
	Label   string    `json:"label"`
	Count   int       `json:"count"`
	Percent int       `json:"percent"`
	Gap     int       `json:"gap"`
	Tag     string    `json:"tag,omitempty"`
}

// Frequency tabulates keys per segment, tagged HOT when well above the
// expected share, COLD when well below, DUE when absent for longer than
// 1.3 expected return periods. Rows are sorted by count, descending.
func Frequency(keys []wheel.Key) []Row {
	an := Build(keys)
	rows := make([]Row, 0, len(wheel.Keys))
	for _, k := range wheel.Keys {
		exp := wheel.Expected(k)
		pct := round(float64(an.Count[k]) / float64(max(an.N, 1)) * 100)
		period := float64(round(100 / exp))

		var tag string
		switch {
		case float64(pct) > exp*1.35:
			tag = TagHot
		case float64(pct) < exp*0.55:
			tag = TagCold
		case float64(an.Gap[k]) > period*1.3:
			tag = TagDue
		}
		rows = append(rows, Row{
			Key:     k,
			Label:   wheel.Label(k),
			Count:   an.Count[k],
			Percent: pct,
			Gap:     an.Gap[k],
			Tag:     tag,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Count > rows[j].Count })
	return rows
}

// RecentLine renders the newest n keys as labels, e.g. "1, 2, Pachinko".
func RecentLine(keys []wheel.Key, n int) string {
	n = max(0, min(n, len(keys)))
	labels := make([]string, n)
	for i := 0; i < n; i++ {
		labels[i] = wheel.Label(keys[i])
	}
	return strings.Join(labels, ", ")
}

// FrequencyLine renders per-key counts over the whole history, e.g.
// "1:20/60, 2:15/60, ...".
func FrequencyLine(keys []wheel.Key) string {
	an := Build(keys)
	parts := make([]string, len(wheel.Keys))
	for i, k := range wheel.Keys {
		parts[i] = fmt.Sprintf("%s:%d/%d", wheel.Label(k), an.Count[k], an.N)
	}
	return strings.Join(parts, ", ")
}

// Mock returns n synthetic outcomes drawn from the nominal wheel weights.
func Mock(n int, rng Source) []wheel.Key {
	w := make(map[wheel.Key]float64, len(wheel.Keys))
	for _, k := range wheel.Keys {
		w[k] = wheel.Expected(k)
	}
	out := make([]wheel.Key, n)
	for i := range out {
		out[i] = weightedPick(w, rng)
	}
	return out
}
