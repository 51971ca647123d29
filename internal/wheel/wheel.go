package wheel

import "strings"

// Key is the canonical name of one wheel segment.
type Key string

const (
	Key1      Key = "1"
	Key2      Key = "2"
	Key5      Key = "5"
	Key10     Key = "10"
	Pachinko  Key = "pachinko"
	CashHunt  Key = "cashhunt"
	CoinFlip  Key = "coinflip"
	CrazyTime Key = "crazytime"
)

// Keys lists every segment in canonical order. Tie-breaks throughout the
// module resolve to the key that appears first here.
var Keys = []Key{Key1, Key2, Key5, Key10, Pachinko, CashHunt, CoinFlip, CrazyTime}

// Segment is the static description of one wheel outcome.
type Segment struct {
	Key   Key
	Label string
	Icon  string
	Bonus bool

	// ExpectedPct is the nominal share of the wheel in percent.
	ExpectedPct float64
}

var segments = map[Key]Segment{
	Key1:      {Key: Key1, Label: "1", Icon: "1", ExpectedPct: 44},
	Key2:      {Key: Key2, Label: "2", Icon: "2", ExpectedPct: 27},
	Key5:      {Key: Key5, Label: "5", Icon: "5", ExpectedPct: 15},
	Key10:     {Key: Key10, Label: "10", Icon: "10", ExpectedPct: 8},
	Pachinko:  {Key: Pachinko, Label: "Pachinko", Icon: "🎯", Bonus: true, ExpectedPct: 2},
	CashHunt:  {Key: CashHunt, Label: "Cash Hunt", Icon: "💰", Bonus: true, ExpectedPct: 2},
	CoinFlip:  {Key: CoinFlip, Label: "Coin Flip", Icon: "🪙", Bonus: true, ExpectedPct: 2},
	CrazyTime: {Key: CrazyTime, Label: "Crazy Time", Icon: "🎰", Bonus: true, ExpectedPct: 1},
}

// Lookup returns the segment for k. Unknown keys resolve to Key1.
func Lookup(k Key) Segment {
	if s, ok := segments[k]; ok {
		return s
	}
	return segments[Key1]
}

// Label returns the display label for k.
func Label(k Key) string { return Lookup(k).Label }

// IsBonus reports whether k triggers a bonus round.
func IsBonus(k Key) bool { return Lookup(k).Bonus }

// Expected returns the nominal percentage for k.
func Expected(k Key) float64 { return Lookup(k).ExpectedPct }

// Valid reports whether k is one of Keys.
func (k Key) Valid() bool {
	_, ok := segments[k]
	return ok
}

func (k Key) String() string { return string(k) }

// Normalize maps an upstream or model-produced outcome string onto a Key.
func Normalize(raw string) Key {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "x")

	switch s {
	case "1", "one":
		return Key1
	case "2", "two":
		return Key2
	case "5", "five":
		return Key5
	case "10", "ten":
		return Key10
	}

	switch {
	case strings.Contains(s, "pachinko"):
		return Pachinko
	case strings.Contains(s, "cash"):
		return CashHunt
	case strings.Contains(s, "coin"), strings.Contains(s, "flip"):
		return CoinFlip
	case strings.Contains(s, "crazy"), strings.Contains(s, "time"):
		return CrazyTime
	}

	switch {
	case strings.HasPrefix(s, "1"):
		return Key1
	case strings.HasPrefix(s, "2"):
		return Key2
	case strings.HasPrefix(s, "5"):
		return Key5
	}
	return Key1
}

// NormalizeAll maps each raw string through Normalize, preserving order.
func NormalizeAll(raw []string) []Key {
	out := make([]Key, len(raw))
	for i, r := range raw {
		out[i] = Normalize(r)
	}
	return out
}
