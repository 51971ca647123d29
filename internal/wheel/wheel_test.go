package wheel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want Key
	}{
		{"1", Key1},
		{" One ", Key1},
		{"x2", Key2},
		{"two", Key2},
		{"5", Key5},
		{"X10", Key10},
		{"ten", Key10},
		{"Pachinko", Pachinko},
		{"pachinko_bonus", Pachinko},
		{"Cash Hunt", CashHunt},
		{"cashhunt", CashHunt},
		{"Coin Flip", CoinFlip},
		{"coinflip", CoinFlip},
		{"flip", CoinFlip},
		{"Crazy Time", CrazyTime},
		{"crazytime", CrazyTime},
		{"TIME", CrazyTime},
		{"10x", Key1},
		{"2 (x2)", Key2},
		{"50", Key5},
		{"", Key1},
		{"garbage", Key1},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.in))
		})
	}
}

func TestNormalize_Total(t *testing.T) {
	for _, in := range []string{"", "?", "xxx", "🎰", "-1", "0"} {
		assert.True(t, Normalize(in).Valid(), "Normalize(%q) returned invalid key", in)
	}
}

// The nominal table totals 101 and is used as published.
func TestExpectedTable(t *testing.T) {
	var total float64
	for _, k := range Keys {
		assert.Positive(t, Expected(k), k)
		total += Expected(k)
	}
	assert.InDelta(t, 101.0, total, 1e-9)
	assert.Equal(t, 44.0, Expected(Key1))
	assert.Equal(t, 1.0, Expected(CrazyTime))
}

func TestLookup(t *testing.T) {
	assert.Equal(t, "Cash Hunt", Label(CashHunt))
	assert.True(t, IsBonus(CrazyTime))
	assert.False(t, IsBonus(Key10))
	assert.Equal(t, Key1, Lookup("nope").Key)
}

func TestNormalizeAll(t *testing.T) {
	got := NormalizeAll([]string{"1", "Coin Flip", "x10"})
	assert.Equal(t, []Key{Key1, CoinFlip, Key10}, got)
}
