package consensus

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramshi122/crazy-time-predictor/internal/llm"
	"github.com/ramshi122/crazy-time-predictor/internal/wheel"
)

func TestCombine(t *testing.T) {
	cases := []struct {
		name  string
		preds []llm.Prediction
		want  Result
	}{
		{
			name: "unanimous",
			preds: []llm.Prediction{
				{Prediction: "Pachinko", Confidence: 80, Hot: "2", Due: "10", Cold: "Coin Flip"},
				{Prediction: "pachinko", Confidence: 84},
				{Prediction: "PACHINKO", Confidence: 82},
			},
			want: Result{
				Key: wheel.Pachinko, Prediction: "Pachinko", Confidence: 90, Votes: 3,
				Reason: "All AIs agree on this prediction", Agreement: Unanimous,
				Hot: "2", Due: "10", Cold: "Coin Flip",
			},
		},
		{
			name: "unanimous caps at 98",
			preds: []llm.Prediction{
				{Prediction: "1", Confidence: 95},
				{Prediction: "one", Confidence: 97},
			},
			want: Result{
				Key: wheel.Key1, Prediction: "1", Confidence: 98, Votes: 2,
				Reason: "All AIs agree on this prediction", Agreement: Unanimous,
				Hot: "1", Due: "5", Cold: "Crazy Time",
			},
		},
		{
			name: "majority with missing confidence",
			preds: []llm.Prediction{
				{Prediction: "5", Confidence: 0},
				{Prediction: "2", Confidence: 70},
				{Prediction: "x5", Confidence: 80},
			},
			want: Result{
				Key: wheel.Key5, Prediction: "5", Confidence: 79, Votes: 2,
				Reason: "2/3 AIs agree", Agreement: Majority,
				Hot: "1", Due: "5", Cold: "Crazy Time",
			},
		},
		{
			name: "majority caps at 95",
			preds: []llm.Prediction{
				{Prediction: "10", Confidence: 93},
				{Prediction: "10", Confidence: 93},
				{Prediction: "2", Confidence: 93},
			},
			want: Result{
				Key: wheel.Key10, Prediction: "10", Confidence: 95, Votes: 2,
				Reason: "2/3 AIs agree", Agreement: Majority,
				Hot: "1", Due: "5", Cold: "Crazy Time",
			},
		},
		{
			name: "split prefers number segments",
			preds: []llm.Prediction{
				{Prediction: "Pachinko", Confidence: 70},
				{Prediction: "1", Confidence: 71},
				{Prediction: "5", Confidence: 73},
			},
			want: Result{
				Key: wheel.Key1, Prediction: "1", Confidence: 71, Votes: 1,
				Reason: "Split decision - combined analysis", Agreement: Split,
				Hot: "1", Due: "5", Cold: "Crazy Time",
			},
		},
		{
			name: "split keeps first seen bonus",
			preds: []llm.Prediction{
				{Prediction: "Coin Flip", Confidence: 70},
				{Prediction: "Cash Hunt", Confidence: 71},
				{Prediction: "Crazy Time", Confidence: 73},
			},
			want: Result{
				Key: wheel.CoinFlip, Prediction: "Coin Flip", Confidence: 71, Votes: 1,
				Reason: "Split decision - combined analysis", Agreement: Split,
				Hot: "1", Due: "5", Cold: "Crazy Time",
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Combine(tc.preds)
			require.NoError(t, err)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Combine mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCombine_EntriesWithoutPrediction(t *testing.T) {
	got, err := Combine([]llm.Prediction{
		{Prediction: "Pachinko", Confidence: 80},
		{Confidence: 60},
		{Prediction: "pachinko", Confidence: 70},
	})
	require.NoError(t, err)
	assert.Equal(t, wheel.Pachinko, got.Key)
	assert.Equal(t, Majority, got.Agreement)
	assert.Equal(t, "2/3 AIs agree", got.Reason)
	assert.Equal(t, 74, got.Confidence)

	_, err = Combine([]llm.Prediction{{Confidence: 80}, {}})
	require.ErrorIs(t, err, ErrNoVotes)
}

func TestCombine_TooFew(t *testing.T) {
	_, err := Combine(nil)
	require.ErrorIs(t, err, ErrTooFewPredictions)
	_, err = Combine([]llm.Prediction{{Prediction: "1"}})
	require.ErrorIs(t, err, ErrTooFewPredictions)
}

func TestTally(t *testing.T) {
	got := Tally([]wheel.Key{wheel.Key2, wheel.Key1, wheel.Key1, wheel.Key2, wheel.Key5, "", "bogus"})
	want := []Vote{
		{Key: wheel.Key1, Label: "1", Count: 2, Winner: true},
		{Key: wheel.Key2, Label: "2", Count: 2, Winner: true},
		{Key: wheel.Key5, Label: "5", Count: 1},
	}
	assert.Equal(t, want, got)
}

func TestTally_TieOrder(t *testing.T) {
	got := Tally([]wheel.Key{wheel.CashHunt, wheel.Key10, wheel.Pachinko, wheel.Key5, wheel.Key1})
	keys := make([]wheel.Key, len(got))
	for i, v := range got {
		keys[i] = v.Key
		assert.True(t, v.Winner)
	}
	assert.Equal(t, []wheel.Key{wheel.Key1, wheel.Key5, wheel.Key10, wheel.CashHunt, wheel.Pachinko}, keys)
}

func TestTally_Empty(t *testing.T) {
	assert.Nil(t, Tally(nil))
	assert.Nil(t, Tally([]wheel.Key{""}))
}
