package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramshi122/crazy-time-predictor/internal/config"
	"github.com/ramshi122/crazy-time-predictor/internal/consensus"
	"github.com/ramshi122/crazy-time-predictor/internal/predictor"
	"github.com/ramshi122/crazy-time-predictor/internal/wheel"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testRound(id string, at time.Time, top wheel.Key) *predictor.Round {
	box := func(s predictor.Slot, k wheel.Key, src string) predictor.Box {
		return predictor.Box{Slot: s, Key: k, Label: wheel.Label(k), Bonus: wheel.IsBonus(k),
			Confidence: 80, Display: 80, Source: src}
	}
	return &predictor.Round{
		ID:         id,
		StartedAt:  at,
		FinishedAt: at.Add(time.Second),
		DataSource: predictor.DataLive,
		FeedSource: "tracksino",
		SpinCount:  60,
		Status:     predictor.StatusLive,
		Boxes: map[predictor.Slot]predictor.Box{
			predictor.SlotClaude:   box(predictor.SlotClaude, top, "claude"),
			predictor.SlotGPT:      box(predictor.SlotGPT, top, "gpt"),
			predictor.SlotGemini:   box(predictor.SlotGemini, wheel.Key1, predictor.SourceStatistical),
			predictor.SlotEnsemble: box(predictor.SlotEnsemble, top, predictor.SourceEnsemble),
		},
		Ensemble: &consensus.Result{Key: top, Agreement: consensus.Unanimous},
	}
}

func TestSummarize(t *testing.T) {
	got := Summarize(testRound("r1", base, wheel.Pachinko))
	want := Summary{
		ID:            "r1",
		StartedAt:     base,
		DataSource:    "live",
		FeedSource:    "tracksino",
		Status:        "live",
		Prediction:    "Pachinko",
		Confidence:    80,
		Agreement:     "unanimous",
		SpinCount:     60,
		ProvidersLive: 2,
		Bonus:         true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Summarize mismatch (-want +got):\n%s", diff)
	}
}

func exerciseRecorder(t *testing.T, rec Recorder) {
	t.Helper()
	ctx := context.Background()

	for i, k := range []wheel.Key{wheel.Key1, wheel.Key2, wheel.Pachinko} {
		at := base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, rec.Record(ctx, testRound("r"+string(rune('a'+i)), at, k)))
	}
	// Recording the same round twice is not an error.
	require.NoError(t, rec.Record(ctx, testRound("ra", base, wheel.Key1)))

	got, err := rec.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "rc", got[0].ID)
	assert.Equal(t, "Pachinko", got[0].Prediction)
	assert.True(t, got[0].Bonus)
	assert.True(t, got[0].StartedAt.Equal(base.Add(2*time.Hour)))
	assert.Equal(t, "rb", got[1].ID)
	assert.False(t, got[1].Bonus)

	n, err := rec.Prune(ctx, base.Add(90*time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	got, err = rec.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "rc", got[0].ID)
}

func TestSQLiteRecorder(t *testing.T) {
	rec, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "data", "rounds.db"))
	require.NoError(t, err)
	t.Cleanup(func() { rec.Close() })

	exerciseRecorder(t, rec)
}

func TestOpenBackends(t *testing.T) {
	ctx := context.Background()

	rec, err := Open(ctx, config.StorageConfig{Backend: "none"})
	require.NoError(t, err)
	assert.IsType(t, Nop{}, rec)
	got, err := rec.Recent(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, got)

	rec, err = Open(ctx, config.StorageConfig{Backend: "sqlite", Path: filepath.Join(t.TempDir(), "h.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, rec)
	require.NoError(t, rec.Close())

	t.Setenv("CTP_TEST_DSN", "")
	_, err = Open(ctx, config.StorageConfig{Backend: "postgres", DSNEnv: "CTP_TEST_DSN"})
	assert.ErrorContains(t, err, "CTP_TEST_DSN is not set")

	_, err = Open(ctx, config.StorageConfig{Backend: "mongo"})
	assert.ErrorContains(t, err, "unknown backend")
}
