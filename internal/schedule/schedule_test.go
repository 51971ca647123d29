package schedule

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ramshi122/crazy-time-predictor/internal/config"
	"github.com/ramshi122/crazy-time-predictor/internal/predictor"
)

type fakePredictor struct {
	runs atomic.Int64
	busy atomic.Bool
	err  error
}

func (f *fakePredictor) Run(context.Context) (*predictor.Round, error) {
	n := f.runs.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &predictor.Round{ID: "r" + string(rune('0'+n))}, nil
}

func (f *fakePredictor) Busy() bool { return f.busy.Load() }

func TestRunnerFansOut(t *testing.T) {
	var (
		mu  sync.Mutex
		got []string
	)
	sink := func(name string) Sink {
		return func(_ context.Context, r *predictor.Round) {
			mu.Lock()
			got = append(got, name+":"+r.ID)
			mu.Unlock()
		}
	}
	r := NewRunner(&fakePredictor{}, sink("store"), sink("hub"))

	round, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "r1", round.ID)
	assert.Equal(t, []string{"store:r1", "hub:r1"}, got)
}

func TestRunnerPassesErrors(t *testing.T) {
	called := false
	r := NewRunner(&fakePredictor{err: predictor.ErrBusy}, func(context.Context, *predictor.Round) { called = true })

	_, err := r.Run(context.Background())
	assert.ErrorIs(t, err, predictor.ErrBusy)
	assert.False(t, called)
}

func TestTickRespectsToggleAndBusy(t *testing.T) {
	p := &fakePredictor{}
	s := New(config.ScheduleConfig{Enabled: false, Interval: time.Minute}, NewRunner(p))

	s.tick()
	assert.Zero(t, p.runs.Load())

	assert.True(t, s.Toggle())
	assert.True(t, s.Enabled())
	s.tick()
	assert.EqualValues(t, 1, p.runs.Load())

	p.busy.Store(true)
	s.tick()
	assert.EqualValues(t, 1, p.runs.Load())

	assert.False(t, s.Toggle())
}

func TestTickLogsFailures(t *testing.T) {
	p := &fakePredictor{err: errors.New("boom")}
	s := New(config.ScheduleConfig{Enabled: true}, NewRunner(p))
	assert.Equal(t, config.DefaultInterval, s.Interval())

	s.tick()
	assert.EqualValues(t, 1, p.runs.Load())
}

func TestSchedulerRunsOnInterval(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	p := &fakePredictor{}
	var sunk atomic.Int64
	s := New(config.ScheduleConfig{Enabled: true, Interval: 20 * time.Millisecond},
		NewRunner(p, func(context.Context, *predictor.Round) { sunk.Add(1) }))

	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.NextRun().IsZero())

	require.Eventually(t, func() bool { return sunk.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	s.Stop()
}

func TestStartRunsOneRoundWhileDisabled(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	p := &fakePredictor{}
	s := New(config.ScheduleConfig{Enabled: false, Interval: time.Hour}, NewRunner(p))
	require.NoError(t, s.Start(context.Background()))

	require.Eventually(t, func() bool { return p.runs.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 1, p.runs.Load())
	s.Stop()
}
