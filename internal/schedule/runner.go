package schedule

import (
	"context"

	"github.com/ramshi122/crazy-time-predictor/internal/predictor"
)

// Predictor runs one round.
type Predictor interface {
	Run(ctx context.Context) (*predictor.Round, error)
	Busy() bool
}

// Sink receives every finished round.
type Sink func(ctx context.Context, r *predictor.Round)

// Runner runs a round and hands it to every sink in order. Both the
// scheduler and on-demand requests go through the same Runner.
type Runner struct {
	pred  Predictor
	sinks []Sink
}

// NewRunner creates a Runner.
func NewRunner(p Predictor, sinks ...Sink) *Runner {
	return &Runner{pred: p, sinks: sinks}
}

// Run executes one round. predictor.ErrBusy is returned unchanged.
func (r *Runner) Run(ctx context.Context) (*predictor.Round, error) {
	round, err := r.pred.Run(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range r.sinks {
		s(ctx, round)
	}
	return round, nil
}

// Busy reports whether a round is in progress.
func (r *Runner) Busy() bool { return r.pred.Busy() }
