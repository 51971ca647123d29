package history

import (
	"context"
	"fmt"
	"time"

	"github.com/ramshi122/crazy-time-predictor/internal/config"
	"github.com/ramshi122/crazy-time-predictor/internal/predictor"
)

// Summary is the stored digest of one round.
type Summary struct {
	ID            string    `json:"id"`
	StartedAt     time.Time `json:"started_at"`
	DataSource    string    `json:"data_source"`
	FeedSource    string    `json:"feed_source,omitempty"`
	Status        string    `json:"status"`
	Prediction    string    `json:"prediction"`
	Confidence    int       `json:"confidence"`
	Agreement     string    `json:"agreement,omitempty"`
	SpinCount     int       `json:"spin_count"`
	ProvidersLive int       `json:"providers_live"`
	Bonus         bool      `json:"bonus"`
}

// Summarize reduces r to its stored digest. Prediction and Confidence come
// from the ensemble box.
func Summarize(r *predictor.Round) Summary {
	ens := r.Boxes[predictor.SlotEnsemble]
	return Summary{
		ID:            r.ID,
		StartedAt:     r.StartedAt.UTC(),
		DataSource:    r.DataSource,
		FeedSource:    r.FeedSource,
		Status:        r.Status,
		Prediction:    ens.Label,
		Confidence:    ens.Display,
		Agreement:     r.Agreement(),
		SpinCount:     r.SpinCount,
		ProvidersLive: r.ProvidersLive(),
		Bonus:         r.AnyBonus(),
	}
}

// Recorder persists finished rounds.
type Recorder interface {
	Record(ctx context.Context, r *predictor.Round) error
	// Recent returns up to limit summaries, newest first.
	Recent(ctx context.Context, limit int) ([]Summary, error)
	// Prune deletes rounds started before the cutoff and reports how many.
	Prune(ctx context.Context, before time.Time) (int64, error)
	Close() error
}

// Open returns the recorder selected by cfg.Backend. The postgres backend
// applies pending migrations before returning.
func Open(ctx context.Context, cfg config.StorageConfig) (Recorder, error) {
	switch cfg.Backend {
	case "", "none":
		return Nop{}, nil
	case "sqlite":
		return OpenSQLite(ctx, cfg.Path)
	case "postgres":
		dsn := cfg.DSN()
		if dsn == "" {
			return nil, fmt.Errorf("history: %s is not set", cfg.DSNEnv)
		}
		if err := Migrate(dsn); err != nil {
			return nil, err
		}
		return OpenPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("history: unknown backend %q", cfg.Backend)
	}
}

// Nop discards everything.
type Nop struct{}

func (Nop) Record(context.Context, *predictor.Round) error { return nil }
func (Nop) Recent(context.Context, int) ([]Summary, error) { return nil, nil }
func (Nop) Prune(context.Context, time.Time) (int64, error) { return 0, nil }
func (Nop) Close() error { return nil }
