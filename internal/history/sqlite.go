package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ramshi122/crazy-time-predictor/internal/predictor"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS rounds (
    id             TEXT PRIMARY KEY,
    started_at     INTEGER NOT NULL,
    data_source    TEXT NOT NULL,
    feed_source    TEXT NOT NULL DEFAULT '',
    status         TEXT NOT NULL,
    prediction     TEXT NOT NULL DEFAULT '',
    confidence     INTEGER NOT NULL DEFAULT 0,
    agreement      TEXT NOT NULL DEFAULT '',
    spin_count     INTEGER NOT NULL DEFAULT 0,
    providers_live INTEGER NOT NULL DEFAULT 0,
    bonus          INTEGER NOT NULL DEFAULT 0,
    payload        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS rounds_started_at_idx ON rounds (started_at DESC);
`

// SQLite stores rounds in a local database file. started_at is kept as
// unix nanoseconds.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and ensures
// the schema exists.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("history: create dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: create schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Record(ctx context.Context, r *predictor.Round) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("history: encode round: %w", err)
	}
	sum := Summarize(r)
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO rounds
			(id, started_at, data_source, feed_source, status, prediction,
			 confidence, agreement, spin_count, providers_live, bonus, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.ID, sum.StartedAt.UnixNano(), sum.DataSource, sum.FeedSource, sum.Status,
		sum.Prediction, sum.Confidence, sum.Agreement, sum.SpinCount,
		sum.ProvidersLive, sum.Bonus, string(payload))
	if err != nil {
		return fmt.Errorf("history: insert round: %w", err)
	}
	return nil
}

func (s *SQLite) Recent(ctx context.Context, limit int) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, data_source, feed_source, status, prediction,
		       confidence, agreement, spin_count, providers_live, bonus
		FROM rounds ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query rounds: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum   Summary
			nanos int64
		)
		if err := rows.Scan(&sum.ID, &nanos, &sum.DataSource, &sum.FeedSource,
			&sum.Status, &sum.Prediction, &sum.Confidence, &sum.Agreement,
			&sum.SpinCount, &sum.ProvidersLive, &sum.Bonus); err != nil {
			return nil, fmt.Errorf("history: scan round: %w", err)
		}
		sum.StartedAt = time.Unix(0, nanos).UTC()
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *SQLite) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rounds WHERE started_at < ?`, before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("history: prune: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLite) Close() error { return s.db.Close() }
