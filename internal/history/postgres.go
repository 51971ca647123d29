package history

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/ramshi122/crazy-time-predictor/internal/predictor"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies every pending migration to the database at dsn.
func Migrate(dsn string) error {
	m, err := newMigrate(dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			zap.L().Debug("history: schema up to date")
			return nil
		}
		return fmt.Errorf("history: migrate up: %w", err)
	}
	version, _, _ := m.Version()
	zap.L().Info("history: migrated", zap.Uint("version", version))
	return nil
}

func newMigrate(dsn string) (*migrate.Migrate, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("history: parse dsn: %w", err)
	}
	db := stdlib.OpenDB(*cfg.ConnConfig)

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("history: migrate driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("history: migrate source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("history: migrate: %w", err)
	}
	return m, nil
}

// Postgres stores rounds in PostgreSQL. The schema must already be migrated.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects a pool to dsn and pings it.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("history: parse dsn: %w", err)
	}
	cfg.ConnConfig.RuntimeParams["timezone"] = "UTC"

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("history: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Record(ctx context.Context, r *predictor.Round) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("history: encode round: %w", err)
	}
	sum := Summarize(r)
	_, err = p.pool.Exec(ctx, `
		INSERT INTO rounds
			(id, started_at, data_source, feed_source, status, prediction,
			 confidence, agreement, spin_count, providers_live, bonus, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload`,
		sum.ID, sum.StartedAt, sum.DataSource, sum.FeedSource, sum.Status,
		sum.Prediction, sum.Confidence, sum.Agreement, sum.SpinCount,
		sum.ProvidersLive, sum.Bonus, payload)
	if err != nil {
		return fmt.Errorf("history: insert round: %w", err)
	}
	return nil
}

func (p *Postgres) Recent(ctx context.Context, limit int) ([]Summary, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, started_at, data_source, feed_source, status, prediction,
		       confidence, agreement, spin_count, providers_live, bonus
		FROM rounds ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query rounds: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.ID, &sum.StartedAt, &sum.DataSource, &sum.FeedSource,
			&sum.Status, &sum.Prediction, &sum.Confidence, &sum.Agreement,
			&sum.SpinCount, &sum.ProvidersLive, &sum.Bonus); err != nil {
			return nil, fmt.Errorf("history: scan round: %w", err)
		}
		sum.StartedAt = sum.StartedAt.UTC()
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (p *Postgres) Prune(ctx context.Context, before time.Time) (int64, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM rounds WHERE started_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("history: prune: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
