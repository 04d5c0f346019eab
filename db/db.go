package db

import (
	"context"
	"errors"

	"github.com/dickeyy/bundle-dashboard/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var (
	Pool *pgxpool.Pool
)

func Init(ctx context.Context, connString string) error {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return err
	}
	Pool = pool
	log.Info().Msg("connected to Postgres")
	return ensureSchema(ctx)
}

func ensureSchema(ctx context.Context) error {
	_, err := Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS bundle_sizes (
			recorded_at TIMESTAMPTZ NOT NULL,
			repo TEXT NOT NULL DEFAULT '',
			pr_number INTEGER NOT NULL DEFAULT 0,
			pr_url TEXT NOT NULL DEFAULT '',
			branch TEXT NOT NULL DEFAULT '',
			commit_sha TEXT NOT NULL DEFAULT '',
			android_size BIGINT,
			ios_size BIGINT,
			android_error BOOLEAN NOT NULL DEFAULT FALSE,
			ios_error BOOLEAN NOT NULL DEFAULT FALSE,
			PRIMARY KEY (recorded_at, repo, commit_sha)
		);
	`)
	return err
}

func InsertMeasurement(ctx context.Context, rec types.MeasurementRecord) error {
	_, err := Pool.Exec(ctx, `
		INSERT INTO bundle_sizes (recorded_at, repo, pr_number, pr_url, branch, commit_sha, android_size, ios_size, android_error, ios_error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (recorded_at, repo, commit_sha)
		DO UPDATE SET
			pr_number = EXCLUDED.pr_number,
			pr_url = EXCLUDED.pr_url,
			branch = EXCLUDED.branch,
			android_size = EXCLUDED.android_size,
			ios_size = EXCLUDED.ios_size,
			android_error = EXCLUDED.android_error,
			ios_error = EXCLUDED.ios_error;
	`, rec.Timestamp, rec.Repo, rec.PRNumber, rec.PRURL, rec.Branch, rec.CommitSHA,
		rec.AndroidSize, rec.IOSSize, bool(rec.AndroidError), bool(rec.IOSError))
	if err == nil {
		log.Debug().Time("recorded_at", rec.Timestamp).Str("repo", rec.Repo).Str("commit_sha", rec.CommitSHA).Msg("inserted measurement row")
	}
	return err
}

// ListMeasurements returns every stored measurement in insertion-independent
// order; callers sort for display.
func ListMeasurements(ctx context.Context) ([]types.MeasurementRecord, error) {
	rows, err := Pool.Query(ctx, `
		SELECT recorded_at, repo, pr_number, pr_url, branch, commit_sha, android_size, ios_size, android_error, ios_error
		FROM bundle_sizes
		ORDER BY recorded_at;
	`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanMeasurement)
}

func scanMeasurement(row pgx.CollectableRow) (types.MeasurementRecord, error) {
	var (
		rec                    types.MeasurementRecord
		androidError, iosError bool
	)
	err := row.Scan(&rec.Timestamp, &rec.Repo, &rec.PRNumber, &rec.PRURL, &rec.Branch, &rec.CommitSHA,
		&rec.AndroidSize, &rec.IOSSize, &androidError, &iosError)
	rec.AndroidError = types.ErrorFlag(androidError)
	rec.IOSError = types.ErrorFlag(iosError)
	return rec, err
}

// Source serves the dashboard from the bundle_sizes table.
type Source struct{}

func (Source) Load(ctx context.Context) ([]types.MeasurementRecord, error) {
	if Pool == nil {
		return nil, &types.NetworkError{Err: errors.New("Postgres pool not initialized")}
	}
	records, err := ListMeasurements(ctx)
	if err != nil {
		var scanErr pgx.ScanArgError
		if errors.As(err, &scanErr) {
			return nil, &types.ParseError{Err: err}
		}
		return nil, &types.NetworkError{Err: err}
	}
	return records, nil
}

func Close() {
	if Pool != nil {
		Pool.Close()
	}
}
