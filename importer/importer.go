// Package importer copies a published dataset into Postgres so the dashboard
// can be served from the database source.
package importer

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/dickeyy/bundle-dashboard/dashboard"
	"github.com/dickeyy/bundle-dashboard/types"
	"github.com/rs/zerolog/log"
)

// InsertFunc stores one measurement; db.InsertMeasurement in production.
type InsertFunc func(ctx context.Context, rec types.MeasurementRecord) error

type result struct {
	rec types.MeasurementRecord
	err error
}

// Summary counts what a Run did.
type Summary struct {
	Total    int
	Inserted int64
	Errors   int64
}

// Run loads the dataset once and upserts every record with concurrency
// workers, logging progress periodically. A failed insert is logged and
// counted; it does not stop the run.
func Run(ctx context.Context, loader dashboard.Loader, insert InsertFunc, concurrency int) (Summary, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	records, err := loader.Load(ctx)
	if err != nil {
		return Summary{}, err
	}

	total := len(records)
	log.Info().Int("total_records", total).Msg("ready to import measurements")
	if total == 0 {
		return Summary{}, nil
	}

	jobs := make(chan types.MeasurementRecord)
	results := make(chan result, total)
	var inserted atomic.Int64
	var errs atomic.Int64

	// Workers
	for w := 0; w < concurrency; w++ {
		go func() {
			for rec := range jobs {
				results <- result{rec: rec, err: insert(ctx, rec)}
			}
		}()
	}

	// Dispatch jobs
	go func() {
		defer close(jobs)
		for _, rec := range records {
			select {
			case <-ctx.Done():
				return
			case jobs <- rec:
			}
		}
	}()

	done := make(chan struct{})
	defer close(done)

	// Periodic progress logger
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				i := inserted.Load()
				e := errs.Load()
				log.Info().
					Int("total", total).
					Int64("inserted", i).
					Int64("errors", e).
					Int64("remaining", int64(total)-i-e).
					Msg("import progress")
			}
		}
	}()

	// Consume results
	for i := 0; i < total; i++ {
		select {
		case <-ctx.Done():
			return Summary{Total: total, Inserted: inserted.Load(), Errors: errs.Load()}, ctx.Err()
		case res := <-results:
			if res.err != nil {
				errs.Add(1)
				log.Error().Time("timestamp", res.rec.Timestamp).Str("commit_sha", res.rec.CommitSHA).Err(res.err).Msg("failed to import measurement")
				continue
			}
			inserted.Add(1)
		}
	}

	summary := Summary{Total: total, Inserted: inserted.Load(), Errors: errs.Load()}
	log.Info().
		Int("total", summary.Total).
		Int64("inserted", summary.Inserted).
		Int64("errors", summary.Errors).
		Msg("completed import")
	return summary, nil
}
