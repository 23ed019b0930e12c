package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pgpulse/pgpulse/internal/observability"
	"github.com/pgpulse/pgpulse/internal/stats"
)

// Fetcher reads single-scalar statistic values from a PostgreSQL server.
//
// FetchRaw never surfaces a failure to its caller: any error while obtaining
// a value collapses to the 0 sentinel, so a transient outage reports "no
// change" instead of corrupting the published counter stream with a spurious
// drop. The failure itself stays observable through the fetcher's own log
// line and failure metric.
type Fetcher struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewFetcher(db *sql.DB, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{db: db, logger: logger}
}

// FetchRaw returns the current raw reading for stat, or 0 on any failure.
func (f *Fetcher) FetchRaw(ctx context.Context, stat stats.Stat) float64 {
	value, err := f.queryScalar(ctx, stat.Query)
	if err != nil {
		f.logger.WarnContext(ctx, "stat fetch failed",
			slog.String("stat", stat.Key),
			slog.Any("error", err),
		)
		observability.IncrementFetchFailure(stat.Key)
		return 0
	}
	return value
}

func (f *Fetcher) queryScalar(ctx context.Context, query string) (float64, error) {
	var value sql.NullFloat64
	if err := f.db.QueryRowContext(ctx, query).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("empty result set")
		}
		return 0, fmt.Errorf("query scalar: %w", err)
	}
	if !value.Valid {
		return 0, fmt.Errorf("null result")
	}
	return value.Float64, nil
}
