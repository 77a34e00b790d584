package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SequenceRepository issues per-day ticket sequence numbers. The counter
// row is created lazily on the first ticket of the day and only ever
// increments.
type SequenceRepository interface {
	// Next atomically increments the counter for the given day key
	// (YYYY-MM-DD in the business timezone) and returns the new value.
	Next(ctx context.Context, day string) (int64, error)
}

type sequenceRepository struct {
	pool *pgxpool.Pool
}

// NewSequenceRepository instantiates repository.
func NewSequenceRepository(pool *pgxpool.Pool) SequenceRepository {
	return &sequenceRepository{pool: pool}
}

func (r *sequenceRepository) Next(ctx context.Context, day string) (int64, error) {
	// Single-statement upsert so concurrent creations on the same day
	// each observe a distinct, strictly increasing value.
	const query = `
        INSERT INTO daily_sequences (day, seq) VALUES ($1, 1)
        ON CONFLICT (day) DO UPDATE SET seq = daily_sequences.seq + 1
        RETURNING seq`
	var seq int64
	if err := r.pool.QueryRow(ctx, query, day).Scan(&seq); err != nil {
		return 0, err
	}
	return seq, nil
}
