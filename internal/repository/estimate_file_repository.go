package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldserve/ticket-tracker/internal/domain"
)

// EstimateFileRepository persists estimate documents owned by tickets.
// The list is append-only; only the approval state mutates.
type EstimateFileRepository interface {
	Append(ctx context.Context, ticketID string, file *domain.EstimateFile) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.EstimateFile, error)
	SetApproval(ctx context.Context, ticketID string, index int, approval domain.EstimateApproval) error
}

type estimateFileRepository struct {
	pool *pgxpool.Pool
}

// NewEstimateFileRepository instantiates repository.
func NewEstimateFileRepository(pool *pgxpool.Pool) EstimateFileRepository {
	return &estimateFileRepository{pool: pool}
}

func (r *estimateFileRepository) Append(ctx context.Context, ticketID string, file *domain.EstimateFile) error {
	// idx continues from the current tail of the ticket's list. Two
	// concurrent uploads can compute the same idx; the loser hits the
	// primary key and retries with a fresh read.
	const query = `
        INSERT INTO estimate_files (ticket_id, idx, file_name, content_type, data, approved)
        SELECT $1, COALESCE(MAX(idx) + 1, 0), $2, $3, $4, $5
        FROM estimate_files WHERE ticket_id = $1
        RETURNING idx, uploaded_at`

	var err error
	for attempt := 0; attempt < 3; attempt++ {
		err = r.pool.QueryRow(ctx, query,
			ticketID,
			file.FileName,
			file.ContentType,
			file.Data,
			file.Approved,
		).Scan(&file.Index, &file.UploadedAt)
		if !isUniqueViolation(err) {
			return err
		}
	}
	return err
}

// isUniqueViolation reports whether err is a Postgres unique or primary
// key violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *estimateFileRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.EstimateFile, error) {
	const query = `
        SELECT idx, file_name, content_type, data, approved, uploaded_at
        FROM estimate_files WHERE ticket_id=$1 ORDER BY idx`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.EstimateFile
	for rows.Next() {
		var file domain.EstimateFile
		if err := rows.Scan(
			&file.Index,
			&file.FileName,
			&file.ContentType,
			&file.Data,
			&file.Approved,
			&file.UploadedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, file)
	}
	return result, rows.Err()
}

func (r *estimateFileRepository) SetApproval(ctx context.Context, ticketID string, index int, approval domain.EstimateApproval) error {
	const query = `UPDATE estimate_files SET approved=$1 WHERE ticket_id=$2 AND idx=$3`
	cmd, err := r.pool.Exec(ctx, query, approval, ticketID, index)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
