package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldserve/ticket-tracker/internal/domain"
)

// TimeEntryFilter narrows time entry listings.
type TimeEntryFilter struct {
	User         *string
	TicketNumber *string
	Week         *int
}

// TimeEntryRepository persists technician work sessions.
type TimeEntryRepository interface {
	// ClockIn opens a new range on the (user, ticket, week) entry,
	// creating the entry if it does not exist yet.
	ClockIn(ctx context.Context, user, ticketNumber string, week int, start time.Time) (*domain.TimeEntry, error)
	// CloseOpenRange sets the end time of the user's open range on the
	// ticket. Returns pgx.ErrNoRows when no range is open.
	CloseOpenRange(ctx context.Context, user, ticketNumber string, end time.Time) error
	List(ctx context.Context, filter TimeEntryFilter) ([]domain.TimeEntry, error)
}

type timeEntryRepository struct {
	pool *pgxpool.Pool
}

// NewTimeEntryRepository instantiates repository.
func NewTimeEntryRepository(pool *pgxpool.Pool) TimeEntryRepository {
	return &timeEntryRepository{pool: pool}
}

func (r *timeEntryRepository) ClockIn(ctx context.Context, user, ticketNumber string, week int, start time.Time) (*domain.TimeEntry, error) {
	const upsert = `
        INSERT INTO time_entries (username, ticket_number, week)
        VALUES ($1, $2, $3)
        ON CONFLICT (username, ticket_number, week) DO UPDATE SET updated_at = NOW()
        RETURNING id, created_at, updated_at`

	entry := &domain.TimeEntry{User: user, TicketNumber: ticketNumber, Week: week}
	if err := r.pool.QueryRow(ctx, upsert, user, ticketNumber, week).
		Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
		return nil, err
	}

	const insertRange = `INSERT INTO time_ranges (entry_id, start_time) VALUES ($1, $2)`
	if _, err := r.pool.Exec(ctx, insertRange, entry.ID, start); err != nil {
		return nil, err
	}

	ranges, err := r.rangesForEntry(ctx, entry.ID)
	if err != nil {
		return nil, err
	}
	entry.TimeRanges = ranges
	return entry, nil
}

func (r *timeEntryRepository) CloseOpenRange(ctx context.Context, user, ticketNumber string, end time.Time) error {
	const query = `
        UPDATE time_ranges SET end_time=$1
        WHERE id = (
            SELECT tr.id FROM time_ranges tr
            JOIN time_entries te ON te.id = tr.entry_id
            WHERE te.username=$2 AND te.ticket_number=$3 AND tr.end_time IS NULL
            ORDER BY tr.start_time
            LIMIT 1
        )`
	cmd, err := r.pool.Exec(ctx, query, end, user, ticketNumber)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *timeEntryRepository) List(ctx context.Context, filter TimeEntryFilter) ([]domain.TimeEntry, error) {
	base := `SELECT id, username, ticket_number, week, created_at, updated_at FROM time_entries`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.User != nil {
		args = append(args, *filter.User)
		clauses = append(clauses, fmt.Sprintf("username=$%d", len(args)))
	}
	if filter.TicketNumber != nil {
		args = append(args, *filter.TicketNumber)
		clauses = append(clauses, fmt.Sprintf("ticket_number=$%d", len(args)))
	}
	if filter.Week != nil {
		args = append(args, *filter.Week)
		clauses = append(clauses, fmt.Sprintf("week=$%d", len(args)))
	}

	query := fmt.Sprintf("%s WHERE %s ORDER BY created_at", base, strings.Join(clauses, " AND "))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.TimeEntry
	for rows.Next() {
		var entry domain.TimeEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.User,
			&entry.TicketNumber,
			&entry.Week,
			&entry.CreatedAt,
			&entry.UpdatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range entries {
		ranges, err := r.rangesForEntry(ctx, entries[i].ID)
		if err != nil {
			return nil, err
		}
		entries[i].TimeRanges = ranges
	}
	return entries, nil
}

func (r *timeEntryRepository) rangesForEntry(ctx context.Context, entryID string) ([]domain.TimeRange, error) {
	const query = `SELECT start_time, end_time FROM time_ranges WHERE entry_id=$1 ORDER BY start_time`
	rows, err := r.pool.Query(ctx, query, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ranges []domain.TimeRange
	for rows.Next() {
		var tr domain.TimeRange
		if err := rows.Scan(&tr.StartTime, &tr.EndTime); err != nil {
			return nil, err
		}
		ranges = append(ranges, tr)
	}
	return ranges, rows.Err()
}
