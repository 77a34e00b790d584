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

// TicketFilter captures listing parameters. Results are always ordered by
// creation time, newest first.
type TicketFilter struct {
	Status     *string
	AssignedTo *string
	Limit      int
	Offset     int
}

// TicketPatch describes a partial update. Nil fields are left untouched.
// Ticket number, id and created_at are not patchable.
type TicketPatch struct {
	Name                 *string
	Email                *string
	PhoneNumber          *string
	ServiceAddress       *string
	WorkOrderDescription *string
	TimeAvailability     *string
	Status               *string
	Priority             *domain.TicketPriority
	AssignedTo           *string
	InvoiceNumber        *string
	PartsUsed            []string
	ServicesDelivered    *string
	AdditionalNotes      *string
	AmountBilled         *float64
	AmountPaid           *float64
	Images               []string
	UpdatedAt            time.Time
}

// StatusCount is one row of a grouped status aggregation.
type StatusCount struct {
	Status string
	Count  int64
}

// AssigneeStatusCount is one row of the per-assignee aggregation.
type AssigneeStatusCount struct {
	AssignedTo string
	Status     string
	Count      int64
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	UpdateByID(ctx context.Context, id string, patch TicketPatch) (*domain.Ticket, error)
	DeleteByID(ctx context.Context, id string) (*domain.Ticket, error)
	SetCoordinates(ctx context.Context, ticketNumber string, coords domain.Coordinates, updatedAt time.Time) error
	CountAll(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context) ([]StatusCount, error)
	CountByAssigneeStatus(ctx context.Context) ([]AssigneeStatusCount, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, ticket_number, name, email, phone_number, service_address,
       work_order_description, time_availability, status, priority, assigned_to,
       latitude, longitude, invoice_number, parts_used, services_delivered,
       additional_notes, amount_billed, amount_paid, images, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (ticket_number, name, email, phone_number, service_address,
            work_order_description, time_availability, status, priority, assigned_to,
            invoice_number, parts_used, services_delivered, additional_notes,
            amount_billed, amount_paid, images)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.TicketNumber,
		ticket.Name,
		ticket.Email,
		ticket.PhoneNumber,
		ticket.ServiceAddress,
		ticket.WorkOrderDescription,
		ticket.TimeAvailability,
		ticket.Status,
		ticket.Priority,
		ticket.AssignedTo,
		ticket.InvoiceNumber,
		ticket.PartsUsed,
		ticket.ServicesDelivered,
		ticket.AdditionalNotes,
		ticket.AmountBilled,
		ticket.AmountPaid,
		ticket.Images,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, arg), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := fmt.Sprintf(`SELECT %s FROM tickets`, ticketColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}

	query := fmt.Sprintf("%s WHERE %s ORDER BY created_at DESC", base, strings.Join(clauses, " AND "))
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) UpdateByID(ctx context.Context, id string, patch TicketPatch) (*domain.Ticket, error) {
	sets := []string{}
	args := []any{}

	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}

	if patch.Name != nil {
		set("name", *patch.Name)
	}
	if patch.Email != nil {
		set("email", *patch.Email)
	}
	if patch.PhoneNumber != nil {
		set("phone_number", *patch.PhoneNumber)
	}
	if patch.ServiceAddress != nil {
		set("service_address", *patch.ServiceAddress)
	}
	if patch.WorkOrderDescription != nil {
		set("work_order_description", *patch.WorkOrderDescription)
	}
	if patch.TimeAvailability != nil {
		set("time_availability", *patch.TimeAvailability)
	}
	if patch.Status != nil {
		set("status", *patch.Status)
	}
	if patch.Priority != nil {
		set("priority", *patch.Priority)
	}
	if patch.AssignedTo != nil {
		set("assigned_to", *patch.AssignedTo)
	}
	if patch.InvoiceNumber != nil {
		set("invoice_number", *patch.InvoiceNumber)
	}
	if patch.PartsUsed != nil {
		set("parts_used", patch.PartsUsed)
	}
	if patch.ServicesDelivered != nil {
		set("services_delivered", *patch.ServicesDelivered)
	}
	if patch.AdditionalNotes != nil {
		set("additional_notes", *patch.AdditionalNotes)
	}
	if patch.AmountBilled != nil {
		set("amount_billed", *patch.AmountBilled)
	}
	if patch.AmountPaid != nil {
		set("amount_paid", *patch.AmountPaid)
	}
	if patch.Images != nil {
		set("images", patch.Images)
	}
	set("updated_at", patch.UpdatedAt)

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE tickets SET %s WHERE id=$%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), ticketColumns)

	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, args...), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) DeleteByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`DELETE FROM tickets WHERE id=$1 RETURNING %s`, ticketColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) SetCoordinates(ctx context.Context, ticketNumber string, coords domain.Coordinates, updatedAt time.Time) error {
	const query = `UPDATE tickets SET latitude=$1, longitude=$2, updated_at=$3 WHERE ticket_number=$4`
	cmd, err := r.pool.Exec(ctx, query, coords.Latitude, coords.Longitude, updatedAt, ticketNumber)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) CountAll(ctx context.Context) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets`).Scan(&total)
	return total, err
}

func (r *ticketRepository) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM tickets GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []StatusCount
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, err
		}
		result = append(result, sc)
	}
	return result, rows.Err()
}

func (r *ticketRepository) CountByAssigneeStatus(ctx context.Context) ([]AssigneeStatusCount, error) {
	const query = `
        SELECT assigned_to, status, COUNT(*)
        FROM tickets
        WHERE assigned_to <> '' AND assigned_to <> 'Unassigned'
        GROUP BY assigned_to, status`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AssigneeStatusCount
	for rows.Next() {
		var ac AssigneeStatusCount
		if err := rows.Scan(&ac.AssignedTo, &ac.Status, &ac.Count); err != nil {
			return nil, err
		}
		result = append(result, ac)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner, ticket *domain.Ticket) error {
	var lat, lng *float64
	if err := row.Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.Name,
		&ticket.Email,
		&ticket.PhoneNumber,
		&ticket.ServiceAddress,
		&ticket.WorkOrderDescription,
		&ticket.TimeAvailability,
		&ticket.Status,
		&ticket.Priority,
		&ticket.AssignedTo,
		&lat,
		&lng,
		&ticket.InvoiceNumber,
		&ticket.PartsUsed,
		&ticket.ServicesDelivered,
		&ticket.AdditionalNotes,
		&ticket.AmountBilled,
		&ticket.AmountPaid,
		&ticket.Images,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return err
	}
	if lat != nil && lng != nil {
		ticket.Coordinates = &domain.Coordinates{Latitude: *lat, Longitude: *lng}
	}
	return nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
