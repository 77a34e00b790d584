package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/fieldserve/ticket-tracker/internal/clock"
	"github.com/fieldserve/ticket-tracker/internal/domain"
	"github.com/fieldserve/ticket-tracker/internal/events"
	"github.com/fieldserve/ticket-tracker/internal/geocode"
	"github.com/fieldserve/ticket-tracker/internal/mail"
	"github.com/fieldserve/ticket-tracker/internal/repository"
	apperrors "github.com/fieldserve/ticket-tracker/pkg/util"
)

// TicketService is the lifecycle rules engine. Every ticket mutation goes
// through it; nothing writes to the store directly.
type TicketService struct {
	tickets    repository.TicketRepository
	estimates  repository.EstimateFileRepository
	numbers    *TicketNumberAllocator
	geocoder   geocode.Geocoder
	mailer     mail.Mailer
	dispatcher events.Dispatcher
	vocab      domain.StatusVocabulary
	clock      clock.Clock
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	EstimateRepo repository.EstimateFileRepository
	Numbers      *TicketNumberAllocator
	Geocoder     geocode.Geocoder
	Mailer       mail.Mailer
	Dispatcher   events.Dispatcher
	Vocabulary   domain.StatusVocabulary
	Clock        clock.Clock
	Logger       *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	vocab := deps.Vocabulary
	if len(vocab) == 0 {
		vocab = domain.DefaultStatusVocabulary()
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.NewSystem()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		estimates:  deps.EstimateRepo,
		numbers:    deps.Numbers,
		geocoder:   deps.Geocoder,
		mailer:     deps.Mailer,
		dispatcher: deps.Dispatcher,
		vocab:      vocab,
		clock:      clk,
		logger:     logger,
	}
}

// TicketCreateInput describes the intake form.
type TicketCreateInput struct {
	Name                 string
	Email                string
	PhoneNumber          string
	ServiceAddress       string
	WorkOrderDescription string
	TimeAvailability     string
}

// TicketUpdateInput describes a partial update. Nil fields are untouched.
type TicketUpdateInput struct {
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
}

// TicketListFilter narrows listings.
type TicketListFilter struct {
	Status     *string
	AssignedTo *string
	Limit      int
	Offset     int
}

// EstimateFileInput describes an uploaded estimate document.
type EstimateFileInput struct {
	FileName    string
	ContentType string
	Data        []byte
}

// CreateTicket validates the intake form, allocates a ticket number and
// persists the new ticket. Geocoding of the service address runs detached;
// its outcome never affects the creation response.
func (s *TicketService) CreateTicket(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	number, err := s.numbers.Next(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	ticket := &domain.Ticket{
		TicketNumber:         number,
		Name:                 strings.TrimSpace(input.Name),
		Email:                strings.TrimSpace(input.Email),
		PhoneNumber:          strings.TrimSpace(input.PhoneNumber),
		ServiceAddress:       strings.TrimSpace(input.ServiceAddress),
		WorkOrderDescription: strings.TrimSpace(input.WorkOrderDescription),
		TimeAvailability:     strings.TrimSpace(input.TimeAvailability),
		Status:               domain.StatusNew,
		Priority:             domain.PriorityNone,
		AssignedTo:           domain.Unassigned,
		PartsUsed:            []string{},
		Images:               []string{},
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.NewDependencyFailure("ticket store", err)
	}

	s.publishEvent(ctx, events.Event{
		Type:         events.EventTicketCreated,
		TicketID:     ticket.ID,
		TicketNumber: ticket.TicketNumber,
		Payload: events.TicketCreatedPayload{
			Name:           ticket.Name,
			Email:          ticket.Email,
			ServiceAddress: ticket.ServiceAddress,
		},
	})

	go s.enrichCoordinates(ticket.TicketNumber, ticket.ServiceAddress)

	return ticket, nil
}

// GetTicket fetches one ticket.
func (s *TicketService) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// ListTickets returns tickets newest-first, optionally filtered.
func (s *TicketService) ListTickets(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, error) {
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{
		Status:     filter.Status,
		AssignedTo: filter.AssignedTo,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// UpdateTicket applies a partial update under the lifecycle invariants:
// un-assigning forces the ticket back to New with no priority, and any
// resulting status other than Open clears the priority. The checks run in
// that order so un-assigning an Open ticket lands on New with an empty
// priority rather than a transient invalid pair.
func (s *TicketService) UpdateTicket(ctx context.Context, id string, input TicketUpdateInput) (*domain.Ticket, error) {
	current, err := s.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.AssignedTo != nil && domain.IsUnassigned(*input.AssignedTo) {
		status := domain.StatusNew
		priority := domain.PriorityNone
		input.Status = &status
		input.Priority = &priority
	}

	resulting := current.Status
	if input.Status != nil {
		resulting = *input.Status
	}
	if resulting != domain.StatusOpen {
		priority := domain.PriorityNone
		input.Priority = &priority
	}

	if input.Status != nil && !s.vocab.Contains(*input.Status) {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("unknown status %q", *input.Status),
			map[string]any{"status": *input.Status})
	}
	if input.Priority != nil && !domain.ValidPriority(*input.Priority) {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("unknown priority %q", *input.Priority),
			map[string]any{"priority": *input.Priority})
	}

	updated, err := s.tickets.UpdateByID(ctx, id, repository.TicketPatch{
		Name:                 input.Name,
		Email:                input.Email,
		PhoneNumber:          input.PhoneNumber,
		ServiceAddress:       input.ServiceAddress,
		WorkOrderDescription: input.WorkOrderDescription,
		TimeAvailability:     input.TimeAvailability,
		Status:               input.Status,
		Priority:             input.Priority,
		AssignedTo:           input.AssignedTo,
		InvoiceNumber:        input.InvoiceNumber,
		PartsUsed:            input.PartsUsed,
		ServicesDelivered:    input.ServicesDelivered,
		AdditionalNotes:      input.AdditionalNotes,
		AmountBilled:         input.AmountBilled,
		AmountPaid:           input.AmountPaid,
		Images:               input.Images,
		UpdatedAt:            s.clock.Now(),
	})
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:         events.EventTicketUpdated,
		TicketID:     updated.ID,
		TicketNumber: updated.TicketNumber,
		Payload: events.TicketUpdatedPayload{
			Status:     updated.Status,
			Priority:   updated.Priority,
			AssignedTo: updated.AssignedTo,
		},
	})
	return updated, nil
}

// DeleteTicket permanently removes a ticket and returns its pre-deletion
// snapshot. Non-admin callers cannot delete assigned or Open tickets.
func (s *TicketService) DeleteTicket(ctx context.Context, id string, isAdmin bool) (*domain.Ticket, error) {
	current, err := s.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}

	if !isAdmin {
		if current.Assigned() {
			return nil, apperrors.NewValidationError("cannot delete an assigned ticket",
				map[string]any{"assigned_to": current.AssignedTo})
		}
		if current.Status == domain.StatusOpen {
			return nil, apperrors.NewValidationError("cannot delete an open ticket", nil)
		}
	}

	snapshot, err := s.tickets.DeleteByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:         events.EventTicketDeleted,
		TicketID:     snapshot.ID,
		TicketNumber: snapshot.TicketNumber,
		Payload: events.TicketDeletedPayload{
			Status:     snapshot.Status,
			AssignedTo: snapshot.AssignedTo,
			ByAdmin:    isAdmin,
		},
	})
	return snapshot, nil
}

// RescheduleTicket overwrites only the availability field.
func (s *TicketService) RescheduleTicket(ctx context.Context, id, timeAvailability string) (*domain.Ticket, error) {
	if strings.TrimSpace(timeAvailability) == "" {
		return nil, apperrors.NewValidationError("time availability required", nil)
	}
	if _, err := s.GetTicket(ctx, id); err != nil {
		return nil, err
	}

	availability := strings.TrimSpace(timeAvailability)
	updated, err := s.tickets.UpdateByID(ctx, id, repository.TicketPatch{
		TimeAvailability: &availability,
		UpdatedAt:        s.clock.Now(),
	})
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return updated, nil
}

// AddEstimateFile appends an estimate document; new files always start as
// Pending regardless of input.
func (s *TicketService) AddEstimateFile(ctx context.Context, id string, input EstimateFileInput) (*domain.EstimateFile, error) {
	if strings.TrimSpace(input.FileName) == "" || len(input.Data) == 0 {
		return nil, apperrors.NewValidationError("file name and content required", nil)
	}
	ticket, err := s.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}

	contentType := input.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}
	file := &domain.EstimateFile{
		FileName:    input.FileName,
		ContentType: contentType,
		Data:        input.Data,
		Approved:    domain.EstimatePending,
	}
	if err := s.estimates.Append(ctx, ticket.ID, file); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:         events.EventEstimateAdded,
		TicketID:     ticket.ID,
		TicketNumber: ticket.TicketNumber,
		Payload: events.EstimateAddedPayload{
			Index:    file.Index,
			FileName: file.FileName,
		},
	})
	return file, nil
}

// GetEstimateFiles returns the ticket's estimate list in upload order.
func (s *TicketService) GetEstimateFiles(ctx context.Context, id string) ([]domain.EstimateFile, error) {
	ticket, err := s.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	files, err := s.estimates.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return files, nil
}

// SetEstimateApproval records the customer's decision on one estimate file.
func (s *TicketService) SetEstimateApproval(ctx context.Context, id string, index int, approval domain.EstimateApproval) error {
	if !domain.ValidEstimateApproval(approval) {
		return apperrors.NewValidationError(fmt.Sprintf("unknown approval state %q", approval), nil)
	}
	ticket, err := s.GetTicket(ctx, id)
	if err != nil {
		return err
	}
	if err := s.estimates.SetApproval(ctx, ticket.ID, index, approval); err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewNotFound("estimate file", map[string]any{"index": index})
		}
		return apperrors.MapError(err)
	}
	return nil
}

// EmailEstimateFiles sends the ticket's estimate documents to the customer
// as attachments and returns the relay's message id.
func (s *TicketService) EmailEstimateFiles(ctx context.Context, id string) (string, error) {
	ticket, err := s.GetTicket(ctx, id)
	if err != nil {
		return "", err
	}
	files, err := s.estimates.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return "", apperrors.MapError(err)
	}
	if len(files) == 0 {
		return "", apperrors.NewValidationError("ticket has no estimate files", nil)
	}

	attachments := make([]mail.Attachment, 0, len(files))
	for _, file := range files {
		attachments = append(attachments, mail.Attachment{
			FileName:    file.FileName,
			ContentType: file.ContentType,
			Data:        file.Data,
		})
	}

	result, err := s.mailer.Send(ctx, mail.Message{
		To:      ticket.Email,
		Subject: fmt.Sprintf("Estimate for ticket %s", ticket.TicketNumber),
		Body: fmt.Sprintf("Hello %s,\n\nPlease find attached the estimate for your service request %s.\n",
			ticket.Name, ticket.TicketNumber),
		Attachments: attachments,
	})
	if err != nil {
		return "", apperrors.NewDependencyFailure("email relay", err)
	}

	s.publishEvent(ctx, events.Event{
		Type:         events.EventEstimateEmailed,
		TicketID:     ticket.ID,
		TicketNumber: ticket.TicketNumber,
		Payload: events.EstimateEmailedPayload{
			To:        ticket.Email,
			MessageID: result.MessageID,
			FileCount: len(files),
		},
	})
	return result.MessageID, nil
}

// enrichCoordinates is the detached geocoding task spawned after creation.
// Failures are logged and swallowed; it never reports back to the creator.
func (s *TicketService) enrichCoordinates(ticketNumber, address string) {
	if s.geocoder == nil {
		return
	}
	ctx := context.Background()

	coords, err := s.geocoder.Resolve(ctx, address)
	if err != nil {
		s.logger.Warn("geocoding failed",
			zap.String("ticket_number", ticketNumber),
			zap.Error(err))
		return
	}
	if err := s.tickets.SetCoordinates(ctx, ticketNumber, coords, s.clock.Now()); err != nil {
		s.logger.Warn("storing coordinates failed",
			zap.String("ticket_number", ticketNumber),
			zap.Error(err))
		return
	}

	s.publishEvent(ctx, events.Event{
		Type:         events.EventTicketGeocoded,
		TicketNumber: ticketNumber,
		Payload:      events.TicketGeocodedPayload{Coordinates: coords},
	})
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func validateCreateInput(input TicketCreateInput) error {
	missing := []string{}
	for _, field := range []struct {
		name  string
		value string
	}{
		{"name", input.Name},
		{"email", input.Email},
		{"phoneNumber", input.PhoneNumber},
		{"serviceAddress", input.ServiceAddress},
		{"workOrderDescription", input.WorkOrderDescription},
		{"timeAvailability", input.TimeAvailability},
	} {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return apperrors.NewValidationError("missing required fields",
			map[string]any{"fields": missing})
	}
	return nil
}
