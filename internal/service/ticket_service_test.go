package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fieldserve/ticket-tracker/internal/clock"
	"github.com/fieldserve/ticket-tracker/internal/domain"
	"github.com/fieldserve/ticket-tracker/internal/events"
	"github.com/fieldserve/ticket-tracker/internal/mail"
	"github.com/fieldserve/ticket-tracker/internal/repository"
	apperrors "github.com/fieldserve/ticket-tracker/pkg/util"
)

// fakeTicketRepo is an in-memory TicketRepository.
type fakeTicketRepo struct {
	mu       sync.Mutex
	byID     map[string]*domain.Ticket
	order    []string
	nextID   int
	coordsCh chan string
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{
		byID:     map[string]*domain.Ticket{},
		coordsCh: make(chan string, 8),
	}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	ticket.ID = strconv.Itoa(r.nextID)
	stored := *ticket
	r.byID[ticket.ID] = &stored
	r.order = append(r.order, ticket.ID)
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (r *fakeTicketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Ticket
	for i := len(r.order) - 1; i >= 0; i-- {
		ticket := r.byID[r.order[i]]
		if filter.Status != nil && ticket.Status != *filter.Status {
			continue
		}
		if filter.AssignedTo != nil && ticket.AssignedTo != *filter.AssignedTo {
			continue
		}
		result = append(result, *ticket)
	}
	return result, nil
}

func (r *fakeTicketRepo) UpdateByID(_ context.Context, id string, patch repository.TicketPatch) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if patch.Name != nil {
		ticket.Name = *patch.Name
	}
	if patch.Email != nil {
		ticket.Email = *patch.Email
	}
	if patch.PhoneNumber != nil {
		ticket.PhoneNumber = *patch.PhoneNumber
	}
	if patch.ServiceAddress != nil {
		ticket.ServiceAddress = *patch.ServiceAddress
	}
	if patch.WorkOrderDescription != nil {
		ticket.WorkOrderDescription = *patch.WorkOrderDescription
	}
	if patch.TimeAvailability != nil {
		ticket.TimeAvailability = *patch.TimeAvailability
	}
	if patch.Status != nil {
		ticket.Status = *patch.Status
	}
	if patch.Priority != nil {
		ticket.Priority = *patch.Priority
	}
	if patch.AssignedTo != nil {
		ticket.AssignedTo = *patch.AssignedTo
	}
	if patch.InvoiceNumber != nil {
		ticket.InvoiceNumber = *patch.InvoiceNumber
	}
	if patch.PartsUsed != nil {
		ticket.PartsUsed = patch.PartsUsed
	}
	if patch.ServicesDelivered != nil {
		ticket.ServicesDelivered = *patch.ServicesDelivered
	}
	if patch.AdditionalNotes != nil {
		ticket.AdditionalNotes = *patch.AdditionalNotes
	}
	if patch.AmountBilled != nil {
		ticket.AmountBilled = *patch.AmountBilled
	}
	if patch.AmountPaid != nil {
		ticket.AmountPaid = *patch.AmountPaid
	}
	if patch.Images != nil {
		ticket.Images = patch.Images
	}
	ticket.UpdatedAt = patch.UpdatedAt
	copied := *ticket
	return &copied, nil
}

func (r *fakeTicketRepo) DeleteByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	delete(r.byID, id)
	for i, stored := range r.order {
		if stored == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return ticket, nil
}

func (r *fakeTicketRepo) SetCoordinates(_ context.Context, ticketNumber string, coords domain.Coordinates, updatedAt time.Time) error {
	r.mu.Lock()
	for _, ticket := range r.byID {
		if ticket.TicketNumber == ticketNumber {
			c := coords
			ticket.Coordinates = &c
			ticket.UpdatedAt = updatedAt
		}
	}
	r.mu.Unlock()
	r.coordsCh <- ticketNumber
	return nil
}

func (r *fakeTicketRepo) CountAll(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.byID)), nil
}

func (r *fakeTicketRepo) CountByStatus(_ context.Context) ([]repository.StatusCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[string]int64{}
	for _, ticket := range r.byID {
		counts[ticket.Status]++
	}
	var result []repository.StatusCount
	for status, count := range counts {
		result = append(result, repository.StatusCount{Status: status, Count: count})
	}
	return result, nil
}

func (r *fakeTicketRepo) CountByAssigneeStatus(_ context.Context) ([]repository.AssigneeStatusCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	type key struct {
		assignee string
		status   string
	}
	counts := map[key]int64{}
	for _, ticket := range r.byID {
		if domain.IsUnassigned(ticket.AssignedTo) {
			continue
		}
		counts[key{ticket.AssignedTo, ticket.Status}]++
	}
	var result []repository.AssigneeStatusCount
	for k, count := range counts {
		result = append(result, repository.AssigneeStatusCount{
			AssignedTo: k.assignee,
			Status:     k.status,
			Count:      count,
		})
	}
	return result, nil
}

// fakeSequenceRepo is an in-memory SequenceRepository.
type fakeSequenceRepo struct {
	mu       sync.Mutex
	counters map[string]int64
	err      error
}

func newFakeSequenceRepo() *fakeSequenceRepo {
	return &fakeSequenceRepo{counters: map[string]int64{}}
}

func (r *fakeSequenceRepo) Next(_ context.Context, day string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	r.counters[day]++
	return r.counters[day], nil
}

// fakeEstimateRepo is an in-memory EstimateFileRepository.
type fakeEstimateRepo struct {
	mu    sync.Mutex
	files map[string][]domain.EstimateFile
}

func newFakeEstimateRepo() *fakeEstimateRepo {
	return &fakeEstimateRepo{files: map[string][]domain.EstimateFile{}}
}

func (r *fakeEstimateRepo) Append(_ context.Context, ticketID string, file *domain.EstimateFile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	file.Index = len(r.files[ticketID])
	file.UploadedAt = time.Now()
	r.files[ticketID] = append(r.files[ticketID], *file)
	return nil
}

func (r *fakeEstimateRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.EstimateFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.EstimateFile{}, r.files[ticketID]...), nil
}

func (r *fakeEstimateRepo) SetApproval(_ context.Context, ticketID string, index int, approval domain.EstimateApproval) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	files := r.files[ticketID]
	if index < 0 || index >= len(files) {
		return pgx.ErrNoRows
	}
	files[index].Approved = approval
	return nil
}

// stubGeocoder resolves every address to the same point, or fails.
type stubGeocoder struct {
	coords domain.Coordinates
	err    error
	called chan string
}

func newStubGeocoder(coords domain.Coordinates, err error) *stubGeocoder {
	return &stubGeocoder{coords: coords, err: err, called: make(chan string, 8)}
}

func (g *stubGeocoder) Resolve(_ context.Context, address string) (domain.Coordinates, error) {
	g.called <- address
	if g.err != nil {
		return domain.Coordinates{}, g.err
	}
	return g.coords, nil
}

// stubMailer records sent messages.
type stubMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (m *stubMailer) Send(_ context.Context, msg mail.Message) (mail.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return mail.Result{}, m.err
	}
	m.sent = append(m.sent, msg)
	return mail.Result{Success: true, MessageID: "<msg-1@test>"}, nil
}

// captureDispatcher records published events.
type captureDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *captureDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *captureDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *captureDispatcher) byType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var matched []events.Event
	for _, event := range d.events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

type ticketFixture struct {
	service    *TicketService
	tickets    *fakeTicketRepo
	sequences  *fakeSequenceRepo
	estimates  *fakeEstimateRepo
	geocoder   *stubGeocoder
	mailer     *stubMailer
	dispatcher *captureDispatcher
}

// newTicketFixture wires a service against in-memory fakes. The clock is
// pinned to 2025-06-14 12:00 in the business timezone (America/Chicago).
func newTicketFixture(t *testing.T) *ticketFixture {
	t.Helper()

	tickets := newFakeTicketRepo()
	sequences := newFakeSequenceRepo()
	estimates := newFakeEstimateRepo()
	geocoder := newStubGeocoder(domain.Coordinates{Latitude: 41.85, Longitude: -87.65}, nil)
	mailer := &stubMailer{}
	dispatcher := &captureDispatcher{}

	fixed := clock.NewFixed(time.Date(2025, 6, 14, 17, 0, 0, 0, time.UTC))
	allocator, err := NewTicketNumberAllocator(sequences, fixed, "America/Chicago")
	if err != nil {
		t.Fatalf("allocator: %v", err)
	}

	return &ticketFixture{
		service: NewTicketService(TicketDependencies{
			TicketRepo:   tickets,
			EstimateRepo: estimates,
			Numbers:      allocator,
			Geocoder:     geocoder,
			Mailer:       mailer,
			Dispatcher:   dispatcher,
			Clock:        fixed,
		}),
		tickets:    tickets,
		sequences:  sequences,
		estimates:  estimates,
		geocoder:   geocoder,
		mailer:     mailer,
		dispatcher: dispatcher,
	}
}

func validIntake() TicketCreateInput {
	return TicketCreateInput{
		Name:                 "Ada Lovelace",
		Email:                "ada@example.com",
		PhoneNumber:          "555-0100",
		ServiceAddress:       "100 Main St, Springfield",
		WorkOrderDescription: "Furnace makes a grinding noise",
		TimeAvailability:     "Weekdays after 5pm",
	}
}

func assertDomainCode(t *testing.T, err error, code string) *apperrors.DomainError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %T: %v", err, err)
	}
	if domainErr.Code != code {
		t.Fatalf("expected code %s, got %s (%s)", code, domainErr.Code, domainErr.Message)
	}
	return domainErr
}

func strPtr(s string) *string { return &s }

func priPtr(p domain.TicketPriority) *domain.TicketPriority { return &p }

func TestCreateTicket(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns sequential daily numbers and defaults", func(t *testing.T) {
		fx := newTicketFixture(t)

		first, err := fx.service.CreateTicket(ctx, validIntake())
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		second, err := fx.service.CreateTicket(ctx, validIntake())
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		if first.TicketNumber != "20250614-0001" {
			t.Errorf("first number = %q, want 20250614-0001", first.TicketNumber)
		}
		if second.TicketNumber != "20250614-0002" {
			t.Errorf("second number = %q, want 20250614-0002", second.TicketNumber)
		}
		if first.Status != domain.StatusNew {
			t.Errorf("status = %q, want New", first.Status)
		}
		if first.Priority != domain.PriorityNone {
			t.Errorf("priority = %q, want empty", first.Priority)
		}
		if first.AssignedTo != domain.Unassigned {
			t.Errorf("assignee = %q, want Unassigned", first.AssignedTo)
		}
		if got := fx.dispatcher.byType(events.EventTicketCreated); len(got) != 2 {
			t.Errorf("created events = %d, want 2", len(got))
		}
	})

	t.Run("rejects incomplete intake", func(t *testing.T) {
		fx := newTicketFixture(t)

		input := validIntake()
		input.Email = ""
		input.ServiceAddress = "   "

		_, err := fx.service.CreateTicket(ctx, input)
		domainErr := assertDomainCode(t, err, "VALIDATION_FAILED")

		fields, _ := domainErr.Details["fields"].([]string)
		if len(fields) != 2 {
			t.Fatalf("missing fields = %v, want [email serviceAddress]", fields)
		}
	})

	t.Run("stores geocoded coordinates out of band", func(t *testing.T) {
		fx := newTicketFixture(t)

		ticket, err := fx.service.CreateTicket(ctx, validIntake())
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if ticket.Coordinates != nil {
			t.Fatal("coordinates should not be set synchronously")
		}

		select {
		case number := <-fx.tickets.coordsCh:
			if number != ticket.TicketNumber {
				t.Fatalf("coordinates stored for %q, want %q", number, ticket.TicketNumber)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for geocoding")
		}

		stored, err := fx.service.GetTicket(ctx, ticket.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if stored.Coordinates == nil || stored.Coordinates.Latitude != 41.85 {
			t.Fatalf("coordinates = %+v, want lat 41.85", stored.Coordinates)
		}
	})

	t.Run("geocoding refreshes the update timestamp", func(t *testing.T) {
		fx := newTicketFixture(t)

		ticket, err := fx.service.CreateTicket(ctx, validIntake())
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		<-fx.tickets.coordsCh

		stale := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
		fx.tickets.mu.Lock()
		fx.tickets.byID[ticket.ID].UpdatedAt = stale
		fx.tickets.mu.Unlock()

		fx.service.enrichCoordinates(ticket.TicketNumber, ticket.ServiceAddress)
		<-fx.tickets.coordsCh

		stored, err := fx.service.GetTicket(ctx, ticket.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		want := time.Date(2025, 6, 14, 17, 0, 0, 0, time.UTC)
		if !stored.UpdatedAt.Equal(want) {
			t.Errorf("updated at = %v, want %v after coordinate patch", stored.UpdatedAt, want)
		}
	})

	t.Run("geocoding failure never fails creation", func(t *testing.T) {
		fx := newTicketFixture(t)
		fx.geocoder.err = errors.New("upstream down")

		ticket, err := fx.service.CreateTicket(ctx, validIntake())
		if err != nil {
			t.Fatalf("create should succeed despite geocoder: %v", err)
		}

		select {
		case <-fx.geocoder.called:
		case <-time.After(2 * time.Second):
			t.Fatal("geocoder was never invoked")
		}

		stored, err := fx.service.GetTicket(ctx, ticket.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if stored.Coordinates != nil {
			t.Fatalf("coordinates = %+v, want nil after failed lookup", stored.Coordinates)
		}
	})

	t.Run("sequence counter outage aborts creation", func(t *testing.T) {
		fx := newTicketFixture(t)
		fx.sequences.err = errors.New("connection refused")

		_, err := fx.service.CreateTicket(ctx, validIntake())
		assertDomainCode(t, err, "DEPENDENCY_UNAVAILABLE")
	})
}

func TestUpdateTicket(t *testing.T) {
	ctx := context.Background()

	t.Run("unassigning resets status and priority", func(t *testing.T) {
		fx := newTicketFixture(t)
		ticket, _ := fx.service.CreateTicket(ctx, validIntake())

		_, err := fx.service.UpdateTicket(ctx, ticket.ID, TicketUpdateInput{
			AssignedTo: strPtr("carlos"),
			Status:     strPtr(domain.StatusOpen),
			Priority:   priPtr(domain.PriorityHigh),
		})
		if err != nil {
			t.Fatalf("assign: %v", err)
		}

		updated, err := fx.service.UpdateTicket(ctx, ticket.ID, TicketUpdateInput{
			AssignedTo: strPtr(domain.Unassigned),
		})
		if err != nil {
			t.Fatalf("unassign: %v", err)
		}
		if updated.Status != domain.StatusNew {
			t.Errorf("status = %q, want New", updated.Status)
		}
		if updated.Priority != domain.PriorityNone {
			t.Errorf("priority = %q, want empty", updated.Priority)
		}
		if updated.AssignedTo != domain.Unassigned {
			t.Errorf("assignee = %q, want Unassigned", updated.AssignedTo)
		}
	})

	t.Run("empty assignee counts as unassigning", func(t *testing.T) {
		fx := newTicketFixture(t)
		ticket, _ := fx.service.CreateTicket(ctx, validIntake())

		fx.service.UpdateTicket(ctx, ticket.ID, TicketUpdateInput{ //nolint:errcheck
			AssignedTo: strPtr("dana"),
			Status:     strPtr(domain.StatusOpen),
			Priority:   priPtr(domain.PriorityLow),
		})

		updated, err := fx.service.UpdateTicket(ctx, ticket.ID, TicketUpdateInput{
			AssignedTo: strPtr(""),
		})
		if err != nil {
			t.Fatalf("unassign: %v", err)
		}
		if updated.Status != domain.StatusNew || updated.Priority != domain.PriorityNone {
			t.Errorf("got status=%q priority=%q, want New with empty priority",
				updated.Status, updated.Priority)
		}
	})

	t.Run("leaving open clears priority", func(t *testing.T) {
		fx := newTicketFixture(t)
		ticket, _ := fx.service.CreateTicket(ctx, validIntake())

		fx.service.UpdateTicket(ctx, ticket.ID, TicketUpdateInput{ //nolint:errcheck
			AssignedTo: strPtr("dana"),
			Status:     strPtr(domain.StatusOpen),
			Priority:   priPtr(domain.PriorityHighest),
		})

		updated, err := fx.service.UpdateTicket(ctx, ticket.ID, TicketUpdateInput{
			Status: strPtr(domain.StatusClosed),
		})
		if err != nil {
			t.Fatalf("close: %v", err)
		}
		if updated.Priority != domain.PriorityNone {
			t.Errorf("priority = %q, want cleared on non-open status", updated.Priority)
		}
	})

	t.Run("priority sticks while open", func(t *testing.T) {
		fx := newTicketFixture(t)
		ticket, _ := fx.service.CreateTicket(ctx, validIntake())

		updated, err := fx.service.UpdateTicket(ctx, ticket.ID, TicketUpdateInput{
			AssignedTo: strPtr("dana"),
			Status:     strPtr(domain.StatusOpen),
			Priority:   priPtr(domain.PriorityMedium),
		})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if updated.Priority != domain.PriorityMedium {
			t.Errorf("priority = %q, want Medium", updated.Priority)
		}
	})

	t.Run("priority on a patch that stays non-open is discarded", func(t *testing.T) {
		fx := newTicketFixture(t)
		ticket, _ := fx.service.CreateTicket(ctx, validIntake())

		updated, err := fx.service.UpdateTicket(ctx, ticket.ID, TicketUpdateInput{
			Priority: priPtr(domain.PriorityHigh),
		})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if updated.Priority != domain.PriorityNone {
			t.Errorf("priority = %q, want empty while status is New", updated.Priority)
		}
	})

	t.Run("rejects status outside the vocabulary", func(t *testing.T) {
		fx := newTicketFixture(t)
		ticket, _ := fx.service.CreateTicket(ctx, validIntake())

		_, err := fx.service.UpdateTicket(ctx, ticket.ID, TicketUpdateInput{
			Status: strPtr("Escalated"),
		})
		assertDomainCode(t, err, "VALIDATION_FAILED")
	})

	t.Run("unknown ticket", func(t *testing.T) {
		fx := newTicketFixture(t)
		_, err := fx.service.UpdateTicket(ctx, "missing", TicketUpdateInput{
			Status: strPtr(domain.StatusOpen),
		})
		assertDomainCode(t, err, "NOT_FOUND")
	})
}

func TestDeleteTicket(t *testing.T) {
	ctx := context.Background()

	t.Run("non-admin cannot delete an assigned ticket", func(t *testing.T) {
		fx := newTicketFixture(t)
		ticket, _ := fx.service.CreateTicket(ctx, validIntake())
		fx.service.UpdateTicket(ctx, ticket.ID, TicketUpdateInput{AssignedTo: strPtr("dana")}) //nolint:errcheck

		_, err := fx.service.DeleteTicket(ctx, ticket.ID, false)
		assertDomainCode(t, err, "VALIDATION_FAILED")

		if _, err := fx.service.GetTicket(ctx, ticket.ID); err != nil {
			t.Fatalf("ticket should survive blocked delete: %v", err)
		}
	})

	t.Run("non-admin cannot delete an open ticket", func(t *testing.T) {
		fx := newTicketFixture(t)
		ticket, _ := fx.service.CreateTicket(ctx, validIntake())
		fx.service.UpdateTicket(ctx, ticket.ID, TicketUpdateInput{ //nolint:errcheck
			Status: strPtr(domain.StatusOpen),
		})

		_, err := fx.service.DeleteTicket(ctx, ticket.ID, false)
		assertDomainCode(t, err, "VALIDATION_FAILED")
	})

	t.Run("non-admin deletes an unassigned non-open ticket", func(t *testing.T) {
		fx := newTicketFixture(t)
		ticket, _ := fx.service.CreateTicket(ctx, validIntake())

		snapshot, err := fx.service.DeleteTicket(ctx, ticket.ID, false)
		if err != nil {
			t.Fatalf("delete: %v", err)
		}
		if snapshot.TicketNumber != ticket.TicketNumber {
			t.Errorf("snapshot number = %q, want %q", snapshot.TicketNumber, ticket.TicketNumber)
		}
		_, err = fx.service.GetTicket(ctx, ticket.ID)
		assertDomainCode(t, err, "NOT_FOUND")
	})

	t.Run("admin bypasses both guards", func(t *testing.T) {
		fx := newTicketFixture(t)
		ticket, _ := fx.service.CreateTicket(ctx, validIntake())
		fx.service.UpdateTicket(ctx, ticket.ID, TicketUpdateInput{ //nolint:errcheck
			AssignedTo: strPtr("dana"),
			Status:     strPtr(domain.StatusOpen),
		})

		snapshot, err := fx.service.DeleteTicket(ctx, ticket.ID, true)
		if err != nil {
			t.Fatalf("admin delete: %v", err)
		}
		if snapshot.Status != domain.StatusOpen || snapshot.AssignedTo != "dana" {
			t.Errorf("snapshot = %q/%q, want pre-deletion state", snapshot.Status, snapshot.AssignedTo)
		}
		if got := fx.dispatcher.byType(events.EventTicketDeleted); len(got) != 1 {
			t.Errorf("deleted events = %d, want 1", len(got))
		}
	})
}

func TestRescheduleTicket(t *testing.T) {
	ctx := context.Background()
	fx := newTicketFixture(t)
	ticket, _ := fx.service.CreateTicket(ctx, validIntake())

	updated, err := fx.service.RescheduleTicket(ctx, ticket.ID, "Saturday morning")
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if updated.TimeAvailability != "Saturday morning" {
		t.Errorf("availability = %q, want Saturday morning", updated.TimeAvailability)
	}
	if updated.Status != ticket.Status || updated.AssignedTo != ticket.AssignedTo {
		t.Error("reschedule must not touch lifecycle fields")
	}

	if _, err := fx.service.RescheduleTicket(ctx, ticket.ID, "  "); err == nil {
		t.Fatal("blank availability should be rejected")
	}
}

func TestEstimateFiles(t *testing.T) {
	ctx := context.Background()

	t.Run("new files start pending", func(t *testing.T) {
		fx := newTicketFixture(t)
		ticket, _ := fx.service.CreateTicket(ctx, validIntake())

		file, err := fx.service.AddEstimateFile(ctx, ticket.ID, EstimateFileInput{
			FileName: "estimate.pdf",
			Data:     []byte("%PDF-1.4"),
		})
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		if file.Approved != domain.EstimatePending {
			t.Errorf("approval = %q, want Pending", file.Approved)
		}
		if file.ContentType != "application/pdf" {
			t.Errorf("content type = %q, want application/pdf default", file.ContentType)
		}
		if file.Index != 0 {
			t.Errorf("index = %d, want 0", file.Index)
		}
	})

	t.Run("approval transitions", func(t *testing.T) {
		fx := newTicketFixture(t)
		ticket, _ := fx.service.CreateTicket(ctx, validIntake())
		fx.service.AddEstimateFile(ctx, ticket.ID, EstimateFileInput{ //nolint:errcheck
			FileName: "estimate.pdf", Data: []byte("x"),
		})

		if err := fx.service.SetEstimateApproval(ctx, ticket.ID, 0, domain.EstimateApproved); err != nil {
			t.Fatalf("approve: %v", err)
		}
		files, err := fx.service.GetEstimateFiles(ctx, ticket.ID)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if files[0].Approved != domain.EstimateApproved {
			t.Errorf("approval = %q, want Approved", files[0].Approved)
		}

		err = fx.service.SetEstimateApproval(ctx, ticket.ID, 0, domain.EstimateApproval("Maybe"))
		assertDomainCode(t, err, "VALIDATION_FAILED")

		err = fx.service.SetEstimateApproval(ctx, ticket.ID, 5, domain.EstimateDenied)
		assertDomainCode(t, err, "NOT_FOUND")
	})

	t.Run("emailing attaches every file", func(t *testing.T) {
		fx := newTicketFixture(t)
		ticket, _ := fx.service.CreateTicket(ctx, validIntake())

		_, err := fx.service.EmailEstimateFiles(ctx, ticket.ID)
		assertDomainCode(t, err, "VALIDATION_FAILED")

		for i := 0; i < 2; i++ {
			fx.service.AddEstimateFile(ctx, ticket.ID, EstimateFileInput{ //nolint:errcheck
				FileName: fmt.Sprintf("estimate-%d.pdf", i), Data: []byte("x"),
			})
		}

		messageID, err := fx.service.EmailEstimateFiles(ctx, ticket.ID)
		if err != nil {
			t.Fatalf("email: %v", err)
		}
		if messageID == "" {
			t.Error("expected message id from relay")
		}
		if len(fx.mailer.sent) != 1 {
			t.Fatalf("sent = %d messages, want 1", len(fx.mailer.sent))
		}
		msg := fx.mailer.sent[0]
		if msg.To != "ada@example.com" {
			t.Errorf("to = %q, want customer address", msg.To)
		}
		if len(msg.Attachments) != 2 {
			t.Errorf("attachments = %d, want 2", len(msg.Attachments))
		}
	})

	t.Run("relay outage surfaces as dependency failure", func(t *testing.T) {
		fx := newTicketFixture(t)
		ticket, _ := fx.service.CreateTicket(ctx, validIntake())
		fx.service.AddEstimateFile(ctx, ticket.ID, EstimateFileInput{ //nolint:errcheck
			FileName: "estimate.pdf", Data: []byte("x"),
		})
		fx.mailer.err = errors.New("connection reset")

		_, err := fx.service.EmailEstimateFiles(ctx, ticket.ID)
		assertDomainCode(t, err, "DEPENDENCY_UNAVAILABLE")
	})
}
