package events

import (
	"time"

	"github.com/fieldserve/ticket-tracker/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated   EventType = "ticket_created"
	EventTicketUpdated   EventType = "ticket_updated"
	EventTicketDeleted   EventType = "ticket_deleted"
	EventTicketGeocoded  EventType = "ticket_geocoded"
	EventEstimateAdded   EventType = "estimate_added"
	EventEstimateEmailed EventType = "estimate_emailed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID           string      `json:"id"`
	Type         EventType   `json:"type"`
	TicketID     string      `json:"ticket_id"`
	TicketNumber string      `json:"ticket_number"`
	Timestamp    time.Time   `json:"timestamp"`
	Payload      interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	ServiceAddress string `json:"service_address"`
}

// TicketUpdatedPayload payload.
type TicketUpdatedPayload struct {
	Status     string                `json:"status"`
	Priority   domain.TicketPriority `json:"priority"`
	AssignedTo string                `json:"assigned_to"`
}

// TicketDeletedPayload payload.
type TicketDeletedPayload struct {
	Status     string `json:"status"`
	AssignedTo string `json:"assigned_to"`
	ByAdmin    bool   `json:"by_admin"`
}

// TicketGeocodedPayload payload.
type TicketGeocodedPayload struct {
	Coordinates domain.Coordinates `json:"coordinates"`
}

// EstimateAddedPayload payload.
type EstimateAddedPayload struct {
	Index    int    `json:"index"`
	FileName string `json:"file_name"`
}

// EstimateEmailedPayload payload.
type EstimateEmailedPayload struct {
	To        string `json:"to"`
	MessageID string `json:"message_id"`
	FileCount int    `json:"file_count"`
}
