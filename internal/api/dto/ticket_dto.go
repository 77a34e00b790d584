package dto

import (
	"time"

	"github.com/fieldserve/ticket-tracker/internal/domain"
)

// CreateTicketRequest is the public intake form.
type CreateTicketRequest struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	PhoneNumber          string `json:"phoneNumber"`
	ServiceAddress       string `json:"serviceAddress"`
	WorkOrderDescription string `json:"workOrderDescription"`
	TimeAvailability     string `json:"timeAvailability"`
}

// UpdateTicketRequest is a partial update; absent fields stay untouched.
type UpdateTicketRequest struct {
	Name                 *string                `json:"name"`
	Email                *string                `json:"email"`
	PhoneNumber          *string                `json:"phoneNumber"`
	ServiceAddress       *string                `json:"serviceAddress"`
	WorkOrderDescription *string                `json:"workOrderDescription"`
	TimeAvailability     *string                `json:"timeAvailability"`
	Status               *string                `json:"status"`
	Priority             *domain.TicketPriority `json:"priority"`
	AssignedTo           *string                `json:"assignedTo"`
	InvoiceNumber        *string                `json:"invoiceNumber"`
	PartsUsed            []string               `json:"partsUsed"`
	ServicesDelivered    *string                `json:"servicesDelivered"`
	AdditionalNotes      *string                `json:"additionalNotes"`
	AmountBilled         *float64               `json:"amountBilled"`
	AmountPaid           *float64               `json:"amountPaid"`
	Images               []string               `json:"images"`
}

// RescheduleRequest overwrites only the availability text.
type RescheduleRequest struct {
	TimeAvailability string `json:"timeAvailability"`
}

// EstimateApprovalRequest records the customer's decision.
type EstimateApprovalRequest struct {
	Approved domain.EstimateApproval `json:"approved"`
}

// TicketResponse is the full ticket representation.
type TicketResponse struct {
	ID                   string                `json:"id"`
	TicketNumber         string                `json:"ticketNumber"`
	Name                 string                `json:"name"`
	Email                string                `json:"email"`
	PhoneNumber          string                `json:"phoneNumber"`
	ServiceAddress       string                `json:"serviceAddress"`
	WorkOrderDescription string                `json:"workOrderDescription"`
	TimeAvailability     string                `json:"timeAvailability"`
	Status               string                `json:"status"`
	Priority             domain.TicketPriority `json:"priority"`
	AssignedTo           string                `json:"assignedTo"`
	Coordinates          *domain.Coordinates   `json:"coordinates,omitempty"`
	InvoiceNumber        string                `json:"invoiceNumber"`
	PartsUsed            []string              `json:"partsUsed"`
	ServicesDelivered    string                `json:"servicesDelivered"`
	AdditionalNotes      string                `json:"additionalNotes"`
	AmountBilled         float64               `json:"amountBilled"`
	AmountPaid           float64               `json:"amountPaid"`
	Images               []string              `json:"images"`
	CreatedAt            time.Time             `json:"createdAt"`
	UpdatedAt            time.Time             `json:"updatedAt"`
}

// EstimateFileResponse is estimate metadata; binary content is omitted.
type EstimateFileResponse struct {
	Index       int                     `json:"index"`
	FileName    string                  `json:"fileName"`
	ContentType string                  `json:"contentType"`
	SizeBytes   int                     `json:"sizeBytes"`
	Approved    domain.EstimateApproval `json:"approved"`
	UploadedAt  time.Time               `json:"uploadedAt"`
}
