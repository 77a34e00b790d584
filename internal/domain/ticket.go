package domain

import (
	"strings"
	"time"
)

// Well-known ticket statuses. The full vocabulary is installation
// configuration (see StatusVocabulary); these are the names the lifecycle
// rules reference directly.
const (
	StatusNew              = "New"
	StatusOpen             = "Open"
	StatusNeedEstimate     = "Need Estimate"
	StatusEstimateSent     = "Estimate Sent"
	StatusEstimateApproved = "Estimate Approved"
	StatusClosed           = "Closed"
)

// Unassigned is the sentinel assignee meaning no technician is on the
// ticket. An empty assignee is treated the same way.
const Unassigned = "Unassigned"

// IsUnassigned reports whether the assignee value means "no technician".
func IsUnassigned(assignee string) bool {
	return assignee == "" || assignee == Unassigned
}

// TicketPriority enumerates urgency. Only meaningful while status is Open;
// the engine clears it otherwise.
type TicketPriority string

const (
	PriorityNone    TicketPriority = ""
	PriorityHighest TicketPriority = "Highest"
	PriorityHigh    TicketPriority = "High"
	PriorityMedium  TicketPriority = "Medium"
	PriorityLow     TicketPriority = "Low"
	PriorityLowest  TicketPriority = "Lowest"
)

// ValidPriority reports whether p is a member of the priority enum.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case PriorityNone, PriorityHighest, PriorityHigh, PriorityMedium, PriorityLow, PriorityLowest:
		return true
	}
	return false
}

// StatusVocabulary is the closed set of statuses an installation accepts.
type StatusVocabulary []string

// DefaultStatusVocabulary matches the field-service workflow shipped by
// default; installations extend it through configuration.
func DefaultStatusVocabulary() StatusVocabulary {
	return StatusVocabulary{
		StatusNew,
		StatusOpen,
		StatusNeedEstimate,
		StatusEstimateSent,
		StatusEstimateApproved,
		StatusClosed,
	}
}

// ParseStatusVocabulary builds a vocabulary from a comma-separated list,
// falling back to the default when the list is empty.
func ParseStatusVocabulary(raw string) StatusVocabulary {
	parts := strings.Split(raw, ",")
	vocab := make(StatusVocabulary, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			vocab = append(vocab, trimmed)
		}
	}
	if len(vocab) == 0 {
		return DefaultStatusVocabulary()
	}
	return vocab
}

// Contains reports vocabulary membership.
func (v StatusVocabulary) Contains(status string) bool {
	for _, s := range v {
		if s == status {
			return true
		}
	}
	return false
}

// Coordinates holds a geocoded service address.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// EstimateApproval is the tri-state customer decision on an estimate file.
type EstimateApproval string

const (
	EstimatePending  EstimateApproval = "Pending"
	EstimateApproved EstimateApproval = "Approved"
	EstimateDenied   EstimateApproval = "Denied"
)

// ValidEstimateApproval reports whether a is a member of the tri-state.
func ValidEstimateApproval(a EstimateApproval) bool {
	return a == EstimatePending || a == EstimateApproved || a == EstimateDenied
}

// EstimateFile is an estimate document owned by a ticket. The list is
// append-only and files are addressed by Index within the ticket.
type EstimateFile struct {
	Index       int
	FileName    string
	ContentType string
	Data        []byte
	Approved    EstimateApproval
	UploadedAt  time.Time
}

// Ticket is the aggregate for field-service work orders.
type Ticket struct {
	ID                   string
	TicketNumber         string
	Name                 string
	Email                string
	PhoneNumber          string
	ServiceAddress       string
	WorkOrderDescription string
	TimeAvailability     string
	Status               string
	Priority             TicketPriority
	AssignedTo           string
	Coordinates          *Coordinates
	InvoiceNumber        string
	PartsUsed            []string
	ServicesDelivered    string
	AdditionalNotes      string
	AmountBilled         float64
	AmountPaid           float64
	Images               []string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Assigned reports whether a real technician is on the ticket.
func (t *Ticket) Assigned() bool {
	return !IsUnassigned(t.AssignedTo)
}
