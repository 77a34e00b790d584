package dto

import "time"

// ClockRequest identifies the session being opened or closed.
type ClockRequest struct {
	User         string `json:"user"`
	TicketNumber string `json:"ticketNumber"`
}

// TimeRangeResponse is one work session.
type TimeRangeResponse struct {
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
}

// TimeEntryResponse groups sessions per (user, ticket, week).
type TimeEntryResponse struct {
	ID           string              `json:"id"`
	User         string              `json:"user"`
	TicketNumber string              `json:"ticketNumber"`
	Week         int                 `json:"week"`
	TimeRanges   []TimeRangeResponse `json:"timeRanges"`
}
