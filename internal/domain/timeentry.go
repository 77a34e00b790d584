package domain

import "time"

// TimeRange is one work session; EndTime is nil while the technician is
// still clocked in.
type TimeRange struct {
	StartTime time.Time
	EndTime   *time.Time
}

// TimeEntry groups the work sessions of one technician on one ticket
// within one ISO week.
type TimeEntry struct {
	ID           string
	User         string
	TicketNumber string
	Week         int
	TimeRanges   []TimeRange
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// WeeklyHours maps ISO week number to hours worked.
type WeeklyHours map[int]float64

// UserHours summarizes a technician's tracked time.
type UserHours struct {
	Total  float64     `json:"total"`
	Weekly WeeklyHours `json:"weekly"`
}
