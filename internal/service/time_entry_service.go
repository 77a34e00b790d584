package service

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/fieldserve/ticket-tracker/internal/clock"
	"github.com/fieldserve/ticket-tracker/internal/domain"
	"github.com/fieldserve/ticket-tracker/internal/repository"
	apperrors "github.com/fieldserve/ticket-tracker/pkg/util"
)

// TimeEntryService tracks technician work sessions on tickets.
type TimeEntryService struct {
	entries repository.TimeEntryRepository
	clock   clock.Clock
}

// NewTimeEntryService constructs the service.
func NewTimeEntryService(entries repository.TimeEntryRepository, clk clock.Clock) *TimeEntryService {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &TimeEntryService{entries: entries, clock: clk}
}

// ClockIn opens a work session for the technician on the ticket.
func (s *TimeEntryService) ClockIn(ctx context.Context, user, ticketNumber string) (*domain.TimeEntry, error) {
	if strings.TrimSpace(user) == "" || strings.TrimSpace(ticketNumber) == "" {
		return nil, apperrors.NewValidationError("user and ticket number required", nil)
	}
	now := s.clock.Now()
	_, week := now.ISOWeek()

	entry, err := s.entries.ClockIn(ctx, user, ticketNumber, week, now)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entry, nil
}

// ClockOut closes the technician's open session on the ticket.
func (s *TimeEntryService) ClockOut(ctx context.Context, user, ticketNumber string) error {
	if err := s.entries.CloseOpenRange(ctx, user, ticketNumber, s.clock.Now()); err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewValidationError("no open session for user on ticket",
				map[string]any{"user": user, "ticket_number": ticketNumber})
		}
		return apperrors.MapError(err)
	}
	return nil
}

// ListEntries returns entries matching the filter.
func (s *TimeEntryService) ListEntries(ctx context.Context, filter repository.TimeEntryFilter) ([]domain.TimeEntry, error) {
	entries, err := s.entries.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// UserHoursReport sums tracked hours per technician, in total and per ISO
// week. Open sessions contribute nothing until they are closed.
func (s *TimeEntryService) UserHoursReport(ctx context.Context) (map[string]domain.UserHours, error) {
	entries, err := s.entries.List(ctx, repository.TimeEntryFilter{})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	report := make(map[string]domain.UserHours)
	for _, entry := range entries {
		var hours float64
		for _, tr := range entry.TimeRanges {
			if tr.EndTime == nil {
				continue
			}
			hours += tr.EndTime.Sub(tr.StartTime).Hours()
		}
		if hours == 0 {
			continue
		}
		summary, ok := report[entry.User]
		if !ok {
			summary = domain.UserHours{Weekly: make(domain.WeeklyHours)}
		}
		summary.Total += hours
		summary.Weekly[entry.Week] += hours
		report[entry.User] = summary
	}
	return report, nil
}
