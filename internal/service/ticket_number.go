package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldserve/ticket-tracker/internal/clock"
	"github.com/fieldserve/ticket-tracker/internal/repository"
	apperrors "github.com/fieldserve/ticket-tracker/pkg/util"
)

// TicketNumberAllocator issues human-readable ticket numbers of the form
// YYYYMMDD-NNNN. The calendar day is computed in the business timezone,
// not server local time, and the per-day sequence comes from an atomic
// counter so concurrent creations never collide.
type TicketNumberAllocator struct {
	sequences repository.SequenceRepository
	clock     clock.Clock
	location  *time.Location
}

// NewTicketNumberAllocator builds an allocator for the named timezone.
func NewTicketNumberAllocator(sequences repository.SequenceRepository, clk clock.Clock, timezone string) (*TicketNumberAllocator, error) {
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load business timezone %q: %w", timezone, err)
	}
	return &TicketNumberAllocator{sequences: sequences, clock: clk, location: location}, nil
}

// Next allocates the next ticket number for the current business day.
// The sequence is zero-padded to 4 digits and simply grows wider past 9999.
func (a *TicketNumberAllocator) Next(ctx context.Context) (string, error) {
	now := a.clock.Now().In(a.location)
	day := now.Format("2006-01-02")

	seq, err := a.sequences.Next(ctx, day)
	if err != nil {
		return "", apperrors.NewDependencyFailure("sequence counter", err)
	}
	return fmt.Sprintf("%s-%04d", now.Format("20060102"), seq), nil
}
