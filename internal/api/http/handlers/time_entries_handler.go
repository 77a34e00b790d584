package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fieldserve/ticket-tracker/internal/api/dto"
	"github.com/fieldserve/ticket-tracker/internal/domain"
	"github.com/fieldserve/ticket-tracker/internal/repository"
	"github.com/fieldserve/ticket-tracker/internal/service"
	apperrors "github.com/fieldserve/ticket-tracker/pkg/util"
)

// TimeEntriesHandler exposes technician time tracking endpoints.
type TimeEntriesHandler struct {
	service *service.TimeEntryService
}

// NewTimeEntriesHandler constructs handler.
func NewTimeEntriesHandler(timeEntryService *service.TimeEntryService) *TimeEntriesHandler {
	return &TimeEntriesHandler{service: timeEntryService}
}

// ClockIn POST /time-entries/clock-in.
func (h *TimeEntriesHandler) ClockIn(c *fiber.Ctx) error {
	var req dto.ClockRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	entry, err := h.service.ClockIn(c.Context(), req.User, req.TicketNumber)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": timeEntryResponse(entry)})
}

// ClockOut POST /time-entries/clock-out.
func (h *TimeEntriesHandler) ClockOut(c *fiber.Ctx) error {
	var req dto.ClockRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.service.ClockOut(c.Context(), req.User, req.TicketNumber); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"closed": true}})
}

// ListEntries GET /time-entries.
func (h *TimeEntriesHandler) ListEntries(c *fiber.Ctx) error {
	filter := repository.TimeEntryFilter{}
	if user := c.Query("user"); user != "" {
		filter.User = &user
	}
	if number := c.Query("ticket"); number != "" {
		filter.TicketNumber = &number
	}

	entries, err := h.service.ListEntries(c.Context(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TimeEntryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, timeEntryResponse(&entries[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// UserHours GET /time-entries/hours. Admin only.
func (h *TimeEntriesHandler) UserHours(c *fiber.Ctx) error {
	report, err := h.service.UserHoursReport(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": report})
}

func timeEntryResponse(entry *domain.TimeEntry) dto.TimeEntryResponse {
	ranges := make([]dto.TimeRangeResponse, 0, len(entry.TimeRanges))
	for _, tr := range entry.TimeRanges {
		ranges = append(ranges, dto.TimeRangeResponse{StartTime: tr.StartTime, EndTime: tr.EndTime})
	}
	return dto.TimeEntryResponse{
		ID:           entry.ID,
		User:         entry.User,
		TicketNumber: entry.TicketNumber,
		Week:         entry.Week,
		TimeRanges:   ranges,
	}
}
