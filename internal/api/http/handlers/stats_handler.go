package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fieldserve/ticket-tracker/internal/service"
)

// StatsHandler exposes the workload statistics endpoint.
type StatsHandler struct {
	service *service.StatsService
}

// NewStatsHandler constructs handler.
func NewStatsHandler(statsService *service.StatsService) *StatsHandler {
	return &StatsHandler{service: statsService}
}

// GetStats GET /stats.
func (h *StatsHandler) GetStats(c *fiber.Ctx) error {
	stats, err := h.service.ComputeStats(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}
