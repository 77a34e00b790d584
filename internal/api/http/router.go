package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fieldserve/ticket-tracker/internal/api/http/handlers"
	"github.com/fieldserve/ticket-tracker/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Stats          *handlers.StatsHandler
	Users          *handlers.UsersHandler
	TimeEntries    *handlers.TimeEntriesHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Post("/refresh", cfg.Users.Refresh)
	authGroup.Post("/register", cfg.AuthMiddleware.Handle, auth.RequireAdmin(), cfg.Users.Register)

	app.Get("/technicians", cfg.AuthMiddleware.Handle, auth.RequireAuth(), cfg.Users.ListTechnicians)

	tickets := app.Group("/tickets")
	// Intake, rescheduling and estimate approval are customer-facing and
	// deliberately unauthenticated.
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Post("/:id/reschedule", cfg.Tickets.RescheduleTicket)
	tickets.Post("/:id/estimates/:index/approval", cfg.Tickets.SetEstimateApproval)

	protected := tickets.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuth())
	protected.Get("/", cfg.Tickets.ListTickets)
	protected.Get("/:id", cfg.Tickets.GetTicket)
	protected.Post("/:id", cfg.Tickets.UpdateTicket)
	protected.Delete("/:id", cfg.Tickets.DeleteTicket)
	protected.Get("/:id/estimates", cfg.Tickets.GetEstimateFiles)
	protected.Post("/:id/estimates", cfg.Tickets.AddEstimateFile)
	protected.Post("/:id/estimates/email", cfg.Tickets.EmailEstimateFiles)

	app.Get("/stats", cfg.AuthMiddleware.Handle, auth.RequireAuth(), cfg.Stats.GetStats)

	timeEntries := app.Group("/time-entries", cfg.AuthMiddleware.Handle, auth.RequireAuth())
	timeEntries.Post("/clock-in", cfg.TimeEntries.ClockIn)
	timeEntries.Post("/clock-out", cfg.TimeEntries.ClockOut)
	timeEntries.Get("/", cfg.TimeEntries.ListEntries)
	timeEntries.Get("/hours", auth.RequireAdmin(), cfg.TimeEntries.UserHours)
}
