package handlers

import (
	"io"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldserve/ticket-tracker/internal/api/dto"
	"github.com/fieldserve/ticket-tracker/internal/auth"
	"github.com/fieldserve/ticket-tracker/internal/domain"
	"github.com/fieldserve/ticket-tracker/internal/service"
	apperrors "github.com/fieldserve/ticket-tracker/pkg/util"
)

// TicketsHandler exposes the ticket lifecycle endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets. Public customer intake.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.service.CreateTicket(c.Context(), service.TicketCreateInput{
		Name:                 req.Name,
		Email:                req.Email,
		PhoneNumber:          req.PhoneNumber,
		ServiceAddress:       req.ServiceAddress,
		WorkOrderDescription: req.WorkOrderDescription,
		TimeAvailability:     req.TimeAvailability,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	filter := service.TicketListFilter{}
	if status := c.Query("status"); status != "" {
		filter.Status = &status
	}
	if assignee := c.Query("assignee"); assignee != "" {
		filter.AssignedTo = &assignee
	}
	filter.Limit = parseInt(c.Query("limit"), 0)
	filter.Offset = parseInt(c.Query("offset"), 0)

	tickets, err := h.service.ListTickets(c.Context(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.service.GetTicket(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// UpdateTicket POST /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.service.UpdateTicket(c.Context(), c.Params("id"), service.TicketUpdateInput{
		Name:                 req.Name,
		Email:                req.Email,
		PhoneNumber:          req.PhoneNumber,
		ServiceAddress:       req.ServiceAddress,
		WorkOrderDescription: req.WorkOrderDescription,
		TimeAvailability:     req.TimeAvailability,
		Status:               req.Status,
		Priority:             req.Priority,
		AssignedTo:           req.AssignedTo,
		InvoiceNumber:        req.InvoiceNumber,
		PartsUsed:            req.PartsUsed,
		ServicesDelivered:    req.ServicesDelivered,
		AdditionalNotes:      req.AdditionalNotes,
		AmountBilled:         req.AmountBilled,
		AmountPaid:           req.AmountPaid,
		Images:               req.Images,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// DeleteTicket DELETE /tickets/:id. Admin callers bypass the guards.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	snapshot, err := h.service.DeleteTicket(c.Context(), c.Params("id"), principal.IsAdmin())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(snapshot)})
}

// RescheduleTicket POST /tickets/:id/reschedule. Public self-service.
func (h *TicketsHandler) RescheduleTicket(c *fiber.Ctx) error {
	var req dto.RescheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.RescheduleTicket(c.Context(), c.Params("id"), req.TimeAvailability)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// AddEstimateFile POST /tickets/:id/estimates. Multipart upload.
func (h *TicketsHandler) AddEstimateFile(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("file upload required", nil)
	}
	opened, err := fileHeader.Open()
	if err != nil {
		return apperrors.NewValidationError("unreadable upload", nil)
	}
	defer opened.Close()

	data, err := io.ReadAll(opened)
	if err != nil {
		return apperrors.NewValidationError("unreadable upload", nil)
	}

	file, err := h.service.AddEstimateFile(c.Context(), c.Params("id"), service.EstimateFileInput{
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": estimateFileResponse(file)})
}

// GetEstimateFiles GET /tickets/:id/estimates.
func (h *TicketsHandler) GetEstimateFiles(c *fiber.Ctx) error {
	files, err := h.service.GetEstimateFiles(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.EstimateFileResponse, 0, len(files))
	for i := range files {
		items = append(items, estimateFileResponse(&files[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// SetEstimateApproval POST /tickets/:id/estimates/:index/approval.
func (h *TicketsHandler) SetEstimateApproval(c *fiber.Ctx) error {
	index, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return apperrors.NewValidationError("invalid estimate index", nil)
	}
	var req dto.EstimateApprovalRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.service.SetEstimateApproval(c.Context(), c.Params("id"), index, req.Approved); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"index": index, "approved": req.Approved}})
}

// EmailEstimateFiles POST /tickets/:id/estimates/email.
func (h *TicketsHandler) EmailEstimateFiles(c *fiber.Ctx) error {
	messageID, err := h.service.EmailEstimateFiles(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"success": true, "messageId": messageID}})
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:                   ticket.ID,
		TicketNumber:         ticket.TicketNumber,
		Name:                 ticket.Name,
		Email:                ticket.Email,
		PhoneNumber:          ticket.PhoneNumber,
		ServiceAddress:       ticket.ServiceAddress,
		WorkOrderDescription: ticket.WorkOrderDescription,
		TimeAvailability:     ticket.TimeAvailability,
		Status:               ticket.Status,
		Priority:             ticket.Priority,
		AssignedTo:           ticket.AssignedTo,
		Coordinates:          ticket.Coordinates,
		InvoiceNumber:        ticket.InvoiceNumber,
		PartsUsed:            ticket.PartsUsed,
		ServicesDelivered:    ticket.ServicesDelivered,
		AdditionalNotes:      ticket.AdditionalNotes,
		AmountBilled:         ticket.AmountBilled,
		AmountPaid:           ticket.AmountPaid,
		Images:               ticket.Images,
		CreatedAt:            ticket.CreatedAt,
		UpdatedAt:            ticket.UpdatedAt,
	}
}

func estimateFileResponse(file *domain.EstimateFile) dto.EstimateFileResponse {
	return dto.EstimateFileResponse{
		Index:       file.Index,
		FileName:    file.FileName,
		ContentType: file.ContentType,
		SizeBytes:   len(file.Data),
		Approved:    file.Approved,
		UploadedAt:  file.UploadedAt,
	}
}
