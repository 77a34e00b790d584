package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldserve/ticket-tracker/internal/api/dto"
	"github.com/fieldserve/ticket-tracker/internal/domain"
	"github.com/fieldserve/ticket-tracker/internal/service"
	apperrors "github.com/fieldserve/ticket-tracker/pkg/util"
)

// UsersHandler exposes account and token endpoints.
type UsersHandler struct {
	service *service.AuthService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService) *UsersHandler {
	return &UsersHandler{service: authService}
}

// Login POST /auth/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return apperrors.NewValidationError("username and password required", nil)
	}

	result, err := h.service.Login(c.Context(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.LoginResponse{
		Token:        result.AccessToken,
		RefreshToken: result.RefreshToken,
		ExpiresAt:    result.ExpiresAt,
		User:         userResponse(result.User),
	}})
}

// Refresh POST /auth/refresh.
func (h *UsersHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	token, expiresAt, err := h.service.Refresh(c.Context(), req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.RefreshResponse{Token: token, ExpiresAt: expiresAt}})
}

// Register POST /auth/register. Admin only.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Username) == "" || len(req.Password) < 8 {
		return apperrors.NewValidationError("username and password (min 8 chars) required", nil)
	}

	user, err := h.service.Register(c.Context(), req.Username, req.Password, req.IsAdmin)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": userResponse(user)})
}

// ListTechnicians GET /technicians.
func (h *UsersHandler) ListTechnicians(c *fiber.Ctx) error {
	names, err := h.service.ListTechnicians(c.Context())
	if err != nil {
		return err
	}
	if names == nil {
		names = []string{}
	}
	return c.JSON(fiber.Map{"data": names})
}

func userResponse(user *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:       user.ID,
		Username: user.Username,
		IsAdmin:  user.IsAdmin,
	}
}
