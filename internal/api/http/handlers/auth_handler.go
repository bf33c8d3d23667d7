package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/GeneralMarshal/postgres-auth/internal/api/dto"
	"github.com/GeneralMarshal/postgres-auth/internal/auth"
	"github.com/GeneralMarshal/postgres-auth/internal/domain"
	"github.com/GeneralMarshal/postgres-auth/internal/service"
	"github.com/GeneralMarshal/postgres-auth/internal/session"
	apperrors "github.com/GeneralMarshal/postgres-auth/pkg/util"
)

// AuthHandler exposes registration, login, logout and account endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" || req.Name == "" {
		return apperrors.NewValidationError("name, email, password required", nil)
	}

	role := domain.RoleUser
	if req.Role != "" {
		parsed, err := domain.ParseRole(req.Role)
		if err != nil {
			return apperrors.NewValidationError("invalid role", map[string]any{"role": req.Role})
		}
		role = parsed
	}

	result, err := h.auth.Register(c.UserContext(), req.Name, req.Email, req.Password, role)
	if err != nil {
		return apperrors.NewConflict(err.Error(), nil)
	}

	return c.Status(http.StatusCreated).JSON(authPayload(result))
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	result, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return apperrors.NewUnauthenticated()
		}
		return apperrors.MapError(err)
	}

	return c.JSON(authPayload(result))
}

// Logout handles POST /auth/logout. Requires authentication; succeeds
// even when the session is already gone.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated()
	}
	if err := h.auth.Logout(c.UserContext(), principal); err != nil {
		if errors.Is(err, session.ErrStoreUnavailable) {
			return apperrors.NewStoreUnavailable(err)
		}
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"logged_out": true}})
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated()
	}
	roleStr := ""
	if principal.Role != nil {
		roleStr = string(*principal.Role)
	}
	return c.JSON(fiber.Map{
		"data": dto.UserResponse{
			ID:    principal.UserID,
			Name:  principal.Name,
			Email: principal.Email,
			Role:  roleStr,
		},
	})
}

// ChangePassword handles POST /auth/password/change.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated()
	}

	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return apperrors.NewValidationError("current and new password required", nil)
	}

	if err := h.auth.ChangePassword(c.UserContext(), principal.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return apperrors.NewUnauthenticated()
		}
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"changed": true}})
}

func authPayload(result *service.LoginResult) fiber.Map {
	return fiber.Map{
		"data": fiber.Map{
			"user": dto.UserResponse{
				ID:    result.User.ID,
				Name:  result.User.Name,
				Email: result.User.Email,
				Role:  string(result.User.Role),
			},
			"auth": dto.AuthResponse{AccessToken: result.AccessToken, ExpiresAt: result.ExpiresAt},
		},
	}
}
