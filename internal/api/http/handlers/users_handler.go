package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/GeneralMarshal/postgres-auth/internal/api/dto"
	"github.com/GeneralMarshal/postgres-auth/internal/repository"
	apperrors "github.com/GeneralMarshal/postgres-auth/pkg/util"
)

// UsersHandler exposes administrative account endpoints.
type UsersHandler struct {
	users repository.UserRepository
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users repository.UserRepository) *UsersHandler {
	return &UsersHandler{users: users}
}

// List handles GET /users. Restricted to ADMIN and MANAGER by the router.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", "50"))
	if err != nil || limit <= 0 || limit > 200 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.Query("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	users, err := h.users.List(c.UserContext(), limit, offset)
	if err != nil {
		return apperrors.MapError(err)
	}

	out := make([]dto.UserResponse, 0, len(users))
	for _, user := range users {
		out = append(out, dto.UserResponse{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
			Role:  string(user.Role),
		})
	}
	return c.JSON(fiber.Map{"data": out})
}
