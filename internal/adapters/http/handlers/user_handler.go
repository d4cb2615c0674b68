package handlers

import (
	"errors"
	"strconv"

	"klinika-care/internal/core/domain"
	"klinika-care/internal/core/services"
	"klinika-care/internal/pkg/pagination"
	"klinika-care/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// UserHandler handles user management endpoints
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// Create provisions an account with an explicit role
// @Summary Create user
// @Description Admin creates a staff or patient account
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreateUserRequest true "User data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /admin/users [post]
func (h *UserHandler) Create(c *fiber.Ctx) error {
	var req services.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	user, err := h.userService.CreateUser(c.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			return response.BadRequest(c, "full_name and email are required")
		case errors.Is(err, services.ErrInvalidRole):
			return response.BadRequest(c, "Invalid role")
		case errors.Is(err, services.ErrWeakPassword):
			return response.BadRequest(c, "Password must be at least 8 characters")
		case errors.Is(err, services.ErrEmailTaken):
			return response.Conflict(c, "Email already registered")
		default:
			return response.InternalServerError(c, "Failed to create user")
		}
	}
	return response.Created(c, "User created", user)
}

// List returns users, optionally filtered by role
// @Summary List users
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param role query string false "Filter by role"
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Router /admin/users [get]
func (h *UserHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)
	users, total, err := h.userService.List(c.Context(), params.Offset, params.Limit, c.Query("role"))
	if err != nil {
		if errors.Is(err, services.ErrInvalidRole) {
			return response.BadRequest(c, "Invalid role")
		}
		return response.InternalServerError(c, "Failed to list users")
	}
	return response.Success(c, "Users retrieved", pagination.NewResponse(users, params, total))
}

// ListDoctors returns the active doctors. Patient-visible, used when booking.
// @Summary List doctors
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /doctors [get]
func (h *UserHandler) ListDoctors(c *fiber.Ctx) error {
	params := pagination.GetParams(c)
	doctors, total, err := h.userService.List(c.Context(), params.Offset, params.Limit, string(domain.RoleDoctor))
	if err != nil {
		return response.InternalServerError(c, "Failed to list doctors")
	}
	return response.Success(c, "Doctors retrieved", pagination.NewResponse(doctors, params, total))
}

// GetByID returns one user
// @Summary Get user
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/users/{id} [get]
func (h *UserHandler) GetByID(c *fiber.Ctx) error {
	userID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	user, err := h.userService.GetByID(c.Context(), uint(userID))
	if err != nil {
		return response.NotFound(c, "User not found")
	}
	return response.Success(c, "User retrieved", user)
}

// Update modifies a user's profile, role or active flag
// @Summary Update user
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param body body services.UpdateUserRequest true "Fields to update"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/users/{id} [put]
func (h *UserHandler) Update(c *fiber.Ctx) error {
	userID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	var req services.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	user, err := h.userService.Update(c.Context(), uint(userID), &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			return response.NotFound(c, "User not found")
		case errors.Is(err, services.ErrInvalidRole):
			return response.BadRequest(c, "Invalid role")
		default:
			return response.InternalServerError(c, "Failed to update user")
		}
	}
	return response.Success(c, "User updated", user)
}

// Deactivate soft-deletes an account
// @Summary Deactivate user
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/users/{id} [delete]
func (h *UserHandler) Deactivate(c *fiber.Ctx) error {
	userID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	if err := h.userService.Deactivate(c.Context(), uint(userID)); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return response.NotFound(c, "User not found")
		}
		return response.InternalServerError(c, "Failed to deactivate user")
	}
	return response.Success(c, "User deactivated", nil)
}

// ChangePasswordRequest represents a password change body
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ChangePassword replaces the authenticated user's password
// @Summary Change password
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body ChangePasswordRequest true "Old and new passwords"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /profile/password [put]
func (h *UserHandler) ChangePassword(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	err := h.userService.ChangePassword(c.Context(), userID, req.OldPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			return response.Unauthorized(c, "Old password is incorrect")
		case errors.Is(err, services.ErrWeakPassword):
			return response.BadRequest(c, "New password must be at least 8 characters")
		default:
			return response.InternalServerError(c, "Failed to change password")
		}
	}
	return response.Success(c, "Password changed", nil)
}

// UpdateProfile modifies the authenticated user's own profile
// @Summary Update profile
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.UpdateUserRequest true "Fields to update"
// @Success 200 {object} response.Response
// @Router /profile [put]
func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req services.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	// Role and active flag changes stay admin-only
	req.Role = nil
	req.IsActive = nil

	user, err := h.userService.Update(c.Context(), userID, &req)
	if err != nil {
		return response.InternalServerError(c, "Failed to update profile")
	}
	return response.Success(c, "Profile updated", user)
}
