package handlers

import (
	"github.com/gofiber/fiber/v2"

	"shopapi/internal/apperrors"
	"shopapi/internal/middleware"
	"shopapi/internal/models"
	"shopapi/internal/repositories"
	"shopapi/internal/services"
	"shopapi/internal/validation"
)

// UserHandler handles HTTP requests for user administration.
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// RegisterRoutes registers the user routes. Everything requires
// authentication; all but change-password require the admin role.
func (h *UserHandler) RegisterRoutes(router fiber.Router, requireAuth fiber.Handler) {
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	users := router.Group("/users", requireAuth)
	users.Post("/change-password", h.HandleChangePassword)
	users.Get("/", adminOnly, h.HandleList)
	users.Get("/:id", adminOnly, h.HandleGetByID)
	users.Put("/:id", adminOnly, h.HandleUpdate)
	users.Delete("/:id", adminOnly, h.HandleDelete)
}

// HandleList returns one filtered page of users.
func (h *UserHandler) HandleList(c *fiber.Ctx) error {
	page, limit, err := validation.Pagination(c.Query("page"), c.Query("limit"))
	if err != nil {
		return err
	}

	filter := repositories.UserFilter{
		Role:      c.Query("role"),
		Search:    c.Query("search"),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	}
	result, err := h.userService.List(page, limit, filter)
	if err != nil {
		return err
	}
	result.Filters = echoUserFilters(filter)
	return respondOK(c, "", result)
}

// HandleGetByID returns a single user.
func (h *UserHandler) HandleGetByID(c *fiber.Ctx) error {
	id, err := validation.ID("User", c.Params("id"))
	if err != nil {
		return err
	}
	user, err := h.userService.GetByID(id)
	if err != nil {
		return err
	}
	return respondOK(c, "", user)
}

// HandleUpdate applies the permitted partial updates to a user. Password and
// refresh-token keys in the body are dropped during binding.
func (h *UserHandler) HandleUpdate(c *fiber.Ctx) error {
	id, err := validation.ID("User", c.Params("id"))
	if err != nil {
		return err
	}
	var input services.UserUpdateInput
	if err := c.BodyParser(&input); err != nil {
		return apperrors.BadRequest("Invalid request body")
	}
	if err := validation.Struct(input); err != nil {
		return err
	}

	user, err := h.userService.Update(id, input)
	if err != nil {
		return err
	}
	return respondOK(c, "User updated successfully", user)
}

// HandleDelete removes a user.
func (h *UserHandler) HandleDelete(c *fiber.Ctx) error {
	id, err := validation.ID("User", c.Params("id"))
	if err != nil {
		return err
	}
	if err := h.userService.Delete(id); err != nil {
		return err
	}
	return respondOK(c, "User deleted successfully", nil)
}

// ChangePasswordRequest carries the current and replacement passwords.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

// HandleChangePassword lets the authenticated user rotate their own password.
func (h *UserHandler) HandleChangePassword(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return apperrors.Unauthorized("Authentication required")
	}

	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.BadRequest("Invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return err
	}

	if err := h.userService.ChangePassword(user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return respondOK(c, "Password changed successfully", nil)
}

func echoUserFilters(f repositories.UserFilter) map[string]string {
	filters := map[string]string{}
	for key, value := range map[string]string{
		"role":      f.Role,
		"search":    f.Search,
		"sortBy":    f.SortBy,
		"sortOrder": f.SortOrder,
	} {
		if value != "" {
			filters[key] = value
		}
	}
	if len(filters) == 0 {
		return nil
	}
	return filters
}
