package handlers

import (
	"github.com/gofiber/fiber/v2"

	"shopapi/internal/apperrors"
	"shopapi/internal/middleware"
	"shopapi/internal/services"
	"shopapi/internal/validation"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterRoutes registers the authentication routes. requireAuth guards the
// routes that need an attached identity.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, requireAuth fiber.Handler) {
	auth := router.Group("/auth")
	auth.Post("/register", h.HandleRegister)
	auth.Post("/login", h.HandleLogin)
	auth.Post("/refresh", h.HandleRefresh)
	auth.Post("/logout", requireAuth, h.HandleLogout)
	auth.Get("/me", requireAuth, h.HandleMe)
}

// RegisterRequest is the registration payload.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Role     string `json:"role" validate:"omitempty,oneof=admin user"`
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.BadRequest("Invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return err
	}

	result, err := h.authService.Register(req.Email, req.Password, req.Name, req.Role)
	if err != nil {
		return err
	}
	return respondCreated(c, "User registered successfully", result)
}

// LoginRequest is the login payload. Only presence is checked.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin handles user login and issues the token pair.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.BadRequest("Invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return err
	}

	result, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		return err
	}
	return respondOK(c, "Login successful", result)
}

// RefreshRequest carries the refresh token to exchange.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// HandleRefresh exchanges a refresh token for a new access token.
func (h *AuthHandler) HandleRefresh(c *fiber.Ctx) error {
	var req RefreshRequest
	// A missing or malformed body is treated as a missing token.
	_ = c.BodyParser(&req)

	accessToken, err := h.authService.RefreshAccessToken(req.RefreshToken)
	if err != nil {
		return err
	}
	return respondOK(c, "Token refreshed successfully", fiber.Map{"accessToken": accessToken})
}

// HandleLogout invalidates the caller's refresh token.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return apperrors.Unauthorized("Authentication required")
	}
	if err := h.authService.Logout(user.ID); err != nil {
		return err
	}
	return respondOK(c, "Logged out successfully", nil)
}

// HandleMe returns the authenticated user's own record.
func (h *AuthHandler) HandleMe(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return apperrors.Unauthorized("Authentication required")
	}
	current, err := h.authService.GetCurrentUser(user.ID)
	if err != nil {
		return err
	}
	return respondOK(c, "", current)
}
