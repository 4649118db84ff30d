package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"shopapi/internal/apperrors"
	"shopapi/internal/models"
	"shopapi/internal/repositories"
	"shopapi/internal/services"
)

const currentUserKey = "currentUser"

// CurrentUser returns the identity RequireAuth (or OptionalAuth) resolved
// for this request, if any. Handlers pass the value into services
// explicitly; services never read request state.
func CurrentUser(c *fiber.Ctx) (*models.User, bool) {
	user, ok := c.Locals(currentUserKey).(*models.User)
	return user, ok
}

// RequireAuth extracts the bearer token, verifies it and re-resolves the
// user from storage so a deleted account or a changed role takes effect
// immediately regardless of token age.
func RequireAuth(auth *services.AuthService, users repositories.UserRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := resolveUser(c, auth, users)
		if err != nil {
			return err
		}
		c.Locals(currentUserKey, user)
		return c.Next()
	}
}

// RequireRole allows the request through only when the previously attached
// identity holds one of the given roles. It must run after RequireAuth.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := CurrentUser(c)
		if !ok {
			return apperrors.Unauthorized("Authentication required")
		}
		for _, role := range roles {
			if user.Role == role {
				return c.Next()
			}
		}
		return apperrors.Forbidden(fmt.Sprintf("Access denied. Required role: %s", strings.Join(roles, " or ")))
	}
}

// OptionalAuth attaches the identity when a valid token is present but never
// fails the request; any extraction or lookup error is swallowed.
func OptionalAuth(auth *services.AuthService, users repositories.UserRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if user, err := resolveUser(c, auth, users); err == nil {
			c.Locals(currentUserKey, user)
		}
		return c.Next()
	}
}

func resolveUser(c *fiber.Ctx, auth *services.AuthService, users repositories.UserRepository) (*models.User, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return nil, apperrors.Unauthorized("No token provided")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, apperrors.Unauthorized("Authorization header format must be 'Bearer <token>'")
	}

	userID, err := auth.ParseAccessToken(parts[1])
	if err != nil {
		return nil, err
	}

	user, err := users.GetByID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.Unauthorized("User not found")
		}
		return nil, err
	}
	return user, nil
}
