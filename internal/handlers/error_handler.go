package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"shopapi/internal/apperrors"
)

// NewErrorHandler returns the single boundary that maps every error kind to
// its HTTP status and response shape. Unknown errors are logged in full on
// the server and redacted for the client unless running in development.
func NewErrorHandler(development bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		if appErr, ok := apperrors.As(err); ok {
			if cause := appErr.Unwrap(); cause != nil {
				log.Printf("Error: %s | Cause: %v | Path: %s | Method: %s", appErr.Message, cause, c.Path(), c.Method())
			}
			return c.Status(appErr.Status).JSON(Envelope{
				Success: false,
				Message: appErr.Message,
				Errors:  appErr.Fields,
			})
		}

		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusConflict).JSON(Envelope{
				Success: false,
				Message: "A record with this value already exists",
			})
		}
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return c.Status(fiber.StatusBadRequest).JSON(Envelope{
				Success: false,
				Message: "Invalid reference. Related resource does not exist.",
			})
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(Envelope{
				Success: false,
				Message: fiberErr.Message,
			})
		}

		log.Printf("Unhandled error: %v | Path: %s | Method: %s", err, c.Path(), c.Method())
		message := "Something went wrong. Please try again later."
		if development {
			message = err.Error()
		}
		return c.Status(fiber.StatusInternalServerError).JSON(Envelope{
			Success: false,
			Message: message,
		})
	}
}
