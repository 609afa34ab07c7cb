package utils

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localrally/petitiond/internal/types"
)

// statusForKind maps a business-error kind to the HTTP status the original
// API contract uses. Conflicts (duplicate titles) surface as 403 there.
func statusForKind(kind types.ErrorKind) int {
	switch kind {
	case types.InvalidRequest:
		return fiber.StatusBadRequest
	case types.Unauthorized:
		return fiber.StatusUnauthorized
	case types.Forbidden, types.Conflict:
		return fiber.StatusForbidden
	case types.NotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// SuccessResponse sends a JSON payload with the given status
func SuccessResponse(c *fiber.Ctx, data interface{}, status int) error {
	return c.Status(status).JSON(data)
}

// DomainErrorResponse renders a classified service error
func DomainErrorResponse(c *fiber.Ctx, err *types.DomainError) error {
	status := statusForKind(err.Kind)
	message := err.Message
	if err.Kind == types.Fault {
		// Internal detail was already logged by the service layer.
		message = "Internal Server Error"
	}
	return ErrorResponse(c, message, status, err.Kind.String())
}

// ErrorResponse sends a standard error response
func ErrorResponse(c *fiber.Ctx, message string, status int, errorType string) error {
	return c.Status(status).JSON(fiber.Map{
		"status":    status,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
		"type":      errorType,
	})
}

// ErrorResponseStruct defines the schema for error responses
type ErrorResponseStruct struct {
	Status    int    `json:"status"`
	Message   string `json:"message"`
	Ok        bool   `json:"ok"`
	Timestamp string `json:"timestamp"`
	URL       string `json:"url"`
	Type      string `json:"type,omitempty"`
}
