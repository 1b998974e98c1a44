package handler

import (
	"github.com/gofiber/fiber/v2"

	"casevault/internal/apperror"
	"casevault/internal/http/middleware"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Diagnostic carries operator-facing detail and is only populated
	// outside production.
	Diagnostic string `json:"diagnostic,omitempty"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// respondError translates a service error into the standard body using the
// kind taxonomy. Integrity faults read as NOT_FOUND to callers; diagnostic
// detail is attached only when production is false.
func respondError(c *fiber.Ctx, err error, production bool) error {
	kind := apperror.KindOf(err)
	status := fiber.StatusInternalServerError
	code := kind.String()
	message := apperror.Message(err)

	switch kind {
	case apperror.KindValidation:
		status = fiber.StatusBadRequest
	case apperror.KindNotFound:
		status = fiber.StatusNotFound
	case apperror.KindConflict:
		status = fiber.StatusConflict
	case apperror.KindIntegrity:
		status = fiber.StatusNotFound
		code = apperror.KindNotFound.String()
		res := errorPayload{
			RequestID: requestIDFromCtx(c),
			Error:     errorEnvelope{Code: code, Message: "document not found"},
		}
		if !production {
			res.Error.Diagnostic = message
		}
		return c.Status(status).JSON(res)
	case apperror.KindStorage:
		message = "storage failure"
	default:
		message = "internal server error"
	}
	return writeError(c, status, code, message)
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusUnauthorized:
			return writeError(c, status, "UNAUTHORIZED", "authentication required")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "VALIDATION_ERROR", "request body too large")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
