package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"taskzen-api/domain"
)

// envelope is the uniform response body. Success responses carry data and
// optionally a message; failures carry error, code and field errors.
type envelope struct {
	Success   bool                `json:"success"`
	Data      any                 `json:"data,omitempty"`
	Message   string              `json:"message,omitempty"`
	Error     string              `json:"error,omitempty"`
	Code      string              `json:"code,omitempty"`
	Errors    map[string][]string `json:"errors,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

const (
	codeValidation     = "VALIDATION_ERROR"
	codeUnauthorized   = "UNAUTHORIZED"
	codeForbidden      = "FORBIDDEN"
	codeNotFound       = "NOT_FOUND"
	codeDuplicateEntry = "DUPLICATE_ENTRY"
	codeInternal       = "INTERNAL_ERROR"
)

func respond(c echo.Context, status int, data any) error {
	return c.JSON(status, envelope{Success: true, Data: data, Timestamp: time.Now().UTC()})
}

func respondMessage(c echo.Context, status int, message string) error {
	return c.JSON(status, envelope{Success: true, Message: message, Timestamp: time.Now().UTC()})
}

// fail translates a service error into the envelope. Unclassified errors
// are logged and reported as an opaque internal error.
func fail(c echo.Context, err error) error {
	status, code := http.StatusInternalServerError, codeInternal
	message := "Internal server error"

	switch domain.KindOf(err) {
	case domain.KindInvalid:
		status, code = http.StatusBadRequest, codeValidation
		message = err.Error()
	case domain.KindUnauthenticated:
		status, code = http.StatusUnauthorized, codeUnauthorized
		message = err.Error()
	case domain.KindForbidden:
		status, code = http.StatusForbidden, codeForbidden
		message = err.Error()
	case domain.KindNotFound:
		status, code = http.StatusNotFound, codeNotFound
		message = err.Error()
	case domain.KindConflict:
		status, code = http.StatusConflict, codeDuplicateEntry
		message = err.Error()
	default:
		c.Logger().Error(err)
	}

	return c.JSON(status, envelope{
		Success:   false,
		Error:     message,
		Code:      code,
		Errors:    domain.FieldsOf(err),
		Timestamp: time.Now().UTC(),
	})
}

// failValidation reports a 400 with per-field error messages.
func failValidation(c echo.Context, fields map[string][]string) error {
	return c.JSON(http.StatusBadRequest, envelope{
		Success:   false,
		Error:     "Validation failed",
		Code:      codeValidation,
		Errors:    fields,
		Timestamp: time.Now().UTC(),
	})
}
