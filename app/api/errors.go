package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"docchunker/service"
)

// NewErrorHandler renders every error a handler returns in the API envelope
// and logs it once.
func NewErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var (
			apiErr   Error
			valErr   ValidationError
			fiberErr *fiber.Error
		)
		switch {
		case errors.As(err, &apiErr):
		case errors.As(err, &valErr):
			logger.Warn("request rejected", "method", c.Method(), "path", c.Path(), "errors", valErr.Errors)
			return c.Status(valErr.Status).JSON(valErr)
		case errors.As(err, &fiberErr):
			apiErr = NewError(fiberErr.Code, fiberErr.Message)
		default:
			apiErr = NewError(service.Describe(err))
		}

		if apiErr.Code >= fiber.StatusInternalServerError {
			logger.Error("request failed", "method", c.Method(), "path", c.Path(), "code", apiErr.Code, "error", err)
		} else {
			logger.Warn("request failed", "method", c.Method(), "path", c.Path(), "code", apiErr.Code, "error", err)
		}
		return c.Status(apiErr.Code).JSON(apiErr)
	}
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
}

type ValidationError struct {
	Status int               `json:"status"`
	Errors map[string]string `json:"errors"`
}

func (e ValidationError) Error() string {
	return "validation failed"
}

func NewValidationError(errors map[string]string) ValidationError {
	return ValidationError{
		Status: fiber.StatusUnprocessableEntity,
		Errors: errors,
	}
}

// Error implements the Error interface
func (e Error) Error() string {
	return e.Message
}

func NewError(code int, err string) Error {
	return Error{
		Code:    code,
		Message: err,
	}
}

func ErrBadRequest() Error {
	return Error{
		Code:    fiber.StatusBadRequest,
		Message: "invalid JSON request",
	}
}

func ErrNoFile() Error {
	return Error{
		Code:    fiber.StatusBadRequest,
		Message: "No file uploaded",
	}
}

func ErrNotPDF() Error {
	return Error{
		Code:    fiber.StatusBadRequest,
		Message: "Only PDF files are allowed",
	}
}
