package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"prodcat/internal/apperrors"
	"prodcat/internal/models"
)

// ErrorBody is the error part of the response envelope.
type ErrorBody struct {
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// Envelope is the uniform JSON wrapper used for all responses.
type Envelope struct {
	Success    bool               `json:"success"`
	Message    string             `json:"message"`
	Data       any                `json:"data,omitempty"`
	Error      *ErrorBody         `json:"error,omitempty"`
	Pagination *models.Pagination `json:"pagination,omitempty"`
}

// respond writes a success envelope.
func respond(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(Envelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// respondList writes a success envelope with a pagination object.
func respondList(c *fiber.Ctx, message string, list *models.ProductList) error {
	pagination := list.Pagination
	return c.Status(fiber.StatusOK).JSON(Envelope{
		Success:    true,
		Message:    message,
		Data:       list.Products,
		Pagination: &pagination,
	})
}

// ErrorHandler is the Fiber application error handler. Every error returned
// by a handler or middleware lands here and is rendered into the standard
// envelope; unclassified errors collapse into a generic internal error so
// no store or stack detail ever reaches the caller.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) && fiberErr.Code == http.StatusNotFound {
			appErr = &apperrors.AppError{
				Status:  http.StatusNotFound,
				Code:    apperrors.CodeNotFound,
				Message: fiberErr.Message,
			}
		} else {
			log.Printf("Unhandled error in %s %s: %v", c.Method(), c.Path(), err)
			appErr = apperrors.Internal()
		}
	}

	return c.Status(appErr.Status).JSON(Envelope{
		Success: false,
		Message: appErr.Message,
		Error: &ErrorBody{
			Code:    appErr.Code,
			Details: appErr.Details,
		},
	})
}
