// Package apperrors defines the typed application error carried from the
// service layer to the HTTP adapter. Every error exposed to a caller has an
// HTTP status, a machine-readable code and optional structured details.
package apperrors

import (
	"errors"
	"net/http"
)

// Machine codes of the error taxonomy.
const (
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeForbidden     = "FORBIDDEN"
	CodeValidation    = "VALIDATION_ERROR"
	CodeNotFound      = "NOT_FOUND"
	CodeDuplicateSKU  = "DUPLICATE_SKU"
	CodeInternalError = "INTERNAL_ERROR"
)

// AppError is a classified application error.
type AppError struct {
	Status  int
	Code    string
	Message string
	Details any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return e.Message
}

// Unauthorized signals a missing or unresolvable caller identity.
func Unauthorized(details any) *AppError {
	return &AppError{
		Status:  http.StatusUnauthorized,
		Code:    CodeUnauthorized,
		Message: "Authentication required",
		Details: details,
	}
}

// Forbidden signals a resolved role that is not allowed to perform the
// requested operation.
func Forbidden(details any) *AppError {
	return &AppError{
		Status:  http.StatusForbidden,
		Code:    CodeForbidden,
		Message: "You do not have permission to perform this action",
		Details: details,
	}
}

// Validation signals malformed or disallowed input.
func Validation(message string, details any) *AppError {
	return &AppError{
		Status:  http.StatusBadRequest,
		Code:    CodeValidation,
		Message: message,
		Details: details,
	}
}

// NotFound signals a missing record. It is also used for records hidden by
// the visibility rule so the two cases are indistinguishable to the caller.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Status:  http.StatusNotFound,
		Code:    CodeNotFound,
		Message: resource + " not found",
		Details: details,
	}
}

// DuplicateSKU signals a uniqueness violation on create.
func DuplicateSKU(sku string) *AppError {
	return &AppError{
		Status:  http.StatusConflict,
		Code:    CodeDuplicateSKU,
		Message: "Product with this SKU already exists",
		Details: map[string]any{"field": "sku", "value": sku},
	}
}

// Internal wraps an unclassified failure. The underlying error is logged by
// the caller; the message exposed to clients stays generic.
func Internal() *AppError {
	return &AppError{
		Status:  http.StatusInternalServerError,
		Code:    CodeInternalError,
		Message: "Something went wrong! Internal Server Error",
	}
}

// From classifies an arbitrary error. Typed errors pass through unchanged;
// anything else collapses into a generic internal error.
func From(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal()
}
