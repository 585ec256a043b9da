package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeUnauthenticated     = "UNAUTHENTICATED"
	CodeAccessDenied        = "ACCESS_DENIED"
	CodeInvalidRecipient    = "INVALID_RECIPIENT"
	CodeInsufficientMembers = "INSUFFICIENT_MEMBERS"
	CodeEmptyBody           = "EMPTY_BODY"
	CodeProfileIncomplete   = "PROFILE_INCOMPLETE"
	CodeValidation          = "VALIDATION_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeConflict            = "CONFLICT"
	CodeInternal            = "INTERNAL_ERROR"
)

// AppError is an error that carries the code and HTTP status it is reported with.
type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code string, message string, status int, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

func Unauthenticated(message string) *AppError {
	return New(CodeUnauthenticated, message, http.StatusUnauthorized, nil)
}

func AccessDenied(message string) *AppError {
	return New(CodeAccessDenied, message, http.StatusForbidden, nil)
}

func InvalidRecipient(message string) *AppError {
	return New(CodeInvalidRecipient, message, http.StatusBadRequest, nil)
}

func InsufficientMembers(message string) *AppError {
	return New(CodeInsufficientMembers, message, http.StatusBadRequest, nil)
}

func EmptyBody(message string) *AppError {
	return New(CodeEmptyBody, message, http.StatusBadRequest, nil)
}

func ProfileIncomplete(message string) *AppError {
	return New(CodeProfileIncomplete, message, http.StatusForbidden, nil)
}

func Validation(message string) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest, nil)
}

func NotFound(resource string, err error) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound, err)
}

func Conflict(message string) *AppError {
	return New(CodeConflict, message, http.StatusConflict, nil)
}

// Internal hides err from the caller; the message is what gets rendered.
func Internal(message string, err error) *AppError {
	return New(CodeInternal, message, http.StatusInternalServerError, err)
}

// Is reports whether err, or anything it wraps, is an AppError with the given code.
func Is(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// From returns the AppError in err's chain, if any.
func From(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
