// Package errors provides the application error type for the finsight API.
// Services return AppError values so handlers can render a stable code and
// message without leaking the wrapped internal error to clients.
package errors

import "net/http"

// StatusClientClosedRequest is the non-standard status used when the caller
// abandoned the request before it finished.
const StatusClientClosedRequest = 499

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is reports whether target is an AppError with the same code, so wrapped
// copies still match their sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrRateLimited        = &AppError{Code: "RATE_LIMITED", Message: "Too many requests, slow down", StatusCode: http.StatusTooManyRequests}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound   = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail = &AppError{Code: "DUPLICATE_EMAIL", Message: "A user with this email already exists", StatusCode: http.StatusConflict}
)

// Transaction errors.
var (
	ErrTransactionNotFound = &AppError{Code: "TRANSACTION_NOT_FOUND", Message: "Transaction not found", StatusCode: http.StatusNotFound}
	ErrImportFailed        = &AppError{Code: "IMPORT_FAILED", Message: "No valid rows could be imported", StatusCode: http.StatusUnprocessableEntity}
)

// Completion API errors.
var (
	ErrAPI       = &AppError{Code: "API_ERROR", Message: "The completion service could not be reached or returned no content", StatusCode: http.StatusBadGateway}
	ErrParse     = &AppError{Code: "PARSE_ERROR", Message: "The completion service returned an unreadable payload", StatusCode: http.StatusBadGateway}
	ErrCancelled = &AppError{Code: "REQUEST_CANCELLED", Message: "The request has been cancelled", StatusCode: StatusClientClosedRequest}
)

// Chat errors.
var (
	ErrChatSessionNotFound = &AppError{Code: "CHAT_SESSION_NOT_FOUND", Message: "Chat session not found", StatusCode: http.StatusNotFound}
	ErrChatBusy            = &AppError{Code: "CHAT_BUSY", Message: "A request is already in progress for this session", StatusCode: http.StatusConflict}
)
