package apperrors

import "errors"

// Common errors
var (
	// Resource errors
	ErrResourceNotFound      = errors.New("resource not found")
	ErrResourceAlreadyExists = errors.New("resource already exists")
	ErrConflict              = errors.New("conflict")

	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTokenNotFound      = errors.New("token not found")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrUnauthenticated    = errors.New("authentication required")

	// Authorization errors
	ErrPermissionDenied = errors.New("permission denied")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrBadRequest       = errors.New("bad request")
	ErrInvalidFormat    = errors.New("invalid token format")
)

// User errors
var (
	ErrUserNotFound    = NewResourceNotFoundError("user not found")
	ErrUsernameTaken   = NewCustomError(ErrResourceAlreadyExists, "username already exists")
	ErrInvalidUsername = NewCustomError(ErrValidationFailed, "invalid username")
	ErrInvalidRole     = NewCustomError(ErrValidationFailed, "role must be either lecturer or student")
)

// Workshop errors
var (
	ErrWorkshopNotFound  = NewResourceNotFoundError("workshop not found")
	ErrInvalidWorkshopID = NewBadRequestError("workshop id must be a positive integer")
	ErrInvalidStatus     = NewCustomError(ErrValidationFailed, "status must be one of pending, approved, rejected")
	ErrInvalidDate       = NewCustomError(ErrValidationFailed, "date must be an ISO-8601 timestamp")
	ErrNotWorkshopOwner  = NewForbiddenError("only the owning lecturer can change this workshop")
)

// Vote errors
var (
	ErrVoteNotFound  = NewResourceNotFoundError("vote not found")
	ErrDuplicateVote = errors.New("you have already voted for this workshop")
	ErrVotingClosed  = NewConflictError("voting is closed for this workshop")
)

// NewResourceNotFoundError creates a new custom error for resource not found with a message
func NewResourceNotFoundError(message string) error {
	return &CustomError{
		Err:     ErrResourceNotFound,
		Message: message,
	}
}

// NewConflictError creates a new custom error for conflict situations with a message
func NewConflictError(message string) error {
	return &CustomError{
		Err:     ErrConflict,
		Message: message,
	}
}

// NewForbiddenError creates a new custom error for permission denied with a message
func NewForbiddenError(message string) error {
	return &CustomError{
		Err:     ErrPermissionDenied,
		Message: message,
	}
}

// NewBadRequestError creates a new custom error for bad request with a message
func NewBadRequestError(message string) error {
	return &CustomError{
		Err:     ErrBadRequest,
		Message: message,
	}
}

// NewValidationError wraps ErrValidationFailed with field-level details.
func NewValidationError(message string, fields map[string]interface{}) *CustomError {
	return NewCustomError(ErrValidationFailed, message).WithDetails(fields)
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
	Details map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

// Message returns the most specific human-readable message carried by err.
func Message(err error) string {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Error()
	}
	return err.Error()
}

// Details returns the structured details attached to err, if any.
func Details(err error) map[string]interface{} {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Details
	}
	return nil
}
