package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError carrying the same code, so sentinel values below
// can be compared with errors.Is after wrapping.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrForbidden
	ErrInternal
	ErrCodeInvalidCredentials
	ErrCodeCorruptStoredState
	ErrCodePermissionDenied
)

// PermissionDeniedMessage is the static text shown for admin-only views.
const PermissionDeniedMessage = "You don't have permission to view this page."

var (
	// ErrInvalidCredentials is returned for any failed login. Unknown email
	// and wrong password are deliberately indistinguishable.
	ErrInvalidCredentials = &AppError{
		Code:    ErrCodeInvalidCredentials,
		Message: "Invalid email or password. Please check your credentials and try again.",
	}
	// ErrCorruptStoredState marks persisted state that could not be parsed.
	ErrCorruptStoredState = &AppError{Code: ErrCodeCorruptStoredState, Message: "corrupt stored state"}
	// ErrPermissionDenied is returned when a non-admin reaches an admin-only view.
	ErrPermissionDenied = &AppError{Code: ErrCodePermissionDenied, Message: PermissionDeniedMessage}
)

// Error constructors
func NewNotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func NewBadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func NewInternal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

func NewCorruptStoredState(key string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeCorruptStoredState,
		Message: fmt.Sprintf("corrupt stored state under %q", key),
		Err:     err,
	}
}

// Common errors
func NotFound(resource string, err error) *AppError {
	return NewNotFound(resource, err)
}

func BadRequest(message string, err error) *AppError {
	return NewBadRequest(message, err)
}

func Internal(err error) *AppError {
	return NewInternal(err)
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "unauthorized",
		Err:     err,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Code:    ErrForbidden,
		Message: message,
	}
}

// As extracts the first AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}
