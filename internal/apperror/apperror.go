// Package apperror defines the error taxonomy shared by every layer.
//
// Each category is a sentinel error. Constructors wrap the sentinel inside an
// *AppError so callers can match the category with errors.Is and still read a
// human-readable message with errors.As. The handler package is the only place
// that turns a category into an HTTP status code.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrPayloadTooLarge      = errors.New("payload too large")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrBadRequest           = errors.New("bad request")
	ErrServer               = errors.New("server error")
	ErrUnknown              = errors.New("unknown error")

	// ErrInvalidArgument is reported by the storage layer when it is handed an
	// operand it cannot execute, such as an empty id set.
	ErrInvalidArgument = errors.New("invalid argument")
)

type AppError struct {
	Err     error  // category sentinel
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func BadRequest(message string) *AppError {
	return &AppError{
		Err:     ErrBadRequest,
		Message: message,
	}
}

// ValidationFailed is a BadRequest that names the offending field.
func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrBadRequest,
		Message: message,
		Field:   field,
	}
}

func PayloadTooLarge(message string) *AppError {
	return &AppError{
		Err:     ErrPayloadTooLarge,
		Message: message,
	}
}

func UnsupportedMediaType(message string) *AppError {
	return &AppError{
		Err:     ErrUnsupportedMediaType,
		Message: message,
	}
}

func Server(message string) *AppError {
	return &AppError{
		Err:     ErrServer,
		Message: message,
	}
}

// Unknown marks an outcome nothing else recognised. Seeing one in a response
// means a classifier reason is missing from the dispatcher's mapping.
func Unknown(message string) *AppError {
	return &AppError{
		Err:     ErrUnknown,
		Message: message,
	}
}

func InvalidArgument(format string, args ...any) *AppError {
	return &AppError{
		Err:     ErrInvalidArgument,
		Message: fmt.Sprintf(format, args...),
	}
}

// Categorized reports whether err already carries one of the response
// categories, so it can be passed to the transport unchanged.
func Categorized(err error) bool {
	for _, sentinel := range []error{
		ErrPayloadTooLarge,
		ErrUnsupportedMediaType,
		ErrBadRequest,
		ErrServer,
		ErrUnknown,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
