package core

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrAuthorizationDenied = errors.New("access denied")
	ErrRequestFailed       = errors.New("request failed")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// RequestError reports a failed call to the backend. It matches ErrRequestFailed with errors.Is.
type RequestError struct {
	Op     string
	Status int // 0 when the request never got a response
	Err    error
}

func NewRequestError(op string, status int, err error) error {
	return &RequestError{Op: op, Status: status, Err: err}
}

func (err *RequestError) Error() string {
	if err.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d): %v", err.Op, ErrRequestFailed, err.Status, err.Err)
	}
	return fmt.Sprintf("%s: %s: %v", err.Op, ErrRequestFailed, err.Err)
}

func (err *RequestError) Unwrap() error { return err.Err }

func (err *RequestError) Is(target error) bool { return target == ErrRequestFailed }

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
