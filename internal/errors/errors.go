// Package errors defines the coded application errors shared by the data,
// service and HTTP layers of the outbound engine.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode is a stable, machine-readable error category. HTTP handlers map it
// to a status code and metrics use it as the error_class tag.
type ErrorCode string

const (
	ErrCodeNotFound   ErrorCode = "not_found"
	ErrCodeConflict   ErrorCode = "conflict"
	ErrCodeValidation ErrorCode = "validation"
	ErrCodeForeignKey ErrorCode = "foreign_key"
	ErrCodeInternal   ErrorCode = "internal"
	ErrCodeTimeout    ErrorCode = "timeout"
	ErrCodeCanceled   ErrorCode = "canceled"
)

// AppError carries a code, a client-safe message and an optional cause.
// Field names the offending request field for validation and conflict errors.
type AppError struct {
	Code    ErrorCode
	Message string
	Field   string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

// ErrorCode exposes the code to callers that only know the interface.
func (e *AppError) ErrorCode() string { return string(e.Code) }

func newError(code ErrorCode, field, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Field: field, Cause: cause}
}

// NotFound reports a missing campaign, job or other resource.
func NotFound(message string) *AppError { return newError(ErrCodeNotFound, "", message, nil) }

// Conflict reports a lost claim, a duplicate key or a state that forbids the operation.
func Conflict(message string) *AppError { return newError(ErrCodeConflict, "", message, nil) }

// Validation reports bad caller input that is not tied to a single field.
func Validation(message string) *AppError { return newError(ErrCodeValidation, "", message, nil) }

// ValidationField reports bad caller input for field.
func ValidationField(field, message string) *AppError {
	return newError(ErrCodeValidation, field, message, nil)
}

// Wrap attaches code and message to err. A nil err stays nil.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return newError(code, "", message, err)
}

// MessageTemplate is a message formatted only when the error is built.
type MessageTemplate struct {
	format string
	args   []any
}

// Messagef builds a MessageTemplate for WrapTemplate.
func Messagef(format string, args ...any) MessageTemplate {
	return MessageTemplate{format: format, args: args}
}

func (mt MessageTemplate) String() string {
	if len(mt.args) == 0 {
		return mt.format
	}
	return fmt.Sprintf(mt.format, mt.args...)
}

// WrapTemplate is Wrap with a formatted message.
func WrapTemplate(err error, code ErrorCode, template MessageTemplate) *AppError {
	if err == nil {
		return nil
	}
	return newError(code, "", template.String(), err)
}

// Is reports whether the outermost AppError in err's chain carries code.
func Is(err error, code ErrorCode) bool {
	return code != "" && GetCode(err) == code
}

func IsNotFound(err error) bool   { return Is(err, ErrCodeNotFound) }
func IsConflict(err error) bool   { return Is(err, ErrCodeConflict) }
func IsValidation(err error) bool { return Is(err, ErrCodeValidation) }

// GetCode returns the code of the outermost AppError in err's chain, or "".
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField returns the field of the outermost AppError in err's chain, or "".
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}
