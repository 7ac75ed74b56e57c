// Package channels implements the outbound channel send adapters: a deterministic mock
// for every channel plus live Twilio (sms, voice), WhatsApp Cloud API (chat) and a JSON
// mail API (email).
package channels

import (
	"errors"
	"fmt"
	"net/http"
)

// Send error codes recorded on attempts and jobs.
const (
	CodeConfigMissing       = "config_missing"
	CodeProviderThrottled   = "provider_throttled"
	CodeProviderUnavailable = "provider_unavailable"
	CodeProviderRejected    = "provider_rejected"
	CodeNetworkError        = "network_error"
	CodeAdapterMissing      = "adapter_missing"
	CodeInvalidResponse     = "invalid_response"
)

// SendError is the failure type returned by every adapter.
type SendError struct {
	Code      string
	Message   string
	Retryable bool
	Cause     error
}

func (e *SendError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrorCode returns the stable code for classification.
func (e *SendError) ErrorCode() string { return e.Code }

func (e *SendError) Unwrap() error { return e.Cause }

// IsRetryable reports whether err is a SendError worth another attempt.
func IsRetryable(err error) bool {
	var se *SendError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return false
}

func configMissing(format string, args ...any) *SendError {
	return &SendError{Code: CodeConfigMissing, Message: fmt.Sprintf(format, args...)}
}

func networkError(provider string, err error) *SendError {
	return &SendError{
		Code:      CodeNetworkError,
		Message:   provider + " request failed",
		Retryable: true,
		Cause:     err,
	}
}

// statusError maps a non-2xx provider response to a SendError.
func statusError(provider string, status int, detail string) *SendError {
	msg := fmt.Sprintf("%s returned HTTP %d", provider, status)
	if detail != "" {
		msg += ": " + detail
	}
	switch {
	case status == http.StatusTooManyRequests:
		return &SendError{Code: CodeProviderThrottled, Message: msg, Retryable: true}
	case status >= http.StatusInternalServerError:
		return &SendError{Code: CodeProviderUnavailable, Message: msg, Retryable: true}
	default:
		return &SendError{Code: CodeProviderRejected, Message: msg}
	}
}
