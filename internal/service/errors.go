package service

import (
	"errors"
	"fmt"
)

// Workflow errors. Handlers map these to HTTP status codes with errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrEventNotFound       = errors.New("event not found")
	ErrEventFull           = errors.New("event is fully booked")
	ErrStateConflict       = errors.New("registration state conflict")
	ErrPaymentNotSucceeded = errors.New("payment not succeeded")
	ErrGatewayUnavailable  = errors.New("payment gateway unavailable")
	ErrNotificationFailed  = errors.New("notification failed")
	ErrUnauthenticated     = errors.New("authentication required")
	ErrNotConfigured       = errors.New("feature not configured")
)

// ValidationError reports caller input that fails a business rule.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + " " + e.Message
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
