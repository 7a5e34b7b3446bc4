package apperror

import "errors"

// Domain errors returned by the escalation and messaging services.
// Callers compare with errors.Is; services wrap them with context.
var (
	ErrSessionClosed       = errors.New("chat session is closed")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrAlreadyAssigned     = errors.New("escalation already assigned")
	ErrForbidden           = errors.New("access denied")
	ErrNotFound            = errors.New("resource not found")
	ErrUpstreamUnavailable = errors.New("upstream AI service unavailable")
	ErrInvalidInput        = errors.New("invalid input")
)

// IsExpected reports whether err is a normal negative outcome rather than a fault.
func IsExpected(err error) bool {
	return errors.Is(err, ErrAlreadyAssigned) ||
		errors.Is(err, ErrSessionClosed) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidInput)
}
