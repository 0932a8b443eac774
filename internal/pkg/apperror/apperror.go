package apperror

import "errors"

// Kind classifies an error so callers can branch on it without matching messages.
type Kind string

const (
	KindInternal          Kind = "internal"
	KindValidation        Kind = "validation"
	KindRequestTooLarge   Kind = "request_too_large"
	KindNotFound          Kind = "not_found"
	KindForbidden         Kind = "forbidden"
	KindSlotNotConfigured Kind = "slot_not_configured"
	KindSlotConflict      Kind = "slot_conflict"
	KindSlotAlreadyBooked Kind = "slot_already_booked"
	KindInvalidTransition Kind = "invalid_transition"
	KindBatchConflict     Kind = "batch_conflict"
	KindUnavailable       Kind = "unavailable"
)

// AppError is a custom error type that includes an HTTP status code and an error kind.
type AppError struct {
	Code    int    // HTTP Status Code (e.g., 400, 404)
	Kind    Kind   // Machine-readable discriminator
	Message string // User-facing error message
	Err     error  // The underlying error, if any (not exposed to user)
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches an AppError with the same code, kind and message, so a sentinel
// rebuilt by Wrap around a cause still satisfies errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code && t.Kind == e.Kind && t.Message == e.Message
}

// Detailer is implemented by errors that carry structured context for the client.
type Detailer interface {
	ErrorDetails() any
}

// New creates a new AppError with a status code, kind and message.
func New(code int, kind Kind, message string) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kind,
		Message: message,
	}
}

// Wrap creates a new AppError wrapping an existing error.
// The result matches a sentinel built with the same code, kind and message.
func Wrap(err error, code int, kind Kind, message string) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// KindOf returns the kind of the first AppError in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsRetryable reports whether err is ledger contention that a caller may
// retry after resolving availability again.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindSlotAlreadyBooked, KindBatchConflict:
		return true
	default:
		return false
	}
}
