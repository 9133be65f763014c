package apperror

import "errors"

// Kind classifies an error so callers can decide whether to retry, correct input, or give up.
type Kind string

const (
	KindInternal     Kind = "internal"
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindForbidden    Kind = "forbidden"
	KindConflict     Kind = "conflict"
	KindInvalidState Kind = "invalid_state"
	KindTransient    Kind = "transient"
)

// AppError is a custom error type that includes an HTTP status code and an optional internal error code.
type AppError struct {
	Code    int            // HTTP Status Code (e.g., 400, 404)
	Kind    Kind           // Error class, see Kind
	Message string         // User-facing error message
	Details map[string]any // Optional diagnostics safe to show to the caller
	Err     error          // The underlying error, if any (not exposed to user)
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an AppError with the same kind and message.
// Copies made by WithDetails or Wrap therefore still match the sentinel they came from.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// Retryable reports whether the whole operation may be retried unchanged.
func (e *AppError) Retryable() bool {
	return e.Kind == KindTransient
}

// New creates a new AppError with a status code and message.
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kindFromCode(code),
		Message: message,
	}
}

// NewKind creates a new AppError with an explicit kind.
func NewKind(kind Kind, code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kind,
		Message: message,
	}
}

// Wrap creates a new AppError wrapping an existing error.
func Wrap(err error, code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kindFromCode(code),
		Message: message,
		Err:     err,
	}
}

// WithCause returns a copy of base that wraps err.
func WithCause(base *AppError, err error) *AppError {
	cp := *base
	cp.Err = err
	return &cp
}

// WithDetails returns a copy of base carrying the given details.
func WithDetails(base *AppError, details map[string]any) *AppError {
	cp := *base
	cp.Details = details
	return &cp
}

// KindOf returns the kind of the first AppError in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsRetryable reports whether err is a transient AppError.
func IsRetryable(err error) bool {
	return KindOf(err) == KindTransient
}

func kindFromCode(code int) Kind {
	switch {
	case code == 404:
		return KindNotFound
	case code == 403 || code == 401:
		return KindForbidden
	case code == 409:
		return KindConflict
	case code == 503:
		return KindTransient
	case code >= 400 && code < 500:
		return KindValidation
	default:
		return KindInternal
	}
}
