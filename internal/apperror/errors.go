// Package apperror defines the error taxonomy shared by the comment pipeline
// and its HTTP surface.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for propagation and HTTP mapping
type Kind string

const (
	KindValidation Kind = "validation"
	KindForbidden  Kind = "forbidden"
	KindRateLimit  Kind = "rate_limited"
	KindSimilarity Kind = "too_similar"
	KindCaptcha    Kind = "captcha_failed"
	KindNotFound   Kind = "not_found"
	KindInternal   Kind = "internal"
)

// Error is the application error carried through services and handlers
type Error struct {
	Kind    Kind
	Message string
	Err     error // underlying cause, never shown to clients
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation reports malformed or out-of-range input
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// Validationf is Validation with formatting
func Validationf(format string, args ...interface{}) *Error {
	return Validation(fmt.Sprintf(format, args...))
}

// Forbidden reports a refused request. The message is shown to clients
// verbatim, so keep it generic.
func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// RateLimited reports a tripped submission window
func RateLimited() *Error {
	return &Error{Kind: KindRateLimit, Message: "too many comments, please wait before posting again"}
}

// TooSimilar reports a near-duplicate submission
func TooSimilar() *Error {
	return &Error{Kind: KindSimilarity, Message: "this comment is too similar to one you posted recently"}
}

// Captcha reports a missing, invalid or unverifiable CAPTCHA token
func Captcha(message string, cause error) *Error {
	return &Error{Kind: KindCaptcha, Message: message, Err: cause}
}

// NotFound reports an unknown article or comment
func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

// Internal wraps a store or infrastructure failure
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}

// KindOf returns the kind of err, treating unknown errors as internal
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// PublicMessage returns the message safe to show to a client
func PublicMessage(err error) string {
	var appErr *Error
	if !errors.As(err, &appErr) || appErr.Kind == KindInternal {
		return "internal error"
	}
	return appErr.Message
}

// HTTPStatus maps an error kind to an HTTP status code
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation, KindCaptcha:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimit, KindSimilarity:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
