// Package apierr defines the semantic error kinds every engine returns, and
// the single place that maps them to HTTP status codes, so handlers never
// hardcode a status.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is one of the semantic error categories an engine can return.
type Kind string

const (
	KindValidation       Kind = "validation"
	KindAuth             Kind = "auth"
	KindForbidden        Kind = "forbidden"
	KindNotFound         Kind = "not_found"
	KindFeatureDisabled  Kind = "feature_disabled"
	KindUpstreamTransient Kind = "upstream_transient"
	KindUpstreamFatal    Kind = "upstream_fatal"
	KindDataMissing      Kind = "data_missing"
	KindInternal         Kind = "internal"
)

// Error wraps an underlying cause with a semantic Kind and a client-safe message.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an *Error with no cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an *Error carrying cause as its unwrap chain.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Validation, Auth, Forbidden, NotFound, FeatureDisabled, UpstreamTransient,
// UpstreamFatal, DataMissing, and Internal are convenience constructors for
// each Kind above.
func Validation(format string, args ...any) *Error {
	return New(KindValidation, fmt.Sprintf(format, args...))
}

func Auth(format string, args ...any) *Error {
	return New(KindAuth, fmt.Sprintf(format, args...))
}

func Forbidden(format string, args ...any) *Error {
	return New(KindForbidden, fmt.Sprintf(format, args...))
}

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, fmt.Sprintf(format, args...))
}

func FeatureDisabled(format string, args ...any) *Error {
	return New(KindFeatureDisabled, fmt.Sprintf(format, args...))
}

func UpstreamTransient(cause error, format string, args ...any) *Error {
	return Wrap(KindUpstreamTransient, fmt.Sprintf(format, args...), cause)
}

func UpstreamFatal(cause error, format string, args ...any) *Error {
	return Wrap(KindUpstreamFatal, fmt.Sprintf(format, args...), cause)
}

func DataMissing(format string, args ...any) *Error {
	return New(KindDataMissing, fmt.Sprintf(format, args...))
}

func Internal(cause error, format string, args ...any) *Error {
	return Wrap(KindInternal, fmt.Sprintf(format, args...), cause)
}

// KindOf extracts the Kind from err, defaulting to KindInternal for any
// error that was not constructed through this package.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// HTTPStatus maps a Kind to the status code the HTTP layer should respond
// with.
func HTTPStatus(k Kind) int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusNotFound // kept opaque: a 403 would confirm the resource exists
	case KindNotFound:
		return http.StatusNotFound
	case KindFeatureDisabled:
		return http.StatusServiceUnavailable
	case KindUpstreamTransient:
		return http.StatusBadGateway
	case KindUpstreamFatal:
		return http.StatusBadGateway
	case KindDataMissing:
		return http.StatusOK // consumers use documented fallbacks, not an error response
	default:
		return http.StatusInternalServerError
	}
}
