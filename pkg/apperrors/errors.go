// Package apperrors defines the typed error taxonomy used across the API.
// Handlers translate these into HTTP responses in exactly one place
// (httputil.WriteAppError), so services and stores never touch status codes.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for HTTP translation
type Kind int

const (
	KindUnknown Kind = iota
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindValidation
	KindConflict
	KindUpstream
)

// Error is a classified application error
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error kind to an HTTP status code
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Authentication returns a 401-class error
func Authentication(message string) *Error {
	return &Error{Kind: KindAuthentication, Message: message}
}

// Authorization returns a 403-class error
func Authorization(message string) *Error {
	return &Error{Kind: KindAuthorization, Message: message}
}

// NotFound returns a 404-class error
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Validation returns a 400-class error
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// Conflict returns a 409-class error
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// Upstream wraps a dependency failure as a 500-class error
func Upstream(message string, err error) *Error {
	return &Error{Kind: KindUpstream, Message: message, Err: err}
}

// Wrap attaches a cause to a classified error
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of err, or KindUnknown for unclassified errors
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// IsNotFound reports whether err is a not-found error
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsConflict reports whether err is a conflict error
func IsConflict(err error) bool {
	return KindOf(err) == KindConflict
}

// IsAuthorization reports whether err is an authorization error
func IsAuthorization(err error) bool {
	return KindOf(err) == KindAuthorization
}

// IsAuthentication reports whether err is an authentication error
func IsAuthentication(err error) bool {
	return KindOf(err) == KindAuthentication
}
