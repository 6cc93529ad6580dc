package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation       Kind = "validation"
	KindUpstreamExchange Kind = "upstream_exchange"
	KindPersistence      Kind = "persistence"
	KindAuthentication   Kind = "authentication"
	KindMethodNotAllowed Kind = "method_not_allowed"
	KindInternal         Kind = "internal"
)

// Error is the single error type handlers convert into a response.
// Detail holds diagnostics (e.g. a raw upstream body) that are only shown
// when debug output is enabled.
type Error struct {
	Kind    Kind
	Message string
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func UpstreamExchange(msg, rawBody string, err error) *Error {
	return &Error{Kind: KindUpstreamExchange, Message: msg, Detail: rawBody, Err: err}
}

func Persistence(msg string, err error) *Error {
	return &Error{Kind: KindPersistence, Message: msg, Err: err}
}

// Authentication always carries the same message so callers cannot tell
// an unknown user from a wrong password.
func Authentication(err error) *Error {
	return &Error{Kind: KindAuthentication, Message: "invalid username or password", Err: err}
}

func MethodNotAllowed() *Error {
	return &Error{Kind: KindMethodNotAllowed, Message: "method not allowed"}
}

func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func Status(kind Kind) int {
	switch kind {
	case KindValidation, KindUpstreamExchange:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}
