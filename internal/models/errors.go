package models

import (
	"fmt"
	"net/http"
)

// ErrorKind classifies every failure the gateway can surface. None of the
// kinds is ever retried automatically.
type ErrorKind int

const (
	// KindBadRequest means the caller supplied invalid or missing input.
	KindBadRequest ErrorKind = iota
	// KindMisconfigured means a required server-held credential is absent.
	KindMisconfigured
	// KindUpstream means the remote service returned a non-success status
	// or a malformed success body.
	KindUpstream
	// KindInternal is an unexpected local failure; its message is redacted
	// of secrets before it is surfaced.
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindMisconfigured:
		return "misconfigured"
	case KindUpstream:
		return "upstream_error"
	default:
		return "internal"
	}
}

// Error is the structured failure value shared by the gateway functions, the
// upstream clients and the pipeline orchestrator.
type Error struct {
	Kind           ErrorKind
	Message        string
	Details        string // upstream error body, if any
	UpstreamStatus int    // upstream HTTP status, if any
	err            error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.err }

// HTTPStatus maps the error onto the response status the gateway writes.
// Upstream error statuses pass through unchanged when they are valid HTTP
// error codes; everything else collapses to the local defaults.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUpstream:
		if e.UpstreamStatus >= 400 && e.UpstreamStatus <= 599 {
			return e.UpstreamStatus
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// BadRequest reports invalid caller input.
func BadRequest(message string) *Error {
	return &Error{Kind: KindBadRequest, Message: message}
}

// Misconfigured reports an absent credential or other operator-fixable
// configuration problem.
func Misconfigured(message string) *Error {
	return &Error{Kind: KindMisconfigured, Message: message}
}

// UpstreamFailure reports a remote service error. status is the upstream
// HTTP status (0 when the failure is a malformed success body) and details
// carries the upstream error body for the caller.
func UpstreamFailure(status int, message, details string) *Error {
	return &Error{Kind: KindUpstream, Message: message, Details: details, UpstreamStatus: status}
}

// Internal wraps an unexpected local failure. The wrapped error is kept for
// logs only; Message is what callers see, so it must not carry secrets.
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, err: err}
}
