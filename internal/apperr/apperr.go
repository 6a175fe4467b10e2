// Package apperr defines the typed failures that operation handlers return
// and the message-layer status codes they map to.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for status-code mapping.
type Kind int

// Failure kinds. Internal covers anything that is not a domain error.
const (
	KindInternal Kind = iota
	KindBadRequest
	KindNotAuthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindTooManyRequests
)

// Status codes used on the wire. They follow HTTP semantics but travel
// inside envelopes, never as HTTP responses.
const (
	StatusOK              = 200
	StatusCreated         = 201
	StatusDeleted         = 204
	StatusBadRequest      = 400
	StatusNotAuthorized   = 401
	StatusForbidden       = 403
	StatusNotFound        = 404
	StatusConflict        = 409
	StatusTooManyRequests = 429
	StatusServer          = 500
)

// MessageServer is reported to callers for failures outside the taxonomy.
const MessageServer = "SERVER ERROR"

// StatusCode returns the wire status code for the kind.
func (k Kind) StatusCode() int {
	switch k {
	case KindBadRequest:
		return StatusBadRequest
	case KindNotAuthorized:
		return StatusNotAuthorized
	case KindForbidden:
		return StatusForbidden
	case KindNotFound:
		return StatusNotFound
	case KindConflict:
		return StatusConflict
	case KindTooManyRequests:
		return StatusTooManyRequests
	default:
		return StatusServer
	}
}

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad request"
	case KindNotAuthorized:
		return "not authorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	case KindTooManyRequests:
		return "too many requests"
	default:
		return "internal"
	}
}

// Error is a domain failure. Type, Action and Method identify the request
// it answers so clients can correlate the error envelope.
type Error struct {
	Kind    Kind
	Type    string
	Action  string
	Method  string
	Message string
}

func (e *Error) Error() string {
	if e.Type == "" && e.Action == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s [%s/%s/%s]: %s", e.Kind, e.Type, e.Action, e.Method, e.Message)
}

// StatusCode returns the wire status code of the error's kind.
func (e *Error) StatusCode() int {
	return e.Kind.StatusCode()
}

// WithRoute returns a copy of e with any empty route field filled in.
func (e *Error) WithRoute(typ, action, method string) *Error {
	out := *e
	if out.Type == "" {
		out.Type = typ
	}
	if out.Action == "" {
		out.Action = action
	}
	if out.Method == "" {
		out.Method = method
	}
	return &out
}

func newError(kind Kind, format string, args ...any) *Error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{Kind: kind, Message: msg}
}

// BadRequest reports malformed or missing input.
func BadRequest(format string, args ...any) *Error {
	return newError(KindBadRequest, format, args...)
}

// NotAuthorized reports a missing credential.
func NotAuthorized(format string, args ...any) *Error {
	return newError(KindNotAuthorized, format, args...)
}

// Forbidden reports an invalid credential or a disallowed operation.
func Forbidden(format string, args ...any) *Error {
	return newError(KindForbidden, format, args...)
}

// NotFound reports an unresolvable route or a missing resource.
func NotFound(format string, args ...any) *Error {
	return newError(KindNotFound, format, args...)
}

// Conflict reports a uniqueness violation.
func Conflict(format string, args ...any) *Error {
	return newError(KindConflict, format, args...)
}

// TooManyRequests reports a frame dropped by the per-connection rate limiter.
func TooManyRequests(format string, args ...any) *Error {
	return newError(KindTooManyRequests, format, args...)
}

// As extracts a domain error from err. The second result is false for
// anything outside the taxonomy.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
