// Package apierror defines the gateway's error-kind taxonomy and the
// HTTP/WS status codes each kind maps to.
package apierror

import "net/http"

// Kind is one of the error kinds enumerated in the gateway's error handling
// design: each carries a default HTTP status and a client-safe message.
type Kind string

const (
	MissingToken         Kind = "missing-token"
	InvalidToken         Kind = "invalid-token"
	InsufficientScope    Kind = "insufficient-scope"
	ListNotAuthorized    Kind = "list-not-authorized"
	UnknownStream        Kind = "unknown-stream"
	MissingRequiredParam Kind = "missing-required-param"
	UpstreamUnavailable  Kind = "upstream-unavailable"
	DBUnavailable        Kind = "db-unavailable"
	ClientGone           Kind = "client-gone"
	Internal             Kind = "internal"
)

// WithCode pairs an error with the HTTP status code it should surface as.
type WithCode struct {
	Kind    Kind
	Status  int
	Message string
	cause   error
}

func (e *WithCode) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

func (e *WithCode) Unwrap() error { return e.cause }

// New builds a WithCode for a kind, choosing its default status code.
// ListNotAuthorized and UnknownStream/MissingRequiredParam surface as 404
// over HTTP to avoid existence leaks; callers on the WS path translate
// differently (see transport/ws).
func New(kind Kind, msg string) *WithCode {
	return &WithCode{Kind: kind, Status: statusFor(kind), Message: msg}
}

// Wrap attaches a kind/status to an underlying cause, preserving it for
// errors.Unwrap/errors.Is while keeping the client-facing message generic.
func Wrap(kind Kind, cause error) *WithCode {
	return &WithCode{Kind: kind, Status: statusFor(kind), Message: clientMessage(kind), cause: cause}
}

func statusFor(kind Kind) int {
	switch kind {
	case MissingToken, InvalidToken, InsufficientScope:
		return http.StatusUnauthorized
	case ListNotAuthorized, UnknownStream, MissingRequiredParam:
		return http.StatusNotFound
	case ClientGone:
		return 0 // no response is written; connection is simply torn down
	default:
		return http.StatusInternalServerError
	}
}

func clientMessage(kind Kind) string {
	switch kind {
	case ListNotAuthorized, UnknownStream:
		return "Not found"
	case MissingRequiredParam:
		return "Not found"
	default:
		return "An unexpected error occurred"
	}
}
