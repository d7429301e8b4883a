// Package engine implements the reservation engine's core orchestration:
// the Reserve and Confirm-Payment actions and the error taxonomy the
// HTTP surface translates into status codes.
package engine

import "fmt"

// Kind classifies an engine error for uniform translation at the HTTP
// boundary.
type Kind int

const (
	Internal Kind = iota
	NotFound
	Conflict
	BadRequest
)

// Error is a typed error carrying a Kind and a human-readable message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func newErr(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...any) *Error   { return newErr(NotFound, format, args...) }
func conflict(format string, args ...any) *Error   { return newErr(Conflict, format, args...) }
func badRequest(format string, args ...any) *Error { return newErr(BadRequest, format, args...) }
func internal(format string, args ...any) *Error   { return newErr(Internal, format, args...) }

// KindOf extracts the Kind of err, defaulting to Internal for any error
// that is not an *Error (e.g. an unwrapped store/bus failure).
func KindOf(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return Internal
}
