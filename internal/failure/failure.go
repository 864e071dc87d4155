// Package failure defines the fixed taxonomy of failure kinds that the HTTP
// layer classifies into status codes. Other packages wrap these sentinels in
// their own errors so that classification never depends on concrete types.
package failure

import (
	"context"
	"errors"
	"net"
)

// Kind tags an error with the class of failure it represents.
type Kind uint8

// Failure kinds. Internal is the default for anything unrecognized.
const (
	Internal Kind = iota
	InvalidArgument
	Unauthorized
	NotFound
	Conflict
	Timeout
)

// String returns the stable name of the kind, used in logs.
func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid_argument"
	case Unauthorized:
		return "unauthorized"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case Timeout:
		return "timeout"
	default:
		return "internal"
	}
}

// Sentinel errors for each kind. Wrap these with fmt.Errorf("...: %w") or
// embed them in package-level sentinels to make an error classifiable.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrTimeout         = errors.New("timeout")
)

// Error is a classified error carrying an explicit Kind.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Msg != "":
		return e.Msg + ": " + e.Err.Error()
	case e.Err != nil:
		return e.Err.Error()
	case e.Msg != "":
		return e.Msg
	default:
		return e.Kind.String()
	}
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error with a message.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap classifies err as kind, adding msg as context.
func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// rule is one predicate in the classification chain.
type rule struct {
	kind  Kind
	match func(error) bool
}

// rules are checked in order; the first match wins.
var rules = []rule{
	{InvalidArgument, func(err error) bool { return errors.Is(err, ErrInvalidArgument) }},
	{Unauthorized, func(err error) bool { return errors.Is(err, ErrUnauthorized) }},
	{NotFound, func(err error) bool { return errors.Is(err, ErrNotFound) }},
	{Conflict, func(err error) bool { return errors.Is(err, ErrConflict) }},
	{Timeout, isTimeout},
}

// KindOf returns the failure kind of err. An explicit *Error anywhere in the
// chain takes precedence over the sentinel predicates.
func KindOf(err error) Kind {
	if err == nil {
		return Internal
	}

	var fe *Error
	if errors.As(err, &fe) && fe.Kind != Internal {
		return fe.Kind
	}

	for _, r := range rules {
		if r.match(err) {
			return r.kind
		}
	}
	return Internal
}

func isTimeout(err error) bool {
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
