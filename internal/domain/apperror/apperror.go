// Package apperror defines the error kinds the pricing domain reports to its
// callers. The HTTP layer maps each kind to a status code; anything without a
// kind is an infrastructure failure.
package apperror

import "github.com/go-faster/errors"

// Kind is a stable error category.
type Kind string

const (
	// KindNotFound means a referenced product or promo code does not exist.
	KindNotFound Kind = "not_found"
	// KindValidation means a request field is missing or malformed.
	KindValidation Kind = "validation"
	// KindConflict means an optimistic version check failed on write.
	KindConflict Kind = "conflict"
	// KindDuplicate means a uniqueness constraint rejected a create.
	KindDuplicate Kind = "duplicate"
)

// Error carries a Kind and a client-safe message. Err is the optional cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New returns an *Error of the given kind.
func New(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func NotFound(msg string, err error) error   { return New(KindNotFound, msg, err) }
func Validation(msg string, err error) error { return New(KindValidation, msg, err) }
func Conflict(msg string, err error) error   { return New(KindConflict, msg, err) }
func Duplicate(msg string, err error) error  { return New(KindDuplicate, msg, err) }

// KindOf returns the kind of the first *Error in err's chain, or "" when
// there is none.
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Kind
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
