package lifecycle

import (
	"errors"
	"fmt"
)

// Kind classifies an engine failure.
type Kind uint8

const (
	KindStorage            Kind = iota // store unreachable or failed; safe to retry
	KindValidation                     // malformed or missing identifiers
	KindNotFound                       // booking or slot does not exist
	KindConflict                       // uniqueness precondition violated
	KindInvalidTransition              // terminal or wrong-phase booking
	KindCompensatedFailure             // partial write was rolled back
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	case KindInvalidTransition:
		return "invalid transition"
	case KindCompensatedFailure:
		return "compensated failure"
	}
	return "storage failure"
}

// Error is the error type returned by every Engine operation.
type Error struct {
	Kind Kind
	Op   string // engine operation, e.g. "advance"
	Msg  string // caller-facing message
	Err  error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, op, msg string, err error) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg, Err: err}
}

// KindOf reports the Kind carried by err.  Errors that did not come from the
// engine are treated as storage failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

// IsKind reports whether err is an engine error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}
