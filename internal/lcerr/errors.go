// Package lcerr defines the internal error taxonomy shared by every limit
// checker component (spec.md §7).
package lcerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error the way the command handler and dispatcher need
// to branch on: by category, not by message text.
type Kind int

const (
	KindLengthMismatch Kind = iota
	KindInvalidIndex
	KindInvalidEnum
	KindInvalidStateTransition
	KindFieldReadFault
	KindRPNMalformed
	KindRPNRuntime
	KindCustomPredicateFault
)

func (k Kind) String() string {
	switch k {
	case KindLengthMismatch:
		return "length_mismatch"
	case KindInvalidIndex:
		return "invalid_index"
	case KindInvalidEnum:
		return "invalid_enum"
	case KindInvalidStateTransition:
		return "invalid_state_transition"
	case KindFieldReadFault:
		return "field_read_fault"
	case KindRPNMalformed:
		return "rpn_malformed"
	case KindRPNRuntime:
		return "rpn_runtime"
	case KindCustomPredicateFault:
		return "custom_predicate_fault"
	default:
		return "unknown"
	}
}

// Error pairs a Kind with a human-readable cause, so callers can both
// errors.Is against sentinels below and branch on the Kind field when they need the
// coarser category (e.g. to decide whether to bump CmdErrCount).
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Sentinels for errors.Is comparisons. The field reader, watchpoint
// evaluator and RPN evaluator return them wrapped in an Error carrying
// their Kind.
var (
	ErrBounds            = errors.New("offset out of bounds")
	ErrAlignment         = errors.New("misaligned offset for data type")
	ErrUndefinedType     = errors.New("undefined data type")
	ErrFloatNaN          = errors.New("NaN operand in float comparison")
	ErrOperatorNone      = errors.New("no operator configured")
	ErrOperatorUnknown   = errors.New("unknown operator")
	ErrCustomPredicateNA = errors.New("custom predicate not registered")

	ErrIndexRange = errors.New("index out of declared range")

	ErrRPNUnderflow  = errors.New("rpn stack underflow")
	ErrRPNOverflow   = errors.New("rpn stack overflow")
	ErrRPNNoEnd      = errors.New("rpn program missing EQUATION_END")
	ErrRPNBadToken   = errors.New("rpn program contains unknown token")
	ErrRPNLeftover   = errors.New("rpn program did not reduce to one value")
	ErrRPNWatchError = errors.New("rpn atom references a watchpoint in ERROR")
)

// Kindf builds an Error with a formatted cause.
func Kindf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}
