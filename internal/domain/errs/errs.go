package errs

import (
	"errors"
	"sort"
	"strings"
)

// Kind classifies a failure for callers that need to react to it (HTTP
// status mapping, sweep bookkeeping).
type Kind uint8

const (
	KindUnexpected Kind = iota
	KindValidation
	KindInsufficientFunds
	KindNotFound
	KindIllegalTransition
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindNotFound:
		return "not_found"
	case KindIllegalTransition:
		return "illegal_transition"
	default:
		return "unexpected"
	}
}

// Error is a classified domain error. Fields carries per-field messages for
// validation failures.
type Error struct {
	Kind   Kind
	Msg    string
	Fields map[string]string
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return e.Msg
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return e.Msg + " (" + strings.Join(parts, "; ") + ")"
}

// Is matches a target of the same kind. A target without a message (the
// package-level Err* values) matches any error of that kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Msg == "" || t.Msg == e.Msg)
}

// Kind-only targets for errors.Is.
var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrInsufficientFunds = &Error{Kind: KindInsufficientFunds}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrIllegalTransition = &Error{Kind: KindIllegalTransition}
)

func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Msg: msg} }

// Invalid builds a validation error; fields may be nil.
func Invalid(msg string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Msg: msg, Fields: fields}
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

// FieldsOf returns validation field details, if any.
func FieldsOf(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}
