package dispatch

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a booking operation was refused
type ErrorKind int

const (
	KindNotFound ErrorKind = iota + 1
	KindForbidden
	KindInvalidTransition
	KindValidation
	KindConflict
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindValidation:
		return "validation_failed"
	case KindConflict:
		return "conflict"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a domain failure carrying enough detail to render an actionable
// message. Code is a stable machine readable identifier such as
// BOOKING_NOT_FOUND; Message is safe to show to the caller.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches the kind sentinels below, so errors.Is(err, ErrNotFound) holds
// for every not-found error regardless of its code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == "" && t.Kind == e.Kind
}

// Kind sentinels for use with errors.Is
var (
	ErrNotFound          = &Error{Kind: KindNotFound, Message: "not found"}
	ErrForbidden         = &Error{Kind: KindForbidden, Message: "forbidden"}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition, Message: "invalid transition"}
	ErrValidation        = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrConflict          = &Error{Kind: KindConflict, Message: "conflict"}
)

// Store-level signals. Store implementations wrap these so the engine can
// tell a missing row or a lost race apart from a transport failure.
var (
	ErrRecordNotFound  = errors.New("record not found")
	ErrVersionMismatch = errors.New("booking version mismatch")
)

func notFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

func forbidden(code, message string) *Error {
	return &Error{Kind: KindForbidden, Code: code, Message: message}
}

func invalidTransition(code, message string) *Error {
	return &Error{Kind: KindInvalidTransition, Code: code, Message: message}
}

func validationFailed(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

func conflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

// AsError returns the domain error wrapped in err, if any
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
