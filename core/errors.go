package core

import (
	"errors"
	"fmt"
)

// ErrorKind identifies the category of an engine error.
type ErrorKind uint8

const (
	KindUnknown                ErrorKind = iota
	KindOwnerMismatch                    // property used on a type that does not own it
	KindTypeMismatch                     // value type incompatible with the property
	KindInvalidPropertyValue             // validator rejected the value
	KindAlreadyAttached                  // element already has a parent or tree
	KindNotAttached                      // element is not attached where the caller expects
	KindDeserializationSkipped           // a document field was dropped
	KindMediaOpen                        // a decoder could not open or read media
)

func (k ErrorKind) String() string {
	switch k {
	case KindOwnerMismatch:
		return "owner-mismatch"
	case KindTypeMismatch:
		return "type-mismatch"
	case KindInvalidPropertyValue:
		return "invalid-property-value"
	case KindAlreadyAttached:
		return "already-attached"
	case KindNotAttached:
		return "not-attached"
	case KindDeserializationSkipped:
		return "deserialization-skipped"
	case KindMediaOpen:
		return "media-open"
	default:
		return "unknown"
	}
}

// Sentinel errors. Every *Error wraps exactly one of these, so callers can
// test with errors.Is.
var (
	ErrOwnerMismatch          = errors.New("owner does not match")
	ErrTypeMismatch           = errors.New("type mismatch")
	ErrInvalidPropertyValue   = errors.New("invalid property value")
	ErrAlreadyAttached        = errors.New("already attached")
	ErrNotAttached            = errors.New("not attached")
	ErrDeserializationSkipped = errors.New("deserialization skipped")
	ErrMediaOpen              = errors.New("media open failure")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindOwnerMismatch:
		return ErrOwnerMismatch
	case KindTypeMismatch:
		return ErrTypeMismatch
	case KindInvalidPropertyValue:
		return ErrInvalidPropertyValue
	case KindAlreadyAttached:
		return ErrAlreadyAttached
	case KindNotAttached:
		return ErrNotAttached
	case KindDeserializationSkipped:
		return ErrDeserializationSkipped
	case KindMediaOpen:
		return ErrMediaOpen
	default:
		return errors.New("unknown")
	}
}

// Error is a structured engine error.
type Error struct {
	// Op is the operation that failed (e.g. "core.SetValue").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// Err is the underlying error. It wraps the sentinel for Kind.
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds an *Error whose Err wraps the sentinel for kind.
func NewError(op string, kind ErrorKind, format string, args ...any) *Error {
	return &Error{
		Op:   op,
		Kind: kind,
		Err:  fmt.Errorf("%w: %s", kind.sentinel(), fmt.Sprintf(format, args...)),
	}
}

// KindOf returns the kind of err if it is (or wraps) an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
