package ubjson

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	ErrInvalidUTF8     = errors.New("invalid UTF-8 sequence")
	ErrInvalidReceiver = errors.New("invalid argument given to Into, not a non-nil pointer")
)

// ErrIO reports a failure of the underlying stream, including a premature
// end of input.
type ErrIO struct {
	Err error
}

func (e *ErrIO) Error() string {
	return fmt.Sprintf("i/o error: %v", e.Err)
}

func (e *ErrIO) Unwrap() error {
	return e.Err
}

// ErrInvalidFormat reports a structural violation of the wire grammar.
type ErrInvalidFormat struct {
	Msg string
}

func (e *ErrInvalidFormat) Error() string {
	return "invalid format: " + e.Msg
}

type ErrInvalidChar struct {
	Msg string
}

func (e *ErrInvalidChar) Error() string {
	return "invalid char: " + e.Msg
}

type ErrInvalidHighPrecision struct {
	Msg string
}

func (e *ErrInvalidHighPrecision) Error() string {
	return "invalid high-precision number: " + e.Msg
}

type ErrInvalidTypeMarker struct {
	Marker byte
}

func (e *ErrInvalidTypeMarker) Error() string {
	return fmt.Sprintf("invalid type marker: %#02x", e.Marker)
}

type ErrDepthLimitExceeded struct {
	Limit int
}

func (e *ErrDepthLimitExceeded) Error() string {
	return fmt.Sprintf("nesting depth limit exceeded: %d", e.Limit)
}

// ErrSizeLimitExceeded is returned when a single container holds more
// elements or pairs than allowed.
type ErrSizeLimitExceeded struct {
	Limit int
}

func (e *ErrSizeLimitExceeded) Error() string {
	return fmt.Sprintf("container size limit exceeded: %d", e.Limit)
}

// ErrUnsupportedType reports something that is syntactically recognized but
// not allowed where it appears, e.g. a container declared as the element
// kind of an optimized container.
type ErrUnsupportedType struct {
	Msg string
}

func (e *ErrUnsupportedType) Error() string {
	return "unsupported type: " + e.Msg
}

type ErrLengthMismatch struct {
	Expected, Actual int
}

func (e *ErrLengthMismatch) Error() string {
	return fmt.Sprintf("container length mismatch: expected %d, found %d", e.Expected, e.Actual)
}

// ErrDataTooLarge is returned when a single Encode or Decode call moves more
// bytes than Options.MaxBytes allows.
type ErrDataTooLarge struct {
	Max, Size uint64
}

func (e *ErrDataTooLarge) Error() string {
	return fmt.Sprintf("data exceeds maximum allowed size; max: %d, got: %d", e.Max, e.Size)
}

type ErrNotDefined struct {
	typ     reflect.Type
	variant string
}

func (e *ErrNotDefined) Error() string {
	if e.typ != nil {
		return fmt.Sprintf("type not registered in Variants: %s", e.typ.String())
	}

	return fmt.Sprintf("variant not registered in Variants: %q", e.variant)
}

type ErrInvalidType struct {
	typ reflect.Type
}

func (e *ErrInvalidType) Error() string {
	return fmt.Sprintf("invalid type provided: %q", e.typ.String())
}

type ErrInvalidTypeKey struct {
	typ reflect.Type
}

func (e *ErrInvalidTypeKey) Error() string {
	return fmt.Sprintf("invalid type provided for a map key, must be string kind: %q", e.typ.String())
}

// ErrCannotAssign is returned by Into when a decoded value does not fit the
// Go type it is being stored in.
type ErrCannotAssign struct {
	kind Kind
	typ  reflect.Type
}

func (e *ErrCannotAssign) Error() string {
	return fmt.Sprintf("cannot assign %s value to Go type %q", e.kind, e.typ.String())
}

func invalidFormat(format string, args ...any) error {
	return &ErrInvalidFormat{Msg: fmt.Sprintf(format, args...)}
}
