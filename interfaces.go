package ubjson

import "reflect"

type ValueMarshaler interface {
	// MarshalUBJSON returns the Value a Go type should be encoded as. It
	// takes precedence over the reflection based conversion in FromGo.
	MarshalUBJSON() (Value, error)
}

var interfaceValueMarshaler = reflect.TypeOf((*ValueMarshaler)(nil)).Elem()

type ValueUnmarshaler interface {
	// UnmarshalUBJSON stores a decoded Value into the receiver. It takes
	// precedence over the reflection based assignment in Into.
	UnmarshalUBJSON(v Value) error
}

var interfaceValueUnmarshaler = reflect.TypeOf((*ValueUnmarshaler)(nil)).Elem()

type BeforeEncode interface {
	// If a struct implements this interface, this function will be called
	// right before it is converted into a Value, by returning an error it
	// will cause the conversion to early return said error.
	BeforeEncode() error
}

var interfaceBeforeEncode = reflect.TypeOf((*BeforeEncode)(nil)).Elem()

type AfterDecode interface {
	// If a struct implements this interface, this function will be called
	// right after a Value was stored into it, by returning an error it will
	// cause the assignment to early return said error.
	AfterDecode() error
}

var interfaceAfterDecode = reflect.TypeOf((*AfterDecode)(nil)).Elem()
