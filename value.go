package ubjson

import (
	"maps"
	"math"
	"slices"
)

// Kind identifies the variant stored in a Value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindNull
	KindBool
	KindInt8
	KindUInt8
	KindInt16
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
	KindHighPrecision
	KindChar
	KindString
	KindArray
	KindObject
	// KindTypedArray is an array whose elements all share one primitive
	// wire kind, encoded with the optimized container header.
	KindTypedArray
	// KindTypedObject is the object counterpart of KindTypedArray.
	KindTypedObject
)

var kindNames = [...]string{
	KindInvalid:       "invalid",
	KindNull:          "null",
	KindBool:          "bool",
	KindInt8:          "int8",
	KindUInt8:         "uint8",
	KindInt16:         "int16",
	KindInt32:         "int32",
	KindInt64:         "int64",
	KindFloat32:       "float32",
	KindFloat64:       "float64",
	KindHighPrecision: "high-precision",
	KindChar:          "char",
	KindString:        "string",
	KindArray:         "array",
	KindObject:        "object",
	KindTypedArray:    "typed-array",
	KindTypedObject:   "typed-object",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Value is any encodable or decoded UBJSON value.
//
// Values are immutable once built: the slices and maps returned by
// Elements and Pairs are shared with the Value and must not be modified.
// The zero Value has KindInvalid and cannot be encoded.
type Value struct {
	kind Kind

	b bool
	i int64
	f float64
	s string
	r rune

	elems []Value
	pairs map[string]Value

	// Optimized containers only.
	elemMarker Marker
	count      int
	counted    bool
}

func Null() Value { return Value{kind: KindNull} }

func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

func Int8(v int8) Value { return Value{kind: KindInt8, i: int64(v)} }

func UInt8(v uint8) Value { return Value{kind: KindUInt8, i: int64(v)} }

func Int16(v int16) Value { return Value{kind: KindInt16, i: int64(v)} }

func Int32(v int32) Value { return Value{kind: KindInt32, i: int64(v)} }

func Int64(v int64) Value { return Value{kind: KindInt64, i: v} }

func Float32(v float32) Value { return Value{kind: KindFloat32, f: float64(v)} }

func Float64(v float64) Value { return Value{kind: KindFloat64, f: v} }

// HighPrecision holds an arbitrary precision number as text. The text is
// validated against the numeric grammar when encoded or decoded.
func HighPrecision(text string) Value { return Value{kind: KindHighPrecision, s: text} }

func Char(r rune) Value { return Value{kind: KindChar, r: r} }

func String(v string) Value { return Value{kind: KindString, s: v} }

func Array(elements ...Value) Value {
	return Value{kind: KindArray, elems: elements}
}

func Object(pairs map[string]Value) Value {
	if pairs == nil {
		pairs = map[string]Value{}
	}
	return Value{kind: KindObject, pairs: pairs}
}

// TypedArray builds a counted optimized array. Every element must have the
// wire kind elementMarker, which must be a primitive kind.
func TypedArray(elementMarker Marker, elements []Value) Value {
	return Value{
		kind:       KindTypedArray,
		elems:      elements,
		elemMarker: elementMarker,
		count:      len(elements),
		counted:    true,
	}
}

// UncountedTypedArray builds an optimized array without a count header; it
// is terminated by an end marker on the wire.
func UncountedTypedArray(elementMarker Marker, elements []Value) Value {
	return Value{kind: KindTypedArray, elems: elements, elemMarker: elementMarker}
}

// TypedObject builds a counted optimized object. Every value must have the
// wire kind valueMarker.
func TypedObject(valueMarker Marker, pairs map[string]Value) Value {
	if pairs == nil {
		pairs = map[string]Value{}
	}
	return Value{
		kind:       KindTypedObject,
		pairs:      pairs,
		elemMarker: valueMarker,
		count:      len(pairs),
		counted:    true,
	}
}

func UncountedTypedObject(valueMarker Marker, pairs map[string]Value) Value {
	if pairs == nil {
		pairs = map[string]Value{}
	}
	return Value{kind: KindTypedObject, pairs: pairs, elemMarker: valueMarker}
}

// WithCount returns a copy of an optimized container carrying n as its count
// hint. The hint is informational: the encoder always writes the actual
// number of elements. Other kinds are returned unchanged.
func (v Value) WithCount(n int) Value {
	if v.kind == KindTypedArray || v.kind == KindTypedObject {
		v.count = n
		v.counted = true
	}
	return v
}

// WithoutCount returns a copy of an optimized container with no count, so it
// is encoded with a trailing end marker.
func (v Value) WithoutCount() Value {
	if v.kind == KindTypedArray || v.kind == KindTypedObject {
		v.count = 0
		v.counted = false
	}
	return v
}

// Plain returns v with every typed container, at any depth, replaced by
// the plain array or object holding the same elements. Encoding the result
// without OptimizeContainers gives one canonical form per content.
func (v Value) Plain() Value {
	switch v.kind {
	case KindArray, KindTypedArray:
		elems := make([]Value, len(v.elems))
		for i, elem := range v.elems {
			elems[i] = elem.Plain()
		}
		return Array(elems...)

	case KindObject, KindTypedObject:
		pairs := make(map[string]Value, len(v.pairs))
		for key, item := range v.pairs {
			pairs[key] = item.Plain()
		}
		return Object(pairs)
	}

	return v
}

func (v Value) Kind() Kind { return v.kind }

// Marker returns the wire kind of v. Bool(true) and Bool(false) have
// distinct wire kinds; every container reports its start marker.
func (v Value) Marker() Marker {
	switch v.kind {
	case KindNull:
		return MarkerNull
	case KindBool:
		if v.b {
			return MarkerTrue
		}
		return MarkerFalse
	case KindInt8:
		return MarkerInt8
	case KindUInt8:
		return MarkerUInt8
	case KindInt16:
		return MarkerInt16
	case KindInt32:
		return MarkerInt32
	case KindInt64:
		return MarkerInt64
	case KindFloat32:
		return MarkerFloat32
	case KindFloat64:
		return MarkerFloat64
	case KindHighPrecision:
		return MarkerHighPrecision
	case KindChar:
		return MarkerChar
	case KindString:
		return MarkerString
	case KindArray, KindTypedArray:
		return MarkerArrayStart
	case KindObject, KindTypedObject:
		return MarkerObjectStart
	}
	return 0
}

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) IsBool() bool { return v.kind == KindBool }

func (v Value) IsNumber() bool { return v.IsInteger() || v.IsFloat() || v.kind == KindHighPrecision }

func (v Value) IsInteger() bool {
	switch v.kind {
	case KindInt8, KindUInt8, KindInt16, KindInt32, KindInt64:
		return true
	}
	return false
}

func (v Value) IsFloat() bool { return v.kind == KindFloat32 || v.kind == KindFloat64 }

func (v Value) IsString() bool { return v.kind == KindString }

func (v Value) IsChar() bool { return v.kind == KindChar }

func (v Value) IsArray() bool { return v.kind == KindArray || v.kind == KindTypedArray }

func (v Value) IsObject() bool { return v.kind == KindObject || v.kind == KindTypedObject }

func (v Value) IsContainer() bool { return v.IsArray() || v.IsObject() }

// IsPrimitive reports whether v is a scalar. Only primitives may appear as
// the shared element kind of an optimized container.
func (v Value) IsPrimitive() bool { return v.kind != KindInvalid && !v.IsContainer() }

// IsOptimized reports whether v is a TypedArray or TypedObject.
func (v Value) IsOptimized() bool { return v.kind == KindTypedArray || v.kind == KindTypedObject }

// Len returns the number of elements or pairs of a container, -1 otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindArray, KindTypedArray:
		return len(v.elems)
	case KindObject, KindTypedObject:
		return len(v.pairs)
	}
	return -1
}

// IsEmpty reports whether v is a container without elements.
func (v Value) IsEmpty() bool { return v.Len() == 0 }

func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// AsInt64 returns the value of any integer kind widened to int64.
func (v Value) AsInt64() (int64, bool) {
	if !v.IsInteger() {
		return 0, false
	}
	return v.i, true
}

// AsFloat64 returns the value of any float kind widened to float64.
func (v Value) AsFloat64() (float64, bool) {
	if !v.IsFloat() {
		return 0, false
	}
	return v.f, true
}

func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

func (v Value) AsHighPrecision() (string, bool) {
	if v.kind != KindHighPrecision {
		return "", false
	}
	return v.s, true
}

func (v Value) AsChar() (rune, bool) {
	if v.kind != KindChar {
		return 0, false
	}
	return v.r, true
}

// Elements returns the elements of an array or typed array.
func (v Value) Elements() []Value {
	if !v.IsArray() {
		return nil
	}
	return v.elems
}

// Pairs returns the key/value mapping of an object or typed object.
func (v Value) Pairs() map[string]Value {
	if !v.IsObject() {
		return nil
	}
	return v.pairs
}

// Get returns the value stored under key in an object.
func (v Value) Get(key string) (Value, bool) {
	if !v.IsObject() {
		return Value{}, false
	}
	item, ok := v.pairs[key]
	return item, ok
}

// Keys returns the object keys in sorted order, the order in which the
// encoder writes them.
func (v Value) Keys() []string {
	if !v.IsObject() {
		return nil
	}
	return slices.Sorted(maps.Keys(v.pairs))
}

// ElementMarker returns the shared element kind of an optimized container.
func (v Value) ElementMarker() (Marker, bool) {
	if !v.IsOptimized() {
		return 0, false
	}
	return v.elemMarker, true
}

// Count returns the count hint of an optimized container. ok is false for
// uncounted containers and for every other kind.
func (v Value) Count() (n int, ok bool) {
	if !v.IsOptimized() || !v.counted {
		return 0, false
	}
	return v.count, true
}

// Equal reports whether v and other are structurally identical: same kinds,
// same payloads, same count hints, same elements in the same order and the
// same object keys in any order. NaN floats compare equal to themselves.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}

	switch v.kind {
	case KindInvalid, KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindInt8, KindUInt8, KindInt16, KindInt32, KindInt64:
		return v.i == other.i
	case KindFloat32, KindFloat64:
		return v.f == other.f || (math.IsNaN(v.f) && math.IsNaN(other.f))
	case KindHighPrecision, KindString:
		return v.s == other.s
	case KindChar:
		return v.r == other.r
	case KindArray:
		return equalElements(v.elems, other.elems)
	case KindObject:
		return equalPairs(v.pairs, other.pairs)
	case KindTypedArray:
		return v.elemMarker == other.elemMarker && v.sameCount(other) && equalElements(v.elems, other.elems)
	case KindTypedObject:
		return v.elemMarker == other.elemMarker && v.sameCount(other) && equalPairs(v.pairs, other.pairs)
	}

	return false
}

func (v Value) sameCount(other Value) bool {
	return v.counted == other.counted && (!v.counted || v.count == other.count)
}

func equalElements(a, b []Value) bool {
	return slices.EqualFunc(a, b, Value.Equal)
}

func equalPairs(a, b map[string]Value) bool {
	return maps.EqualFunc(a, b, Value.Equal)
}

// Interface converts v into plain Go values: nil, bool, int8, uint8, int16,
// int32, int64, float32, float64, string (String and HighPrecision), rune
// (Char), []any for arrays and map[string]any for objects.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt8:
		return int8(v.i)
	case KindUInt8:
		return uint8(v.i)
	case KindInt16:
		return int16(v.i)
	case KindInt32:
		return int32(v.i)
	case KindInt64:
		return v.i
	case KindFloat32:
		return float32(v.f)
	case KindFloat64:
		return v.f
	case KindHighPrecision, KindString:
		return v.s
	case KindChar:
		return v.r
	case KindArray, KindTypedArray:
		out := make([]any, len(v.elems))
		for i, elem := range v.elems {
			out[i] = elem.Interface()
		}
		return out
	case KindObject, KindTypedObject:
		out := make(map[string]any, len(v.pairs))
		for key, item := range v.pairs {
			out[key] = item.Interface()
		}
		return out
	}
	return nil
}

// homogeneousMarker returns the shared primitive wire kind of elems. ok is
// false if elems is empty, mixed, or contains a container.
func homogeneousMarker(elems []Value) (Marker, bool) {
	if len(elems) == 0 {
		return 0, false
	}

	first := elems[0].Marker()
	if !first.IsPrimitive() {
		return 0, false
	}

	for _, elem := range elems[1:] {
		if elem.Marker() != first {
			return 0, false
		}
	}

	return first, true
}

func homogeneousPairMarker(pairs map[string]Value) (Marker, bool) {
	var (
		first Marker
		seen  bool
	)

	for _, item := range pairs {
		m := item.Marker()
		if !seen {
			if !m.IsPrimitive() {
				return 0, false
			}
			first, seen = m, true
			continue
		}
		if m != first {
			return 0, false
		}
	}

	return first, seen
}
