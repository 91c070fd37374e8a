package ubjson

import "fmt"

// Marker is the single leading byte that identifies a value's kind on the wire.
type Marker byte

const (
	MarkerNull          Marker = 'Z'
	MarkerNoOp          Marker = 'N'
	MarkerTrue          Marker = 'T'
	MarkerFalse         Marker = 'F'
	MarkerInt8          Marker = 'i'
	MarkerUInt8         Marker = 'U'
	MarkerInt16         Marker = 'I'
	MarkerInt32         Marker = 'l'
	MarkerInt64         Marker = 'L'
	MarkerFloat32       Marker = 'd'
	MarkerFloat64       Marker = 'D'
	MarkerHighPrecision Marker = 'H'
	MarkerChar          Marker = 'C'
	MarkerString        Marker = 'S'
	MarkerArrayStart    Marker = '['
	MarkerArrayEnd      Marker = ']'
	MarkerObjectStart   Marker = '{'
	MarkerObjectEnd     Marker = '}'

	// Optimized container headers. These are only valid right after a
	// container start marker and are never a value on their own.
	MarkerType  Marker = '$'
	MarkerCount Marker = '#'
)

var markerNames = map[Marker]string{
	MarkerNull:          "null",
	MarkerNoOp:          "no-op",
	MarkerTrue:          "true",
	MarkerFalse:         "false",
	MarkerInt8:          "int8",
	MarkerUInt8:         "uint8",
	MarkerInt16:         "int16",
	MarkerInt32:         "int32",
	MarkerInt64:         "int64",
	MarkerFloat32:       "float32",
	MarkerFloat64:       "float64",
	MarkerHighPrecision: "high-precision",
	MarkerChar:          "char",
	MarkerString:        "string",
	MarkerArrayStart:    "array-start",
	MarkerArrayEnd:      "array-end",
	MarkerObjectStart:   "object-start",
	MarkerObjectEnd:     "object-end",
}

// Size of the payload that follows each fixed-width marker, -1 for
// variable-width payloads.
var payloadSize = map[Marker]int{
	MarkerNull:          0,
	MarkerTrue:          0,
	MarkerFalse:         0,
	MarkerInt8:          1,
	MarkerUInt8:         1,
	MarkerInt16:         2,
	MarkerInt32:         4,
	MarkerInt64:         8,
	MarkerFloat32:       4,
	MarkerFloat64:       8,
	MarkerHighPrecision: -1,
	MarkerChar:          -1,
	MarkerString:        -1,
}

// ParseMarker validates a leading byte read from the wire.
func ParseMarker(b byte) (Marker, error) {
	m := Marker(b)
	if _, ok := markerNames[m]; !ok {
		return 0, &ErrInvalidTypeMarker{Marker: b}
	}
	return m, nil
}

func (m Marker) String() string {
	if name, ok := markerNames[m]; ok {
		return name
	}

	switch m {
	case MarkerType:
		return "type"
	case MarkerCount:
		return "count"
	}

	return fmt.Sprintf("unknown(%#02x)", byte(m))
}

// IsPrimitive reports whether m identifies a scalar value, i.e. a kind that
// may be declared as the element kind of an optimized container.
func (m Marker) IsPrimitive() bool {
	_, ok := payloadSize[m]
	return ok
}

func (m Marker) IsContainerStart() bool {
	return m == MarkerArrayStart || m == MarkerObjectStart
}

func (m Marker) IsContainerEnd() bool {
	return m == MarkerArrayEnd || m == MarkerObjectEnd
}

func (m Marker) IsNumeric() bool {
	return m.IsInteger() || m.IsFloat() || m == MarkerHighPrecision
}

func (m Marker) IsInteger() bool {
	switch m {
	case MarkerInt8, MarkerUInt8, MarkerInt16, MarkerInt32, MarkerInt64:
		return true
	}
	return false
}

func (m Marker) IsFloat() bool {
	return m == MarkerFloat32 || m == MarkerFloat64
}

// PayloadSize returns the number of bytes following the marker for fixed
// width kinds. ok is false for variable-width kinds and for containers.
func (m Marker) PayloadSize() (size int, ok bool) {
	size, known := payloadSize[m]
	if !known || size < 0 {
		return 0, false
	}
	return size, true
}
