package ubjson

import (
	"fmt"
	"io"
	"math"
	"unicode/utf8"
)

type Encoder interface {
	// Encode writes one value to the underlying stream.
	//
	// Note: If encoding fails part way through, the bytes written so far
	// are not rolled back; the stream should be considered unusable.
	Encode(v Value) error

	// Total bytes written to the underlying stream
	BytesWritten() uint64
}

type encoder struct {
	writer *limitedWriter
	buffer dataBuffer

	optimize bool
	maxDepth int
	depth    int
}

func NewEncoder(writer io.Writer, options ...Options) Encoder {
	s := collectSettings(options)

	return &encoder{
		writer:   newLimitedWriter(writer, s.maxBytes),
		optimize: s.optimize,
		maxDepth: s.maxDepth,
	}
}

func (e *encoder) Encode(v Value) error {
	e.writer.reset()
	e.depth = 0

	return e.encode(v)
}

func (e *encoder) BytesWritten() uint64 {
	return e.writer.written
}

func (e *encoder) encode(v Value) error {
	switch v.kind {
	case KindArray:
		return e.encodeArray(v.elems)

	case KindObject:
		return e.encodeObject(v.pairs)

	case KindTypedArray:
		return e.encodeTypedArray(v.elemMarker, v.elems, v.counted)

	case KindTypedObject:
		return e.encodeTypedObject(v.elemMarker, v.pairs, v.counted)

	case KindInvalid:
		return &ErrUnsupportedType{Msg: "cannot encode the zero Value"}
	}

	if err := writeMarker(e.writer, v.Marker(), e.buffer[:]); err != nil {
		return err
	}

	return e.encodePayload(v)
}

// encodePayload writes a primitive value without its leading marker.
func (e *encoder) encodePayload(v Value) error {
	switch v.kind {
	case KindNull, KindBool:
		return nil

	case KindInt8, KindUInt8, KindInt16, KindInt32, KindInt64:
		return writeInt(e.writer, v.Marker(), v.i, e.buffer[:])

	case KindFloat32, KindFloat64:
		return writeFloat(e.writer, v.Marker(), v.f, e.buffer[:])

	case KindHighPrecision:
		if err := validateHighPrecision(v.s); err != nil {
			return err
		}
		return writeString(e.writer, v.s, e.buffer[:])

	case KindChar:
		return writeChar(e.writer, v.r, e.buffer[:])

	case KindString:
		return writeString(e.writer, v.s, e.buffer[:])
	}

	return &ErrUnsupportedType{Msg: fmt.Sprintf("%s has no primitive payload", v.kind)}
}

func (e *encoder) enter() error {
	if e.depth >= e.maxDepth {
		return &ErrDepthLimitExceeded{Limit: e.maxDepth}
	}

	e.depth++

	return nil
}

func (e *encoder) leave() {
	e.depth--
}

func (e *encoder) encodeArray(elems []Value) error {
	if e.optimize {
		if m, ok := homogeneousMarker(elems); ok {
			return e.encodeTypedArray(m, elems, true)
		}
	}

	if err := e.enter(); err != nil {
		return err
	}

	if err := writeMarker(e.writer, MarkerArrayStart, e.buffer[:]); err != nil {
		return err
	}

	for _, elem := range elems {
		if err := e.encode(elem); err != nil {
			return err
		}
	}

	e.leave()

	return writeMarker(e.writer, MarkerArrayEnd, e.buffer[:])
}

func (e *encoder) encodeObject(pairs map[string]Value) error {
	if e.optimize {
		if m, ok := homogeneousPairMarker(pairs); ok {
			return e.encodeTypedObject(m, pairs, true)
		}
	}

	if err := e.enter(); err != nil {
		return err
	}

	if err := writeMarker(e.writer, MarkerObjectStart, e.buffer[:]); err != nil {
		return err
	}

	for _, key := range sortedKeys(pairs) {
		// Keys carry no leading string marker.
		if err := writeString(e.writer, key, e.buffer[:]); err != nil {
			return err
		}

		if err := e.encode(pairs[key]); err != nil {
			return err
		}
	}

	e.leave()

	return writeMarker(e.writer, MarkerObjectEnd, e.buffer[:])
}

func checkElementMarker(m Marker) error {
	if !m.IsPrimitive() {
		return &ErrUnsupportedType{Msg: fmt.Sprintf("%s cannot be the element kind of an optimized container", m)}
	}
	return nil
}

// checkUncountedElement rejects elements an uncounted typed array cannot
// delimit: zero-payload kinds, and payloads whose first byte reads as the
// array end marker.
func checkUncountedElement(i int, elem Value) error {
	if size, _ := elem.Marker().PayloadSize(); size == 0 {
		return invalidFormat("uncounted typed array of %s cannot hold elements", elem.Marker())
	}

	if b, ok := firstPayloadByte(elem); ok && Marker(b) == MarkerArrayEnd {
		return invalidFormat("element %d of uncounted typed array starts with the %s marker", i, MarkerArrayEnd)
	}

	return nil
}

// firstPayloadByte returns the first byte encodePayload writes for v.
// Strings and high-precision numbers start with a length marker, which
// never collides with an end marker.
func firstPayloadByte(v Value) (byte, bool) {
	switch v.kind {
	case KindInt8, KindUInt8, KindInt16, KindInt32, KindInt64:
		size, _ := v.Marker().PayloadSize()
		return byte(uint64(v.i) >> (8 * (size - 1))), true

	case KindFloat32:
		return byte(math.Float32bits(float32(v.f)) >> 24), true

	case KindFloat64:
		return byte(math.Float64bits(v.f) >> 56), true

	case KindChar:
		var buf [utf8.UTFMax]byte
		utf8.EncodeRune(buf[:], v.r)
		return buf[0], true
	}

	return 0, false
}

// writeTypedHeader writes `<start> $ <kind>` and, for counted containers,
// `# <length>`. The count written is always the actual length.
func (e *encoder) writeTypedHeader(start, m Marker, length int, counted bool) error {
	for _, b := range []Marker{start, MarkerType, m} {
		if err := writeMarker(e.writer, b, e.buffer[:]); err != nil {
			return err
		}
	}

	if !counted {
		return nil
	}

	if err := writeMarker(e.writer, MarkerCount, e.buffer[:]); err != nil {
		return err
	}

	return writeLength(e.writer, length, e.buffer[:])
}

func (e *encoder) encodeTypedArray(m Marker, elems []Value, counted bool) error {
	if err := checkElementMarker(m); err != nil {
		return err
	}

	for i, elem := range elems {
		if elem.Marker() != m {
			return invalidFormat("element %d of typed array has kind %s, expected %s", i, elem.Marker(), m)
		}
		if !counted {
			if err := checkUncountedElement(i, elem); err != nil {
				return err
			}
		}
	}

	if err := e.enter(); err != nil {
		return err
	}

	if err := e.writeTypedHeader(MarkerArrayStart, m, len(elems), counted); err != nil {
		return err
	}

	for _, elem := range elems {
		if err := e.encodePayload(elem); err != nil {
			return err
		}
	}

	e.leave()

	if counted {
		return nil
	}

	return writeMarker(e.writer, MarkerArrayEnd, e.buffer[:])
}

func (e *encoder) encodeTypedObject(m Marker, pairs map[string]Value, counted bool) error {
	if err := checkElementMarker(m); err != nil {
		return err
	}

	keys := sortedKeys(pairs)

	for _, key := range keys {
		if got := pairs[key].Marker(); got != m {
			return invalidFormat("value of key %q in typed object has kind %s, expected %s", key, got, m)
		}
	}

	if err := e.enter(); err != nil {
		return err
	}

	if err := e.writeTypedHeader(MarkerObjectStart, m, len(pairs), counted); err != nil {
		return err
	}

	for _, key := range keys {
		if err := writeString(e.writer, key, e.buffer[:]); err != nil {
			return err
		}

		if err := e.encodePayload(pairs[key]); err != nil {
			return err
		}
	}

	e.leave()

	if counted {
		return nil
	}

	return writeMarker(e.writer, MarkerObjectEnd, e.buffer[:])
}

func sortedKeys(pairs map[string]Value) []string {
	return Object(pairs).Keys()
}
