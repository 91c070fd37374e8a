package ubjson

import (
	"errors"
	"fmt"
	"io"
)

type Decoder interface {
	// Decode reads the next value from the underlying stream.
	//
	// Returns an error wrapping io.EOF if the stream ends cleanly before
	// the first byte of a value.
	Decode() (Value, error)

	// Total bytes read from the underlying stream
	BytesRead() uint64
}

type decoder struct {
	reader *limitedReader
	buffer dataBuffer

	maxDepth int
	maxSize  int
	depth    int
}

// NewDecoder returns a decoder reading from reader. If reader does not
// implement io.ByteScanner it is wrapped in a bufio.Reader, which may read
// ahead of the last decoded value.
func NewDecoder(reader io.Reader, options ...Options) Decoder {
	s := collectSettings(options)

	return &decoder{
		reader:   newLimitedReader(reader, s.maxBytes),
		maxDepth: s.maxDepth,
		maxSize:  s.maxSize,
	}
}

func (d *decoder) Decode() (Value, error) {
	d.reader.reset()
	d.depth = 0

	if err := d.checkDepth(); err != nil {
		return Value{}, err
	}

	// Padding before a value, such as socket pings, is skipped in place.
	// A stream that ends after it ends cleanly.
	for {
		b, err := d.reader.ReadByte()
		if err != nil {
			if err == io.EOF {
				return Value{}, &ErrIO{Err: io.EOF}
			}
			return Value{}, wrapIO(err)
		}

		if Marker(b) != MarkerNoOp {
			return d.decodeWith(b)
		}
	}
}

func (d *decoder) BytesRead() uint64 {
	return d.reader.read
}

// decode reads one full value, including its leading marker.
func (d *decoder) decode() (Value, error) {
	if err := d.checkDepth(); err != nil {
		return Value{}, err
	}

	b, err := readByte(d.reader)
	if err != nil {
		return Value{}, err
	}

	b, err = d.skipNoOp(b)
	if err != nil {
		return Value{}, err
	}

	return d.decodeWith(b)
}

// decodeWith decodes a value whose leading marker byte was already consumed.
func (d *decoder) decodeWith(b byte) (Value, error) {
	m, err := ParseMarker(b)
	if err != nil {
		return Value{}, err
	}

	switch m {
	case MarkerNoOp:
		// Callers skip padding before getting here.
		return Value{}, invalidFormat("unexpected %s marker", m)

	case MarkerArrayStart:
		return d.decodeArray()

	case MarkerObjectStart:
		return d.decodeObject()

	case MarkerArrayEnd, MarkerObjectEnd:
		return Value{}, invalidFormat("unexpected container end marker: %s", m)
	}

	return d.decodePayload(m)
}

// decodePayload reads the payload of a primitive kind whose marker is known.
func (d *decoder) decodePayload(m Marker) (Value, error) {
	switch m {
	case MarkerNull:
		return Null(), nil

	case MarkerTrue:
		return Bool(true), nil

	case MarkerFalse:
		return Bool(false), nil

	case MarkerInt8, MarkerUInt8, MarkerInt16, MarkerInt32, MarkerInt64:
		v, err := readInt(d.reader, m, d.buffer[:])
		if err != nil {
			return Value{}, err
		}
		return Value{kind: integerKinds[m], i: v}, nil

	case MarkerFloat32:
		v, err := readFloat(d.reader, m, d.buffer[:])
		if err != nil {
			return Value{}, err
		}
		return Value{kind: KindFloat32, f: v}, nil

	case MarkerFloat64:
		v, err := readFloat(d.reader, m, d.buffer[:])
		if err != nil {
			return Value{}, err
		}
		return Float64(v), nil

	case MarkerHighPrecision:
		text, err := readString(d.reader, d.buffer[:])
		if err != nil {
			return Value{}, err
		}
		if err := validateHighPrecision(text); err != nil {
			return Value{}, err
		}
		return HighPrecision(text), nil

	case MarkerChar:
		r, err := readChar(d.reader, d.buffer[:])
		if err != nil {
			return Value{}, err
		}
		return Char(r), nil

	case MarkerString:
		s, err := readString(d.reader, d.buffer[:])
		if err != nil {
			return Value{}, err
		}
		return String(s), nil
	}

	return Value{}, &ErrUnsupportedType{Msg: fmt.Sprintf("%s is not a primitive kind", m)}
}

var integerKinds = map[Marker]Kind{
	MarkerInt8:  KindInt8,
	MarkerUInt8: KindUInt8,
	MarkerInt16: KindInt16,
	MarkerInt32: KindInt32,
	MarkerInt64: KindInt64,
}

// checkDepth runs before every value, the top-level one included.
func (d *decoder) checkDepth() error {
	if d.depth >= d.maxDepth {
		return &ErrDepthLimitExceeded{Limit: d.maxDepth}
	}
	return nil
}

func (d *decoder) enter() error {
	d.depth++

	if d.depth > d.maxDepth {
		d.depth--
		return &ErrDepthLimitExceeded{Limit: d.maxDepth}
	}

	return nil
}

func (d *decoder) leave() {
	d.depth--
}

func (d *decoder) checkSize(count int) error {
	if count >= d.maxSize {
		return &ErrSizeLimitExceeded{Limit: d.maxSize}
	}
	return nil
}

// typedHeader is the optional `$<kind>[#<count>]` prefix of a container.
type typedHeader struct {
	marker  Marker
	count   int
	counted bool
}

// readHeader inspects the first byte after a container start marker. ok is
// false for a tagged container; first then holds the byte that was read.
func (d *decoder) readHeader() (header typedHeader, ok bool, first byte, err error) {
	first, err = readByte(d.reader)
	if err != nil {
		return header, false, 0, err
	}

	switch Marker(first) {
	case MarkerCount:
		return header, false, 0, invalidFormat("count marker must follow a type marker")

	case MarkerType:
	default:
		return header, false, first, nil
	}

	b, err := readByte(d.reader)
	if err != nil {
		return header, false, 0, err
	}

	header.marker = Marker(b)
	if err := checkElementMarker(header.marker); err != nil {
		if _, perr := ParseMarker(b); perr != nil {
			return header, false, 0, perr
		}
		return header, false, 0, err
	}

	b, err = readByte(d.reader)
	if err != nil {
		return header, false, 0, err
	}

	if Marker(b) != MarkerCount {
		if err := d.reader.UnreadByte(); err != nil {
			return header, false, 0, wrapIO(err)
		}
		return header, true, 0, nil
	}

	header.count, err = readLength(d.reader, d.buffer[:])
	if err != nil {
		return header, false, 0, err
	}

	if err := d.checkCount(header.count); err != nil {
		return header, false, 0, err
	}

	header.counted = true

	return header, true, 0, nil
}

// checkCount applies the per-container size cap to a declared count before
// any element is read.
func (d *decoder) checkCount(count int) error {
	if count > d.maxSize {
		return &ErrSizeLimitExceeded{Limit: d.maxSize}
	}
	return nil
}

// atEnd consumes the end marker if it is the next byte.
func (d *decoder) atEnd(end Marker) (bool, error) {
	b, err := readByte(d.reader)
	if err != nil {
		return false, err
	}

	if Marker(b) == end {
		return true, nil
	}

	return false, wrapIO(d.reader.UnreadByte())
}

func (d *decoder) decodeArray() (Value, error) {
	if err := d.enter(); err != nil {
		return Value{}, err
	}
	defer d.leave()

	header, typed, first, err := d.readHeader()
	if err != nil {
		return Value{}, err
	}

	if typed {
		return d.decodeTypedArray(header)
	}

	var elems []Value

	for b := first; ; {
		b, err = d.skipNoOp(b)
		if err != nil {
			return Value{}, err
		}
		if Marker(b) == MarkerArrayEnd {
			break
		}

		if err := d.checkSize(len(elems)); err != nil {
			return Value{}, err
		}

		if err := d.checkDepth(); err != nil {
			return Value{}, err
		}

		elem, err := d.decodeWith(b)
		if err != nil {
			return Value{}, err
		}
		elems = append(elems, elem)

		b, err = readByte(d.reader)
		if err != nil {
			return Value{}, err
		}
	}

	return Array(elems...), nil
}

// skipNoOp skips padding between the entries of a tagged container and
// returns the first significant byte.
func (d *decoder) skipNoOp(b byte) (byte, error) {
	var err error

	for Marker(b) == MarkerNoOp {
		if b, err = readByte(d.reader); err != nil {
			return 0, err
		}
	}

	return b, nil
}

// typedPayload decodes one marker-less element of an optimized container.
func (d *decoder) typedPayload(m Marker) (Value, error) {
	if err := d.checkDepth(); err != nil {
		return Value{}, err
	}
	return d.decodePayload(m)
}

func (d *decoder) decodeTypedArray(header typedHeader) (Value, error) {
	if header.counted {
		elems := make([]Value, 0, min(header.count, eagerReadLimit))

		for range header.count {
			elem, err := d.typedPayload(header.marker)
			if err != nil {
				return Value{}, err
			}
			elems = append(elems, elem)
		}

		return TypedArray(header.marker, elems), nil
	}

	var elems []Value

	for {
		end, err := d.atEnd(MarkerArrayEnd)
		if err != nil {
			return Value{}, err
		}
		if end {
			break
		}

		// Zero-payload kinds cannot be delimited without a count.
		if size, _ := header.marker.PayloadSize(); size == 0 {
			return Value{}, invalidFormat("uncounted typed array of %s must be empty", header.marker)
		}

		if err := d.checkSize(len(elems)); err != nil {
			return Value{}, err
		}

		elem, err := d.typedPayload(header.marker)
		if err != nil {
			return Value{}, err
		}
		elems = append(elems, elem)
	}

	return UncountedTypedArray(header.marker, elems), nil
}

func (d *decoder) decodeObject() (Value, error) {
	if err := d.enter(); err != nil {
		return Value{}, err
	}
	defer d.leave()

	header, typed, first, err := d.readHeader()
	if err != nil {
		return Value{}, err
	}

	if typed {
		return d.decodeTypedObject(header)
	}

	pairs := map[string]Value{}

	for b := first; ; {
		b, err = d.skipNoOp(b)
		if err != nil {
			return Value{}, err
		}
		if Marker(b) == MarkerObjectEnd {
			break
		}

		if err := d.checkSize(len(pairs)); err != nil {
			return Value{}, err
		}

		key, err := d.decodeKey(b, pairs)
		if err != nil {
			return Value{}, err
		}

		item, err := d.decode()
		if err != nil {
			return Value{}, err
		}
		pairs[key] = item

		b, err = readByte(d.reader)
		if err != nil {
			return Value{}, err
		}
	}

	return Object(pairs), nil
}

// keyLengthMarkers are the length kinds accepted in key position; keys carry
// no leading string marker.
var keyLengthMarkers = map[Marker]bool{
	MarkerUInt8: true,
	MarkerInt16: true,
	MarkerInt32: true,
	MarkerInt64: true,
}

// decodeKey reads an object key whose first byte, its length kind, was
// already consumed.
func (d *decoder) decodeKey(b byte, pairs map[string]Value) (string, error) {
	m := Marker(b)
	if !keyLengthMarkers[m] {
		return "", invalidFormat("expected object key length, found %s", describeByte(b))
	}

	length, err := readLengthPayload(d.reader, m, d.buffer[:])
	if err != nil {
		var format *ErrInvalidFormat
		if errors.As(err, &format) {
			return "", invalidFormat("object key: %s", format.Msg)
		}
		return "", err
	}

	key, err := readText(d.reader, length)
	if err != nil {
		return "", err
	}

	if _, exists := pairs[key]; exists {
		return "", invalidFormat("duplicate key in object: %q", key)
	}

	return key, nil
}

func describeByte(b byte) string {
	if m, err := ParseMarker(b); err == nil {
		return m.String()
	}
	return fmt.Sprintf("byte 0x%02x", b)
}

func (d *decoder) decodeTypedObject(header typedHeader) (Value, error) {
	pairs := map[string]Value{}

	if header.counted {
		for range header.count {
			b, err := readByte(d.reader)
			if err != nil {
				return Value{}, err
			}

			if err := d.decodeTypedPair(b, header.marker, pairs); err != nil {
				return Value{}, err
			}
		}

		return TypedObject(header.marker, pairs), nil
	}

	for {
		b, err := readByte(d.reader)
		if err != nil {
			return Value{}, err
		}
		if Marker(b) == MarkerObjectEnd {
			break
		}

		if err := d.checkSize(len(pairs)); err != nil {
			return Value{}, err
		}

		if err := d.decodeTypedPair(b, header.marker, pairs); err != nil {
			return Value{}, err
		}
	}

	return UncountedTypedObject(header.marker, pairs), nil
}

func (d *decoder) decodeTypedPair(b byte, m Marker, pairs map[string]Value) error {
	key, err := d.decodeKey(b, pairs)
	if err != nil {
		return err
	}

	item, err := d.typedPayload(m)
	if err != nil {
		return err
	}

	pairs[key] = item

	return nil
}
