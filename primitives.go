package ubjson

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"unicode/utf8"
)

// Byte strings longer than this are read incrementally so that a forged
// length prefix cannot force a huge allocation before the input runs out.
const eagerReadLimit = 64 << 10

type dataBuffer [9]byte

func writeMarker(w io.Writer, m Marker, buf []byte) error {
	buf[0] = byte(m)
	_, err := w.Write(buf[:1])
	return wrapIO(err)
}

// writeInt writes the big-endian payload of an integer kind.
func writeInt(w io.Writer, m Marker, v int64, buf []byte) error {
	var n int

	switch m {
	case MarkerInt8, MarkerUInt8:
		buf[0] = byte(v)
		n = 1
	case MarkerInt16:
		binary.BigEndian.PutUint16(buf, uint16(v))
		n = 2
	case MarkerInt32:
		binary.BigEndian.PutUint32(buf, uint32(v))
		n = 4
	case MarkerInt64:
		binary.BigEndian.PutUint64(buf, uint64(v))
		n = 8
	default:
		return invalidFormat("%s is not an integer kind", m)
	}

	_, err := w.Write(buf[:n])
	return wrapIO(err)
}

func writeFloat(w io.Writer, m Marker, v float64, buf []byte) error {
	var n int

	switch m {
	case MarkerFloat32:
		binary.BigEndian.PutUint32(buf, math.Float32bits(float32(v)))
		n = 4
	case MarkerFloat64:
		binary.BigEndian.PutUint64(buf, math.Float64bits(v))
		n = 8
	default:
		return invalidFormat("%s is not a float kind", m)
	}

	_, err := w.Write(buf[:n])
	return wrapIO(err)
}

// lengthMarker picks the narrowest integer kind able to hold a length.
func lengthMarker(length int) Marker {
	switch {
	case length <= math.MaxUint8:
		return MarkerUInt8
	case length <= math.MaxInt16:
		return MarkerInt16
	case int64(length) <= math.MaxInt32:
		return MarkerInt32
	}
	return MarkerInt64
}

// writeLength writes a compact-length integer: the narrowest integer marker
// followed by its payload.
func writeLength(w io.Writer, length int, buf []byte) error {
	if length < 0 {
		return invalidFormat("negative length %d", length)
	}

	m := lengthMarker(length)

	if err := writeMarker(w, m, buf); err != nil {
		return err
	}

	return writeInt(w, m, int64(length), buf)
}

func writeString(w io.Writer, s string, buf []byte) error {
	if err := writeLength(w, len(s), buf); err != nil {
		return err
	}

	_, err := io.WriteString(w, s)
	return wrapIO(err)
}

func writeChar(w io.Writer, r rune, buf []byte) error {
	if !utf8.ValidRune(r) {
		return &ErrInvalidChar{Msg: "not a Unicode scalar value"}
	}

	n := utf8.EncodeRune(buf, r)

	_, err := w.Write(buf[:n])
	return wrapIO(err)
}

func readByte(r io.ByteReader) (byte, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, wrapIO(unexpectedEOF(err))
	}
	return b, nil
}

func readFull(r io.Reader, buf []byte) error {
	_, err := io.ReadFull(r, buf)
	return wrapIO(unexpectedEOF(err))
}

// readInt reads the payload of an integer kind.
func readInt(r io.Reader, m Marker, buf []byte) (int64, error) {
	size, ok := m.PayloadSize()
	if !ok || !m.IsInteger() {
		return 0, invalidFormat("%s is not an integer kind", m)
	}

	if err := readFull(r, buf[:size]); err != nil {
		return 0, err
	}

	switch m {
	case MarkerInt8:
		return int64(int8(buf[0])), nil
	case MarkerUInt8:
		return int64(buf[0]), nil
	case MarkerInt16:
		return int64(int16(binary.BigEndian.Uint16(buf))), nil
	case MarkerInt32:
		return int64(int32(binary.BigEndian.Uint32(buf))), nil
	}

	return int64(binary.BigEndian.Uint64(buf)), nil
}

func readFloat(r io.Reader, m Marker, buf []byte) (float64, error) {
	switch m {
	case MarkerFloat32:
		if err := readFull(r, buf[:4]); err != nil {
			return 0, err
		}
		return float64(math.Float32frombits(binary.BigEndian.Uint32(buf))), nil

	case MarkerFloat64:
		if err := readFull(r, buf[:8]); err != nil {
			return 0, err
		}
		return math.Float64frombits(binary.BigEndian.Uint64(buf)), nil
	}

	return 0, invalidFormat("%s is not a float kind", m)
}

type byteReader interface {
	io.Reader
	io.ByteReader
}

// readLength reads a compact-length integer. Any integer kind is accepted as
// the length kind; negative values and values beyond the platform int are
// rejected.
func readLength(r byteReader, buf []byte) (int, error) {
	b, err := readByte(r)
	if err != nil {
		return 0, err
	}

	m := Marker(b)
	if !m.IsInteger() {
		return 0, invalidFormat("invalid length type marker: %s", m)
	}

	return readLengthPayload(r, m, buf)
}

func readLengthPayload(r io.Reader, m Marker, buf []byte) (int, error) {
	v, err := readInt(r, m, buf)
	if err != nil {
		return 0, err
	}

	if v < 0 {
		return 0, invalidFormat("negative length not allowed: %d", v)
	}

	if uint64(v) > math.MaxInt {
		return 0, invalidFormat("length too large for platform: %d", v)
	}

	return int(v), nil
}

func readBytes(r io.Reader, length int) ([]byte, error) {
	if length == 0 {
		return []byte{}, nil
	}

	if length <= eagerReadLimit {
		data := make([]byte, length)
		if err := readFull(r, data); err != nil {
			return nil, err
		}
		return data, nil
	}

	var out bytes.Buffer

	n, err := io.CopyN(&out, r, int64(length))
	if err != nil {
		return nil, wrapIO(unexpectedEOF(err))
	}
	if n != int64(length) {
		return nil, wrapIO(io.ErrUnexpectedEOF)
	}

	return out.Bytes(), nil
}

func readString(r byteReader, buf []byte) (string, error) {
	length, err := readLength(r, buf)
	if err != nil {
		return "", err
	}

	return readText(r, length)
}

func readText(r io.Reader, length int) (string, error) {
	data, err := readBytes(r, length)
	if err != nil {
		return "", err
	}

	if !utf8.Valid(data) {
		return "", ErrInvalidUTF8
	}

	return string(data), nil
}

// readChar reads one UTF-8 encoded scalar. The sequence length is inferred
// from the high bits of the lead byte.
func readChar(r byteReader, buf []byte) (rune, error) {
	lead, err := readByte(r)
	if err != nil {
		return 0, err
	}

	var size int

	switch {
	case lead < 0x80:
		return rune(lead), nil
	case lead < 0xE0:
		size = 2
	case lead < 0xF0:
		size = 3
	default:
		size = 4
	}

	buf[0] = lead
	if err := readFull(r, buf[1:size]); err != nil {
		return 0, err
	}

	if !utf8.Valid(buf[:size]) {
		return 0, ErrInvalidUTF8
	}

	if count := utf8.RuneCount(buf[:size]); count != 1 {
		return 0, &ErrInvalidChar{Msg: "expected a single character"}
	}

	ch, _ := utf8.DecodeRune(buf[:size])

	return ch, nil
}

// validateHighPrecision checks the numeric grammar: optional sign, digits
// with at most one decimal point, and at most one exponent (optionally
// signed) that must follow at least one digit.
func validateHighPrecision(text string) error {
	if text == "" {
		return &ErrInvalidHighPrecision{Msg: "empty high-precision number"}
	}

	var (
		i = 0

		hasDigits   bool
		hasDecimal  bool
		hasExponent bool
	)

	if text[0] == '+' || text[0] == '-' {
		i++
	}

	for ; i < len(text); i++ {
		switch ch := text[i]; {
		case ch >= '0' && ch <= '9':
			hasDigits = true

		case ch == '.':
			if hasDecimal || hasExponent {
				return &ErrInvalidHighPrecision{Msg: "misplaced decimal point in " + quote(text)}
			}
			hasDecimal = true

		case ch == 'e' || ch == 'E':
			if !hasDigits || hasExponent {
				return &ErrInvalidHighPrecision{Msg: "misplaced exponent in " + quote(text)}
			}
			hasExponent = true

			if i+1 < len(text) && (text[i+1] == '+' || text[i+1] == '-') {
				i++
			}

		default:
			return &ErrInvalidHighPrecision{Msg: "invalid character in " + quote(text)}
		}
	}

	if !hasDigits {
		return &ErrInvalidHighPrecision{Msg: "no digits in " + quote(text)}
	}

	return nil
}

func quote(s string) string {
	const max = 64
	if len(s) > max {
		s = s[:max] + "..."
	}
	return "\"" + s + "\""
}

func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

// wrapIO tags stream failures as ErrIO, leaving codec errors untouched.
func wrapIO(err error) error {
	if err == nil {
		return nil
	}

	var (
		ioErr   *ErrIO
		tooLong *ErrDataTooLarge
	)

	if errors.As(err, &ioErr) || errors.As(err, &tooLong) {
		return err
	}

	return &ErrIO{Err: err}
}
