package ubjson

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodePrimitives(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value Value
		want  []byte
	}{
		{"null", Null(), []byte{0x5A}},
		{"true", Bool(true), []byte{0x54}},
		{"false", Bool(false), []byte{0x46}},
		{"int8", Int8(42), []byte{0x69, 42}},
		{"int8 negative", Int8(-1), []byte{'i', 0xff}},
		{"uint8", UInt8(200), []byte{'U', 200}},
		{"int16", Int16(-2), []byte{'I', 0xff, 0xfe}},
		{"int32", Int32(0x01020304), []byte{'l', 1, 2, 3, 4}},
		{"int64", Int64(math.MinInt64), []byte{'L', 0x80, 0, 0, 0, 0, 0, 0, 0}},
		{"float32", Float32(1.5), []byte{'d', 0x3f, 0xc0, 0x00, 0x00}},
		{"float64", Float64(-2), []byte{'D', 0xc0, 0, 0, 0, 0, 0, 0, 0}},
		{"high precision", HighPrecision("3.14"), []byte{'H', 'U', 4, '3', '.', '1', '4'}},
		{"char", Char('a'), []byte{'C', 'a'}},
		{"char multibyte", Char('é'), []byte{'C', 0xc3, 0xa9}},
		{"string", String("Hello"), []byte{0x53, 0x55, 5, 'H', 'e', 'l', 'l', 'o'}},
		{"empty string", String(""), []byte{'S', 'U', 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeLongStringLength(t *testing.T) {
	t.Parallel()

	got, err := Encode(String(string(bytes.Repeat([]byte{'a'}, 300))))
	require.NoError(t, err)

	assert.Equal(t, []byte{'S', 'I', 0x01, 0x2c}, got[:4])
	assert.Len(t, got, 4+300)
}

func TestEncodeContainers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value Value
		want  []byte
	}{
		{"empty array", Array(), []byte{'[', ']'}},
		{"array", Array(Int8(1), String("a")), []byte{'[', 'i', 1, 'S', 'U', 1, 'a', ']'}},
		{"empty object", Object(nil), []byte{'{', '}'}},
		{
			// Keys carry no S marker and are written in sorted order.
			"object",
			Object(map[string]Value{"b": Null(), "a": Bool(true)}),
			[]byte{'{', 'U', 1, 'a', 'T', 'U', 1, 'b', 'Z', '}'},
		},
		{"nested", Array(Array(), Object(nil)), []byte{'[', '[', ']', '{', '}', ']'}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func bytesOf(values ...uint8) []Value {
	out := make([]Value, len(values))
	for i, v := range values {
		out[i] = UInt8(v)
	}
	return out
}

func TestEncodeTypedArray(t *testing.T) {
	t.Parallel()

	counted, err := Encode(TypedArray(MarkerUInt8, bytesOf(10, 20, 30, 40)))
	require.NoError(t, err)
	assert.Equal(t, []byte{'[', '$', 'U', '#', 'U', 4, 10, 20, 30, 40}, counted)

	uncounted, err := Encode(UncountedTypedArray(MarkerUInt8, bytesOf(10, 20, 30, 40)))
	require.NoError(t, err)
	assert.Equal(t, []byte{'[', '$', 'U', 10, 20, 30, 40, ']'}, uncounted)
}

func TestEncodeTypedArrayCountOverride(t *testing.T) {
	t.Parallel()

	stale := TypedArray(MarkerUInt8, bytesOf(1, 2, 3)).WithCount(99)

	got, err := Encode(stale)
	require.NoError(t, err)
	assert.Equal(t, []byte{'[', '$', 'U', '#', 'U', 3, 1, 2, 3}, got)
}

func TestEncodeTypedObject(t *testing.T) {
	t.Parallel()

	pairs := map[string]Value{"y": Int16(2), "x": Int16(1)}

	counted, err := Encode(TypedObject(MarkerInt16, pairs))
	require.NoError(t, err)
	assert.Equal(t, []byte{'{', '$', 'I', '#', 'U', 2, 'U', 1, 'x', 0, 1, 'U', 1, 'y', 0, 2}, counted)

	uncounted, err := Encode(UncountedTypedObject(MarkerInt16, pairs))
	require.NoError(t, err)
	assert.Equal(t, []byte{'{', '$', 'I', 'U', 1, 'x', 0, 1, 'U', 1, 'y', 0, 2, '}'}, uncounted)
}

func TestEncodeTypedMismatch(t *testing.T) {
	t.Parallel()

	var format *ErrInvalidFormat

	_, err := Encode(TypedArray(MarkerUInt8, []Value{UInt8(1), Int8(2)}))
	assert.ErrorAs(t, err, &format)

	_, err = Encode(TypedObject(MarkerTrue, map[string]Value{"a": Bool(true), "b": Bool(false)}))
	assert.ErrorAs(t, err, &format)

	var unsupported *ErrUnsupportedType

	_, err = Encode(TypedArray(MarkerArrayStart, []Value{Array()}))
	assert.ErrorAs(t, err, &unsupported)
}

func TestEncodeOptimize(t *testing.T) {
	t.Parallel()

	opts := Options{OptimizeContainers: true}

	tests := []struct {
		name  string
		value Value
		want  []byte
	}{
		{"homogeneous", Array(UInt8(1), UInt8(2)), []byte{'[', '$', 'U', '#', 'U', 2, 1, 2}},
		{"all true", Array(Bool(true), Bool(true)), []byte{'[', '$', 'T', '#', 'U', 2}},
		{"mixed bools", Array(Bool(true), Bool(false)), []byte{'[', 'T', 'F', ']'}},
		{"mixed widths", Array(UInt8(1), Int8(1)), []byte{'[', 'U', 1, 'i', 1, ']'}},
		{"empty", Array(), []byte{'[', ']'}},
		{"nested containers", Array(Array(), Array()), []byte{'[', '[', ']', '[', ']', ']'}},
		{
			"homogeneous object",
			Object(map[string]Value{"a": String("x")}),
			[]byte{'{', '$', 'S', '#', 'U', 1, 'U', 1, 'a', 'U', 1, 'x'},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.value, opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeDepthLimit(t *testing.T) {
	t.Parallel()

	nested := Array(Array(Array()))

	_, err := Encode(nested, Options{MaxDepth: 3})
	assert.NoError(t, err)

	_, err = Encode(nested, Options{MaxDepth: 2})

	var depth *ErrDepthLimitExceeded
	require.ErrorAs(t, err, &depth)
	assert.Equal(t, 2, depth.Limit)

	// Scalars never enter a container, so they pass any limit.
	_, err = Encode(Null(), Options{MaxDepth: LimitZero})
	assert.NoError(t, err)
}

func TestEncodeInvalid(t *testing.T) {
	t.Parallel()

	var unsupported *ErrUnsupportedType

	_, err := Encode(Value{})
	assert.ErrorAs(t, err, &unsupported)

	var hp *ErrInvalidHighPrecision

	_, err = Encode(HighPrecision("1.2.3"))
	assert.ErrorAs(t, err, &hp)

	var char *ErrInvalidChar

	_, err = Encode(Char(-1))
	assert.ErrorAs(t, err, &char)
}

func TestEncodeMaxBytes(t *testing.T) {
	t.Parallel()

	_, err := Encode(String("Hello"), Options{MaxBytes: 4})

	var tooLarge *ErrDataTooLarge
	assert.ErrorAs(t, err, &tooLarge)

	_, err = Encode(String("Hello"), Options{MaxBytes: 8})
	assert.NoError(t, err)
}

func TestEncoderBytesWritten(t *testing.T) {
	t.Parallel()

	var (
		buf = bytes.NewBuffer(nil)
		enc = NewEncoder(buf)
	)

	require.NoError(t, enc.Encode(Int8(1)))
	require.NoError(t, enc.Encode(String("ab")))

	assert.Equal(t, uint64(buf.Len()), enc.BytesWritten())
	assert.Equal(t, uint64(2+5), enc.BytesWritten())
}

func TestEncodeUncountedEndMarkerCollision(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value Value
	}{
		{"uint8", UncountedTypedArray(MarkerUInt8, bytesOf(93, 1))},
		{"char", UncountedTypedArray(MarkerChar, []Value{Char('a'), Char(']')})},
		{"int16 high byte", UncountedTypedArray(MarkerInt16, []Value{Int16(0x5D00)})},
		{"float64 high byte", UncountedTypedArray(MarkerFloat64, []Value{Float64(math.Float64frombits(0x5D << 56))})},
		{"nested", Array(UncountedTypedArray(MarkerUInt8, bytesOf(93)), Null())},
		{"zero payload kind", UncountedTypedArray(MarkerTrue, []Value{Bool(true)})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(tt.value)

			var format *ErrInvalidFormat
			assert.ErrorAs(t, err, &format)
		})
	}

	// The counted form has no terminator to collide with.
	data, err := Encode(Array(TypedArray(MarkerUInt8, bytesOf(93)), Null()))
	require.NoError(t, err)

	value, err := Decode(data)
	require.NoError(t, err)
	assert.True(t, Array(TypedArray(MarkerUInt8, bytesOf(93)), Null()).Equal(value))

	// Strings start with a length marker, so a leading ']' is harmless.
	data, err = Encode(UncountedTypedArray(MarkerString, []Value{String("]")}))
	require.NoError(t, err)

	value, err = Decode(data)
	require.NoError(t, err)
	assert.True(t, UncountedTypedArray(MarkerString, []Value{String("]")}).Equal(value))
}
