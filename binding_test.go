package ubjson

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromGoWidening(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input any
		want  Value
	}{
		{"nil", nil, Null()},
		{"int8", int8(-3), Int8(-3)},
		{"uint8", uint8(3), UInt8(3)},
		{"int16", int16(3), Int16(3)},
		{"uint16", uint16(math.MaxUint16), Int32(math.MaxUint16)},
		{"rune", 'a', Int32('a')},
		{"int", 3, Int64(3)},
		{"uint32", uint32(math.MaxUint32), Int64(math.MaxUint32)},
		{"uint64 fits", uint64(math.MaxInt64), Int64(math.MaxInt64)},
		{"uint64 overflows", uint64(math.MaxUint64), HighPrecision("18446744073709551615")},
		{"bytes", []byte{1, 2}, TypedArray(MarkerUInt8, bytesOf(1, 2))},
		{"byte array", [2]byte{1, 2}, TypedArray(MarkerUInt8, bytesOf(1, 2))},
		{"nil slice", []int(nil), Null()},
		{"nil map", map[string]int(nil), Null()},
		{"nil pointer", (*int)(nil), Null()},
		{"number", Number("1.5e300"), HighPrecision("1.5e300")},
		{"value", Char('x'), Char('x')},
		{"map", map[string]bool{"ok": true}, Object(map[string]Value{"ok": Bool(true)})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromGo(tt.input)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", Diagnose(tt.want), Diagnose(got))
		})
	}
}

func TestFromGoErrors(t *testing.T) {
	t.Parallel()

	var invalidKey *ErrInvalidTypeKey

	_, err := FromGo(map[int]string{1: "a"})
	assert.ErrorAs(t, err, &invalidKey)

	var invalidType *ErrInvalidType

	_, err = FromGo(complex(1, 2))
	assert.ErrorAs(t, err, &invalidType)

	_, err = FromGo(make(chan int))
	assert.ErrorAs(t, err, &invalidType)
}

func TestFromGoCycle(t *testing.T) {
	t.Parallel()

	type node struct {
		Next *node
	}

	n := &node{}
	n.Next = n

	_, err := FromGo(n, Options{MaxDepth: 16})

	var depth *ErrDepthLimitExceeded
	assert.ErrorAs(t, err, &depth)
}

func TestIntoRangeChecks(t *testing.T) {
	t.Parallel()

	var i8 int8
	assert.NoError(t, Into(Int16(-128), &i8))
	assert.Equal(t, int8(-128), i8)

	var cannot *ErrCannotAssign
	assert.ErrorAs(t, Into(Int16(128), &i8), &cannot)

	var u8 uint8
	assert.ErrorAs(t, Into(Int8(-1), &u8), &cannot)

	var u64 uint64
	require.NoError(t, Into(HighPrecision("18446744073709551615"), &u64))
	assert.Equal(t, uint64(math.MaxUint64), u64)

	var f32 float32
	require.NoError(t, Into(Int32(7), &f32))
	assert.Equal(t, float32(7), f32)
	assert.ErrorAs(t, Into(Float64(1e300), &f32), &cannot)

	var s string
	require.NoError(t, Into(Char('ß'), &s))
	assert.Equal(t, "ß", s)
	assert.ErrorAs(t, Into(Int8(1), &s), &cannot)

	var b bool
	assert.ErrorAs(t, Into(Null(), &b), &cannot)

	var n Number
	require.NoError(t, Into(Float32(0.5), &n))
	assert.Equal(t, Number("0.5"), n)
	assert.ErrorAs(t, Into(Float64(math.NaN()), &n), &cannot)
}

func TestIntoContainers(t *testing.T) {
	t.Parallel()

	var arr [2]int
	require.NoError(t, Into(Array(Int8(1), Int8(2)), &arr))
	assert.Equal(t, [2]int{1, 2}, arr)

	var mismatch *ErrLengthMismatch
	require.ErrorAs(t, Into(Array(Int8(1)), &arr), &mismatch)
	assert.Equal(t, 2, mismatch.Expected)
	assert.Equal(t, 1, mismatch.Actual)

	type key string

	var m map[key]int
	require.NoError(t, Into(TypedObject(MarkerUInt8, map[string]Value{"a": UInt8(1)}), &m))
	assert.Equal(t, map[key]int{"a": 1}, m)

	var bad map[int]int
	var invalidKey *ErrInvalidTypeKey
	assert.ErrorAs(t, Into(Object(nil), &bad), &invalidKey)

	var list []string
	require.NoError(t, Into(Null(), &list))
	assert.Nil(t, list)

	var cannot *ErrCannotAssign
	assert.ErrorAs(t, Into(String("x"), &list), &cannot)

	var anything any
	require.NoError(t, Into(Array(Int16(1), Null()), &anything))
	assert.Equal(t, []any{int16(1), nil}, anything)

	var v Value
	require.NoError(t, Into(Char('x'), &v))
	assert.True(t, Char('x').Equal(v))
}

func TestIntoReceiver(t *testing.T) {
	t.Parallel()

	var x int

	assert.ErrorIs(t, Into(Int8(1), x), ErrInvalidReceiver)
	assert.ErrorIs(t, Into(Int8(1), nil), ErrInvalidReceiver)
	assert.ErrorIs(t, Into(Int8(1), (*int)(nil)), ErrInvalidReceiver)
}

func TestUnmarshalPartialStruct(t *testing.T) {
	t.Parallel()

	type config struct {
		Name    string
		Retries int
		Tags    []string
	}

	data, err := Encode(Object(map[string]Value{
		"Name":    String("svc"),
		"Unknown": Bool(true),
		"Tags":    TypedArray(MarkerString, []Value{String("a"), String("b")}),
	}))
	require.NoError(t, err)

	out := config{Retries: 3}
	require.NoError(t, Unmarshal(data, &out))

	assert.Equal(t, config{Name: "svc", Retries: 3, Tags: []string{"a", "b"}}, out)
}
