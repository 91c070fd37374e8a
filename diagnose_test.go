package ubjson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiagnose(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value Value
		want  string
	}{
		{Null(), "null"},
		{Bool(false), "false"},
		{Int8(-1), "i:-1"},
		{Float64(0.25), "D:0.25"},
		{HighPrecision("1e9"), `H:"1e9"`},
		{Char('x'), `C:'x'`},
		{String("a\"b"), `"a\"b"`},
		{Array(UInt8(1), Null()), "[U:1, null]"},
		{Object(map[string]Value{"b": Array(), "a": Object(nil)}), `{"a": {}, "b": []}`},
		{TypedArray(MarkerUInt8, bytesOf(10, 20, 30, 40)), "[$U#4 10 20 30 40]"},
		{UncountedTypedArray(MarkerUInt8, bytesOf(10, 20)), "[$U 10 20]"},
		{TypedArray(MarkerTrue, []Value{Bool(true)}), "[$T#1 true]"},
		{TypedObject(MarkerInt16, map[string]Value{"y": Int16(2), "x": Int16(1)}), `{$I#2 "x": 1, "y": 2}`},
		{Value{}, "<invalid>"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Diagnose(tt.value))
	}
}

func TestDiagnoseBytes(t *testing.T) {
	t.Parallel()

	got, err := DiagnoseBytes([]byte{'[', '$', 'U', '#', 'U', 4, 10, 20, 30, 40})
	require.NoError(t, err)
	assert.Equal(t, "[$U#4 10 20 30 40]", got)

	_, err = DiagnoseBytes([]byte{'['})

	var ioErr *ErrIO
	assert.ErrorAs(t, err, &ioErr)
}
