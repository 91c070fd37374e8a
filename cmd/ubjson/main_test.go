package main

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NublyBR/go-ubjson"
)

func runCommand(t *testing.T, stdin []byte, args ...string) ([]byte, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	err := run(args, bytes.NewReader(stdin), &stdout, &stderr)
	return stdout.Bytes(), err
}

func TestEncodeDecode(t *testing.T) {
	t.Parallel()

	encoded, err := runCommand(t, []byte(`{"b": [1, 2, 3], "a": "x"}`), "encode", "--optimize")
	require.NoError(t, err)

	value, err := ubjson.Decode(encoded)
	require.NoError(t, err)

	want := ubjson.Object(map[string]ubjson.Value{
		"a": ubjson.String("x"),
		"b": ubjson.TypedArray(ubjson.MarkerInt8, []ubjson.Value{ubjson.Int8(1), ubjson.Int8(2), ubjson.Int8(3)}),
	})
	assert.True(t, want.Equal(value), ubjson.Diagnose(value))

	decoded, err := runCommand(t, encoded, "decode")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": "x", "b": [1, 2, 3]}`, string(decoded))
}

func TestCompressedRoundTrip(t *testing.T) {
	t.Parallel()

	for _, alg := range []string{"zstd", "lz4"} {
		encoded, err := runCommand(t, []byte("list: [a, b]\n"), "encode", "--from", "yaml", "--compress", alg)
		require.NoError(t, err, alg)

		inspected, err := runCommand(t, encoded, "inspect", "--compress", alg)
		require.NoError(t, err, alg)
		assert.Equal(t, `{"list": ["a", "b"]}`+"\n", string(inspected))

		_, err = runCommand(t, encoded, "inspect")
		assert.Error(t, err, "compressed input without --compress")
	}
}

func TestDigestIgnoresOptimization(t *testing.T) {
	t.Parallel()

	input := []byte(`[true, true, true]`)

	plain, err := runCommand(t, input, "encode")
	require.NoError(t, err)

	optimized, err := runCommand(t, input, "encode", "--optimize")
	require.NoError(t, err)
	assert.NotEqual(t, plain, optimized)

	a, err := runCommand(t, plain, "digest")
	require.NoError(t, err)

	b, err := runCommand(t, optimized, "digest")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, strings.TrimSpace(string(a)), 64)
}

func TestFilesAndLimits(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := filepath.Join(dir, "in.json")
	out := filepath.Join(dir, "out.ubj")

	require.NoError(t, os.WriteFile(in, []byte(`[[[]]]`), 0o644))

	_, err := runCommand(t, nil, "encode", in, "-o", out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, []byte("[[[]]]"), data)

	var depth *ubjson.ErrDepthLimitExceeded

	_, err = runCommand(t, data, "inspect", "--max-depth", "2")
	assert.ErrorAs(t, err, &depth)

	_, err = runCommand(t, nil, "encode", filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestUsageErrors(t *testing.T) {
	t.Parallel()

	_, err := runCommand(t, nil)
	assert.ErrorIs(t, err, errUsage)

	_, err = runCommand(t, nil, "frobnicate")
	assert.Error(t, err)

	_, err = runCommand(t, nil, "encode", "--from", "toml")
	assert.Error(t, err)

	_, err = runCommand(t, nil, "decode", "--log-level", "loud")
	assert.Error(t, err)

	_, err = runCommand(t, nil, "inspect", "a", "b")
	assert.Error(t, err)

	help, err := runCommand(t, nil, "help")
	require.NoError(t, err)
	assert.Contains(t, string(help), "COMMANDS")
}

func TestDecompressLimit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		maxBytes uint64
		want     int
	}{
		{0, 0},
		{1024, 1024},
		{math.MaxUint64, math.MaxInt},
		{uint64(math.MaxInt) + 1, math.MaxInt},
	}

	for _, tt := range tests {
		c := &command{maxBytes: tt.maxBytes}
		assert.Equal(t, tt.want, c.decompressLimit(), "%d", tt.maxBytes)
	}

	encoded, err := runCommand(t, []byte(`[1, 2]`), "encode", "--compress", "zstd")
	require.NoError(t, err)

	inspected, err := runCommand(t, encoded, "inspect", "--compress", "zstd", "--max-bytes", "18446744073709551615")
	require.NoError(t, err)
	assert.Equal(t, "[i:1, i:2]\n", string(inspected))
}
