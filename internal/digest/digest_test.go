package digest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSum(t *testing.T) {
	t.Parallel()

	// BLAKE3 of the empty input.
	assert.Equal(t, "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262", Sum(nil))

	a := Sum([]byte{'[', ']'})
	assert.Len(t, a, Size*2)
	assert.NotEqual(t, a, Sum([]byte{'{', '}'}))
	assert.True(t, Equal([]byte{'[', ']'}, a))
	assert.False(t, Equal([]byte{'[', ']'}, Sum(nil)))
}
