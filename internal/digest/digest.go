// Package digest fingerprints encoded documents.
package digest

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Size of a digest in bytes.
const Size = 32

// Sum returns the hex encoded BLAKE3-256 digest of data.
func Sum(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Equal reports whether data hashes to the hex digest want.
func Equal(data []byte, want string) bool {
	return Sum(data) == want
}
