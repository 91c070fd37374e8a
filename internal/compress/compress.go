// Package compress wraps encoded UBJSON documents in an optional
// compression frame for the command line tool.
package compress

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm selects how a document is compressed.
type Algorithm uint8

const (
	None Algorithm = iota
	Zstd
	LZ4
)

// lz4 frames start with the uncompressed size, since block mode does
// not record it.
const lz4HeaderSize = 4

var ErrCorrupt = errors.New("compress: corrupt frame")

func (a Algorithm) String() string {
	switch a {
	case None:
		return "none"
	case Zstd:
		return "zstd"
	case LZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(a))
	}
}

// Parse returns the algorithm called name.
func Parse(name string) (Algorithm, error) {
	switch name {
	case "", "none":
		return None, nil
	case "zstd":
		return Zstd, nil
	case "lz4":
		return LZ4, nil
	default:
		return None, fmt.Errorf("unknown compression algorithm: %q", name)
	}
}

// Shared between calls, both are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("compress: zstd encoder initialization failed: " + err.Error())
	}

	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("compress: zstd decoder initialization failed: " + err.Error())
	}
}

// Compress compresses data with alg. None returns data unchanged.
func Compress(data []byte, alg Algorithm) ([]byte, error) {
	switch alg {
	case None:
		return data, nil
	case Zstd:
		return zstdEncoder.EncodeAll(data, nil), nil
	case LZ4:
		return compressLZ4(data)
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", alg)
	}
}

// Decompress reverses Compress. A positive maxSize rejects frames that
// would expand past it.
func Decompress(data []byte, alg Algorithm, maxSize int) ([]byte, error) {
	var (
		out []byte
		err error
	)

	switch alg {
	case None:
		out = data
	case Zstd:
		out, err = zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
	case LZ4:
		return decompressLZ4(data, maxSize)
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", alg)
	}

	if maxSize > 0 && len(out) > maxSize {
		return nil, fmt.Errorf("decompressed size %d exceeds limit %d", len(out), maxSize)
	}

	return out, nil
}

func compressLZ4(data []byte) ([]byte, error) {
	if uint64(len(data)) > math.MaxUint32 {
		return nil, fmt.Errorf("lz4 compress: input of %d bytes is too large", len(data))
	}

	out := make([]byte, lz4HeaderSize+lz4.CompressBlockBound(len(data)))
	binary.BigEndian.PutUint32(out, uint32(len(data)))

	written, err := lz4.CompressBlock(data, out[lz4HeaderSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}

	// Incompressible input is stored raw; a block as long as the
	// original can only be the original.
	if written == 0 || written >= len(data) {
		return append(out[:lz4HeaderSize], data...), nil
	}

	return out[:lz4HeaderSize+written], nil
}

func decompressLZ4(data []byte, maxSize int) ([]byte, error) {
	if len(data) < lz4HeaderSize {
		return nil, ErrCorrupt
	}

	size := binary.BigEndian.Uint32(data)
	block := data[lz4HeaderSize:]

	if maxSize > 0 && uint64(size) > uint64(maxSize) {
		return nil, fmt.Errorf("decompressed size %d exceeds limit %d", size, maxSize)
	}

	if uint64(len(block)) == uint64(size) {
		return block, nil
	}

	out := make([]byte, size)

	read, err := lz4.UncompressBlock(block, out)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}

	if read != int(size) {
		return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d: %w", read, size, ErrCorrupt)
	}

	return out, nil
}
