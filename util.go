package ubjson

import (
	"bufio"
	"io"
)

// byteBudget caps the bytes moved by a single Encode or Decode call. A
// zero limit never runs out.
type byteBudget struct {
	limit uint64
	left  uint64
}

func newByteBudget(limit uint64) byteBudget {
	return byteBudget{limit: limit, left: limit}
}

func (b *byteBudget) reset() { b.left = b.limit }

func (b *byteBudget) unlimited() bool { return b.limit == 0 }

// overrun reports the size a call would reach by moving want more bytes.
func (b *byteBudget) overrun(want int) error {
	return &ErrDataTooLarge{Max: b.limit, Size: b.limit - b.left + uint64(want)}
}

func (b *byteBudget) spend(n int) {
	if !b.unlimited() {
		b.left -= uint64(n)
	}
}

// limitedWriter refuses a write that would overrun the budget instead of
// writing part of it.
type limitedWriter struct {
	byteBudget

	w       io.Writer
	written uint64
}

func newLimitedWriter(w io.Writer, limit uint64) *limitedWriter {
	return &limitedWriter{byteBudget: newByteBudget(limit), w: w}
}

func (l *limitedWriter) Write(b []byte) (int, error) {
	if !l.unlimited() && uint64(len(b)) > l.left {
		return 0, l.overrun(len(b))
	}

	n, err := l.w.Write(b)
	l.written += uint64(n)
	l.spend(n)

	return n, err
}

type byteScanner interface {
	io.Reader
	io.ByteScanner
}

// limitedReader counts consumed bytes and supports one byte of
// look-ahead, which the decoder needs to find container end markers.
type limitedReader struct {
	byteBudget

	r    byteScanner
	read uint64
}

func newLimitedReader(r io.Reader, limit uint64) *limitedReader {
	scanner, ok := r.(byteScanner)
	if !ok {
		scanner = bufio.NewReader(r)
	}

	return &limitedReader{byteBudget: newByteBudget(limit), r: scanner}
}

func (l *limitedReader) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}

	if !l.unlimited() {
		if l.left == 0 {
			return 0, l.overrun(len(b))
		}
		if uint64(len(b)) > l.left {
			b = b[:l.left]
		}
	}

	n, err := l.r.Read(b)
	l.consumed(n)

	return n, err
}

func (l *limitedReader) ReadByte() (byte, error) {
	if !l.unlimited() && l.left == 0 {
		return 0, l.overrun(1)
	}

	b, err := l.r.ReadByte()
	if err != nil {
		return 0, err
	}
	l.consumed(1)

	return b, nil
}

func (l *limitedReader) UnreadByte() error {
	if err := l.r.UnreadByte(); err != nil {
		return err
	}

	l.read--
	if !l.unlimited() {
		l.left++
	}

	return nil
}

func (l *limitedReader) consumed(n int) {
	l.read += uint64(n)
	l.spend(n)
}
