package ubjson

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"sync"
	"time"
)

// Socket exchanges UBJSON values over a stream connection. Values are
// self-delimiting, so they travel back to back with no extra framing.
type Socket interface {
	// Read the next value, skipping any keep-alive no-ops before it.
	Read() (Value, error)

	// Write one value.
	Write(Value) error

	ReadTimeout(timeout time.Duration) (Value, error)
	WriteTimeout(v Value, timeout time.Duration) error

	// ReadContext and WriteContext give up when ctx is done. A deadline
	// on ctx becomes the connection deadline.
	ReadContext(ctx context.Context) (Value, error)
	WriteContext(ctx context.Context, v Value) error

	// Ping writes a single no-op marker. The peer's Read consumes it
	// silently, which keeps idle connections alive.
	Ping() error

	Close() error

	// Bytes consumed from and handed to the connection, no-ops included.
	BytesRead() uint64
	BytesWritten() uint64

	ResetRead()
	ResetWritten()

	// Release the write buffer, which keeps the capacity of the
	// largest value written so far.
	ZeroBuffer()
}

type socket struct {
	conn net.Conn

	decoder Decoder
	encoder Encoder

	rlock sync.Mutex
	wlock sync.Mutex

	// Values are staged here so one that fails to encode never
	// reaches the connection.
	staged *bytes.Buffer

	// Only counts bytes handed to conn.
	written uint64

	// decoder.BytesRead() at the last ResetRead
	readOffset uint64
}

// NewSocket wraps conn. Options.MaxBytes bounds a single incoming value
// and a single outgoing one.
func NewSocket(conn net.Conn, options ...Options) Socket {
	s := &socket{
		conn:    conn,
		staged:  bytes.NewBuffer(nil),
		decoder: NewDecoder(bufio.NewReader(conn), options...),
	}

	s.encoder = NewEncoder(writerFunc(func(b []byte) (int, error) {
		return s.staged.Write(b)
	}), options...)

	return s
}

// writerFunc lets the encoder follow staged when ZeroBuffer replaces it.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}

// aLongTimeAgo is a deadline that has already passed, which fails a
// pending read or write immediately.
var aLongTimeAgo = time.Unix(1, 0)

// readBy reads one value with deadline applied; the zero time clears it.
// A done ctx interrupts the read.
func (s *socket) readBy(ctx context.Context, deadline time.Time) (Value, error) {
	s.rlock.Lock()
	defer s.rlock.Unlock()

	if err := s.conn.SetReadDeadline(deadline); err != nil {
		return Value{}, err
	}

	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.SetReadDeadline(aLongTimeAgo)
	})
	defer stop()

	v, err := s.decoder.Decode()
	if err != nil {
		return Value{}, contextError(ctx, err)
	}

	return v, nil
}

func (s *socket) writeBy(ctx context.Context, deadline time.Time, stage func() error) error {
	s.wlock.Lock()
	defer s.wlock.Unlock()

	s.staged.Reset()

	if err := stage(); err != nil {
		return err
	}

	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}

	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.SetWriteDeadline(aLongTimeAgo)
	})
	defer stop()

	n, err := s.conn.Write(s.staged.Bytes())
	s.written += uint64(n)

	if err != nil {
		return contextError(ctx, err)
	}

	return nil
}

// contextError reports ctx's error in place of the connection error it
// caused. The connection deadline can fire just before ctx's own timer.
func contextError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	deadline, ok := ctx.Deadline()
	if ok && !time.Now().Before(deadline) && errors.Is(err, os.ErrDeadlineExceeded) {
		return context.DeadlineExceeded
	}

	return err
}

func (s *socket) encodeValue(v Value) func() error {
	return func() error { return s.encoder.Encode(v) }
}

func (s *socket) Read() (Value, error) {
	return s.readBy(context.Background(), time.Time{})
}

func (s *socket) Write(v Value) error {
	return s.writeBy(context.Background(), time.Time{}, s.encodeValue(v))
}

func (s *socket) ReadTimeout(timeout time.Duration) (Value, error) {
	return s.readBy(context.Background(), time.Now().Add(timeout))
}

func (s *socket) WriteTimeout(v Value, timeout time.Duration) error {
	return s.writeBy(context.Background(), time.Now().Add(timeout), s.encodeValue(v))
}

func (s *socket) ReadContext(ctx context.Context) (Value, error) {
	deadline, _ := ctx.Deadline()
	return s.readBy(ctx, deadline)
}

func (s *socket) WriteContext(ctx context.Context, v Value) error {
	deadline, _ := ctx.Deadline()
	return s.writeBy(ctx, deadline, s.encodeValue(v))
}

func (s *socket) Ping() error {
	return s.writeBy(context.Background(), time.Time{}, func() error {
		return s.staged.WriteByte(byte(MarkerNoOp))
	})
}

func (s *socket) Close() error {
	return s.conn.Close()
}

func (s *socket) BytesRead() uint64 {
	s.rlock.Lock()
	defer s.rlock.Unlock()

	return s.decoder.BytesRead() - s.readOffset
}

func (s *socket) BytesWritten() uint64 {
	s.wlock.Lock()
	defer s.wlock.Unlock()

	return s.written
}

func (s *socket) ResetRead() {
	s.rlock.Lock()
	defer s.rlock.Unlock()

	s.readOffset = s.decoder.BytesRead()
}

func (s *socket) ResetWritten() {
	s.wlock.Lock()
	defer s.wlock.Unlock()

	s.written = 0
}

func (s *socket) ZeroBuffer() {
	s.wlock.Lock()
	defer s.wlock.Unlock()

	s.staged = bytes.NewBuffer(nil)
}
