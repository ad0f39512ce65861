// Package transport provides chunk sources for the stream engine. Each
// transport supplies the bytes of exactly one stream, is polled by at most
// one engine, and reports io.EOF once exhausted.
package transport

import (
	"errors"
	"io"
	"time"
)

const defaultChunkSize = 8 * 1024

var errNoDeadline = errors.New("underlying reader does not support deadlines")

// Reader adapts an io.Reader into a chunk transport: every poll is one
// Read into an internal chunk buffer. The returned chunk is only valid
// until the next poll; the engine copies it into its own arena immediately.
// If the reader is also an io.Closer (an http.Response.Body, a net.Conn)
// it is closed with the transport.
type Reader struct {
	r     io.Reader
	chunk []byte
	// held back when a Read returns both data and an error, so the data is
	// delivered first
	pendingErr error
}

func NewReader(r io.Reader) *Reader {
	return NewReaderSize(r, defaultChunkSize)
}

func NewReaderSize(r io.Reader, chunkSize int) *Reader {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	return &Reader{
		r:     r,
		chunk: make([]byte, chunkSize),
	}
}

func (t *Reader) PollChunk() ([]byte, error) {
	if t.pendingErr != nil {
		return nil, t.pendingErr
	}
	n, err := t.r.Read(t.chunk)
	if n > 0 {
		t.pendingErr = err
		return t.chunk[:n], nil
	}
	return nil, err
}

// SetPollDeadline bounds the next poll when the underlying reader is a
// net.Conn or anything else with a read deadline.
func (t *Reader) SetPollDeadline(deadline time.Time) error {
	if c, ok := t.r.(interface{ SetReadDeadline(time.Time) error }); ok {
		return c.SetReadDeadline(deadline)
	}
	return errNoDeadline
}

func (t *Reader) Close() error {
	if c, ok := t.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
