package stream

import (
	"errors"
	"fmt"
)

// ErrorKind classifies terminal stream failures. Every kind is fatal to
// its stream; records delivered before the failure remain valid.
type ErrorKind int

const (
	// KindTransport: the chunk source failed or timed out. Recoverable only
	// by establishing a fresh stream.
	KindTransport ErrorKind = iota
	// KindTruncated: the transport ended while a frame was incomplete.
	KindTruncated
	// KindMalformed: framing rules were violated, or a frame exceeded the
	// configured maximum frame length.
	KindMalformed
	// KindDecode: the decoder rejected a syntactically valid frame.
	KindDecode
	// KindLimitExceeded: buffered-but-unresolved bytes exceeded the
	// configured cap.
	KindLimitExceeded
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindTruncated:
		return "truncated"
	case KindMalformed:
		return "malformed"
	case KindDecode:
		return "decode"
	case KindLimitExceeded:
		return "limit exceeded"
	default:
		return fmt.Sprintf("unknown kind %d", int(k))
	}
}

// StreamError is the terminal element of a failed record sequence.
type StreamError struct {
	Kind ErrorKind
	Err  error
}

func (e *StreamError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("stream error: %v", e.Kind)
	}
	return fmt.Sprintf("stream error: %v: %v", e.Kind, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// KindOf extracts the error kind from any error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var se *StreamError
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return 0, false
}

func streamErr(kind ErrorKind, err error) *StreamError {
	return &StreamError{Kind: kind, Err: err}
}

// ErrClosed is returned by Next after the consumer abandoned the stream
// with Close.
var ErrClosed = errors.New("stream closed by consumer")
