// Package framing reconstructs record boundaries from a stream of
// arbitrarily fragmented byte chunks. Chunk boundaries never align with
// record boundaries, so each splitter is a resumable state machine: it scans
// whatever is buffered, extracts the frames it can prove complete, and
// remembers exactly where it stopped for the next attempt.
package framing

import "errors"

// ErrMalformed is wrapped by all framing-rule violations: unbalanced
// delimiters, invalid varints, bad length prefixes. Malformation is fatal
// for the stream; no resynchronisation is attempted.
var ErrMalformed = errors.New("malformed frame")

// ErrFrameTooLong is returned when a frame, or the bytes scanned while
// looking for its end, exceed the splitter's configured maximum.
var ErrFrameTooLong = errors.New("frame length over limit")

// A Splitter locates frame boundaries for one framing discipline. One
// splitter instance serves exactly one stream: it carries cross-call state
// (nesting depth, quote state, remaining expected length) between Split
// attempts and must not be shared or reused.
type Splitter interface {
	// Split scans the unconsumed bytes of buf and extracts at most one
	// complete frame, advancing buf past the frame and any separator bytes
	// it consumed. ok is false when more data is needed. The returned frame
	// is a view into buf, valid only until the next Append or Compact; it
	// may be empty for disciplines where zero-length records are legal.
	//
	// err wraps ErrMalformed or ErrFrameTooLong on framing violations, or is
	// io.EOF when the discipline's own end-of-stream marker was seen, in
	// which case any bytes still buffered after the marker stay unread.
	Split(buf *Buffer) (frame []byte, ok bool, err error)

	// Resting reports whether the splitter is in its between-frames state.
	// Transport exhaustion while resting (with an empty buffer) is a clean
	// end of stream; exhaustion mid-frame is a truncation.
	Resting() bool
}

// A Finalizer is a Splitter whose discipline permits one last frame at
// transport end, such as a final line with no terminating newline.
type Finalizer interface {
	// Finalize is called once the transport is exhausted and Split has
	// reported that it needs more data. It may emit the legal trailing
	// frame out of whatever remains buffered.
	Finalize(buf *Buffer) (frame []byte, ok bool, err error)
}
