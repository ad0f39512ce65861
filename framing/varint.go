package framing

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// maximum encoded size of a LEB128 varint
const maxVarintLen = 10

// VarintSplitter frames binary messages preceded by a LEB128 varint length
// prefix, the wire convention of length-delimited protobuf streams. The
// prefix itself may straddle chunk boundaries: decoding is attempted only
// once the buffer holds a terminator byte (<0x80) or the 10-byte maximum,
// and is otherwise resumed on the next call. The frame is the message body
// only, the prefix excluded. A zero length prefix yields a valid empty
// frame.
type VarintSplitter struct {
	maxFrameLen int

	// body bytes still awaited; valid only while midFrame
	need     int
	midFrame bool
}

func NewVarintSplitter(maxFrameLen int) *VarintSplitter {
	if maxFrameLen <= 0 {
		maxFrameLen = DefaultMaxFrameLength
	}
	return &VarintSplitter{maxFrameLen: maxFrameLen}
}

func (s *VarintSplitter) Split(buf *Buffer) ([]byte, bool, error) {
	if !s.midFrame {
		view := buf.Bytes()
		if len(view) == 0 {
			return nil, false, nil
		}
		if !varintTerminated(view) {
			if len(view) >= maxVarintLen {
				return nil, false, fmt.Errorf("%w: length prefix is not a valid varint", ErrMalformed)
			}
			return nil, false, nil // wait for the rest of the prefix
		}
		length, n := protowire.ConsumeVarint(view)
		if n < 0 {
			return nil, false, fmt.Errorf("%w: length prefix is not a valid varint: %v", ErrMalformed, protowire.ParseError(n))
		}
		if length > uint64(s.maxFrameLen) {
			return nil, false, fmt.Errorf("%w: declared length %v exceeds %v bytes", ErrFrameTooLong, length, s.maxFrameLen)
		}
		buf.Advance(n)
		s.need = int(length)
		s.midFrame = true
	}

	if buf.Len() < s.need {
		return nil, false, nil
	}
	frame := buf.Bytes()[:s.need]
	buf.Advance(s.need)
	s.midFrame = false
	return frame, true, nil
}

// Resting is true when no length prefix has been consumed without its body.
// A partially buffered prefix still counts against cleanliness because the
// undecoded bytes remain in the buffer.
func (s *VarintSplitter) Resting() bool {
	return !s.midFrame
}

// varintTerminated reports whether the buffered bytes are sufficient to
// decode the varint at their front: either some byte within the maximum
// width has its continuation bit clear, or the width is exhausted.
func varintTerminated(view []byte) bool {
	limit := len(view)
	if limit > maxVarintLen {
		limit = maxVarintLen
	}
	for i := 0; i < limit; i++ {
		if view[i] < 0x80 {
			return true
		}
	}
	return false
}
