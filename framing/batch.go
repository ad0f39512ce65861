package framing

import (
	"encoding/binary"
	"fmt"
	"io"
)

// continuationMarker precedes every encapsulated message in the stream
// format; an end-of-stream sentinel is the marker followed by a zero
// metadata length (or, in the legacy framing, a bare zero length field).
const continuationMarker = 0xffffffff

// metadata and data block lengths are carried in fixed 4-byte
// little-endian fields
const batchLenFieldSize = 4

// DataLenFunc extracts the data block length from a unit's metadata block.
// How the length is encoded is a property of the batch format (Arrow IPC
// carries it inside flatbuffer metadata), so it is injected rather than
// assumed. A nil func means units carry no data block beyond the metadata.
type DataLenFunc func(meta []byte) (int, error)

// BatchSplitter frames batch/columnar units: an optional 4-byte
// little-endian continuation marker, a 4-byte little-endian metadata
// length, the metadata block, then a data block whose size the metadata
// encodes. The frame is the entire unit, prefix included, since batch
// decoders consume the envelope as well as the payload.
//
// A zero metadata length is a legitimate end-of-stream marker: Split
// consumes it and returns io.EOF, leaving any trailing transport bytes
// unread.
type BatchSplitter struct {
	maxFrameLen int
	dataLen     DataLenFunc

	// parse progress through the current unit; all zero between units
	prefixLen int // bytes before the metadata block, 0 = prefix unread
	metaEnd   int // prefix + metadata length, 0 = unknown
	unitLen   int // full unit including data block, 0 = unknown
	ended     bool
}

func NewBatchSplitter(maxFrameLen int, dataLen DataLenFunc) *BatchSplitter {
	if maxFrameLen <= 0 {
		maxFrameLen = DefaultMaxFrameLength
	}
	return &BatchSplitter{
		maxFrameLen: maxFrameLen,
		dataLen:     dataLen,
	}
}

func (s *BatchSplitter) Split(buf *Buffer) ([]byte, bool, error) {
	if s.ended {
		return nil, false, io.EOF
	}
	view := buf.Bytes()

	if s.prefixLen == 0 {
		if len(view) < batchLenFieldSize {
			return nil, false, nil
		}
		word := binary.LittleEndian.Uint32(view)
		var metaLen uint32
		if word == continuationMarker {
			if len(view) < 2*batchLenFieldSize {
				return nil, false, nil
			}
			metaLen = binary.LittleEndian.Uint32(view[batchLenFieldSize:])
			s.prefixLen = 2 * batchLenFieldSize
		} else {
			metaLen = word
			s.prefixLen = batchLenFieldSize
		}
		if metaLen == 0 {
			// end-of-stream sentinel: consume it and stop, whatever follows
			// stays unread
			buf.Advance(s.prefixLen)
			s.reset()
			s.ended = true
			return nil, false, io.EOF
		}
		s.metaEnd = s.prefixLen + int(metaLen)
		if s.metaEnd > s.maxFrameLen {
			return nil, false, fmt.Errorf("%w: metadata block of %v bytes exceeds %v", ErrFrameTooLong, metaLen, s.maxFrameLen)
		}
	}

	if len(view) < s.metaEnd {
		return nil, false, nil
	}

	if s.unitLen == 0 {
		bodyLen := 0
		if s.dataLen != nil {
			var err error
			bodyLen, err = s.dataLen(view[s.prefixLen:s.metaEnd])
			if err != nil {
				return nil, false, fmt.Errorf("%w: cannot size data block from metadata: %v", ErrMalformed, err)
			}
			if bodyLen < 0 {
				return nil, false, fmt.Errorf("%w: negative data block length %v", ErrMalformed, bodyLen)
			}
		}
		s.unitLen = s.metaEnd + bodyLen
		if s.unitLen > s.maxFrameLen {
			return nil, false, fmt.Errorf("%w: unit of %v bytes exceeds %v", ErrFrameTooLong, s.unitLen, s.maxFrameLen)
		}
	}

	if len(view) < s.unitLen {
		return nil, false, nil
	}
	frame := view[:s.unitLen]
	buf.Advance(s.unitLen)
	s.reset()
	return frame, true, nil
}

func (s *BatchSplitter) reset() {
	s.prefixLen = 0
	s.metaEnd = 0
	s.unitLen = 0
}

// Resting is true between units. A partially buffered length field also
// counts as mid-frame through the engine's leftover-byte check.
func (s *BatchSplitter) Resting() bool {
	return s.prefixLen == 0
}
