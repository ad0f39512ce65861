package framing

import "fmt"

// LineSplitter frames newline-delimited text: one record per line, the
// terminating \n (and a \r preceding it) excluded. In quote-aware mode an
// unescaped double quote toggles in-quote state and newlines inside a
// quoted field do not terminate the frame, which is what CSV needs for
// fields with embedded line breaks. CSV's "" escape falls out of the
// toggling naturally: the pair flips the state off and back on.
//
// An empty line is a valid zero-length frame. A final line with no
// terminator is emitted at transport end through Finalize, unless a quoted
// field is still open, in which case the stream ended mid-frame.
type LineSplitter struct {
	maxFrameLen int
	quoteAware  bool

	scanned int
	inQuote bool
}

func NewLineSplitter(maxFrameLen int, quoteAware bool) *LineSplitter {
	if maxFrameLen <= 0 {
		maxFrameLen = DefaultMaxFrameLength
	}
	return &LineSplitter{
		maxFrameLen: maxFrameLen,
		quoteAware:  quoteAware,
	}
}

func (s *LineSplitter) Split(buf *Buffer) ([]byte, bool, error) {
	view := buf.Bytes()
	for ; s.scanned < len(view); s.scanned++ {
		c := view[s.scanned]
		switch {
		case s.quoteAware && c == '"':
			s.inQuote = !s.inQuote
		case c == '\n' && !s.inQuote:
			frame := trimCR(view[:s.scanned])
			buf.Advance(s.scanned + 1)
			s.scanned = 0
			return frame, true, nil
		}
		if s.scanned >= s.maxFrameLen {
			return nil, false, fmt.Errorf("%w: line exceeds %v bytes", ErrFrameTooLong, s.maxFrameLen)
		}
	}
	s.scanned = len(view)
	return nil, false, nil
}

// Finalize emits the trailing unterminated line once the transport is
// exhausted.
func (s *LineSplitter) Finalize(buf *Buffer) ([]byte, bool, error) {
	if s.inQuote || buf.Len() == 0 {
		// an open quoted field at end of input is a truncation, which the
		// caller detects through Resting
		return nil, false, nil
	}
	view := buf.Bytes()
	frame := trimCR(view)
	buf.Advance(len(view))
	s.scanned = 0
	return frame, true, nil
}

func (s *LineSplitter) Resting() bool {
	return !s.inQuote
}

func trimCR(line []byte) []byte {
	if len(line) > 0 && line[len(line)-1] == '\r' {
		return line[:len(line)-1]
	}
	return line
}
