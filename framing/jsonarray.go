package framing

import "fmt"

// DefaultMaxFrameLength bounds a single frame when the caller does not
// configure a limit.
const DefaultMaxFrameLength = 1 << 20

// JSONArraySplitter frames the elements of one top-level JSON array, e.g.
// [{"a":1},{"b":2},...]. Each frame is one complete element object. The
// splitter tracks brace depth and string-literal state byte by byte, so
// braces, brackets and commas inside (possibly escaped) string literals
// never affect boundary detection. Separator bytes between elements,
// including the surrounding [ and ], are consumed silently.
type JSONArraySplitter struct {
	maxFrameLen int

	// scan position within the current unconsumed view. Bytes before it
	// have been classified already and are never re-examined.
	scanned int

	arrayOpened       bool
	delimiterExpected bool
	quoteOpened       bool
	escaped           bool
	depth             int
	// view-relative start of the element being scanned, -1 between frames
	objStart int
}

func NewJSONArraySplitter(maxFrameLen int) *JSONArraySplitter {
	if maxFrameLen <= 0 {
		maxFrameLen = DefaultMaxFrameLength
	}
	return &JSONArraySplitter{
		maxFrameLen: maxFrameLen,
		objStart:    -1,
	}
}

func (s *JSONArraySplitter) Split(buf *Buffer) ([]byte, bool, error) {
	view := buf.Bytes()
	for ; s.scanned < len(view); s.scanned++ {
		pos := s.scanned
		c := view[pos]

		if s.objStart >= 0 && pos-s.objStart >= s.maxFrameLen {
			return nil, false, fmt.Errorf("%w: element exceeds %v bytes", ErrFrameTooLong, s.maxFrameLen)
		}

		escaped := s.escaped
		s.escaped = false
		switch {
		case escaped:
			// escaped byte inside a string literal, no structural meaning
		case c == '"':
			s.quoteOpened = !s.quoteOpened
		case c == '\\' && s.quoteOpened:
			s.escaped = true
		case s.quoteOpened:
			// string content
			if s.objStart < 0 && pos >= s.maxFrameLen {
				// a runaway top-level string can otherwise grow unbounded
				return nil, false, fmt.Errorf("%w: string literal exceeds %v bytes", ErrFrameTooLong, s.maxFrameLen)
			}
		case c == '[' && s.depth == 0:
			if s.arrayOpened {
				return nil, false, fmt.Errorf("%w: unexpected array begin, the array is already open", ErrMalformed)
			}
			s.arrayOpened = true
		case c == '{':
			if s.depth == 0 {
				s.objStart = pos
			}
			s.depth++
		case c == '}':
			if s.depth == 0 {
				return nil, false, fmt.Errorf("%w: unbalanced closing brace", ErrMalformed)
			}
			s.depth--
			if s.depth == 0 {
				frame := view[s.objStart : pos+1]
				buf.Advance(pos + 1)
				s.scanned = 0
				s.objStart = -1
				s.delimiterExpected = true
				return frame, true, nil
			}
		case c == ',' && s.depth == 0:
			if !s.delimiterExpected {
				return nil, false, fmt.Errorf("%w: unexpected delimiter", ErrMalformed)
			}
			s.delimiterExpected = false
		}
	}

	s.scanned = len(view)
	if s.objStart < 0 && !s.quoteOpened {
		// everything scanned so far is separators and array punctuation,
		// safe to drop from the buffer
		buf.Advance(s.scanned)
		s.scanned = 0
	}
	return nil, false, nil
}

// Resting is true when no element or string literal is partially scanned.
// An array that was opened but never closed still counts as resting: the
// producer ending the stream after its last element is tolerated, matching
// the permissive handling of the formats in the wild.
func (s *JSONArraySplitter) Resting() bool {
	return s.depth == 0 && !s.quoteOpened
}
