package framing

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinesSimple(t *testing.T) {
	input := []byte("one\ntwo\r\nthree\n")
	want := [][]byte{[]byte("one"), []byte("two"), []byte("three")}
	assert.Equal(t, want, drainAll(t, NewLineSplitter(0, false), input))
	assert.Equal(t, want, drainBytewise(t, NewLineSplitter(0, false), input))
}

func TestLinesEmptyLineIsEmptyFrame(t *testing.T) {
	frames := drainAll(t, NewLineSplitter(0, false), []byte("a\n\nb\n"))
	require.Len(t, frames, 3)
	assert.Equal(t, []byte("a"), frames[0])
	assert.Empty(t, frames[1])
	assert.Equal(t, []byte("b"), frames[2])
}

// a quoted field containing a literal newline must not terminate the frame
func TestLinesQuotedNewline(t *testing.T) {
	input := []byte("\"a\nb\",1\nc,2\n")
	want := [][]byte{[]byte("\"a\nb\",1"), []byte("c,2")}
	assert.Equal(t, want, drainAll(t, NewLineSplitter(0, true), input))
	assert.Equal(t, want, drainBytewise(t, NewLineSplitter(0, true), input))
}

// with quote-awareness off, the same input splits at every newline
func TestLinesQuoteUnaware(t *testing.T) {
	input := []byte("\"a\nb\",1\n")
	want := [][]byte{[]byte("\"a"), []byte("b\",1")}
	assert.Equal(t, want, drainAll(t, NewLineSplitter(0, false), input))
}

// CSV's doubled-quote escape keeps the quote state consistent
func TestLinesDoubledQuotes(t *testing.T) {
	input := []byte("\"he said \"\"hi\n\"\"\",x\nnext\n")
	frames := drainAll(t, NewLineSplitter(0, true), input)
	require.Len(t, frames, 2)
	assert.Equal(t, []byte("\"he said \"\"hi\n\"\"\",x"), frames[0])
	assert.Equal(t, []byte("next"), frames[1])
}

func TestLinesFinalizeUnterminatedLine(t *testing.T) {
	s := NewLineSplitter(0, false)
	buf := NewBuffer()
	buf.Append([]byte("complete\npartial"))

	frames, err := drainOnce(s, buf)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("complete")}, frames)

	frame, ok, err := s.Finalize(buf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("partial"), frame)
	assert.Equal(t, 0, buf.Len())

	// nothing left to finalize
	_, ok, err = s.Finalize(buf)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, s.Resting())
}

func TestLinesOpenQuoteAtEndIsNotFinalized(t *testing.T) {
	s := NewLineSplitter(0, true)
	buf := NewBuffer()
	buf.Append([]byte("\"unclosed field"))

	_, err := drainOnce(s, buf)
	require.NoError(t, err)

	_, ok, err := s.Finalize(buf)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, s.Resting())
}

func TestLinesTooLong(t *testing.T) {
	s := NewLineSplitter(4, false)
	buf := NewBuffer()
	buf.Append(bytes.Repeat([]byte("x"), 10))
	_, _, err := s.Split(buf)
	assert.ErrorIs(t, err, ErrFrameTooLong)
}

func TestLinesExactMaxLength(t *testing.T) {
	s := NewLineSplitter(4, false)
	frames := drainAll(t, s, []byte("abcd\n"))
	assert.Equal(t, [][]byte{[]byte("abcd")}, frames)
}
