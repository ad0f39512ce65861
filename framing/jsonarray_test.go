package framing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// feed the whole input as one chunk and drain every extractable frame
func drainAll(t *testing.T, s Splitter, input []byte) [][]byte {
	t.Helper()
	buf := NewBuffer()
	buf.Append(input)
	var frames [][]byte
	for {
		frame, ok, err := s.Split(buf)
		require.NoError(t, err)
		if !ok {
			return frames
		}
		frames = append(frames, append([]byte(nil), frame...))
	}
}

// feed the input byte by byte, draining after every append
func drainBytewise(t *testing.T, s Splitter, input []byte) [][]byte {
	t.Helper()
	buf := NewBuffer()
	var frames [][]byte
	for _, b := range input {
		buf.Append([]byte{b})
		for {
			frame, ok, err := s.Split(buf)
			require.NoError(t, err)
			if !ok {
				break
			}
			frames = append(frames, append([]byte(nil), frame...))
		}
	}
	return frames
}

func TestJSONArraySingleObject(t *testing.T) {
	frames := drainAll(t, NewJSONArraySplitter(0), []byte(`[{"a":1}]`))
	assert.Equal(t, [][]byte{[]byte(`{"a":1}`)}, frames)
}

func TestJSONArrayMultipleObjects(t *testing.T) {
	input := []byte(` [ {"a":1} , {"b":{"c":[2,3]}} ,{"d":"x"} ] `)
	want := [][]byte{
		[]byte(`{"a":1}`),
		[]byte(`{"b":{"c":[2,3]}}`),
		[]byte(`{"d":"x"}`),
	}
	assert.Equal(t, want, drainAll(t, NewJSONArraySplitter(0), input))
	assert.Equal(t, want, drainBytewise(t, NewJSONArraySplitter(0), input))
}

// a bracket inside a string literal must not affect depth tracking
func TestJSONArrayBracketInString(t *testing.T) {
	frames := drainAll(t, NewJSONArraySplitter(0), []byte(`[{"a":"]"}]`))
	assert.Equal(t, [][]byte{[]byte(`{"a":"]"}`)}, frames)

	frames = drainAll(t, NewJSONArraySplitter(0), []byte(`[{"a":"}{"}]`))
	assert.Equal(t, [][]byte{[]byte(`{"a":"}{"}`)}, frames)
}

func TestJSONArrayEscapes(t *testing.T) {
	// escaped quote inside a string
	frames := drainAll(t, NewJSONArraySplitter(0), []byte(`[{"a":"\"}"}]`))
	assert.Equal(t, [][]byte{[]byte(`{"a":"\"}"}`)}, frames)

	// double backslash ends the escape; the following quote closes the string
	frames = drainAll(t, NewJSONArraySplitter(0), []byte(`[{"a":"\\"},{"b":2}]`))
	assert.Equal(t, [][]byte{[]byte(`{"a":"\\"}`), []byte(`{"b":2}`)}, frames)
}

func TestJSONArrayMalformed(t *testing.T) {
	cases := map[string]string{
		"reopened array":    `[{"a":1}[`,
		"leading delimiter": `[,{"a":1}]`,
		"double delimiter":  `[{"a":1},,{"b":2}]`,
		"unbalanced closer": `[}`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			s := NewJSONArraySplitter(0)
			buf := NewBuffer()
			buf.Append([]byte(input))
			var err error
			for err == nil {
				var ok bool
				_, ok, err = s.Split(buf)
				if !ok && err == nil {
					t.Fatal("input should have errored")
				}
			}
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestJSONArrayFrameTooLong(t *testing.T) {
	s := NewJSONArraySplitter(8)
	buf := NewBuffer()
	buf.Append([]byte(`[{"aaaaaaaaaa":1}]`))
	_, _, err := s.Split(buf)
	assert.ErrorIs(t, err, ErrFrameTooLong)
}

func TestJSONArrayResting(t *testing.T) {
	s := NewJSONArraySplitter(0)
	buf := NewBuffer()

	buf.Append([]byte(`[{"a":1}`))
	frames, err := drainOnce(s, buf)
	assert.NoError(t, err)
	assert.Len(t, frames, 1)
	assert.True(t, s.Resting(), "between frames")
	assert.Equal(t, 0, buf.Len(), "separators consumed")

	buf.Append([]byte(`,{"b"`))
	_, err = drainOnce(s, buf)
	assert.NoError(t, err)
	assert.False(t, s.Resting(), "mid-object")
}

func drainOnce(s Splitter, buf *Buffer) ([][]byte, error) {
	var frames [][]byte
	for {
		frame, ok, err := s.Split(buf)
		if err != nil {
			return frames, err
		}
		if !ok {
			return frames, nil
		}
		frames = append(frames, append([]byte(nil), frame...))
	}
}
