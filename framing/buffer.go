package framing

// A Buffer is the arena a stream's bytes are reassembled in. Chunks arriving
// from the transport are appended at the end; a read cursor is advanced over
// the front as splitters consume frames and separators. The consumed prefix
// is dropped lazily so that appending stays amortised O(1) while the arena
// never grows beyond roughly twice the unconsumed data.
//
// Frame spans returned by a Splitter are views into this arena. They remain
// valid only until the next Append or Compact: whoever wants to keep frame
// bytes must copy them out first.
type Buffer struct {
	data    []byte
	readPos int
}

// don't bother shifting bytes down for small buffers
const compactThreshold = 4096

func NewBuffer() *Buffer {
	return &Buffer{}
}

// Append adds a chunk to the end of the arena. It may compact first, which
// invalidates previously returned frame views.
func (b *Buffer) Append(chunk []byte) {
	if b.readPos == len(b.data) {
		// everything consumed, reuse the allocation from the start
		b.data = b.data[:0]
		b.readPos = 0
	} else if b.readPos > compactThreshold && b.readPos > len(b.data)/2 {
		b.Compact()
	}
	b.data = append(b.data, chunk...)
}

// Bytes returns the unconsumed byte range without copying.
func (b *Buffer) Bytes() []byte {
	return b.data[b.readPos:]
}

// Advance moves the read cursor forward by n bytes. Only a Splitter should
// call this, and only over bytes it has proven to be a consumed frame or
// safely skippable separators.
func (b *Buffer) Advance(n int) {
	if n < 0 || b.readPos+n > len(b.data) {
		panic("framing: advance out of range")
	}
	b.readPos += n
}

// Len reports the number of unconsumed bytes, for limit enforcement.
func (b *Buffer) Len() int {
	return len(b.data) - b.readPos
}

// Compact drops the consumed prefix and shifts the cursor back to zero.
func (b *Buffer) Compact() {
	if b.readPos == 0 {
		return
	}
	n := copy(b.data, b.data[b.readPos:])
	b.data = b.data[:n]
	b.readPos = 0
}
