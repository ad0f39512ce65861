package stream

import (
	"encoding/binary"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
	"pgregory.net/rapid"

	"github.com/cbeuw/framestream/framing"
)

// chunk boundaries are a transport accident and must never change the
// record sequence. For each framing discipline we build a canonical byte
// stream, decode it whole, then decode it again under arbitrary chunking
// and demand identical frames.

func recordsUnder(t *rapid.T, splitter framing.Splitter, chunks [][]byte) [][]byte {
	e := MakeEngine(&scriptTransport{chunks: chunks}, splitter, RawDecoder(), EngineConfig{})
	var frames [][]byte
	for {
		rec, err := e.Next()
		if err == io.EOF {
			return frames
		}
		if err != nil {
			t.Fatalf("unexpected terminal error: %v", err)
		}
		frames = append(frames, rec.([]byte))
	}
}

func rechunk(t *rapid.T, data []byte) [][]byte {
	var chunks [][]byte
	for len(data) > 0 {
		n := rapid.IntRange(1, len(data)).Draw(t, "chunkLen")
		chunks = append(chunks, data[:n])
		data = data[n:]
	}
	return chunks
}

func testRechunkInvariance(t *testing.T, build func(*rapid.T) []byte, split func() framing.Splitter) {
	rapid.Check(t, func(t *rapid.T) {
		stream := build(t)
		want := recordsUnder(t, split(), [][]byte{stream})
		got := recordsUnder(t, split(), rechunk(t, stream))
		if len(want) != len(got) {
			t.Fatalf("frame count changed under rechunking: %v != %v", len(want), len(got))
		}
		for i := range want {
			if string(want[i]) != string(got[i]) {
				t.Fatalf("frame %v changed under rechunking: %q != %q", i, want[i], got[i])
			}
		}
	})
}

func TestRechunkJSONArray(t *testing.T) {
	testRechunkInvariance(t,
		func(t *rapid.T) []byte {
			n := rapid.IntRange(0, 8).Draw(t, "objects")
			stream := []byte("[")
			for i := 0; i < n; i++ {
				if i > 0 {
					stream = append(stream, ',')
				}
				val := rapid.StringMatching(`[a-z\]\[{}, ]{0,6}`).Draw(t, "val")
				stream = append(stream, fmt.Sprintf(`{"k%d":%q}`, i, val)...)
			}
			return append(stream, ']')
		},
		func() framing.Splitter { return framing.NewJSONArraySplitter(0) })
}

func TestRechunkLines(t *testing.T) {
	testRechunkInvariance(t,
		func(t *rapid.T) []byte {
			n := rapid.IntRange(0, 8).Draw(t, "lines")
			var stream []byte
			for i := 0; i < n; i++ {
				cell := rapid.StringMatching(`[a-z]{0,5}`).Draw(t, "cell")
				if rapid.Bool().Draw(t, "quoted") {
					stream = append(stream, fmt.Sprintf("\"%s\n%s\",%d\n", cell, cell, i)...)
				} else {
					stream = append(stream, fmt.Sprintf("%s,%d\n", cell, i)...)
				}
			}
			return stream
		},
		func() framing.Splitter { return framing.NewLineSplitter(0, true) })
}

func TestRechunkVarint(t *testing.T) {
	testRechunkInvariance(t,
		func(t *rapid.T) []byte {
			n := rapid.IntRange(0, 6).Draw(t, "frames")
			var stream []byte
			for i := 0; i < n; i++ {
				body := rapid.SliceOfN(rapid.Byte(), 0, 400).Draw(t, "body")
				stream = protowire.AppendVarint(stream, uint64(len(body)))
				stream = append(stream, body...)
			}
			return stream
		},
		func() framing.Splitter { return framing.NewVarintSplitter(0) })
}

func TestRechunkBatch(t *testing.T) {
	dataLen := func(meta []byte) (int, error) {
		return int(binary.LittleEndian.Uint32(meta)), nil
	}
	testRechunkInvariance(t,
		func(t *rapid.T) []byte {
			n := rapid.IntRange(0, 6).Draw(t, "units")
			var stream []byte
			for i := 0; i < n; i++ {
				body := rapid.SliceOfN(rapid.Byte(), 0, 50).Draw(t, "body")
				meta := binary.LittleEndian.AppendUint32(nil, uint32(len(body)))
				stream = binary.LittleEndian.AppendUint32(stream, 0xffffffff)
				stream = binary.LittleEndian.AppendUint32(stream, uint32(len(meta)))
				stream = append(stream, meta...)
				stream = append(stream, body...)
			}
			// end-of-stream sentinel keeps the transport end unambiguous
			stream = binary.LittleEndian.AppendUint32(stream, 0xffffffff)
			return binary.LittleEndian.AppendUint32(stream, 0)
		},
		func() framing.Splitter { return framing.NewBatchSplitter(0, dataLen) })
}

func TestRechunkFrameViewsSurviveCompaction(t *testing.T) {
	// records returned by the engine must remain intact after the buffer
	// compacts under later appends
	var stream []byte
	for i := 0; i < 200; i++ {
		stream = append(stream, fmt.Sprintf("line-%04d\n", i)...)
	}
	e := MakeEngine(&scriptTransport{chunks: chunksOf(stream, 7)},
		framing.NewLineSplitter(0, false), RawDecoder(), EngineConfig{})
	var got [][]byte
	for {
		rec, err := e.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, rec.([]byte))
	}
	require.Len(t, got, 200)
	for i, frame := range got {
		require.Equal(t, fmt.Sprintf("line-%04d", i), string(frame))
	}
}
