package stream

import (
	"io"

	"github.com/cbeuw/framestream/framing"
	"github.com/cbeuw/framestream/transport"

	"google.golang.org/protobuf/proto"
)

// Per-format constructors over a raw byte source such as an
// http.Response.Body. Each wires the matching splitter and decoder over a
// chunked reader transport; body is closed when the stream terminates or
// the engine is closed.

// JSONArrayStream streams the elements of a top-level JSON array, decoding
// each element into a record allocated by newRecord.
func JSONArrayStream(body io.ReadCloser, newRecord func() interface{}, maxFrameLen int, config EngineConfig) *Engine {
	return MakeEngine(
		transport.NewReader(body),
		framing.NewJSONArraySplitter(maxFrameLen),
		JSONDecoder(newRecord),
		config,
	)
}

// JSONLinesStream streams newline-delimited JSON (one object per line).
func JSONLinesStream(body io.ReadCloser, newRecord func() interface{}, maxFrameLen int, config EngineConfig) *Engine {
	return MakeEngine(
		transport.NewReader(body),
		framing.NewLineSplitter(maxFrameLen, false),
		JSONDecoder(newRecord),
		config,
	)
}

// CSVStream streams CSV rows as []string. Quoted fields may span lines.
// With header set, the first row is consumed and discarded.
func CSVStream(body io.ReadCloser, comma rune, header bool, maxFrameLen int, config EngineConfig) *Engine {
	if header && config.SkipFrames == 0 {
		config.SkipFrames = 1
	}
	return MakeEngine(
		transport.NewReader(body),
		framing.NewLineSplitter(maxFrameLen, true),
		CSVDecoder(comma),
		config,
	)
}

// ProtobufStream streams varint length-prefixed protobuf messages,
// decoding each into a fresh message allocated by newMessage.
func ProtobufStream(body io.ReadCloser, newMessage func() proto.Message, maxFrameLen int, config EngineConfig) *Engine {
	return MakeEngine(
		transport.NewReader(body),
		framing.NewVarintSplitter(maxFrameLen),
		ProtoDecoder(newMessage),
		config,
	)
}

// BatchStream streams batch/columnar units as raw frames, envelope
// included, until the format's end-of-stream sentinel. dataLen sizes each
// unit's data block from its metadata; nil means metadata-only units.
func BatchStream(body io.ReadCloser, dataLen framing.DataLenFunc, maxFrameLen int, config EngineConfig) *Engine {
	return MakeEngine(
		transport.NewReader(body),
		framing.NewBatchSplitter(maxFrameLen, dataLen),
		RawDecoder(),
		config,
	)
}
