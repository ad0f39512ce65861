// Package stream turns a chunked byte transport into a lazily produced,
// pull-driven sequence of decoded records. The engine performs no internal
// parallelism and no background fetching: the transport is polled only when
// the consumer demands the next record and no complete frame is already
// buffered, so a slow consumer throttles the producer for free.
package stream

import (
	"fmt"
	"io"
	"time"

	"github.com/cbeuw/framestream/framing"

	log "github.com/sirupsen/logrus"
)

const defaultMaxBufferedBytes = 1 << 24

// A Transport supplies the raw byte chunks of one stream, e.g. an HTTP
// response body. Chunk sizes and their alignment to record boundaries are
// unspecified. PollChunk returns io.EOF once the stream is exhausted and
// keeps returning it on further calls; a zero-length chunk with a nil error
// is legal and means "nothing yet". At most one PollChunk call is
// outstanding at a time.
type Transport interface {
	PollChunk() ([]byte, error)
	Close() error
}

// A PollDeadline transport can bound how long a single PollChunk may block.
// The engine uses it to enforce EngineConfig.ChunkPullTimeout; transports
// without deadline support simply block.
type PollDeadline interface {
	SetPollDeadline(t time.Time) error
}

type EngineConfig struct {
	// MaxBufferedBytes caps the unconsumed bytes the engine will hold while
	// waiting for a frame to complete. Strictly exceeding it terminates the
	// stream with KindLimitExceeded. 0 means the 16MiB default.
	MaxBufferedBytes int

	// ChunkPullTimeout bounds each individual chunk poll on transports
	// implementing PollDeadline. A stalled transport surfaces as a
	// KindTransport error instead of blocking forever. 0 disables.
	ChunkPullTimeout time.Duration

	// SkipFrames drops this many leading frames without decoding them,
	// e.g. 1 to skip a CSV header line.
	SkipFrames int
}

// An Engine orchestrates one stream: it pulls chunks from the transport,
// reassembles them in its buffer, drains complete frames through the
// splitter and hands each frame to the decoder. Engines are single-stream
// and not restartable; construct a fresh one to re-consume a source. Not
// safe for concurrent use.
type Engine struct {
	EngineConfig

	transport Transport
	splitter  framing.Splitter
	decoder   RecordDecoder

	buf     *framing.Buffer
	nextSeq uint64

	// latched terminal result of the sequence; once set, the transport has
	// been closed and Next only ever returns this
	terminal error
	// the transport reported io.EOF, stop polling it
	exhausted bool
}

func MakeEngine(transport Transport, splitter framing.Splitter, decoder RecordDecoder, config EngineConfig) *Engine {
	if config.MaxBufferedBytes <= 0 {
		config.MaxBufferedBytes = defaultMaxBufferedBytes
	}
	return &Engine{
		EngineConfig: config,
		transport:    transport,
		splitter:     splitter,
		decoder:      decoder,
		buf:          framing.NewBuffer(),
	}
}

// Next returns the next decoded record. It returns io.EOF on a clean end of
// stream and a *StreamError on any failure; either outcome is terminal and
// repeated on subsequent calls. After a terminal outcome the transport has
// been released and is never polled again.
func (e *Engine) Next() (interface{}, error) {
	if e.terminal != nil {
		return nil, e.terminal
	}
	for {
		frame, ok, err := e.splitter.Split(e.buf)
		if err != nil {
			if err == io.EOF {
				// the format's own end marker; trailing bytes stay unread
				return nil, e.finish(io.EOF)
			}
			// over-long frames are a property of the stream's framing, not
			// of the engine's buffering cap, so they count as malformation
			return nil, e.finish(streamErr(KindMalformed, err))
		}
		if ok {
			if rec, done, err := e.deliver(frame); done {
				return rec, err
			}
			continue
		}

		if e.buf.Len() > e.MaxBufferedBytes {
			return nil, e.finish(streamErr(KindLimitExceeded,
				fmt.Errorf("%v bytes buffered without a complete frame, cap is %v", e.buf.Len(), e.MaxBufferedBytes)))
		}

		if e.exhausted {
			return e.finalize()
		}
		chunk, err := e.pollChunk()
		if err != nil {
			if err == io.EOF {
				e.exhausted = true
				continue
			}
			return nil, e.finish(streamErr(KindTransport, err))
		}
		// a zero-length chunk is a no-op, not end of stream
		if len(chunk) > 0 {
			e.buf.Append(chunk)
		}
	}
}

// deliver decodes one extracted frame. done is false when the frame was
// swallowed by SkipFrames and the drain loop should continue.
func (e *Engine) deliver(frame []byte) (interface{}, bool, error) {
	seq := e.nextSeq
	e.nextSeq++
	if seq < uint64(e.SkipFrames) {
		log.Tracef("frame %v of %v bytes skipped", seq, len(frame))
		return nil, false, nil
	}
	rec, err := e.decoder.Decode(frame)
	if err != nil {
		return nil, true, e.finish(streamErr(KindDecode, fmt.Errorf("frame %v: %w", seq, err)))
	}
	log.Tracef("frame %v of %v bytes decoded", seq, len(frame))
	return rec, true, nil
}

func (e *Engine) pollChunk() ([]byte, error) {
	if e.ChunkPullTimeout != 0 {
		if dp, ok := e.transport.(PollDeadline); ok {
			if err := dp.SetPollDeadline(time.Now().Add(e.ChunkPullTimeout)); err != nil {
				return nil, err
			}
		}
	}
	return e.transport.PollChunk()
}

// finalize classifies the end of the transport: a last legal frame for
// disciplines that allow one, then a clean end if the splitter is between
// frames with nothing left over, otherwise a truncation.
func (e *Engine) finalize() (interface{}, error) {
	if fin, ok := e.splitter.(framing.Finalizer); ok {
		frame, ok, err := fin.Finalize(e.buf)
		if err != nil {
			return nil, e.finish(streamErr(KindMalformed, err))
		}
		if ok {
			if rec, done, err := e.deliver(frame); done {
				return rec, err
			}
			// skipped; fall through to the end-of-stream classification
		}
	}
	if e.splitter.Resting() && e.buf.Len() == 0 {
		return nil, e.finish(io.EOF)
	}
	return nil, e.finish(streamErr(KindTruncated,
		fmt.Errorf("transport ended with an incomplete frame, %v bytes unresolved", e.buf.Len())))
}

// finish latches the terminal result and releases the transport.
func (e *Engine) finish(terminal error) error {
	e.terminal = terminal
	if terminal == io.EOF {
		log.Debugf("stream ended cleanly after %v frames", e.nextSeq)
	} else {
		log.Debugf("stream terminated after %v frames: %v", e.nextSeq, terminal)
	}
	if err := e.transport.Close(); err != nil {
		log.Debugf("closing transport: %v", err)
	}
	return terminal
}

// Close abandons the stream early. The transport is released and no
// further chunks are requested; subsequent Next calls return ErrClosed.
// Closing an already terminated engine is a no-op.
func (e *Engine) Close() error {
	if e.terminal != nil {
		return nil
	}
	e.terminal = ErrClosed
	return e.transport.Close()
}

// Produced reports how many frames have been extracted so far, skipped
// ones included.
func (e *Engine) Produced() uint64 {
	return e.nextSeq
}
