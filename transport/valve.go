package transport

import (
	"time"

	"github.com/juju/ratelimit"
)

// the chunk source behind a Valve, a subset of what the engine demands so
// that wrappers can stack
type chunkSource interface {
	PollChunk() ([]byte, error)
	Close() error
}

// Valve limits the byte rate at which chunks are drawn from an inner
// transport. Because the engine only polls on consumer demand, the valve
// effectively paces the whole pipeline, which is useful for being polite
// to shared upstreams and for exercising backpressure in tests.
type Valve struct {
	inner chunkSource
	tb    *ratelimit.Bucket
}

// MakeValve wraps inner so that no more than rate bytes per second are
// drawn from it on average, with bursts up to the same figure.
func MakeValve(inner chunkSource, rate int64) *Valve {
	return &Valve{
		inner: inner,
		tb:    ratelimit.NewBucketWithRate(float64(rate), rate),
	}
}

func (v *Valve) PollChunk() ([]byte, error) {
	chunk, err := v.inner.PollChunk()
	if len(chunk) > 0 {
		v.tb.Wait(int64(len(chunk)))
	}
	return chunk, err
}

func (v *Valve) SetPollDeadline(deadline time.Time) error {
	if dp, ok := v.inner.(interface{ SetPollDeadline(time.Time) error }); ok {
		return dp.SetPollDeadline(deadline)
	}
	return errNoDeadline
}

func (v *Valve) Close() error {
	return v.inner.Close()
}
