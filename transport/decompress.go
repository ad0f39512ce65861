package transport

import (
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// sourceReader adapts a chunk source back into an io.Reader so that
// stream decompressors can be layered on top of any transport.
type sourceReader struct {
	src chunkSource
	rem []byte
	err error
}

func (r *sourceReader) Read(p []byte) (int, error) {
	for len(r.rem) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		r.rem, r.err = r.src.PollChunk()
	}
	n := copy(p, r.rem)
	r.rem = r.rem[n:]
	return n, nil
}

// Gunzip transparently decompresses a gzip-encoded inner transport, e.g.
// an HTTP body served with Content-Encoding: gzip. The gzip header is read
// lazily on the first poll so that construction never blocks.
type Gunzip struct {
	inner chunkSource
	src   *sourceReader
	out   *Reader
	gz    *gzip.Reader
}

func NewGunzip(inner chunkSource) *Gunzip {
	return &Gunzip{
		inner: inner,
		src:   &sourceReader{src: inner},
	}
}

func (t *Gunzip) PollChunk() ([]byte, error) {
	if t.out == nil {
		gz, err := gzip.NewReader(t.src)
		if err != nil {
			return nil, err
		}
		t.gz = gz
		t.out = NewReader(gz)
	}
	return t.out.PollChunk()
}

func (t *Gunzip) Close() error {
	if t.gz != nil {
		_ = t.gz.Close()
	}
	return t.inner.Close()
}

// Unzstd transparently decompresses a zstd-encoded inner transport.
type Unzstd struct {
	inner chunkSource
	src   *sourceReader
	out   *Reader
	dec   *zstd.Decoder
}

func NewUnzstd(inner chunkSource) *Unzstd {
	return &Unzstd{
		inner: inner,
		src:   &sourceReader{src: inner},
	}
}

func (t *Unzstd) PollChunk() ([]byte, error) {
	if t.out == nil {
		dec, err := zstd.NewReader(t.src)
		if err != nil {
			return nil, err
		}
		t.dec = dec
		t.out = NewReader(io.Reader(dec))
	}
	return t.out.PollChunk()
}

func (t *Unzstd) Close() error {
	if t.dec != nil {
		t.dec.Close()
	}
	return t.inner.Close()
}
