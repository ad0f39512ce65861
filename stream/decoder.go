package stream

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"

	"google.golang.org/protobuf/proto"
)

// A RecordDecoder converts one complete frame's bytes into a typed record.
// It is invoked exactly once per frame, synchronously, with no retries. The
// frame slice is only valid for the duration of the call: a decoder that
// wants to retain raw bytes must copy them.
type RecordDecoder interface {
	Decode(frame []byte) (interface{}, error)
}

// DecoderFunc adapts a plain function to the RecordDecoder interface.
type DecoderFunc func(frame []byte) (interface{}, error)

func (f DecoderFunc) Decode(frame []byte) (interface{}, error) {
	return f(frame)
}

// JSONDecoder unmarshals each frame into a fresh record allocated by
// newRecord, e.g. func() interface{} { return new(MyRow) }.
func JSONDecoder(newRecord func() interface{}) RecordDecoder {
	return DecoderFunc(func(frame []byte) (interface{}, error) {
		record := newRecord()
		if err := json.Unmarshal(frame, record); err != nil {
			return nil, err
		}
		return record, nil
	})
}

// CSVDecoder parses each frame as a single CSV record with the given field
// delimiter, yielding []string. Quoted fields may contain the delimiter,
// quotes escaped by doubling, and literal newlines.
func CSVDecoder(comma rune) RecordDecoder {
	return DecoderFunc(func(frame []byte) (interface{}, error) {
		r := csv.NewReader(bytes.NewReader(frame))
		r.Comma = comma
		r.FieldsPerRecord = -1
		fields, err := r.Read()
		if err != nil {
			if err == io.EOF {
				return nil, errors.New("empty csv record")
			}
			return nil, err
		}
		return fields, nil
	})
}

// ProtoDecoder unmarshals each frame into a fresh message allocated by
// newMessage, e.g. func() proto.Message { return &pb.MyRow{} }.
func ProtoDecoder(newMessage func() proto.Message) RecordDecoder {
	return DecoderFunc(func(frame []byte) (interface{}, error) {
		msg := newMessage()
		if err := proto.Unmarshal(frame, msg); err != nil {
			return nil, err
		}
		return msg, nil
	})
}

// RawDecoder copies the frame bytes out of the reassembly buffer and
// returns them as []byte, for callers doing their own decoding.
func RawDecoder() RecordDecoder {
	return DecoderFunc(func(frame []byte) (interface{}, error) {
		out := make([]byte, len(frame))
		copy(out, frame)
		return out, nil
	})
}
