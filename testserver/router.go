// Package testserver emits sample record streams in every framing
// discipline the engine understands. Responses are written in small
// flushed fragments so that chunk boundaries land in awkward places,
// which is the whole point: a consumer must never see a difference.
package testserver

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	gmux "github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// response bodies are flushed in fragments of this size to force record
// frames to straddle transport chunks
const fragmentSize = 7

// size of the body-length field at the front of each batch unit's
// metadata block
const batchBodyLenSize = 8

type Router struct {
	*gmux.Router
	count int
}

// NewRouter serves count records on each endpoint: /json-array,
// /json-lines, /csv (?header=1 prepends a header row), /protobuf and
// /batch.
func NewRouter(count int) *Router {
	if count <= 0 {
		count = 20
	}
	r := &Router{count: count}
	r.registerMux()
	return r
}

func requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.WithField("request_id", uuid.NewString()).Infof("%v %v", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func (sr *Router) registerMux() {
	sr.Router = gmux.NewRouter()
	sr.HandleFunc("/json-array", sr.jsonArrayHlr).Methods("GET")
	sr.HandleFunc("/json-lines", sr.jsonLinesHlr).Methods("GET")
	sr.HandleFunc("/csv", sr.csvHlr).Methods("GET")
	sr.HandleFunc("/protobuf", sr.protobufHlr).Methods("GET")
	sr.HandleFunc("/batch", sr.batchHlr).Methods("GET")
	sr.Use(requestLogMiddleware)
}

// Record is the shape served by the JSON and protobuf endpoints.
type Record struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

func sampleRecord(i int) Record {
	return Record{Index: i, Name: fmt.Sprintf("record-%v", i)}
}

// dribble writes data in flushed fragments
func dribble(w http.ResponseWriter, data []byte) {
	flusher, _ := w.(http.Flusher)
	for len(data) > 0 {
		n := fragmentSize
		if n > len(data) {
			n = len(data)
		}
		if _, err := w.Write(data[:n]); err != nil {
			return
		}
		data = data[n:]
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func (sr *Router) jsonArrayHlr(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	dribble(w, []byte("["))
	for i := 0; i < sr.count; i++ {
		if i > 0 {
			dribble(w, []byte(","))
		}
		obj, err := json.Marshal(sampleRecord(i))
		if err != nil {
			return
		}
		dribble(w, obj)
	}
	dribble(w, []byte("]"))
}

func (sr *Router) jsonLinesHlr(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/jsonl")
	for i := 0; i < sr.count; i++ {
		line, err := json.Marshal(sampleRecord(i))
		if err != nil {
			return
		}
		dribble(w, append(line, '\n'))
	}
}

func (sr *Router) csvHlr(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	if r.URL.Query().Get("header") == "1" {
		dribble(w, []byte("index,name\r\n"))
	}
	for i := 0; i < sr.count; i++ {
		rec := sampleRecord(i)
		dribble(w, []byte(fmt.Sprintf("%v,%v\r\n", rec.Index, rec.Name)))
	}
}

func (sr *Router) protobufHlr(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/octet-stream")
	for i := 0; i < sr.count; i++ {
		msg, err := structpb.NewStruct(map[string]interface{}{
			"index": float64(i),
			"name":  sampleRecord(i).Name,
		})
		if err != nil {
			return
		}
		body, err := proto.Marshal(msg)
		if err != nil {
			return
		}
		out := protowire.AppendVarint(nil, uint64(len(body)))
		dribble(w, append(out, body...))
	}
}

// BatchDataLen sizes a batch unit's data block from its metadata: the
// first 8 bytes of the metadata block carry the body length,
// little-endian. Clients consuming /batch pass this to the batch splitter.
func BatchDataLen(meta []byte) (int, error) {
	if len(meta) < batchBodyLenSize {
		return 0, fmt.Errorf("metadata too short: %v bytes", len(meta))
	}
	return int(binary.LittleEndian.Uint64(meta)), nil
}

func (sr *Router) batchHlr(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/octet-stream")
	for i := 0; i < sr.count; i++ {
		dribble(w, batchUnit(i))
	}
	// end-of-stream sentinel, then trailing bytes a correct consumer must
	// leave unread
	eos := make([]byte, 8)
	binary.LittleEndian.PutUint32(eos, 0xffffffff)
	dribble(w, eos)
	dribble(w, []byte("trailing garbage past the sentinel"))
}

// batchUnit builds one unit: continuation marker, metadata length,
// metadata (8-byte LE body length plus a label), then the data block.
func batchUnit(i int) []byte {
	body := []byte(fmt.Sprintf("payload of batch unit %v", i))
	meta := make([]byte, batchBodyLenSize)
	binary.LittleEndian.PutUint64(meta, uint64(len(body)))
	meta = append(meta, []byte(fmt.Sprintf("batch-%v", i))...)

	unit := make([]byte, 8)
	binary.LittleEndian.PutUint32(unit, 0xffffffff)
	binary.LittleEndian.PutUint32(unit[4:], uint32(len(meta)))
	unit = append(unit, meta...)
	unit = append(unit, body...)
	return unit
}
