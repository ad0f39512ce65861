// fs-dump consumes a record stream over HTTP and prints each decoded
// record to stdout as a JSON line. It exists to exercise the engine
// against real servers; memory stays flat however large the response is.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/cbeuw/framestream/framing"
	"github.com/cbeuw/framestream/stream"
	"github.com/cbeuw/framestream/testserver"
	"github.com/cbeuw/framestream/transport"

	log "github.com/sirupsen/logrus"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

var version string

func main() {
	var url string
	var format string
	var maxFrameLen int
	var maxBuffered int
	var timeout time.Duration
	var csvHeader bool
	var gzipped bool

	flag.StringVar(&url, "url", "", "url: address of the record stream")
	flag.StringVar(&format, "format", "json-array", "format: json-array, json-lines, csv, protobuf or batch")
	flag.IntVar(&maxFrameLen, "max-frame", 1<<20, "max-frame: maximum size of a single record frame in bytes")
	flag.IntVar(&maxBuffered, "max-buffered", 1<<24, "max-buffered: cap on unresolved buffered bytes")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "timeout: per-chunk pull deadline, 0 to disable")
	flag.BoolVar(&csvHeader, "csv-header", false, "csv-header: discard the first csv row")
	flag.BoolVar(&gzipped, "gzip", false, "gzip: response body is gzip encoded")
	verbosity := flag.String("verbosity", "info", "verbosity level")
	askVersion := flag.Bool("v", false, "Print the version number")
	flag.Parse()

	if *askVersion {
		fmt.Printf("fs-dump %s\n", version)
		return
	}

	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})
	lvl, err := log.ParseLevel(*verbosity)
	if err != nil {
		log.Fatal(err)
	}
	log.SetLevel(lvl)

	if url == "" {
		log.Fatal("-url is required")
	}

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		log.Fatal(err)
	}
	if gzipped {
		req.Header.Set("Accept-Encoding", "gzip")
	}
	resp, err := http.DefaultTransport.RoundTrip(req)
	if err != nil {
		log.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("server replied %v", resp.Status)
	}

	config := stream.EngineConfig{
		MaxBufferedBytes: maxBuffered,
		ChunkPullTimeout: timeout,
	}

	var src stream.Transport = transport.NewReader(resp.Body)
	if gzipped && resp.Header.Get("Content-Encoding") == "gzip" {
		src = transport.NewGunzip(transport.NewReader(resp.Body))
	}

	engine, err := makeEngine(src, format, csvHeader, maxFrameLen, config)
	if err != nil {
		log.Fatal(err)
	}

	enc := json.NewEncoder(os.Stdout)
	for {
		record, err := engine.Next()
		if err != nil {
			if kind, ok := stream.KindOf(err); ok {
				log.Fatalf("stream failed (%v): %v", kind, err)
			}
			// io.EOF: clean end
			log.Infof("stream ended after %v frames", engine.Produced())
			return
		}
		if err := enc.Encode(record); err != nil {
			log.Fatal(err)
		}
	}
}

func makeEngine(src stream.Transport, format string, csvHeader bool, maxFrameLen int, config stream.EngineConfig) (*stream.Engine, error) {
	newRecord := func() interface{} { return &map[string]interface{}{} }
	switch format {
	case "json-array":
		return stream.MakeEngine(src, framing.NewJSONArraySplitter(maxFrameLen), stream.JSONDecoder(newRecord), config), nil
	case "json-lines":
		return stream.MakeEngine(src, framing.NewLineSplitter(maxFrameLen, false), stream.JSONDecoder(newRecord), config), nil
	case "csv":
		if csvHeader {
			config.SkipFrames = 1
		}
		return stream.MakeEngine(src, framing.NewLineSplitter(maxFrameLen, true), stream.CSVDecoder(','), config), nil
	case "protobuf":
		newMessage := func() proto.Message { return &structpb.Struct{} }
		return stream.MakeEngine(src, framing.NewVarintSplitter(maxFrameLen), stream.ProtoDecoder(newMessage), config), nil
	case "batch":
		return stream.MakeEngine(src, framing.NewBatchSplitter(maxFrameLen, testserver.BatchDataLen), stream.RawDecoder(), config), nil
	default:
		return nil, fmt.Errorf("unknown format %v", format)
	}
}
