// fs-testserver serves sample record streams in each supported framing
// discipline, for exercising fs-dump and the engine end to end.
package main

import (
	"flag"
	"fmt"
	"net/http"

	"github.com/cbeuw/framestream/testserver"

	log "github.com/sirupsen/logrus"
)

var version string

func main() {
	var listenAddr string
	var count int

	flag.StringVar(&listenAddr, "l", "127.0.0.1:8080", "listenAddr: address to serve on")
	flag.IntVar(&count, "n", 20, "count: records per stream")
	verbosity := flag.String("verbosity", "info", "verbosity level")
	askVersion := flag.Bool("v", false, "Print the version number")
	flag.Parse()

	if *askVersion {
		fmt.Printf("fs-testserver %s\n", version)
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

	log.Infof("serving sample streams on %v", listenAddr)
	log.Fatal(http.ListenAndServe(listenAddr, testserver.NewRouter(count)))
}
