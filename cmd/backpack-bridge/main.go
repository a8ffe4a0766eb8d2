package main

import (
	"flag"
	"net/http"
	"os"

	"github.com/golang/glog"

	"github.com/robotalks/backpack/pkg/transport/websocket"
)

var listenAddr = ":8080"

func init() {
	if val := os.Getenv("BACKPACK_BRIDGE_ADDR"); val != "" {
		listenAddr = val
	}
	flag.StringVar(&listenAddr, "listen", listenAddr, "Listen address of the websocket bridge.")
}

func main() {
	flag.Parse()
	defer glog.Flush()

	bridge := websocket.NewBridge()
	http.Handle("/", bridge.Handler())
	glog.Infof("bridge listening on %s", listenAddr)
	if err := http.ListenAndServe(listenAddr, nil); err != nil {
		glog.Exit(err)
	}
}
