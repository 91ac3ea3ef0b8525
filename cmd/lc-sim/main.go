// lc-sim runs one limit checker application instance against a table image
// and a TCP bus connection, the way cmd/exporter_example2 stood up one
// long-running collector against a listening HTTP server.
package main

import (
	"encoding/binary"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spacely/limitchecker/internal/lcaction"
	"github.com/spacely/limitchecker/internal/lcbus"
	"github.com/spacely/limitchecker/internal/lcclock"
	"github.com/spacely/limitchecker/internal/lccmd"
	"github.com/spacely/limitchecker/internal/lcdispatch"
	"github.com/spacely/limitchecker/internal/lcevent"
	"github.com/spacely/limitchecker/internal/lchk"
	"github.com/spacely/limitchecker/internal/lclog"
	"github.com/spacely/limitchecker/internal/lcmetrics"
	"github.com/spacely/limitchecker/internal/lcresult"
	"github.com/spacely/limitchecker/internal/lcrts"
	"github.com/spacely/limitchecker/internal/lctable"
	"github.com/spacely/limitchecker/internal/lcwatch"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintf(os.Stderr, "Usage: %s <table.yaml> <bus-listen-addr> [metrics-addr]\n", os.Args[0])
		os.Exit(1)
	}
	tablePath := os.Args[1]
	busAddr := os.Args[2]
	metricsAddr := ":9110"
	if len(os.Args) > 3 {
		metricsAddr = os.Args[3]
	}

	log := lclog.New(os.Getenv("LC_LOG_LEVEL"))

	raw, err := os.ReadFile(tablePath)
	if err != nil {
		log.Fatalf("read table image: %v", err)
	}
	tables, err := lctable.LoadImage(raw)
	if err != nil {
		log.Fatalf("load table image: %v", err)
	}
	results := lcresult.NewResults(tables)

	events := lcevent.NewLogrusEmitter(log)
	registry := lctable.NewRegistry()
	clock := lcclock.System{}

	watch := lcwatch.New(registry, clock)
	action := lcaction.New(tables, results, events, lcrts.Discard{})
	cmd := lccmd.New(tables, results, events)

	collector := lcmetrics.NewCollector(tables, results)
	prometheus.MustRegister(collector)
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		log.Infof("metrics listening on %s", metricsAddr)
		if err := http.ListenAndServe(metricsAddr, nil); err != nil {
			log.Errorf("metrics server: %v", err)
		}
	}()

	listener, err := net.Listen("tcp", busAddr)
	if err != nil {
		log.Fatalf("listen %s: %v", busAddr, err)
	}
	log.Infof("bus listening on %s", busAddr)

	for {
		conn, err := listener.Accept()
		if err != nil {
			log.Errorf("accept: %v", err)
			continue
		}
		bus := lcbus.WrapConn(conn)
		hk := lchk.New(tables, results, clock, lcbus.Transport{Bus: bus}, lcdispatch.SendHKMID)
		dispatcher := lcdispatch.New(tables, results, watch, action, hk, cmd)
		// The monitoring core is single-threaded (spec.md §5): one
		// connection is served to completion before the next is
		// accepted, so results/tables never need locking against
		// concurrent bus traffic.
		serveBusConnection(log, bus, dispatcher)
	}
}

func serveBusConnection(log interface{ Errorf(string, ...interface{}) }, bus *lcbus.SocketBus, dispatcher *lcdispatch.Dispatcher) {
	defer bus.Close()
	for {
		env, err := bus.Receive()
		if err != nil {
			log.Errorf("bus receive: %v", err)
			return
		}

		sample := lcdispatch.SampleRequest{StartIndex: lctable.ALLIndex, EndIndex: lctable.ALLIndex, UpdateAge: true}
		if env.MessageID == dispatcher.SampleAPMID {
			sample = decodeSampleRequest(env.Payload)
		}
		if err := dispatcher.Dispatch(env.MessageID, env.Payload, sample); err != nil {
			log.Errorf("dispatch %#x: %v", env.MessageID, err)
		}
	}
}

// decodeSampleRequest reads the sample command's wire form: 2-byte
// StartIndex, 2-byte EndIndex (both big-endian, ALLIndex-valued when the
// whole table is meant), then one UpdateAge flag byte.
func decodeSampleRequest(payload []byte) lcdispatch.SampleRequest {
	if len(payload) < 5 {
		return lcdispatch.SampleRequest{StartIndex: lctable.ALLIndex, EndIndex: lctable.ALLIndex, UpdateAge: true}
	}
	start := binary.BigEndian.Uint16(payload[0:2])
	end := binary.BigEndian.Uint16(payload[2:4])
	return lcdispatch.SampleRequest{
		StartIndex: resolveIndex(start),
		EndIndex:   resolveIndex(end),
		UpdateAge:  payload[4] != 0,
	}
}

func resolveIndex(v uint16) int {
	if v == lctable.ALLIndex {
		return lctable.ALLIndex
	}
	return int(v)
}
