// ABOUTME: Entry point for the LiveVoice echo endpoint
// ABOUTME: Parses CLI flags and serves a loopback endpoint for local testing
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/livevoice/livevoice-go/internal/echo"
)

var (
	addr       = flag.String("addr", ":3000", "Listen address")
	path       = flag.String("path", "/", "WebSocket path")
	name       = flag.String("name", "", "Endpoint friendly name (default: hostname-livevoice-echo)")
	logFile    = flag.String("log-file", "livevoice-echo.log", "Log file path")
	noMDNS     = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
	inputRate  = flag.Int("input-rate", 16000, "Sample rate assumed for unhinted client audio")
	outputRate = flag.Int("output-rate", 24000, "Sample rate of echoed audio")
)

func main() {
	flag.Parse()

	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()
	log.SetOutput(io.MultiWriter(os.Stdout, f))

	endpointName := *name
	if endpointName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		endpointName = fmt.Sprintf("%s-livevoice-echo", hostname)
	}

	log.Printf("Starting LiveVoice echo endpoint: %s on %s", endpointName, *addr)
	log.Printf("Logging to: %s", *logFile)
	log.Printf("Press Ctrl-C to stop")

	srv := echo.New(echo.Config{
		Addr:       *addr,
		Name:       endpointName,
		Path:       *path,
		EnableMDNS: !*noMDNS,
		InputRate:  *inputRate,
		OutputRate: *outputRate,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("Received %v signal, shutting down gracefully...", sig)
		srv.Stop()
	}()

	if err := srv.Start(); err != nil {
		log.Fatalf("Endpoint error: %v", err)
	}
	log.Printf("Endpoint stopped")
}
