// Command testserver runs a configurable HTTP server for load testing.
//
// Usage:
//
//	testserver [flags]
//
// Flags:
//
//	-port    Port to listen on (default: 8080)
//	-host    Host to bind to (default: localhost)
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"cadence/testserver"
)

func main() {
	port := flag.Int("port", 8080, "port to listen on")
	host := flag.String("host", "localhost", "host to bind to")
	flag.Parse()

	server := testserver.NewServer()
	addr := fmt.Sprintf("%s:%d", *host, *port)

	fmt.Println("Cadence Test Server")
	fmt.Println("===================")
	fmt.Printf("Listening on http://%s\n\n", addr)
	fmt.Println("Endpoints:")
	fmt.Println("  GET  /health              - Health check")
	fmt.Println("  GET  /status/{code}       - Return specific status code")
	fmt.Println("  GET  /delay/{ms}          - Delay response by milliseconds")
	fmt.Println("  POST /echo                - Echo request body")
	fmt.Println("  GET  /fail-rate           - Fail percentage of requests (?rate=10)")
	fmt.Println("  POST /auth/login          - Login, returns extractable token")
	fmt.Println("  POST /orders              - Create order, returns orderId")
	fmt.Println("  GET  /address?orderId=... - Address lookup for an order")
	fmt.Println("  POST /address             - Save address, returns addressId")
	fmt.Println()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		os.Exit(0)
	}()

	log.Fatal(http.ListenAndServe(addr, server.Handler()))
}
