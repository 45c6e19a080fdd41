package simulate

import "os"

// ShowHelp prints usage information for the simulator.
func ShowHelp() {
	os.Stdout.WriteString(`ID Scan Simulator
=================

Sends synthetic scanner detections to a running idscan service and checks
that the session buffer and the scan history stay consistent.

Usage:
  go run ./cmd/scan-sim [options]

Options:
  -url string         Base URL of the service (default "http://localhost:9080")
  -scans int          Number of detections to send (default 200)
  -workers int        Number of concurrent scanners (default 1)
  -interval duration  Pause between frames of one scanner (default 0)
  -invalid float      Share of malformed codes (default 0.1)
  -repeat float       Share of repeated codes (default 0.2)
  -reset              Reset the session before sending
  -timeout duration   HTTP request timeout (default 10s)
  -settle duration    How long to wait for persistence (default 10s)
  -output string      Write the generated detections to this JSON file
  -verbose            Log every detection
  -help               Show this help message

Examples:
  go run ./cmd/scan-sim -scans 1000 -reset
  go run ./cmd/scan-sim -workers 4 -interval 250ms -output plan.json
`)
}
