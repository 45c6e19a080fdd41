// Package simulate drives a running idscan service with synthetic scanner
// traffic and checks the service's invariants afterwards.
package simulate

import "time"

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL      string        // Base URL of the service
	NumScans     int           // Number of detections to send
	Workers      int           // Number of concurrent scanners
	Interval     time.Duration // Pause between frames of one scanner
	InvalidRatio float64       // Share of malformed codes, 0..1
	RepeatRatio  float64       // Share of repeated codes, 0..1
	Reset        bool          // Reset the session before sending
	Timeout      time.Duration // HTTP request timeout
	SettleWait   time.Duration // How long to wait for persistence to catch up
	OutputFile   string        // Output file for the generated plan
	Verbose      bool          // Enable verbose logging
}

// Detection is one decoder callback body.
type Detection struct {
	CodeResult CodeResult `json:"codeResult"`
}

// CodeResult is the decoded payload of a detection.
type CodeResult struct {
	Code   string `json:"code"`
	Format string `json:"format"`
}

// Frame is one planned detection and what the generator intended it to be.
type Frame struct {
	Detection Detection `json:"detection"`
	Intent    Intent    `json:"intent"`
}

// Intent classifies a generated frame.
type Intent string

// Frame intents.
const (
	IntentValid   Intent = "valid"
	IntentInvalid Intent = "invalid"
	IntentRepeat  Intent = "repeat"
)

// Outcome statuses returned by POST /detections, plus a local failure.
const (
	StatusAccepted      = "accepted"
	StatusInvalidFormat = "invalid_format"
	StatusDuplicate     = "duplicate"
	StatusDebounced     = "debounced"
	StatusFailed        = "failed"
)

// Stats holds run statistics.
type Stats struct {
	RunID     string
	Generated int
	Outcomes  map[string]int
	Persisted int64
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}
