// Package model contains domain models passed between layers.
package model

import "time"

// RawDetection is one decoded barcode as reported by the decoder.
type RawDetection struct {
	Code   string // decoded text, untrusted
	Format string // decoder symbology, e.g. "code_128"
}

// ScanRecord is an accepted student ID scan. It is never mutated after creation.
type ScanRecord struct {
	SequenceID    uint64    `json:"sequence_id"`
	UUID          string    `json:"uuid"`
	StudentID     string    `json:"student_id"`
	Format        string    `json:"format"`
	BranchCode    string    `json:"branch_code"`
	StudentNumber string    `json:"student_number"`
	Year          string    `json:"year"`
	ShortYear     string    `json:"short_year"`
	Timestamp     time.Time `json:"timestamp"`
}

// RecordType is the fixed presentation metadata shared by every scan record.
type RecordType struct {
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

// StudentIDType describes student ID records.
var StudentIDType = RecordType{Name: "Student ID", Icon: "fa-id-card", Color: "#9C27B0"}

// SignalKind classifies the outcome of a detection.
type SignalKind string

const (
	// SignalAccepted means a new record was added to the history.
	SignalAccepted SignalKind = "accepted"
	// SignalInvalidFormat means the candidate did not match the ID grammar.
	SignalInvalidFormat SignalKind = "invalid_format"
	// SignalDuplicate means the candidate is already in the recent history.
	SignalDuplicate SignalKind = "duplicate"
	// SignalDebounced means a repeat frame of the last accepted card was ignored.
	SignalDebounced SignalKind = "debounced"
)

// Signal is the outcome of handling one detection.
// Record is set only for SignalAccepted.
type Signal struct {
	Kind      SignalKind  `json:"kind"`
	Candidate string      `json:"candidate"`
	Record    *ScanRecord `json:"record,omitempty"`
}
