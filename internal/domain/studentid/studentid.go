// Package studentid validates and parses student ID codes read off ID cards.
//
// A student ID is S + branch code + "/" + 5 digits + "/" + 2 digits, for
// example SCS/12345/23. Branch codes come from a closed set; see Branches.
package studentid

import (
	"fmt"
	"regexp"
	"strings"
)

// century prefixes the 2-digit year suffix.
const century = "20"

var branchCodes = []string{"AU", "CE", "CV", "CS", "EE", "CO", "CT", "EC", "EV", "ME"}

var pattern = regexp.MustCompile(`^S(` + strings.Join(branchCodes, "|") + `)/(\d{5})/(\d{2})$`)

// ID is a validated, normalized student ID. The zero value is not valid.
type ID struct {
	value     string
	branch    string
	number    string
	shortYear string
}

// Normalize trims surrounding whitespace and uppercases raw decoder text.
func Normalize(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// Valid reports whether the normalized form of raw is a student ID.
func Valid(raw string) bool {
	return pattern.MatchString(Normalize(raw))
}

// Parse normalizes raw and parses it into an ID.
// It returns an error wrapping ErrInvalidFormat when raw does not match.
func Parse(raw string) (ID, error) {
	candidate := Normalize(raw)
	m := pattern.FindStringSubmatch(candidate)
	if m == nil {
		return ID{}, fmt.Errorf("%w: %q", ErrInvalidFormat, candidate)
	}
	return ID{value: candidate, branch: m[1], number: m[2], shortYear: m[3]}, nil
}

// String returns the normalized ID, e.g. "SCS/12345/23".
func (id ID) String() string { return id.value }

// Branch returns the 2-letter branch code, e.g. "CS".
func (id ID) Branch() string { return id.branch }

// Number returns the 5-digit student number.
func (id ID) Number() string { return id.number }

// ShortYear returns the 2-digit year suffix.
func (id ID) ShortYear() string { return id.shortYear }

// Year returns the 4-digit year derived from the suffix.
func (id ID) Year() string {
	if id.shortYear == "" {
		return ""
	}
	return century + id.shortYear
}

// IsZero reports whether id is the zero value.
func (id ID) IsZero() bool { return id.value == "" }

// Branches returns the accepted branch codes in declaration order.
func Branches() []string {
	out := make([]string, len(branchCodes))
	copy(out, branchCodes)
	return out
}
