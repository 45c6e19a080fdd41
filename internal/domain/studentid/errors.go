package studentid

import "errors"

// Sentinel errors for this package.
var (
	ErrInvalidFormat = errors.New("invalid student id format")
)
