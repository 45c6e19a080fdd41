package decoder

import "errors"

// Sentinel errors for this package.
var (
	ErrMalformedResult = errors.New("malformed decoder result")
)
