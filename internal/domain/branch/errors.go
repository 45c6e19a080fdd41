package branch

import "errors"

// Sentinel errors for this package.
var (
	ErrLoad = errors.New("load branch table failed")
)
