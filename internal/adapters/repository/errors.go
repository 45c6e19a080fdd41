package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound     = errors.New("student not found")
	ErrInvalidLimit = errors.New("invalid history limit")
	ErrOpen         = errors.New("open scan database failed")
)
