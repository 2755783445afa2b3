package repository

import "errors"

// Sentinel kinds for repository construction errors.
var (
	ErrInvalidPartition   = errors.New("invalid reference partition")
	ErrDuplicatePartition = errors.New("duplicate reference partition")
)
