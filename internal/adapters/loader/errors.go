package loader

import "errors"

// Sentinel kinds for reference file errors.
var (
	ErrUnrecognisedFile = errors.New("unrecognised reference file name")
	ErrMalformedTable   = errors.New("malformed reference table")
)
