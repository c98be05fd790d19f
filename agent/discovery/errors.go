package discovery

import "errors"

var (
	// ErrStoreUnavailable reports that the record store cannot be reached or is not initialized.
	ErrStoreUnavailable = errors.New("discovery: record store unavailable")

	// ErrNotFound reports a single-record lookup miss.
	ErrNotFound = errors.New("discovery: agent not found")

	// ErrInvalidQuery reports caller-supplied parameters that are out of range.
	ErrInvalidQuery = errors.New("discovery: invalid query")
)
