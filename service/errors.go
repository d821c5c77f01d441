package service

import "errors"

// Error taxonomy. Validation errors are rejected before any mutation; state
// inconsistencies trigger a reconciliation pass forcing a safe state.
var (
	ErrValidation         = errors.New("validation error")
	ErrStateInconsistency = errors.New("state inconsistency")
)
