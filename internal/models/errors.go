package models

import "errors"

// Error taxonomy shared by the gateway and the claim lifecycle.
var (
	// ErrNotFound indicates a referenced contract, claim, attachment or settings record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed input, such as percent complete outside [0,100].
	ErrValidation = errors.New("validation failed")
	// ErrPersistence indicates the underlying storage operation failed.
	ErrPersistence = errors.New("persistence failure")
)
