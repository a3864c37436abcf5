package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and clients return these
// (optionally wrapped) so services can translate them into domain errors.
//
//   - ErrNotFound: entity does not exist in the store or the directory
//   - ErrConflict: entity already exists
//   - ErrInvalidState: entity is in the wrong state for the operation
//   - ErrUnavailable: dependency temporarily unavailable (circuit open, cache down)
//   - ErrCacheMiss: no cached value for the key
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
	ErrCacheMiss    = errors.New("cache miss")
)
