package sentinel

import "errors"

// Sentinel dependency errors. Stores should return these (optionally wrapped)
// so services can translate them into domain errors exactly once. A store
// failure that is not one of these is infrastructure trouble and must be
// treated as a failed check, never as permission granted.
var (
	ErrNotFound     = errors.New("not found")
	ErrExpired      = errors.New("expired")
	ErrRevoked      = errors.New("revoked")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
