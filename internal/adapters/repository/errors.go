package repository

import "errors"

// Sentinel errors for round stores.
var (
	ErrClosed       = errors.New("round store closed")
	ErrInvalidRound = errors.New("invalid round")
	ErrDuplicateID  = errors.New("round id already saved")
)
