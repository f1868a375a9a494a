package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound     = errors.New("leaderboard entry not found")
	ErrInvalidLimit = errors.New("invalid page limit")
	ErrClosed       = errors.New("store closed")
)
