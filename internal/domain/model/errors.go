package model

import "errors"

// Sentinel error kinds for validation failures.
var (
	ErrInvalidGameType        = errors.New("invalid game type")
	ErrInvalidLeaderboardType = errors.New("invalid leaderboard type")
	ErrInvalidMatch           = errors.New("invalid match")
	ErrInvalidTournament      = errors.New("invalid tournament result")
)
