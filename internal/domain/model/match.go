package model

import (
	"fmt"
	"time"
)

// MatchResult is one participant's line in a finished match.
type MatchResult struct {
	UserID        string `json:"userId"`
	Kills         int    `json:"kills"`
	Deaths        int    `json:"deaths"`
	Assists       int    `json:"assists"`
	FinalPosition int    `json:"finalPosition"`
	// Score is derived; ingestion overwrites whatever the client sent.
	Score             int64      `json:"score"`
	ResultSubmittedAt *time.Time `json:"resultSubmittedAt,omitempty"`
}

// Submitted reports whether the result is final and should be aggregated.
func (r MatchResult) Submitted() bool { return r.ResultSubmittedAt != nil }

// Won reports a first place finish.
func (r MatchResult) Won() bool { return r.FinalPosition == 1 }

// Match is a completed match with its participant results.
type Match struct {
	ID           string        `json:"matchId"`
	GameType     GameType      `json:"gameType"`
	TournamentID string        `json:"tournamentId,omitempty"`
	CompletedAt  time.Time     `json:"completedAt"`
	Participants []MatchResult `json:"participants"`
}

// Validate rejects matches that cannot be aggregated.
func (m Match) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("%w: matchId is required", ErrInvalidMatch)
	}
	if !m.GameType.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidGameType, m.GameType)
	}
	if len(m.Participants) == 0 {
		return fmt.Errorf("%w: no participants", ErrInvalidMatch)
	}
	seen := make(map[string]struct{}, len(m.Participants))
	for i, p := range m.Participants {
		if p.UserID == "" {
			return fmt.Errorf("%w: participant %d has no userId", ErrInvalidMatch, i)
		}
		if _, dup := seen[p.UserID]; dup {
			return fmt.Errorf("%w: duplicate participant %s", ErrInvalidMatch, p.UserID)
		}
		seen[p.UserID] = struct{}{}
		if p.Kills < 0 || p.Deaths < 0 || p.Assists < 0 || p.FinalPosition < 0 {
			return fmt.Errorf("%w: participant %s has negative counters", ErrInvalidMatch, p.UserID)
		}
		if p.Submitted() && p.FinalPosition < 1 {
			return fmt.Errorf("%w: participant %s submitted without a final position", ErrInvalidMatch, p.UserID)
		}
	}
	return nil
}

// TournamentResult is a player's final placement in a tournament.
type TournamentResult struct {
	TournamentID string    `json:"tournamentId"`
	UserID       string    `json:"userId"`
	GameType     GameType  `json:"gameType"`
	Placement    int       `json:"placement"`
	Prize        float64   `json:"prize"`
	RecordedAt   time.Time `json:"recordedAt"`
}

// Validate rejects incomplete tournament results.
func (r TournamentResult) Validate() error {
	switch {
	case r.TournamentID == "":
		return fmt.Errorf("%w: tournamentId is required", ErrInvalidTournament)
	case r.UserID == "":
		return fmt.Errorf("%w: userId is required", ErrInvalidTournament)
	case !r.GameType.Valid():
		return fmt.Errorf("%w: %q", ErrInvalidGameType, r.GameType)
	case r.Placement < 1:
		return fmt.Errorf("%w: placement must be positive", ErrInvalidTournament)
	case r.Prize < 0:
		return fmt.Errorf("%w: prize must not be negative", ErrInvalidTournament)
	}
	return nil
}
