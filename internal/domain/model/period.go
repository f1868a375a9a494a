package model

import (
	"fmt"
	"time"
)

// Period identifies a calendar bucket. Monthly views use Year and Month,
// weekly views use Year and Week. Zero fields are absent.
type Period struct {
	Year  int `json:"year,omitempty"`
	Month int `json:"month,omitempty"`
	Week  int `json:"week,omitempty"`
}

// IsZero reports whether no period part is set.
func (p Period) IsZero() bool { return p == Period{} }

// WeekOfYear numbers weeks starting on Sunday, with the week containing
// January 1st as week 1: ceil((daysSinceJan1 + weekday(Jan1) + 1) / 7).
func WeekOfYear(t time.Time) int {
	t = t.UTC()
	jan1 := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	days := t.YearDay() - 1
	n := days + int(jan1.Weekday()) + 1
	return (n + 6) / 7
}

// PeriodFor returns the bucket of t for the given scope.
func PeriodFor(t LeaderboardType, at time.Time) Period {
	at = at.UTC()
	switch t {
	case Monthly:
		return Period{Year: at.Year(), Month: int(at.Month())}
	case Weekly:
		return Period{Year: at.Year(), Week: WeekOfYear(at)}
	}
	return Period{}
}

// Partition is the ranking scope before period bucketing.
type Partition struct {
	GameType        GameType        `json:"gameType"`
	LeaderboardType LeaderboardType `json:"leaderboardType"`
	TournamentID    string          `json:"tournamentId,omitempty"`
}

// Validate checks the game, the scope and the tournament id requirement.
func (p Partition) Validate() error {
	if !p.GameType.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidGameType, p.GameType)
	}
	if !p.LeaderboardType.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidLeaderboardType, p.LeaderboardType)
	}
	if p.LeaderboardType == Tournament && p.TournamentID == "" {
		return fmt.Errorf("%w: tournament leaderboard requires tournamentId", ErrInvalidLeaderboardType)
	}
	return nil
}

// View is a partition narrowed to one period. Entries of one view are ranked together.
type View struct {
	Partition
	Period Period `json:"period"`
}

// ViewAt builds the view of p that contains the instant at. Tournament ids
// only survive on tournament views.
func ViewAt(p Partition, at time.Time) View {
	if p.LeaderboardType != Tournament {
		p.TournamentID = ""
	}
	return View{Partition: p, Period: PeriodFor(p.LeaderboardType, at)}
}

// String renders a stable identifier, used for locks and cache tags.
func (v View) String() string {
	return fmt.Sprintf("%s:%s:%s:%d:%d:%d", v.GameType, v.LeaderboardType, v.TournamentID,
		v.Period.Year, v.Period.Month, v.Period.Week)
}

// Key identifies exactly one leaderboard entry.
type Key struct {
	UserID string `json:"userId"`
	View
}

// String renders a stable identifier.
func (k Key) String() string { return k.View.String() + ":" + k.UserID }
