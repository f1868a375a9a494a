// Package types contains the read projections shared by the service and the HTTP layer.
package types

import (
	"time"

	"github.com/okian/ladder/internal/domain/model"
)

// StatsView is model.Stats with the derived ratios filled in.
type StatsView struct {
	model.Stats
	KDRatio       float64 `json:"kdRatio"`
	WinRate       float64 `json:"winRate"`
	AverageKills  float64 `json:"averageKills"`
	AverageDeaths float64 `json:"averageDeaths"`
	AverageScore  float64 `json:"averageScore"`
}

// NewStatsView derives the ratios from s.
func NewStatsView(s model.Stats) StatsView {
	return StatsView{
		Stats:         s,
		KDRatio:       s.KDRatio(),
		WinRate:       s.WinRate(),
		AverageKills:  s.AverageKills(),
		AverageDeaths: s.AverageDeaths(),
		AverageScore:  s.AverageScore(),
	}
}

// Entry is a leaderboard row as returned to clients.
type Entry struct {
	Rank            int                   `json:"rank"`
	PreviousRank    int                   `json:"previousRank"`
	RankChange      model.RankChange      `json:"rankChange"`
	User            model.Player          `json:"user"`
	GameType        model.GameType        `json:"gameType"`
	LeaderboardType model.LeaderboardType `json:"leaderboardType"`
	TournamentID    string                `json:"tournamentId,omitempty"`
	Period          *model.Period         `json:"period,omitempty"`
	Points          int64                 `json:"points"`
	Stats           StatsView             `json:"stats"`
	LastUpdated     time.Time             `json:"lastUpdated"`
}

// NewEntry projects an aggregate and its player into a row. Unknown players keep their id.
func NewEntry(e model.Entry, p model.Player) Entry {
	if p.UserID == "" {
		p.UserID = e.UserID
	}
	out := Entry{
		Rank:            e.Rank,
		PreviousRank:    e.PreviousRank,
		RankChange:      e.RankChange,
		User:            p,
		GameType:        e.GameType,
		LeaderboardType: e.LeaderboardType,
		TournamentID:    e.TournamentID,
		Points:          e.Points,
		Stats:           NewStatsView(e.Stats),
		LastUpdated:     e.LastUpdated,
	}
	if !e.Period.IsZero() {
		period := e.Period
		out.Period = &period
	}
	return out
}

// Pagination describes one page of a leaderboard.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// NewPagination computes the derived page fields.
func NewPagination(page, limit, total int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: pages,
		HasNext:    page < pages,
		HasPrev:    page > 1,
	}
}

// LeaderboardPage is the response of a leaderboard read.
type LeaderboardPage struct {
	Leaderboard []Entry    `json:"leaderboard"`
	Pagination  Pagination `json:"pagination"`
}

// TopPerformer is the compact projection used by the top performers list.
type TopPerformer struct {
	Rank       int              `json:"rank"`
	User       model.Player     `json:"user"`
	Points     int64            `json:"points"`
	Stats      StatsView        `json:"stats"`
	RankChange model.RankChange `json:"rankChange"`
}

// SummaryRow aggregates active entries of one game and scope.
type SummaryRow struct {
	GameType        model.GameType        `json:"gameType"`
	LeaderboardType model.LeaderboardType `json:"leaderboardType"`
	Entries         int                   `json:"totalPlayers"`
	TotalPoints     int64                 `json:"totalPoints"`
	AveragePoints   float64               `json:"averagePoints"`
	MaxPoints       int64                 `json:"maxPoints"`
	TotalMatches    int64                 `json:"totalMatches"`
}

// ProcessReport summarizes one processed match.
type ProcessReport struct {
	MatchID      string         `json:"matchId"`
	Participants int            `json:"participants"`
	Skipped      int            `json:"skipped"`
	Updated      int            `json:"updated"`
	Duplicates   int            `json:"duplicates"`
	Failed       int            `json:"failed"`
	Reranked     map[string]int `json:"reranked"`
}

// InitializeReport summarizes a full rebuild.
type InitializeReport struct {
	Matches     int `json:"matches"`
	Tournaments int `json:"tournaments"`
	Failed      int `json:"failed"`
	Views       int `json:"views"`
}

// IngestStatus is the outcome of submitting a completed match.
type IngestStatus string

// Ingest outcomes.
const (
	IngestAccepted  IngestStatus = "accepted"
	IngestDuplicate IngestStatus = "duplicate"
)
