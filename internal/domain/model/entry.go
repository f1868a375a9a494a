package model

import "time"

// Stats holds the counters aggregated for one entry. Ratios and averages are
// derived through methods and never stored.
type Stats struct {
	TotalMatches      int     `json:"totalMatches"`
	MatchesWon        int     `json:"matchesWon"`
	MatchesLost       int     `json:"matchesLost"`
	TotalKills        int     `json:"totalKills"`
	TotalDeaths       int     `json:"totalDeaths"`
	TotalAssists      int     `json:"totalAssists"`
	BestPosition      int     `json:"bestPosition"`
	AveragePosition   float64 `json:"averagePosition"`
	Top5Finishes      int     `json:"top5Finishes"`
	Top10Finishes     int     `json:"top10Finishes"`
	ChickenDinners    int     `json:"chickenDinners"`
	TotalScore        int64   `json:"totalScore"`
	HighestScore      int64   `json:"highestScore"`
	TournamentsPlayed int     `json:"tournamentsPlayed"`
	TournamentsWon    int     `json:"tournamentsWon"`
	TotalPrizeWon     float64 `json:"totalPrizeWon"`
}

// KDRatio is kills per death; with no deaths it is the kill count.
func (s Stats) KDRatio() float64 {
	if s.TotalDeaths == 0 {
		return float64(s.TotalKills)
	}
	return float64(s.TotalKills) / float64(s.TotalDeaths)
}

// WinRate is the percentage of matches won.
func (s Stats) WinRate() float64 {
	if s.TotalMatches == 0 {
		return 0
	}
	return float64(s.MatchesWon) / float64(s.TotalMatches) * 100
}

// AverageKills per match.
func (s Stats) AverageKills() float64 { return s.perMatch(float64(s.TotalKills)) }

// AverageDeaths per match.
func (s Stats) AverageDeaths() float64 { return s.perMatch(float64(s.TotalDeaths)) }

// AverageScore per match.
func (s Stats) AverageScore() float64 { return s.perMatch(float64(s.TotalScore)) }

func (s Stats) perMatch(v float64) float64 {
	if s.TotalMatches == 0 {
		return 0
	}
	return v / float64(s.TotalMatches)
}

// RankChange describes movement since the previous recalculation.
type RankChange string

// Rank movements.
const (
	RankNew  RankChange = "new"
	RankUp   RankChange = "up"
	RankDown RankChange = "down"
	RankSame RankChange = "same"
)

// Entry is the aggregate for one key. Rank fields belong to the ranking
// recalculation; everything else belongs to aggregation.
type Entry struct {
	Key
	Stats        Stats      `json:"stats"`
	Points       int64      `json:"points"`
	Rank         int        `json:"rank"`
	PreviousRank int        `json:"previousRank"`
	RankChange   RankChange `json:"rankChange"`
	LastUpdated  time.Time  `json:"lastUpdated"`
	IsActive     bool       `json:"isActive"`
	CreatedAt    time.Time  `json:"createdAt"`
	// Seq orders entries by creation within a store.
	Seq int64 `json:"-"`
}

// NewEntry returns an unranked active entry with zero stats.
func NewEntry(k Key, now time.Time) Entry {
	return Entry{
		Key:         k,
		RankChange:  RankNew,
		IsActive:    true,
		LastUpdated: now,
		CreatedAt:   now,
	}
}

// RankUpdate is one row of a bulk rank write.
type RankUpdate struct {
	Key          Key
	Rank         int
	PreviousRank int
	RankChange   RankChange
}
