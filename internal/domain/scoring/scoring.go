// Package scoring converts match results into scores and aggregated stats into points.
// Every function here is pure.
package scoring

import (
	"math"

	"github.com/okian/ladder/internal/domain/model"
)

// Per-match score weights.
const (
	KillScore   = 100
	AssistScore = 50
	DeathScore  = 20
	WinBonus    = 500
)

// Points weights.
const (
	pointsPerWin           = 100
	pointsPerKill          = 10
	pointsPerAssist        = 5
	pointsPerChickenDinner = 500
	pointsPerTop5          = 50
	pointsPerTop10         = 25
	pointsPerDeath         = 2
	averageScoreThreshold  = 500
	averageScoreWeight     = 0.5
	pointsPerTournamentWin = 1000
	prizeWeight            = 0.1
)

// Running mean prior used before any position has been recorded.
const defaultAveragePosition = 50

// Top-N finish thresholds.
const (
	top5  = 5
	top10 = 10
)

// ComputeScore scores one match line. Scores are not clamped and may be negative.
func ComputeScore(kills, deaths, assists, finalPosition int) int64 {
	score := int64(kills)*KillScore + int64(assists)*AssistScore - int64(deaths)*DeathScore
	if finalPosition == 1 {
		score += WinBonus
	}
	return score
}

// ScoreResult returns r with its score recomputed.
func ScoreResult(r model.MatchResult) model.MatchResult {
	r.Score = ComputeScore(r.Kills, r.Deaths, r.Assists, r.FinalPosition)
	return r
}

// ComputePoints maps aggregated stats to a non-negative ranking value.
func ComputePoints(s model.Stats) int64 {
	p := float64(s.MatchesWon*pointsPerWin +
		s.TotalKills*pointsPerKill +
		s.TotalAssists*pointsPerAssist +
		s.ChickenDinners*pointsPerChickenDinner +
		s.Top5Finishes*pointsPerTop5 +
		s.Top10Finishes*pointsPerTop10 -
		s.TotalDeaths*pointsPerDeath)

	p += math.Max(0, s.AverageScore()-averageScoreThreshold) * averageScoreWeight
	p += float64(s.TournamentsWon * pointsPerTournamentWin)
	p += s.TotalPrizeWon * prizeWeight

	// Half rounds up.
	rounded := math.Floor(p + 0.5)
	switch {
	case math.IsNaN(rounded) || rounded < 0:
		return 0
	case rounded >= math.MaxInt64:
		return math.MaxInt64
	}
	return int64(rounded)
}

// ApplyResult folds one scored match line into s.
func ApplyResult(s model.Stats, r model.MatchResult) model.Stats {
	s.TotalMatches++
	if r.Won() {
		s.MatchesWon++
		s.ChickenDinners++
	} else {
		s.MatchesLost++
	}

	s.TotalKills += r.Kills
	s.TotalDeaths += r.Deaths
	s.TotalAssists += r.Assists

	if r.FinalPosition <= top10 {
		s.Top10Finishes++
	}
	if r.FinalPosition <= top5 {
		s.Top5Finishes++
	}

	if s.BestPosition == 0 || r.FinalPosition < s.BestPosition {
		s.BestPosition = r.FinalPosition
	}

	s.TotalScore += r.Score
	if r.Score > s.HighestScore {
		s.HighestScore = r.Score
	}

	prev := s.AveragePosition
	if prev == 0 {
		prev = defaultAveragePosition
	}
	n := float64(s.TotalMatches)
	s.AveragePosition = (prev*(n-1) + float64(r.FinalPosition)) / n

	return s
}

// ApplyTournament folds a final tournament placement into s.
func ApplyTournament(s model.Stats, placement int, prize float64) model.Stats {
	s.TournamentsPlayed++
	if placement == 1 {
		s.TournamentsWon++
	}
	s.TotalPrizeWon += prize
	return s
}
