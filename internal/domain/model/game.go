// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
)

// GameType identifies the game a leaderboard belongs to.
type GameType string

// Supported games.
const (
	GameBGMI GameType = "bgmi"
	GameCS2  GameType = "cs2"
)

// GameTypes lists the supported games in display order.
func GameTypes() []GameType { return []GameType{GameBGMI, GameCS2} }

// Valid reports whether g is a supported game.
func (g GameType) Valid() bool {
	switch g {
	case GameBGMI, GameCS2:
		return true
	}
	return false
}

// ParseGameType normalizes and validates a game name.
func ParseGameType(s string) (GameType, error) {
	g := GameType(strings.ToLower(strings.TrimSpace(s)))
	if !g.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidGameType, s)
	}
	return g, nil
}

// LeaderboardType is the time scope of a leaderboard.
type LeaderboardType string

// Leaderboard scopes.
const (
	Overall    LeaderboardType = "overall"
	Monthly    LeaderboardType = "monthly"
	Weekly     LeaderboardType = "weekly"
	Tournament LeaderboardType = "tournament"
)

// LeaderboardTypes lists every scope.
func LeaderboardTypes() []LeaderboardType {
	return []LeaderboardType{Overall, Monthly, Weekly, Tournament}
}

// Valid reports whether t is a known scope.
func (t LeaderboardType) Valid() bool {
	switch t {
	case Overall, Monthly, Weekly, Tournament:
		return true
	}
	return false
}

// Periodic reports whether entries of this scope are bucketed by calendar period.
func (t LeaderboardType) Periodic() bool { return t == Monthly || t == Weekly }

// ParseLeaderboardType normalizes a scope name; empty means overall.
func ParseLeaderboardType(s string) (LeaderboardType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Overall, nil
	}
	t := LeaderboardType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidLeaderboardType, s)
	}
	return t, nil
}
