// Package repository defines the leaderboard persistence contracts and the in-memory store.
package repository

import (
	"context"
	"time"

	"github.com/okian/ladder/internal/domain/model"
)

// MutateFunc changes an entry in place. It must not touch the key or rank fields.
type MutateFunc func(e *model.Entry)

// Store provides read/write access to leaderboard entries.
type Store interface {
	// Mutate finds or creates the entry for key and applies fn atomically.
	// A non-empty matchID is recorded on the entry; if it was recorded before,
	// fn is skipped and applied is false.
	Mutate(ctx context.Context, key model.Key, matchID string, fn MutateFunc) (e model.Entry, applied bool, err error)

	// Get returns the entry for key or ErrNotFound.
	Get(ctx context.Context, key model.Key) (model.Entry, error)

	// ListView returns the active entries of a view in insertion order.
	ListView(ctx context.Context, view model.View) ([]model.Entry, error)

	// UpdateRanks writes rank fields for many entries in one operation.
	UpdateRanks(ctx context.Context, updates []model.RankUpdate) error

	// Page returns active entries ordered by points desc, total score desc and
	// insertion order, plus the total number of active entries in the view.
	Page(ctx context.Context, view model.View, offset, limit int) ([]model.Entry, int, error)

	// Summary groups active entries by game and leaderboard type.
	Summary(ctx context.Context) ([]ViewSummary, error)

	// PurgeBefore deletes entries of the given types last updated before cutoff.
	PurgeBefore(ctx context.Context, types []model.LeaderboardType, cutoff time.Time) (int64, error)

	// Reset deletes every entry.
	Reset(ctx context.Context) error

	Close() error
}

// ViewSummary is one row of Store.Summary.
type ViewSummary struct {
	GameType        model.GameType
	LeaderboardType model.LeaderboardType
	Entries         int
	TotalPoints     int64
	MaxPoints       int64
	TotalMatches    int64
}

// MatchStore keeps finalized matches and tournament results so the
// leaderboards can be rebuilt from scratch.
type MatchStore interface {
	// SaveMatch stores m, replacing a previous match with the same id.
	SaveMatch(ctx context.Context, m model.Match) error
	// SaveTournamentResult stores r, replacing a previous result for the same tournament and user.
	SaveTournamentResult(ctx context.Context, r model.TournamentResult) error
	// EachMatch calls fn for every stored match ordered by completion time.
	EachMatch(ctx context.Context, fn func(model.Match) error) error
	// EachTournamentResult calls fn for every stored result ordered by recording time.
	EachTournamentResult(ctx context.Context, fn func(model.TournamentResult) error) error
}

// PlayerDirectory resolves display fields for leaderboard rows.
type PlayerDirectory interface {
	// Players returns the known players among ids. Unknown ids are absent from the map.
	Players(ctx context.Context, ids []string) (map[string]model.Player, error)
	UpsertPlayer(ctx context.Context, p model.Player) error
}
