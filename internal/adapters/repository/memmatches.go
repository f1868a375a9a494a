package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/okian/ladder/internal/domain/model"
)

// MemoryMatchStore is a MatchStore kept in process memory.
type MemoryMatchStore struct {
	mu          sync.RWMutex
	matches     map[string]model.Match
	tournaments map[[2]string]model.TournamentResult
}

var _ MatchStore = (*MemoryMatchStore)(nil)

// NewMemoryMatchStore returns an empty match store.
func NewMemoryMatchStore() *MemoryMatchStore {
	return &MemoryMatchStore{
		matches:     make(map[string]model.Match),
		tournaments: make(map[[2]string]model.TournamentResult),
	}
}

func (s *MemoryMatchStore) SaveMatch(_ context.Context, m model.Match) error {
	m.Participants = append([]model.MatchResult(nil), m.Participants...)
	s.mu.Lock()
	s.matches[m.ID] = m
	s.mu.Unlock()
	return nil
}

func (s *MemoryMatchStore) SaveTournamentResult(_ context.Context, r model.TournamentResult) error {
	s.mu.Lock()
	s.tournaments[[2]string{r.TournamentID, r.UserID}] = r
	s.mu.Unlock()
	return nil
}

func (s *MemoryMatchStore) EachMatch(ctx context.Context, fn func(model.Match) error) error {
	s.mu.RLock()
	all := make([]model.Match, 0, len(s.matches))
	for _, m := range s.matches {
		all = append(all, m)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CompletedAt.Equal(all[j].CompletedAt) {
			return all[i].CompletedAt.Before(all[j].CompletedAt)
		}
		return all[i].ID < all[j].ID
	})
	for _, m := range all {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(m); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryMatchStore) EachTournamentResult(ctx context.Context, fn func(model.TournamentResult) error) error {
	s.mu.RLock()
	all := make([]model.TournamentResult, 0, len(s.tournaments))
	for _, r := range s.tournaments {
		all = append(all, r)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].RecordedAt.Equal(all[j].RecordedAt) {
			return all[i].RecordedAt.Before(all[j].RecordedAt)
		}
		if all[i].TournamentID != all[j].TournamentID {
			return all[i].TournamentID < all[j].TournamentID
		}
		return all[i].UserID < all[j].UserID
	})
	for _, r := range all {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

// MemoryPlayerDirectory is a PlayerDirectory kept in process memory.
type MemoryPlayerDirectory struct {
	mu      sync.RWMutex
	players map[string]model.Player
}

var _ PlayerDirectory = (*MemoryPlayerDirectory)(nil)

// NewMemoryPlayerDirectory returns an empty directory.
func NewMemoryPlayerDirectory() *MemoryPlayerDirectory {
	return &MemoryPlayerDirectory{players: make(map[string]model.Player)}
}

func (d *MemoryPlayerDirectory) Players(_ context.Context, ids []string) (map[string]model.Player, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]model.Player, len(ids))
	for _, id := range ids {
		if p, ok := d.players[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (d *MemoryPlayerDirectory) UpsertPlayer(_ context.Context, p model.Player) error {
	d.mu.Lock()
	d.players[p.UserID] = p
	d.mu.Unlock()
	return nil
}
