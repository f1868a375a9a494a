package repository

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/pkg/metrics"
)

const backendMemory = "memory"

type record struct {
	entry   model.Entry
	applied map[string]struct{}
}

func (r *record) rankKey() rankKey {
	return rankKey{points: r.entry.Points, totalScore: r.entry.Stats.TotalScore, seq: r.entry.Seq}
}

// viewState holds every entry of one view and a treap over the active ones.
type viewState struct {
	byUser map[string]*record
	root   *node
}

// MemoryStore is a Store kept entirely in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	views  map[model.View]*viewState
	seq    int64
	count  int
	now    func() time.Time
	seed   uint64
	rng    *rand.Rand
	closed bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		views: make(map[model.View]*viewState),
		now:   time.Now,
		seed:  uint64(time.Now().UnixNano()),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rng = rand.New(rand.NewPCG(s.seed, s.seed^0x9e3779b97f4a7c15))
	metrics.UpdateStoreEntries(backendMemory, 0)
	return s
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(backendMemory, op, time.Since(start))
}

// Mutate implements Store.Mutate in O(log n) expected time.
func (s *MemoryStore) Mutate(ctx context.Context, key model.Key, matchID string, fn MutateFunc) (model.Entry, bool, error) {
	defer observe("mutate", time.Now())
	if err := ctx.Err(); err != nil {
		return model.Entry{}, false, fmt.Errorf("mutate %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.Entry{}, false, ErrClosed
	}

	vs := s.views[key.View]
	if vs == nil {
		vs = &viewState{byUser: make(map[string]*record)}
		s.views[key.View] = vs
	}

	rec := vs.byUser[key.UserID]
	if rec == nil {
		s.seq++
		s.count++
		rec = &record{entry: model.NewEntry(key, s.now()), applied: make(map[string]struct{})}
		rec.entry.Seq = s.seq
		vs.byUser[key.UserID] = rec
		metrics.UpdateStoreEntries(backendMemory, s.count)
	} else if matchID != "" {
		if _, done := rec.applied[matchID]; done {
			return rec.entry, false, nil
		}
	}

	if rec.entry.IsActive {
		vs.root = deleteNode(vs.root, rec.rankKey())
	}

	next := rec.entry
	fn(&next)
	next.Key = rec.entry.Key
	next.Seq = rec.entry.Seq
	next.CreatedAt = rec.entry.CreatedAt
	next.Rank, next.PreviousRank, next.RankChange = rec.entry.Rank, rec.entry.PreviousRank, rec.entry.RankChange
	rec.entry = next

	if matchID != "" {
		rec.applied[matchID] = struct{}{}
	}
	if rec.entry.IsActive {
		vs.root = insert(vs.root, rec.rankKey(), key.UserID, s.rng.Uint64())
	}
	return rec.entry, true, nil
}

// Get returns the entry for key.
func (s *MemoryStore) Get(_ context.Context, key model.Key) (model.Entry, error) {
	defer observe("get", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	if vs := s.views[key.View]; vs != nil {
		if rec := vs.byUser[key.UserID]; rec != nil {
			return rec.entry, nil
		}
	}
	metrics.RecordErrorByComponent("repository", "not_found")
	return model.Entry{}, ErrNotFound
}

// ListView returns active entries of view in insertion order.
func (s *MemoryStore) ListView(_ context.Context, view model.View) ([]model.Entry, error) {
	defer observe("list_view", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	vs := s.views[view]
	if vs == nil {
		return nil, nil
	}
	out := make([]model.Entry, 0, len(vs.byUser))
	for _, rec := range vs.byUser {
		if rec.entry.IsActive {
			out = append(out, rec.entry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

// UpdateRanks applies all rank updates under one lock. Entries purged in the
// meantime are skipped.
func (s *MemoryStore) UpdateRanks(_ context.Context, updates []model.RankUpdate) error {
	defer observe("update_ranks", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range updates {
		vs := s.views[u.Key.View]
		if vs == nil {
			continue
		}
		rec := vs.byUser[u.Key.UserID]
		if rec == nil {
			continue
		}
		rec.entry.Rank = u.Rank
		rec.entry.PreviousRank = u.PreviousRank
		rec.entry.RankChange = u.RankChange
	}
	return nil
}

// Page returns one ordered page of view.
func (s *MemoryStore) Page(_ context.Context, view model.View, offset, limit int) ([]model.Entry, int, error) {
	defer observe("page", time.Now())
	if limit < 1 || offset < 0 {
		return nil, 0, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	vs := s.views[view]
	if vs == nil {
		return nil, 0, nil
	}
	users := make([]string, 0, limit)
	collectRange(vs.root, offset, limit, &users)

	out := make([]model.Entry, 0, len(users))
	for _, u := range users {
		out = append(out, vs.byUser[u].entry)
	}
	return out, nsize(vs.root), nil
}

// Summary groups active entries by game and type.
func (s *MemoryStore) Summary(_ context.Context) ([]ViewSummary, error) {
	defer observe("summary", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	type group struct {
		game model.GameType
		lt   model.LeaderboardType
	}
	rows := make(map[group]*ViewSummary)
	for view, vs := range s.views {
		g := group{view.GameType, view.LeaderboardType}
		for _, rec := range vs.byUser {
			if !rec.entry.IsActive {
				continue
			}
			row := rows[g]
			if row == nil {
				row = &ViewSummary{GameType: g.game, LeaderboardType: g.lt}
				rows[g] = row
			}
			row.Entries++
			row.TotalPoints += rec.entry.Points
			row.TotalMatches += int64(rec.entry.Stats.TotalMatches)
			if rec.entry.Points > row.MaxPoints {
				row.MaxPoints = rec.entry.Points
			}
		}
	}

	out := make([]ViewSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].GameType != out[j].GameType {
			return out[i].GameType < out[j].GameType
		}
		return out[i].LeaderboardType < out[j].LeaderboardType
	})
	return out, nil
}

// PurgeBefore deletes stale entries of the given types.
func (s *MemoryStore) PurgeBefore(_ context.Context, types []model.LeaderboardType, cutoff time.Time) (int64, error) {
	defer observe("purge", time.Now())
	want := make(map[model.LeaderboardType]bool, len(types))
	for _, t := range types {
		want[t] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for view, vs := range s.views {
		if !want[view.LeaderboardType] {
			continue
		}
		for user, rec := range vs.byUser {
			if !rec.entry.LastUpdated.Before(cutoff) {
				continue
			}
			if rec.entry.IsActive {
				vs.root = deleteNode(vs.root, rec.rankKey())
			}
			delete(vs.byUser, user)
			deleted++
		}
		if len(vs.byUser) == 0 {
			delete(s.views, view)
		}
	}
	s.count -= int(deleted)
	metrics.UpdateStoreEntries(backendMemory, s.count)
	return deleted, nil
}

// Reset deletes every entry.
func (s *MemoryStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views = make(map[model.View]*viewState)
	s.count = 0
	metrics.UpdateStoreEntries(backendMemory, 0)
	return nil
}

// Count returns the number of stored entries.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Close rejects further writes.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
