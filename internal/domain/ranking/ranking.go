// Package ranking orders the entries of one view and assigns dense ranks.
package ranking

import (
	"sort"

	"github.com/okian/ladder/internal/domain/model"
)

// Less orders entries by points desc, then total score desc. Entries that
// compare equal keep their relative order when sorted stably.
func Less(a, b model.Entry) bool {
	if a.Points != b.Points {
		return a.Points > b.Points
	}
	return a.Stats.TotalScore > b.Stats.TotalScore
}

// Change classifies movement from prev to next. A previous rank of zero means
// the entry was never ranked.
func Change(prev, next int) model.RankChange {
	switch {
	case prev == 0:
		return model.RankNew
	case next < prev:
		return model.RankUp
	case next > prev:
		return model.RankDown
	}
	return model.RankSame
}

// Assign sorts entries in place and returns one rank update per entry, ranks
// starting at 1 without gaps. entries must be in insertion order so that full
// ties resolve to the earlier entry.
func Assign(entries []model.Entry) []model.RankUpdate {
	sort.SliceStable(entries, func(i, j int) bool { return Less(entries[i], entries[j]) })

	updates := make([]model.RankUpdate, len(entries))
	for i := range entries {
		next := i + 1
		prev := entries[i].Rank
		updates[i] = model.RankUpdate{
			Key:          entries[i].Key,
			Rank:         next,
			PreviousRank: prev,
			RankChange:   Change(prev, next),
		}
		entries[i].PreviousRank = prev
		entries[i].Rank = next
		entries[i].RankChange = updates[i].RankChange
	}
	return updates
}
