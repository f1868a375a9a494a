package simulate

import (
	"errors"
	"fmt"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/scoring"
	"github.com/okian/ladder/internal/domain/types"
)

// ErrMismatch reports a leaderboard that disagrees with the submitted matches.
var ErrMismatch = errors.New("simulate: leaderboard mismatch")

// expectedPoints folds every submitted result into per-user overall points.
func expectedPoints(matches []model.Match) map[string]int64 {
	agg := make(map[string]model.Stats)
	for _, m := range matches {
		for _, r := range m.Participants {
			if !r.Submitted() {
				continue
			}
			agg[r.UserID] = scoring.ApplyResult(agg[r.UserID], scoring.ScoreResult(r))
		}
	}
	out := make(map[string]int64, len(agg))
	for userID, s := range agg {
		out[userID] = scoring.ComputePoints(s)
	}
	return out
}

// skippedResults counts participant lines left unsubmitted.
func skippedResults(matches []model.Match) int {
	n := 0
	for _, m := range matches {
		for _, r := range m.Participants {
			if !r.Submitted() {
				n++
			}
		}
	}
	return n
}

// verifyLeaderboard checks ranks are contiguous from 1, points never rise
// down the page, and every known user carries the expected points. Users
// outside expected belong to earlier runs and are only checked for order.
func verifyLeaderboard(page types.LeaderboardPage, expected map[string]int64) error {
	if len(page.Leaderboard) == 0 {
		return fmt.Errorf("%w: empty leaderboard", ErrMismatch)
	}
	var errs []error
	for i, row := range page.Leaderboard {
		if want := i + 1; row.Rank != want {
			errs = append(errs, fmt.Errorf("%w: row %d has rank %d", ErrMismatch, want, row.Rank))
		}
		if i > 0 && row.Points > page.Leaderboard[i-1].Points {
			errs = append(errs, fmt.Errorf("%w: row %d has more points than row %d", ErrMismatch, i+1, i))
		}
		if want, ok := expected[row.User.UserID]; ok && row.Points != want {
			errs = append(errs, fmt.Errorf("%w: %s has %d points, want %d", ErrMismatch, row.User.UserID, row.Points, want))
		}
	}
	return errors.Join(errs...)
}

// verifyPosition checks a single user's entry against the expected points.
func verifyPosition(e types.Entry, userID string, expected map[string]int64) error {
	if e.User.UserID != userID {
		return fmt.Errorf("%w: asked for %s, got %s", ErrMismatch, userID, e.User.UserID)
	}
	if e.Rank < 1 {
		return fmt.Errorf("%w: %s is unranked", ErrMismatch, userID)
	}
	if want := expected[userID]; e.Points != want {
		return fmt.Errorf("%w: %s has %d points, want %d", ErrMismatch, userID, e.Points, want)
	}
	return nil
}
