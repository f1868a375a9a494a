package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/okian/ladder/internal/domain/model"
)

// intParam reads an optional non-negative integer query parameter.
func intParam(q url.Values, name string) (int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", ErrBadRequest, name)
	}
	return n, nil
}

// partitionParam reads gameType, leaderboardType and tournamentId. gameType is
// required and leaderboardType defaults to overall.
func partitionParam(q url.Values) (model.Partition, error) {
	if strings.TrimSpace(q.Get("gameType")) == "" {
		return model.Partition{}, fmt.Errorf("%w: gameType is required", ErrBadRequest)
	}
	game, err := model.ParseGameType(q.Get("gameType"))
	if err != nil {
		return model.Partition{}, err
	}
	lt, err := model.ParseLeaderboardType(q.Get("leaderboardType"))
	if err != nil {
		return model.Partition{}, err
	}
	return model.Partition{
		GameType:        game,
		LeaderboardType: lt,
		TournamentID:    strings.TrimSpace(q.Get("tournamentId")),
	}, nil
}

// periodParam reads year, month and week.
func periodParam(q url.Values) (model.Period, error) {
	var (
		p   model.Period
		err error
	)
	if p.Year, err = intParam(q, "year"); err != nil {
		return p, err
	}
	if p.Month, err = intParam(q, "month"); err != nil {
		return p, err
	}
	if p.Week, err = intParam(q, "week"); err != nil {
		return p, err
	}
	return p, nil
}

// pathParam returns the single path segment after prefix.
func pathParam(r *http.Request, prefix string) (string, bool) {
	v := strings.TrimPrefix(r.URL.Path, prefix)
	if v == "" || v == r.URL.Path || strings.Contains(v, "/") {
		return "", false
	}
	return v, true
}
