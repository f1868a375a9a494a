package api

import (
	"fmt"
	"net/http"

	service "github.com/okian/ladder/internal/app"
)

// LeaderboardHandler handles leaderboard reads.
type LeaderboardHandler struct {
	reader Reader
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(reader Reader) *LeaderboardHandler {
	return &LeaderboardHandler{reader: reader}
}

// HandleGetLeaderboard handles GET /leaderboard?gameType&leaderboardType&tournamentId&year&month&week&page&limit.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	p, err := partitionParam(q)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	period, err := periodParam(q)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	page, err := intParam(q, "page")
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	limit, err := intParam(q, "limit")
	if err != nil {
		writeServiceError(w, op, err)
		return
	}

	out, err := h.reader.GetLeaderboard(r.Context(), service.LeaderboardQuery{
		Partition: p,
		Period:    period,
		Page:      page,
		Limit:     limit,
	})
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGetUserPosition handles GET /leaderboard/user/{userId}.
func (h *LeaderboardHandler) HandleGetUserPosition(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_user_position"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID, ok := pathParam(r, "/leaderboard/user/")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	q := r.URL.Query()
	p, err := partitionParam(q)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	period, err := periodParam(q)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}

	entry, err := h.reader.GetUserPosition(r.Context(), userID, p, period)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// HandleGetTopPerformers handles GET /leaderboard/top-performers.
func (h *LeaderboardHandler) HandleGetTopPerformers(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_top_performers"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	p, err := partitionParam(q)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	limit, err := intParam(q, "limit")
	if err != nil {
		writeServiceError(w, op, err)
		return
	}

	top, err := h.reader.GetTopPerformers(r.Context(), service.TopQuery{Partition: p, Limit: limit})
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, top)
}

// HandleGetStats handles GET /leaderboard/stats.
func (h *LeaderboardHandler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard_stats"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	rows, err := h.reader.GetStats(r.Context())
	if err != nil {
		writeServiceError(w, op, fmt.Errorf("summary: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
