package api

import (
	"net/http"
	"strings"

	"github.com/okian/ladder/internal/domain/model"
)

// AdminHandler handles privileged maintenance routes.
type AdminHandler struct {
	deps Dependencies
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(deps Dependencies) *AdminHandler {
	return &AdminHandler{deps: deps}
}

type updateRankingsRequest struct {
	GameType     string `json:"gameType"`
	TournamentID string `json:"tournamentId,omitempty"`
}

type updateRankingsResponse struct {
	Updated map[string]int `json:"updated"`
}

type cleanupResponse struct {
	Deleted      int64 `json:"deleted"`
	MonthsToKeep int   `json:"monthsToKeep,omitempty"`
}

type playerRequest struct {
	Username  string `json:"username"`
	AvatarURL string `json:"avatar"`
}

// HandleInitialize handles POST /leaderboard/initialize.
func (h *AdminHandler) HandleInitialize(w http.ResponseWriter, r *http.Request) {
	const op = "api.initialize"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	report, err := h.deps.Initialize(r.Context())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleUpdateRankings handles POST /leaderboard/update-rankings.
func (h *AdminHandler) HandleUpdateRankings(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_rankings"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req updateRankingsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	counts, err := h.deps.UpdateRankings(r.Context(), strings.TrimSpace(req.GameType), strings.TrimSpace(req.TournamentID))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, updateRankingsResponse{Updated: counts})
}

// HandleCleanup handles DELETE /leaderboard/cleanup?monthsToKeep=N.
func (h *AdminHandler) HandleCleanup(w http.ResponseWriter, r *http.Request) {
	const op = "api.cleanup"
	if r.Method != http.MethodDelete {
		http.NotFound(w, r)
		return
	}
	months, err := intParam(r.URL.Query(), "monthsToKeep")
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	deleted, err := h.deps.Cleanup(r.Context(), months)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, cleanupResponse{Deleted: deleted, MonthsToKeep: months})
}

// HandleTournamentResult handles POST /leaderboard/tournament-results.
func (h *AdminHandler) HandleTournamentResult(w http.ResponseWriter, r *http.Request) {
	const op = "api.tournament_result"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var res model.TournamentResult
	if err := decode(r, &res); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.deps.RecordTournamentResult(r.Context(), res); err != nil {
		writeServiceError(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleUpsertPlayer handles PUT /players/{userId}.
func (h *AdminHandler) HandleUpsertPlayer(w http.ResponseWriter, r *http.Request) {
	const op = "api.upsert_player"
	if r.Method != http.MethodPut {
		http.NotFound(w, r)
		return
	}
	userID, ok := pathParam(r, "/players/")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	var req playerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	p := model.Player{UserID: userID, Username: strings.TrimSpace(req.Username), AvatarURL: strings.TrimSpace(req.AvatarURL)}
	if err := h.deps.UpsertPlayer(r.Context(), p); err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
