// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	service "github.com/okian/ladder/internal/app"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// SubmitMatch queues a completed match. Returns service.ErrBackpressure when full.
	SubmitMatch(ctx context.Context, m model.Match) (types.IngestStatus, error)
	RecordTournamentResult(ctx context.Context, r model.TournamentResult) error

	// Privileged maintenance operations.
	Initialize(ctx context.Context) (types.InitializeReport, error)
	UpdateRankings(ctx context.Context, gameType, tournamentID string) (map[string]int, error)
	Cleanup(ctx context.Context, monthsToKeep int) (int64, error)
	UpsertPlayer(ctx context.Context, p model.Player) error
}

// Reader exposes leaderboard reads.
type Reader interface {
	GetLeaderboard(ctx context.Context, q service.LeaderboardQuery) (types.LeaderboardPage, error)
	GetUserPosition(ctx context.Context, userID string, p model.Partition, period model.Period) (types.Entry, error)
	GetTopPerformers(ctx context.Context, q service.TopQuery) ([]types.TopPerformer, error)
	GetStats(ctx context.Context) ([]types.SummaryRow, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	eventsHandler      *EventsHandler
	leaderboardHandler *LeaderboardHandler
	adminHandler       *AdminHandler

	adminToken string
}

// Option configures the Server.
type Option func(*Server)

// WithAdminToken guards privileged routes with a bearer token. Empty leaves them open.
func WithAdminToken(token string) Option {
	return func(s *Server) {
		s.adminToken = token
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, reader Reader, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		eventsHandler:      NewEventsHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(reader),
		adminHandler:       NewAdminHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	admin := func(next http.HandlerFunc) http.HandlerFunc { return RequireAdmin(s.adminToken, next) }

	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/matches/completed", MetricsMiddleware(s.eventsHandler.HandleMatchCompleted, "matches_completed"))

	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/leaderboard/user/", MetricsMiddleware(s.leaderboardHandler.HandleGetUserPosition, "leaderboard_user"))
	mux.HandleFunc("/leaderboard/top-performers", MetricsMiddleware(s.leaderboardHandler.HandleGetTopPerformers, "leaderboard_top"))
	mux.HandleFunc("/leaderboard/stats", MetricsMiddleware(s.leaderboardHandler.HandleGetStats, "leaderboard_stats"))

	mux.HandleFunc("/leaderboard/initialize", MetricsMiddleware(admin(s.adminHandler.HandleInitialize), "leaderboard_initialize"))
	mux.HandleFunc("/leaderboard/update-rankings", MetricsMiddleware(admin(s.adminHandler.HandleUpdateRankings), "leaderboard_update_rankings"))
	mux.HandleFunc("/leaderboard/cleanup", MetricsMiddleware(admin(s.adminHandler.HandleCleanup), "leaderboard_cleanup"))
	mux.HandleFunc("/leaderboard/tournament-results", MetricsMiddleware(admin(s.adminHandler.HandleTournamentResult), "leaderboard_tournament_results"))
	mux.HandleFunc("/players/", MetricsMiddleware(admin(s.adminHandler.HandleUpsertPlayer), "players"))
}

type ackResponse struct {
	Status    types.IngestStatus `json:"status"`
	Duplicate bool               `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps service and validation kinds to a status and code.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	status, code := classify(err)
	writeError(w, status, code, Wrap(op, err))
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, model.ErrInvalidGameType),
		errors.Is(err, model.ErrInvalidLeaderboardType),
		errors.Is(err, model.ErrInvalidMatch),
		errors.Is(err, model.ErrInvalidTournament),
		errors.Is(err, service.ErrInvalidQuery):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	}
	return http.StatusInternalServerError, "internal_error"
}

// decode reads a JSON body into dst.
func decode(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	return json.NewDecoder(r.Body).Decode(dst)
}
