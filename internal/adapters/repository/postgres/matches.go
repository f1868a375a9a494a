package postgres

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"

	"github.com/okian/ladder/internal/adapters/repository"
	"github.com/okian/ladder/internal/domain/model"
)

// MatchStore keeps completed matches and tournament results for replay.
type MatchStore struct {
	db *DB
}

var _ repository.MatchStore = (*MatchStore)(nil)

// NewMatchStore returns a match store over db.
func NewMatchStore(db *DB) *MatchStore {
	return &MatchStore{db: db}
}

func (s *MatchStore) SaveMatch(ctx context.Context, m model.Match) error {
	defer observe("save_match", time.Now())
	participants, err := json.Marshal(m.Participants)
	if err != nil {
		return fmt.Errorf("encode participants of %s: %w", m.ID, err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO completed_matches (id, game_type, tournament_id, completed_at, participants)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			game_type = EXCLUDED.game_type,
			tournament_id = EXCLUDED.tournament_id,
			completed_at = EXCLUDED.completed_at,
			participants = EXCLUDED.participants,
			received_at = NOW()`,
		m.ID, string(m.GameType), m.TournamentID, m.CompletedAt, participants)
	if err != nil {
		return fmt.Errorf("save match %s: %w", m.ID, err)
	}
	return nil
}

func (s *MatchStore) SaveTournamentResult(ctx context.Context, r model.TournamentResult) error {
	defer observe("save_tournament_result", time.Now())
	_, err := s.db.Exec(ctx, `
		INSERT INTO tournament_results (tournament_id, user_id, game_type, placement, prize, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tournament_id, user_id) DO UPDATE SET
			game_type = EXCLUDED.game_type,
			placement = EXCLUDED.placement,
			prize = EXCLUDED.prize,
			recorded_at = EXCLUDED.recorded_at`,
		r.TournamentID, r.UserID, string(r.GameType), r.Placement, r.Prize, r.RecordedAt)
	if err != nil {
		return fmt.Errorf("save tournament result %s/%s: %w", r.TournamentID, r.UserID, err)
	}
	return nil
}

// EachMatch loads matches in completion order before calling fn, so fn may
// use the pool freely.
func (s *MatchStore) EachMatch(ctx context.Context, fn func(model.Match) error) error {
	rows, err := s.db.Query(ctx, `
		SELECT id, game_type, tournament_id, completed_at, participants
		FROM completed_matches ORDER BY completed_at, id`)
	if err != nil {
		return fmt.Errorf("list matches: %w", err)
	}
	matches, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Match, error) {
		var (
			m    model.Match
			game string
			raw  []byte
		)
		if err := row.Scan(&m.ID, &game, &m.TournamentID, &m.CompletedAt, &raw); err != nil {
			return m, err
		}
		m.GameType = model.GameType(game)
		if err := json.Unmarshal(raw, &m.Participants); err != nil {
			return m, fmt.Errorf("decode participants of %s: %w", m.ID, err)
		}
		return m, nil
	})
	if err != nil {
		return fmt.Errorf("scan matches: %w", err)
	}
	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(m); err != nil {
			return err
		}
	}
	return nil
}

func (s *MatchStore) EachTournamentResult(ctx context.Context, fn func(model.TournamentResult) error) error {
	rows, err := s.db.Query(ctx, `
		SELECT tournament_id, user_id, game_type, placement, prize, recorded_at
		FROM tournament_results ORDER BY recorded_at, tournament_id, user_id`)
	if err != nil {
		return fmt.Errorf("list tournament results: %w", err)
	}
	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.TournamentResult, error) {
		var (
			r    model.TournamentResult
			game string
		)
		err := row.Scan(&r.TournamentID, &r.UserID, &game, &r.Placement, &r.Prize, &r.RecordedAt)
		r.GameType = model.GameType(game)
		return r, err
	})
	if err != nil {
		return fmt.Errorf("scan tournament results: %w", err)
	}
	for _, r := range results {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}
