package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/okian/ladder/internal/adapters/repository"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/pkg/metrics"
)

const backend = "postgres"

const entryColumns = `id, user_id, game_type, leaderboard_type, tournament_id,
	period_year, period_month, period_week,
	total_matches, matches_won, matches_lost, total_kills, total_deaths, total_assists,
	best_position, average_position, top5_finishes, top10_finishes, chicken_dinners,
	total_score, highest_score, tournaments_played, tournaments_won, total_prize_won,
	points, rank, previous_rank, rank_change, is_active, last_updated, created_at`

const viewPredicate = `game_type = $1 AND leaderboard_type = $2 AND tournament_id = $3
	AND period_year = $4 AND period_month = $5 AND period_week = $6`

func viewArgs(v model.View) []any {
	return []any{string(v.GameType), string(v.LeaderboardType), v.TournamentID,
		v.Period.Year, v.Period.Month, v.Period.Week}
}

func keyArgs(k model.Key) []any {
	return append(viewArgs(k.View), k.UserID)
}

func scanEntry(row pgx.Row) (model.Entry, error) {
	var (
		e          model.Entry
		game, lt   string
		rankChange string
		s          = &e.Stats
	)
	err := row.Scan(&e.Seq, &e.UserID, &game, &lt, &e.TournamentID,
		&e.Period.Year, &e.Period.Month, &e.Period.Week,
		&s.TotalMatches, &s.MatchesWon, &s.MatchesLost, &s.TotalKills, &s.TotalDeaths, &s.TotalAssists,
		&s.BestPosition, &s.AveragePosition, &s.Top5Finishes, &s.Top10Finishes, &s.ChickenDinners,
		&s.TotalScore, &s.HighestScore, &s.TournamentsPlayed, &s.TournamentsWon, &s.TotalPrizeWon,
		&e.Points, &e.Rank, &e.PreviousRank, &rankChange, &e.IsActive, &e.LastUpdated, &e.CreatedAt)
	if err != nil {
		return model.Entry{}, err
	}
	e.GameType = model.GameType(game)
	e.LeaderboardType = model.LeaderboardType(lt)
	e.RankChange = model.RankChange(rankChange)
	return e, nil
}

func collectEntries(rows pgx.Rows) ([]model.Entry, error) {
	defer rows.Close()
	var out []model.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// EntryStore is a repository.Store backed by the leaderboard_entries table.
type EntryStore struct {
	db  *DB
	now func() time.Time
}

var _ repository.Store = (*EntryStore)(nil)

// NewEntryStore returns a store over db.
func NewEntryStore(db *DB) *EntryStore {
	return &EntryStore{db: db, now: time.Now}
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(backend, op, time.Since(start))
}

// Mutate locks the row with SELECT ... FOR UPDATE inside a transaction, so
// concurrent writers to the same key serialize across processes.
func (s *EntryStore) Mutate(ctx context.Context, key model.Key, matchID string, fn repository.MutateFunc) (model.Entry, bool, error) {
	defer observe("mutate", time.Now())

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return model.Entry{}, false, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := s.now()
	_, err = tx.Exec(ctx, `
		INSERT INTO leaderboard_entries
			(game_type, leaderboard_type, tournament_id, period_year, period_month, period_week, user_id,
			 last_updated, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT ON CONSTRAINT leaderboard_entries_key DO NOTHING`,
		append(keyArgs(key), now)...)
	if err != nil {
		return model.Entry{}, false, fmt.Errorf("create entry %s: %w", key, err)
	}

	cur, err := scanEntry(tx.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM leaderboard_entries WHERE `+viewPredicate+` AND user_id = $7 FOR UPDATE`,
		keyArgs(key)...))
	if err != nil {
		return model.Entry{}, false, fmt.Errorf("lock entry %s: %w", key, err)
	}

	if matchID != "" {
		tag, err := tx.Exec(ctx,
			`INSERT INTO leaderboard_applied_matches (entry_id, match_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			cur.Seq, matchID)
		if err != nil {
			return model.Entry{}, false, fmt.Errorf("record match %s on %s: %w", matchID, key, err)
		}
		if tag.RowsAffected() == 0 {
			return cur, false, tx.Commit(ctx)
		}
	}

	next := cur
	fn(&next)
	next.Key = cur.Key
	next.Seq = cur.Seq
	next.CreatedAt = cur.CreatedAt
	next.Rank, next.PreviousRank, next.RankChange = cur.Rank, cur.PreviousRank, cur.RankChange

	st := next.Stats
	_, err = tx.Exec(ctx, `
		UPDATE leaderboard_entries SET
			total_matches = $2, matches_won = $3, matches_lost = $4, total_kills = $5, total_deaths = $6,
			total_assists = $7, best_position = $8, average_position = $9, top5_finishes = $10,
			top10_finishes = $11, chicken_dinners = $12, total_score = $13, highest_score = $14,
			tournaments_played = $15, tournaments_won = $16, total_prize_won = $17,
			points = $18, is_active = $19, last_updated = $20
		WHERE id = $1`,
		next.Seq, st.TotalMatches, st.MatchesWon, st.MatchesLost, st.TotalKills, st.TotalDeaths,
		st.TotalAssists, st.BestPosition, st.AveragePosition, st.Top5Finishes,
		st.Top10Finishes, st.ChickenDinners, st.TotalScore, st.HighestScore,
		st.TournamentsPlayed, st.TournamentsWon, st.TotalPrizeWon,
		next.Points, next.IsActive, next.LastUpdated)
	if err != nil {
		return model.Entry{}, false, fmt.Errorf("update entry %s: %w", key, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Entry{}, false, fmt.Errorf("commit: %w", err)
	}
	return next, true, nil
}

// Get returns the entry for key.
func (s *EntryStore) Get(ctx context.Context, key model.Key) (model.Entry, error) {
	defer observe("get", time.Now())
	e, err := scanEntry(s.db.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM leaderboard_entries WHERE `+viewPredicate+` AND user_id = $7`,
		keyArgs(key)...))
	if errors.Is(err, pgx.ErrNoRows) {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.Entry{}, repository.ErrNotFound
	}
	if err != nil {
		return model.Entry{}, fmt.Errorf("get entry %s: %w", key, err)
	}
	return e, nil
}

// ListView returns active entries of view ordered by id, which is insertion order.
func (s *EntryStore) ListView(ctx context.Context, view model.View) ([]model.Entry, error) {
	defer observe("list_view", time.Now())
	rows, err := s.db.Query(ctx,
		`SELECT `+entryColumns+` FROM leaderboard_entries WHERE `+viewPredicate+` AND is_active ORDER BY id`,
		viewArgs(view)...)
	if err != nil {
		return nil, fmt.Errorf("list view %s: %w", view, err)
	}
	out, err := collectEntries(rows)
	if err != nil {
		return nil, fmt.Errorf("list view %s: %w", view, err)
	}
	return out, nil
}

// UpdateRanks sends every update in one batch inside one transaction.
func (s *EntryStore) UpdateRanks(ctx context.Context, updates []model.RankUpdate) error {
	defer observe("update_ranks", time.Now())
	if len(updates) == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, u := range updates {
		args := append(keyArgs(u.Key), u.Rank, u.PreviousRank, string(u.RankChange))
		batch.Queue(`UPDATE leaderboard_entries SET rank = $8, previous_rank = $9, rank_change = $10
			WHERE `+viewPredicate+` AND user_id = $7`, args...)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("update ranks: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit ranks: %w", err)
	}
	return nil
}

// Page returns one ordered page of view and the number of active entries.
func (s *EntryStore) Page(ctx context.Context, view model.View, offset, limit int) ([]model.Entry, int, error) {
	defer observe("page", time.Now())
	if limit < 1 || offset < 0 {
		return nil, 0, repository.ErrInvalidLimit
	}

	var total int
	if err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM leaderboard_entries WHERE `+viewPredicate+` AND is_active`,
		viewArgs(view)...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count view %s: %w", view, err)
	}
	if total == 0 || offset >= total {
		return nil, total, nil
	}

	rows, err := s.db.Query(ctx,
		`SELECT `+entryColumns+` FROM leaderboard_entries WHERE `+viewPredicate+` AND is_active
		ORDER BY points DESC, total_score DESC, id ASC LIMIT $7 OFFSET $8`,
		append(viewArgs(view), limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("page view %s: %w", view, err)
	}
	out, err := collectEntries(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("page view %s: %w", view, err)
	}
	return out, total, nil
}

// Summary groups active entries by game and type.
func (s *EntryStore) Summary(ctx context.Context) ([]repository.ViewSummary, error) {
	defer observe("summary", time.Now())
	rows, err := s.db.Query(ctx, `
		SELECT game_type, leaderboard_type, COUNT(*), COALESCE(SUM(points), 0),
		       COALESCE(MAX(points), 0), COALESCE(SUM(total_matches), 0)
		FROM leaderboard_entries
		WHERE is_active
		GROUP BY game_type, leaderboard_type
		ORDER BY game_type, leaderboard_type`)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	defer rows.Close()

	var out []repository.ViewSummary
	for rows.Next() {
		var (
			row      repository.ViewSummary
			game, lt string
		)
		if err := rows.Scan(&game, &lt, &row.Entries, &row.TotalPoints, &row.MaxPoints, &row.TotalMatches); err != nil {
			return nil, fmt.Errorf("summary: %w", err)
		}
		row.GameType = model.GameType(game)
		row.LeaderboardType = model.LeaderboardType(lt)
		out = append(out, row)
	}
	return out, rows.Err()
}

// PurgeBefore deletes stale entries of the given types; applied match markers cascade.
func (s *EntryStore) PurgeBefore(ctx context.Context, types []model.LeaderboardType, cutoff time.Time) (int64, error) {
	defer observe("purge", time.Now())
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	tag, err := s.db.Exec(ctx,
		`DELETE FROM leaderboard_entries WHERE leaderboard_type = ANY($1) AND last_updated < $2`,
		names, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Reset deletes every entry and applied match marker.
func (s *EntryStore) Reset(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, `TRUNCATE leaderboard_applied_matches, leaderboard_entries RESTART IDENTITY`); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return nil
}

// Close is a no-op; the pool is owned by the caller.
func (s *EntryStore) Close() error { return nil }
