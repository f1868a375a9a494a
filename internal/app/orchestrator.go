package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	eventqueue "github.com/okian/ladder/internal/adapters/mq/queue"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/scoring"
	"github.com/okian/ladder/internal/domain/types"
	"github.com/okian/ladder/pkg/logger"
	"github.com/okian/ladder/pkg/metrics"
)

// Scopes every match contributes to. Tournament is added when the match has a tournament id.
var matchScopes = []model.LeaderboardType{model.Overall, model.Monthly, model.Weekly}

// SubmitMatch validates a completed match, stores it and queues it for the
// workers. Duplicate match ids are acknowledged without queueing.
func (s *Service) SubmitMatch(ctx context.Context, m model.Match) (types.IngestStatus, error) {
	s.mu.RLock()
	started, q := s.started, s.queue
	s.mu.RUnlock()
	if !started {
		return "", ErrNotStarted
	}

	m = s.normalize(m)
	if err := m.Validate(); err != nil {
		metrics.RecordMatchIngested("invalid")
		return "", err
	}

	if s.deduper.SeenAndRecord(ctx, m.ID) {
		metrics.RecordMatchIngested("duplicate")
		s.logger.Debug(ctx, "duplicate match skipped", logger.String("matchID", m.ID))
		return types.IngestDuplicate, nil
	}

	if err := s.matches.SaveMatch(ctx, m); err != nil {
		s.deduper.Unrecord(ctx, m.ID)
		metrics.RecordErrorByComponent("match_store", "save")
		return "", fmt.Errorf("save match %s: %w", m.ID, err)
	}

	if err := q.Enqueue(ctx, m); err != nil {
		s.deduper.Unrecord(ctx, m.ID)
		metrics.RecordQueueEnqueueError()
		if errors.Is(err, eventqueue.ErrFull) {
			metrics.RecordMatchIngested("backpressure")
			return "", ErrBackpressure
		}
		if errors.Is(err, eventqueue.ErrClosed) {
			return "", ErrNotStarted
		}
		return "", fmt.Errorf("enqueue match %s: %w", m.ID, err)
	}

	metrics.RecordQueueEnqueue()
	metrics.UpdateQueueSize(q.Len())
	metrics.RecordMatchIngested("accepted")
	return types.IngestAccepted, nil
}

// ProcessMatch applies every submitted participant result to all scopes of
// the match, then recalculates each touched view once. Failed updates are
// counted in the report and do not stop the others.
func (s *Service) ProcessMatch(ctx context.Context, m model.Match) (types.ProcessReport, error) {
	start := time.Now()
	s.replay.RLock()
	defer s.replay.RUnlock()

	m = s.normalize(m)
	if err := m.Validate(); err != nil {
		return types.ProcessReport{MatchID: m.ID}, err
	}

	report, views := s.applyMatch(ctx, m)
	report.Reranked = s.recalculate(ctx, views)
	metrics.RecordMatchProcessed(time.Since(start))

	if report.Failed > 0 {
		// Markers keep already applied entries safe, so the match may come again.
		s.deduper.Unrecord(ctx, m.ID)
		return report, fmt.Errorf("%w: %s: %d of %d updates failed", ErrPartialApply, m.ID,
			report.Failed, report.Failed+report.Updated+report.Duplicates)
	}
	return report, nil
}

// applyMatch runs the participant × scope fan-out and returns the views that changed.
func (s *Service) applyMatch(ctx context.Context, m model.Match) (types.ProcessReport, map[model.View]struct{}) {
	report := types.ProcessReport{MatchID: m.ID, Participants: len(m.Participants)}
	views := make(map[model.View]struct{})

	scopes := matchScopes
	if m.TournamentID != "" {
		scopes = append(scopes[:len(scopes):len(scopes)], model.Tournament)
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.fanoutLimit)

	for _, r := range m.Participants {
		if !r.Submitted() {
			report.Skipped++
			continue
		}
		for _, lt := range scopes {
			p := model.Partition{GameType: m.GameType, LeaderboardType: lt, TournamentID: m.TournamentID}
			g.Go(func() error {
				e, applied, err := s.aggregator.ApplyMatchResult(ctx, m.ID, p, r, m.CompletedAt)

				mu.Lock()
				defer mu.Unlock()
				switch {
				case err != nil:
					report.Failed++
					metrics.RecordParticipantUpdate(string(lt), "failed")
					s.logger.Error(ctx, "participant update failed",
						logger.String("matchID", m.ID),
						logger.String("userID", r.UserID),
						logger.String("leaderboardType", string(lt)),
						logger.Error(err),
					)
				case applied:
					report.Updated++
					views[e.View] = struct{}{}
					metrics.RecordParticipantUpdate(string(lt), "updated")
				default:
					report.Duplicates++
					metrics.RecordParticipantUpdate(string(lt), "duplicate")
				}
				return nil
			})
		}
	}
	_ = g.Wait()
	return report, views
}

// recalculate reranks views one after another and reports entries per view.
func (s *Service) recalculate(ctx context.Context, views map[model.View]struct{}) map[string]int {
	out := make(map[string]int, len(views))
	for v := range views {
		n, err := s.recalculator.RecalculateRanks(ctx, v)
		if err != nil {
			metrics.RecordErrorByComponent("ranking", "recalculate")
			s.logger.Error(ctx, "rank recalculation failed", logger.String("view", v.String()), logger.Error(err))
			continue
		}
		out[v.String()] = n
	}
	return out
}

// RecordTournamentResult stores a final tournament placement and applies it.
func (s *Service) RecordTournamentResult(ctx context.Context, r model.TournamentResult) error {
	if r.RecordedAt.IsZero() {
		r.RecordedAt = s.now()
	}
	r.RecordedAt = r.RecordedAt.UTC()
	if err := r.Validate(); err != nil {
		return err
	}

	s.replay.RLock()
	defer s.replay.RUnlock()

	if err := s.matches.SaveTournamentResult(ctx, r); err != nil {
		return fmt.Errorf("save tournament result %s/%s: %w", r.TournamentID, r.UserID, err)
	}

	views, err := s.aggregator.ApplyTournamentResult(ctx, r)
	s.recalculate(ctx, toSet(views))
	if err != nil {
		return fmt.Errorf("apply tournament result %s/%s: %w", r.TournamentID, r.UserID, err)
	}
	metrics.RecordTournamentResult()
	return nil
}

// Initialize rebuilds every leaderboard from the stored matches and
// tournament results.
func (s *Service) Initialize(ctx context.Context) (types.InitializeReport, error) {
	s.replay.Lock()
	defer s.replay.Unlock()

	start := time.Now()
	var report types.InitializeReport

	if err := s.store.Reset(ctx); err != nil {
		return report, fmt.Errorf("reset store: %w", err)
	}
	s.deduper.Reset(ctx)
	invalidate(ctx, s.cache, s.logger, tagAll)

	views := make(map[model.View]struct{})
	err := s.matches.EachMatch(ctx, func(m model.Match) error {
		m = s.normalize(m)
		if err := m.Validate(); err != nil {
			report.Failed++
			s.logger.Warn(ctx, "skipping stored match", logger.String("matchID", m.ID), logger.Error(err))
			return nil
		}
		s.deduper.SeenAndRecord(ctx, m.ID)
		r, touched := s.applyMatch(ctx, m)
		report.Matches++
		report.Failed += r.Failed
		for v := range touched {
			views[v] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("replay matches: %w", err)
	}

	err = s.matches.EachTournamentResult(ctx, func(r model.TournamentResult) error {
		touched, err := s.aggregator.ApplyTournamentResult(ctx, r)
		if err != nil {
			report.Failed++
			s.logger.Warn(ctx, "tournament result replay failed",
				logger.String("tournamentID", r.TournamentID),
				logger.String("userID", r.UserID),
				logger.Error(err),
			)
		}
		report.Tournaments++
		for _, v := range touched {
			views[v] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("replay tournament results: %w", err)
	}

	report.Views = len(s.recalculate(ctx, views))
	s.logger.Info(ctx, "leaderboards initialized",
		logger.Int("matches", report.Matches),
		logger.Int("tournaments", report.Tournaments),
		logger.Int("views", report.Views),
		logger.Int("failed", report.Failed),
		logger.Duration("took", time.Since(start)),
	)
	return report, nil
}

// UpdateRankings recalculates the overall and current monthly and weekly
// views of a game, plus the tournament view when tournamentID is set.
// Counts are keyed by leaderboard type.
func (s *Service) UpdateRankings(ctx context.Context, gameType, tournamentID string) (map[string]int, error) {
	if gameType == "" {
		return nil, fmt.Errorf("%w: gameType is required", model.ErrInvalidGameType)
	}
	game, err := model.ParseGameType(gameType)
	if err != nil {
		return nil, err
	}

	scopes := matchScopes
	if tournamentID != "" {
		scopes = append(scopes[:len(scopes):len(scopes)], model.Tournament)
	}

	now := s.now()
	out := make(map[string]int, len(scopes))
	for _, lt := range scopes {
		view := model.ViewAt(model.Partition{GameType: game, LeaderboardType: lt, TournamentID: tournamentID}, now)
		n, err := s.recalculator.RecalculateRanks(ctx, view)
		if err != nil {
			return out, err
		}
		out[string(lt)] = n
	}
	return out, nil
}

// Cleanup deletes weekly and monthly entries not updated within the last
// monthsToKeep months. Zero or less uses the configured retention.
func (s *Service) Cleanup(ctx context.Context, monthsToKeep int) (int64, error) {
	if monthsToKeep <= 0 {
		monthsToKeep = s.retentionMonths
	}
	cutoff := s.now().UTC().AddDate(0, -monthsToKeep, 0)

	n, err := s.store.PurgeBefore(ctx, []model.LeaderboardType{model.Weekly, model.Monthly}, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	metrics.RecordRetentionPurge(n)
	if n > 0 {
		invalidate(ctx, s.cache, s.logger, tagAll)
	}
	s.logger.Info(ctx, "old leaderboard entries removed",
		logger.Int64("deleted", n),
		logger.Int("monthsToKeep", monthsToKeep),
	)
	return n, nil
}

// RunRetention calls Cleanup every interval until ctx is done.
func (s *Service) RunRetention(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Cleanup(ctx, 0); err != nil {
				s.logger.Error(ctx, "retention cleanup failed", logger.Error(err))
			}
		}
	}
}

// UpsertPlayer stores display fields for a user.
func (s *Service) UpsertPlayer(ctx context.Context, p model.Player) error {
	if p.UserID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidQuery)
	}
	if err := s.players.UpsertPlayer(ctx, p); err != nil {
		return fmt.Errorf("upsert player %s: %w", p.UserID, err)
	}
	invalidate(ctx, s.cache, s.logger, tagAll)
	return nil
}

// normalize recomputes scores and stamps a missing completion time.
func (s *Service) normalize(m model.Match) model.Match {
	if m.CompletedAt.IsZero() {
		m.CompletedAt = s.now()
	}
	m.CompletedAt = m.CompletedAt.UTC()

	participants := make([]model.MatchResult, len(m.Participants))
	for i, r := range m.Participants {
		participants[i] = scoring.ScoreResult(r)
	}
	m.Participants = participants
	return m
}

func toSet(views []model.View) map[model.View]struct{} {
	out := make(map[model.View]struct{}, len(views))
	for _, v := range views {
		out[v] = struct{}{}
	}
	return out
}

