package simulate

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/types"
)

// reader queries the service read API and the rank recalculation route.
type reader struct {
	client  *http.Client
	baseURL string
	game    model.GameType
	token   string
}

func newReader(baseURL string, game model.GameType, token string, timeout time.Duration) *reader {
	return &reader{client: &http.Client{Timeout: timeout}, baseURL: baseURL, game: game, token: token}
}

// healthy reports whether /healthz answers 200.
func (r *reader) healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	return nil
}

// serviceStats is the subset of GET /stats used to detect a drained pipeline.
type serviceStats struct {
	Processed   int64 `json:"processed"`
	QueueLength int   `json:"queueLength"`
}

func (r *reader) stats(ctx context.Context) (serviceStats, error) {
	var s serviceStats
	err := r.get(ctx, "/stats", url.Values{}, &s)
	return s, err
}

// leaderboard fetches the first page of the overall board.
func (r *reader) leaderboard(ctx context.Context, limit int) (types.LeaderboardPage, error) {
	q := r.partition()
	q.Set("page", "1")
	q.Set("limit", strconv.Itoa(limit))
	var page types.LeaderboardPage
	err := r.get(ctx, "/leaderboard", q, &page)
	return page, err
}

// position fetches one user's overall entry.
func (r *reader) position(ctx context.Context, userID string) (types.Entry, error) {
	var e types.Entry
	err := r.get(ctx, "/leaderboard/user/"+url.PathEscape(userID), r.partition(), &e)
	return e, err
}

// updateRankings asks the service to recalculate every view of the game and
// returns the number of entries ranked per leaderboard type.
func (r *reader) updateRankings(ctx context.Context) (map[string]int, error) {
	body, err := json.Marshal(map[string]string{"gameType": string(r.game)})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/leaderboard/update-rankings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	var out struct {
		Updated map[string]int `json:"updated"`
	}
	if err := r.do(req, &out); err != nil {
		return nil, err
	}
	return out.Updated, nil
}

func (r *reader) partition() url.Values {
	q := url.Values{}
	q.Set("gameType", string(r.game))
	q.Set("leaderboardType", string(model.Overall))
	return q
}

func (r *reader) get(ctx context.Context, path string, q url.Values, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return r.do(req, dst)
}

func (r *reader) do(req *http.Request, dst any) error {
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s: HTTP %d: %s", req.Method, req.URL.Path, resp.StatusCode, bytes.TrimSpace(body))
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
