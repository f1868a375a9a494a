package simulate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/okian/ladder/internal/adapters/mq/natsjs"
	"github.com/okian/ladder/internal/domain/model"
)

var errBackpressure = errors.New("simulate: service is shedding load")

// outcome is what the service reported for one submission.
type outcome int

const (
	outcomeAccepted outcome = iota
	outcomeDuplicate
	outcomeFailed
)

func (o outcome) String() string {
	switch o {
	case outcomeAccepted:
		return "accepted"
	case outcomeDuplicate:
		return "duplicate"
	default:
		return "failed"
	}
}

// Publisher delivers completed matches to the service.
type Publisher interface {
	Publish(ctx context.Context, m model.Match) (outcome, error)
	Close() error
}

// ackResponse mirrors the body of POST /matches/completed.
type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// httpPublisher posts matches to /matches/completed.
type httpPublisher struct {
	client *http.Client
	url    string
}

func newHTTPPublisher(baseURL string, timeout time.Duration) *httpPublisher {
	return &httpPublisher{
		client: &http.Client{Timeout: timeout},
		url:    baseURL + "/matches/completed",
	}
}

func (p *httpPublisher) Publish(ctx context.Context, m model.Match) (outcome, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return outcomeFailed, fmt.Errorf("failed to marshal match: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return outcomeFailed, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return outcomeFailed, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return outcomeFailed, fmt.Errorf("failed to read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusAccepted:
		return outcomeAccepted, nil
	case http.StatusOK:
		var ack ackResponse
		if err := json.Unmarshal(data, &ack); err == nil && !ack.Duplicate {
			return outcomeAccepted, nil
		}
		return outcomeDuplicate, nil
	case http.StatusTooManyRequests:
		return outcomeFailed, errBackpressure
	default:
		return outcomeFailed, fmt.Errorf("HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}
}

func (p *httpPublisher) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

// natsPublisher publishes matches to JetStream. The broker deduplicates on
// match id, so every successful publish reports accepted.
type natsPublisher struct {
	client *natsjs.Client
}

func newNATSPublisher(ctx context.Context, url, stream string) (*natsPublisher, error) {
	opts := []natsjs.Option{}
	if stream != "" {
		opts = append(opts, natsjs.WithStream(stream))
	}
	client, err := natsjs.Connect(url, opts...)
	if err != nil {
		return nil, err
	}
	if err := client.EnsureStream(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &natsPublisher{client: client}, nil
}

func (p *natsPublisher) Publish(ctx context.Context, m model.Match) (outcome, error) {
	if err := p.client.PublishMatch(ctx, m); err != nil {
		return outcomeFailed, err
	}
	return outcomeAccepted, nil
}

func (p *natsPublisher) Close() error { return p.client.Close() }

// newPublisher selects JetStream when a NATS URL is configured.
func newPublisher(ctx context.Context, cfg *Config) (Publisher, error) {
	if cfg.NATSURL != "" {
		return newNATSPublisher(ctx, cfg.NATSURL, cfg.NATSStream)
	}
	return newHTTPPublisher(cfg.BaseURL, cfg.Timeout), nil
}
