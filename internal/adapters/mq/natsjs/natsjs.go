// Package natsjs carries match and tournament completion events over NATS JetStream.
package natsjs

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/types"
	"github.com/okian/ladder/pkg/logger"
	"github.com/okian/ladder/pkg/metrics"
)

// Subjects published by the tournament platform.
const (
	SubjectMatchCompleted      = "ladder.matches.completed"
	SubjectTournamentCompleted = "ladder.tournaments.completed"
)

const (
	defaultStream     = "LADDER_EVENTS"
	defaultDurable    = "ladder-leaderboard"
	defaultNakDelay   = 2 * time.Second
	defaultMaxDeliver = 10
	connectTimeout    = 5 * time.Second
)

// Handler receives decoded events.
type Handler interface {
	SubmitMatch(ctx context.Context, m model.Match) (types.IngestStatus, error)
	RecordTournamentResult(ctx context.Context, r model.TournamentResult) error
}

// Client owns the NATS connection, publishes events and consumes them into a Handler.
type Client struct {
	conn       *nats.Conn
	js         jetstream.JetStream
	stream     string
	durable    string
	nakDelay   time.Duration
	maxDeliver int
	logger     logger.Logger

	consume jetstream.ConsumeContext
}

// Connect dials url and opens a JetStream context.
func Connect(url string, opts ...Option) (*Client, error) {
	c := &Client{
		stream:     defaultStream,
		durable:    defaultDurable,
		nakDelay:   defaultNakDelay,
		maxDeliver: defaultMaxDeliver,
		logger:     logger.Get().Named("natsjs"),
	}
	for _, opt := range opts {
		opt(c)
	}

	nc, err := nats.Connect(url,
		nats.Name("ladder"),
		nats.Timeout(connectTimeout),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				c.logger.Warn(context.Background(), "nats disconnected", logger.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			c.logger.Info(context.Background(), "nats reconnected", logger.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConnect, url, err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("%w: jetstream: %w", ErrConnect, err)
	}
	c.conn = nc
	c.js = js
	return c, nil
}

// EnsureStream creates or updates the stream holding both subjects.
func (c *Client) EnsureStream(ctx context.Context) error {
	_, err := c.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     c.stream,
		Subjects: []string{SubjectMatchCompleted, SubjectTournamentCompleted},
		Storage:  jetstream.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("ensure stream %s: %w", c.stream, err)
	}
	return nil
}

// Subscribe starts a durable pull consumer that feeds h until Close.
func (c *Client) Subscribe(ctx context.Context, h Handler) error {
	if err := c.EnsureStream(ctx); err != nil {
		return err
	}
	cons, err := c.js.CreateOrUpdateConsumer(ctx, c.stream, jetstream.ConsumerConfig{
		Durable:        c.durable,
		AckPolicy:      jetstream.AckExplicitPolicy,
		FilterSubjects: []string{SubjectMatchCompleted, SubjectTournamentCompleted},
		MaxDeliver:     c.maxDeliver,
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", c.durable, err)
	}

	cc, err := cons.Consume(func(msg jetstream.Msg) {
		c.settle(ctx, msg, dispatch(ctx, h, msg.Subject(), msg.Data()))
	})
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.durable, err)
	}
	c.consume = cc
	c.logger.Info(ctx, "consuming events",
		logger.String("stream", c.stream),
		logger.String("consumer", c.durable),
	)
	return nil
}

// PublishMatch publishes a completed match.
func (c *Client) PublishMatch(ctx context.Context, m model.Match) error {
	return c.publish(ctx, SubjectMatchCompleted, m.ID, m)
}

// PublishTournamentResult publishes a tournament result.
func (c *Client) PublishTournamentResult(ctx context.Context, r model.TournamentResult) error {
	return c.publish(ctx, SubjectTournamentCompleted, r.TournamentID+":"+r.UserID, r)
}

func (c *Client) publish(ctx context.Context, subject, msgID string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", subject, err)
	}
	if _, err := c.js.Publish(ctx, subject, data, jetstream.WithMsgID(msgID)); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Close stops consuming and drains the connection.
func (c *Client) Close() error {
	if c.consume != nil {
		c.consume.Stop()
	}
	if c.conn != nil {
		return c.conn.Drain()
	}
	return nil
}

type action int

const (
	actionAck action = iota
	actionNak
	actionTerm
)

func (a action) String() string {
	switch a {
	case actionAck:
		return "ack"
	case actionNak:
		return "nak"
	default:
		return "term"
	}
}

type outcome struct {
	action action
	err    error
}

func (c *Client) settle(ctx context.Context, msg jetstream.Msg, o outcome) {
	var err error
	switch o.action {
	case actionAck:
		err = msg.Ack()
	case actionNak:
		err = msg.NakWithDelay(c.nakDelay)
	case actionTerm:
		err = msg.Term()
	}
	metrics.RecordConsumerMessage(msg.Subject(), o.action.String())
	if o.err != nil {
		c.logger.Warn(ctx, "event not applied",
			logger.String("subject", msg.Subject()),
			logger.String("action", o.action.String()),
			logger.Error(o.err),
		)
	}
	if err != nil {
		c.logger.Error(ctx, "settle message failed", logger.String("subject", msg.Subject()), logger.Error(err))
	}
}

// dispatch decodes one payload and hands it to h. Malformed or invalid
// events are terminated; everything else that fails is retried.
func dispatch(ctx context.Context, h Handler, subject string, data []byte) outcome {
	switch subject {
	case SubjectMatchCompleted:
		var m model.Match
		if err := json.Unmarshal(data, &m); err != nil {
			return outcome{actionTerm, fmt.Errorf("%w: %w", ErrMalformed, err)}
		}
		_, err := h.SubmitMatch(ctx, m)
		return classify(err)
	case SubjectTournamentCompleted:
		var r model.TournamentResult
		if err := json.Unmarshal(data, &r); err != nil {
			return outcome{actionTerm, fmt.Errorf("%w: %w", ErrMalformed, err)}
		}
		if r.RecordedAt.IsZero() {
			r.RecordedAt = time.Now().UTC()
		}
		return classify(h.RecordTournamentResult(ctx, r))
	default:
		return outcome{actionTerm, fmt.Errorf("%w: %s", ErrUnknownSubject, subject)}
	}
}

func classify(err error) outcome {
	switch {
	case err == nil:
		return outcome{actionAck, nil}
	case errors.Is(err, model.ErrInvalidMatch),
		errors.Is(err, model.ErrInvalidGameType),
		errors.Is(err, model.ErrInvalidTournament),
		errors.Is(err, model.ErrInvalidLeaderboardType):
		return outcome{actionTerm, err}
	default:
		return outcome{actionNak, err}
	}
}
