package natsjs

import (
	"time"

	"github.com/okian/ladder/pkg/logger"
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithStream sets the JetStream stream name.
func WithStream(name string) Option {
	return func(c *Client) {
		if name != "" {
			c.stream = name
		}
	}
}

// WithDurable sets the durable consumer name.
func WithDurable(name string) Option {
	return func(c *Client) {
		if name != "" {
			c.durable = name
		}
	}
}

// WithNakDelay sets how long a retryable message waits before redelivery.
func WithNakDelay(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.nakDelay = d
		}
	}
}

// WithMaxDeliver bounds redeliveries of one message.
func WithMaxDeliver(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxDeliver = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}
