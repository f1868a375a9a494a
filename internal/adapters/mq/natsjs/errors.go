package natsjs

import "errors"

// Sentinel kinds for broker errors.
var (
	ErrConnect        = errors.New("nats connect failed")
	ErrMalformed      = errors.New("malformed event payload")
	ErrUnknownSubject = errors.New("unknown event subject")
)
