package logger

import "io"

type options struct {
	level      string
	format     string
	out        io.Writer
	file       string
	maxSizeMB  int
	maxBackups int
	maxAgeDays int
	compress   bool
}

// Option configures the global logger.
type Option func(*options)

// WithLevel sets the minimum level (debug, info, warn, error).
func WithLevel(level string) Option {
	return func(o *options) { o.level = level }
}

// WithFormat selects the handler: text, json or console.
func WithFormat(format string) Option {
	return func(o *options) { o.format = format }
}

// WithOutput replaces stdout as the primary writer.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.out = w
		}
	}
}

// WithFile mirrors log output into a size-rotated file.
func WithFile(path string, maxSizeMB, maxBackups, maxAgeDays int, compress bool) Option {
	return func(o *options) {
		o.file = path
		o.maxSizeMB = maxSizeMB
		o.maxBackups = maxBackups
		o.maxAgeDays = maxAgeDays
		o.compress = compress
	}
}
