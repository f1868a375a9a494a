package cache

import "errors"

// Sentinel kinds for cache errors.
var (
	ErrConnect = errors.New("cache connect failed")
	ErrCodec   = errors.New("cache payload codec failed")
)
