package service

import (
	"errors"

	"github.com/okian/ladder/internal/adapters/repository"
)

// Sentinel kinds returned by the service.
var (
	// ErrBackpressure means the ingestion queue is full; the caller should retry later.
	ErrBackpressure = errors.New("ingestion queue full")
	ErrNotStarted   = errors.New("service not started")
	// ErrPartialApply means some participant updates of a match failed.
	ErrPartialApply = errors.New("match partially applied")
	ErrInvalidQuery = errors.New("invalid query")
	ErrNotFound     = repository.ErrNotFound
)
