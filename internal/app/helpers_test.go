package service_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/okian/ladder/internal/adapters/repository"
	service "github.com/okian/ladder/internal/app"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/pkg/logger"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

// Wednesday, week 11 of 2025.
var testNow = time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func newService(opts ...service.Option) *service.Service {
	return service.New(append([]service.Option{service.WithClock(fixedClock)}, opts...)...)
}

func result(user string, kills, deaths, assists, pos int) model.MatchResult {
	at := testNow
	return model.MatchResult{
		UserID:            user,
		Kills:             kills,
		Deaths:            deaths,
		Assists:           assists,
		FinalPosition:     pos,
		ResultSubmittedAt: &at,
	}
}

func match(id string, game model.GameType, results ...model.MatchResult) model.Match {
	return model.Match{ID: id, GameType: game, CompletedAt: testNow, Participants: results}
}

func partition(game model.GameType, lt model.LeaderboardType) model.Partition {
	return model.Partition{GameType: game, LeaderboardType: lt}
}

var errStoreDown = errors.New("store down")

// failingStore fails every mutation of one user.
type failingStore struct {
	repository.Store
	user string
}

func (f *failingStore) Mutate(ctx context.Context, key model.Key, matchID string, fn repository.MutateFunc) (model.Entry, bool, error) {
	if key.UserID == f.user {
		return model.Entry{}, false, errStoreDown
	}
	return f.Store.Mutate(ctx, key, matchID, fn)
}

// gatedStore blocks mutations until release is closed and reports the first one.
type gatedStore struct {
	repository.Store
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedStore() *gatedStore {
	return &gatedStore{
		Store:   repository.NewMemoryStore(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gatedStore) Mutate(ctx context.Context, key model.Key, matchID string, fn repository.MutateFunc) (model.Entry, bool, error) {
	g.once.Do(func() { close(g.entered) })
	<-g.release
	return g.Store.Mutate(ctx, key, matchID, fn)
}

// lateWriteStore runs afterPage once, after the first page has been read
// but before it is returned.
type lateWriteStore struct {
	repository.Store
	afterPage func()
	once      sync.Once
}

func (l *lateWriteStore) Page(ctx context.Context, view model.View, offset, limit int) ([]model.Entry, int, error) {
	entries, total, err := l.Store.Page(ctx, view, offset, limit)
	l.once.Do(func() {
		if l.afterPage != nil {
			l.afterPage()
		}
	})
	return entries, total, err
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}
