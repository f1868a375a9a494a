package api_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/ladder/internal/adapters/http/api"
	service "github.com/okian/ladder/internal/app"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/types"
)

type mockDeps struct {
	submitted   []model.Match
	submitErr   error
	duplicate   bool
	tournaments []model.TournamentResult
	rankingsFor string
	cleanupArg  int
	players     []model.Player
	err         error
}

func (m *mockDeps) SubmitMatch(_ context.Context, match model.Match) (types.IngestStatus, error) {
	if m.submitErr != nil {
		return "", m.submitErr
	}
	m.submitted = append(m.submitted, match)
	if m.duplicate {
		return types.IngestDuplicate, nil
	}
	return types.IngestAccepted, nil
}

func (m *mockDeps) RecordTournamentResult(_ context.Context, r model.TournamentResult) error {
	if m.err != nil {
		return m.err
	}
	m.tournaments = append(m.tournaments, r)
	return nil
}

func (m *mockDeps) Initialize(context.Context) (types.InitializeReport, error) {
	if m.err != nil {
		return types.InitializeReport{}, m.err
	}
	return types.InitializeReport{Matches: 3, Views: 2}, nil
}

func (m *mockDeps) UpdateRankings(_ context.Context, gameType, tournamentID string) (map[string]int, error) {
	if gameType == "" {
		return nil, fmt.Errorf("%w: gameType is required", model.ErrInvalidGameType)
	}
	m.rankingsFor = gameType + "/" + tournamentID
	return map[string]int{"overall": 4}, nil
}

func (m *mockDeps) Cleanup(_ context.Context, monthsToKeep int) (int64, error) {
	m.cleanupArg = monthsToKeep
	return 7, m.err
}

func (m *mockDeps) UpsertPlayer(_ context.Context, p model.Player) error {
	m.players = append(m.players, p)
	return m.err
}

type mockReader struct {
	lastQuery  service.LeaderboardQuery
	lastTop    service.TopQuery
	lastUser   string
	lastPeriod model.Period
	page       types.LeaderboardPage
	entry      types.Entry
	err        error
}

func (m *mockReader) GetLeaderboard(_ context.Context, q service.LeaderboardQuery) (types.LeaderboardPage, error) {
	m.lastQuery = q
	return m.page, m.err
}

func (m *mockReader) GetUserPosition(_ context.Context, userID string, _ model.Partition, period model.Period) (types.Entry, error) {
	m.lastUser = userID
	m.lastPeriod = period
	return m.entry, m.err
}

func (m *mockReader) GetTopPerformers(_ context.Context, q service.TopQuery) ([]types.TopPerformer, error) {
	m.lastTop = q
	if m.err != nil {
		return nil, m.err
	}
	return []types.TopPerformer{{Rank: 1, User: model.Player{UserID: "u1"}, Points: 90}}, nil
}

func (m *mockReader) GetStats(context.Context) ([]types.SummaryRow, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []types.SummaryRow{{GameType: model.GameBGMI, LeaderboardType: model.Overall, Entries: 2}}, nil
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func newMux(deps *mockDeps, reader *mockReader, opts ...api.Option) *http.ServeMux {
	mux := http.NewServeMux()
	server := api.NewServer(deps, reader, &mockStatsProvider{stats: map[string]interface{}{"started": true}}, opts...)
	server.Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func errorCode(w *httptest.ResponseRecorder) string {
	var body struct {
		Code string `json:"code"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return body.Code
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newMux(&mockDeps{}, &mockReader{})

		Convey("Then the health endpoint serves metrics", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then the stats endpoint returns runtime stats", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
			So(w.Body.String(), ShouldContainSubstring, `"started":true`)
		})

		Convey("Then unknown routes are not found", func() {
			w := do(mux, http.MethodGet, "/events", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestEventsHandler_HandleMatchCompleted(t *testing.T) {
	const body = `{"matchId":"m1","gameType":"bgmi","participants":[{"userId":"u1","kills":3,"finalPosition":1,"resultSubmittedAt":"2025-03-12T10:00:00Z"}]}`

	Convey("Given an events handler", t, func() {
		deps := &mockDeps{}
		mux := newMux(deps, &mockReader{})

		Convey("When a valid match is posted", func() {
			w := do(mux, http.MethodPost, "/matches/completed", body)

			Convey("Then it is accepted", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(w.Body.String(), ShouldContainSubstring, `"status":"accepted"`)
				So(deps.submitted, ShouldHaveLength, 1)
				So(deps.submitted[0].Participants[0].Submitted(), ShouldBeTrue)
			})
		})

		Convey("When the match was seen before", func() {
			deps.duplicate = true
			w := do(mux, http.MethodPost, "/matches/completed", body)

			Convey("Then it is acknowledged as a duplicate", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"duplicate":true`)
			})
		})

		Convey("When the body is not JSON", func() {
			w := do(mux, http.MethodPost, "/matches/completed", "{")

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(errorCode(w), ShouldEqual, "bad_request")
				So(deps.submitted, ShouldBeEmpty)
			})
		})

		Convey("When the service rejects the match", func() {
			cases := []struct {
				err    error
				status int
				code   string
			}{
				{fmt.Errorf("%w: no participants", model.ErrInvalidMatch), http.StatusBadRequest, "bad_request"},
				{service.ErrBackpressure, http.StatusTooManyRequests, "backpressure"},
				{service.ErrNotStarted, http.StatusServiceUnavailable, "unavailable"},
				{errors.New("disk full"), http.StatusInternalServerError, "internal_error"},
			}
			for _, c := range cases {
				deps.submitErr = c.err
				w := do(mux, http.MethodPost, "/matches/completed", body)
				So(w.Code, ShouldEqual, c.status)
				So(errorCode(w), ShouldEqual, c.code)
			}
		})

		Convey("When the method is wrong", func() {
			w := do(mux, http.MethodGet, "/matches/completed", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestLeaderboardHandler(t *testing.T) {
	Convey("Given a leaderboard handler", t, func() {
		reader := &mockReader{page: types.LeaderboardPage{
			Leaderboard: []types.Entry{{Rank: 1, User: model.Player{UserID: "u1"}, Points: 90}},
			Pagination:  types.NewPagination(2, 10, 11),
		}}
		mux := newMux(&mockDeps{}, reader)

		Convey("When all filters are given", func() {
			w := do(mux, http.MethodGet, "/leaderboard?gameType=CS2&leaderboardType=monthly&year=2025&month=3&page=2&limit=10", "")

			Convey("Then they reach the reader", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(reader.lastQuery.GameType, ShouldEqual, model.GameCS2)
				So(reader.lastQuery.LeaderboardType, ShouldEqual, model.Monthly)
				So(reader.lastQuery.Period, ShouldResemble, model.Period{Year: 2025, Month: 3})
				So(reader.lastQuery.Page, ShouldEqual, 2)
				So(reader.lastQuery.Limit, ShouldEqual, 10)

				var page types.LeaderboardPage
				So(json.Unmarshal(w.Body.Bytes(), &page), ShouldBeNil)
				So(page.Pagination.HasNext, ShouldBeFalse)
				So(page.Pagination.HasPrev, ShouldBeTrue)
				So(page.Leaderboard[0].User.UserID, ShouldEqual, "u1")
			})
		})

		Convey("When only the game is given", func() {
			w := do(mux, http.MethodGet, "/leaderboard?gameType=bgmi", "")

			Convey("Then the overall leaderboard is read", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(reader.lastQuery.LeaderboardType, ShouldEqual, model.Overall)
			})
		})

		Convey("When the filters are invalid", func() {
			for _, target := range []string{
				"/leaderboard",
				"/leaderboard?gameType=chess",
				"/leaderboard?gameType=bgmi&leaderboardType=daily",
				"/leaderboard?gameType=bgmi&page=abc",
				"/leaderboard?gameType=bgmi&limit=-1",
			} {
				w := do(mux, http.MethodGet, target, "")
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			}
		})

		Convey("When the reader fails", func() {
			reader.err = errors.New("store down")
			w := do(mux, http.MethodGet, "/leaderboard?gameType=bgmi", "")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
		})

		Convey("When a user position is requested", func() {
			reader.entry = types.Entry{Rank: 3, User: model.Player{UserID: "u7"}}
			w := do(mux, http.MethodGet, "/leaderboard/user/u7?gameType=bgmi&leaderboardType=weekly&year=2025&week=11", "")

			Convey("Then the entry is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(reader.lastUser, ShouldEqual, "u7")
				So(reader.lastPeriod, ShouldResemble, model.Period{Year: 2025, Week: 11})
				So(w.Body.String(), ShouldContainSubstring, `"rank":3`)
			})
		})

		Convey("When the user has no entry", func() {
			reader.err = fmt.Errorf("user u7: %w", service.ErrNotFound)
			w := do(mux, http.MethodGet, "/leaderboard/user/u7?gameType=bgmi", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(errorCode(w), ShouldEqual, "not_found")
		})

		Convey("When the user path is malformed", func() {
			w := do(mux, http.MethodGet, "/leaderboard/user/a/b?gameType=bgmi", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When top performers are requested", func() {
			w := do(mux, http.MethodGet, "/leaderboard/top-performers?gameType=bgmi&limit=5", "")

			Convey("Then the limit is passed through", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(reader.lastTop.Limit, ShouldEqual, 5)
				So(w.Body.String(), ShouldContainSubstring, `"points":90`)
			})
		})

		Convey("When the summary is requested", func() {
			w := do(mux, http.MethodGet, "/leaderboard/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"totalPlayers":2`)
		})
	})
}

func TestAdminHandler(t *testing.T) {
	Convey("Given admin routes guarded by a token", t, func() {
		deps := &mockDeps{}
		mux := newMux(deps, &mockReader{}, api.WithAdminToken("s3cret"))
		auth := []string{"Authorization", "Bearer s3cret"}

		Convey("When the token is missing or wrong", func() {
			w := do(mux, http.MethodPost, "/leaderboard/initialize", "")
			So(w.Code, ShouldEqual, http.StatusUnauthorized)
			So(errorCode(w), ShouldEqual, "unauthorized")

			w = do(mux, http.MethodPost, "/leaderboard/initialize", "", "Authorization", "Bearer nope")
			So(w.Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("When initializing with the token", func() {
			w := do(mux, http.MethodPost, "/leaderboard/initialize", "", auth...)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"matches":3`)
		})

		Convey("When updating rankings", func() {
			w := do(mux, http.MethodPost, "/leaderboard/update-rankings", `{"gameType":"bgmi","tournamentId":"t1"}`, auth...)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.rankingsFor, ShouldEqual, "bgmi/t1")
			So(w.Body.String(), ShouldContainSubstring, `"overall":4`)

			w = do(mux, http.MethodPost, "/leaderboard/update-rankings", `{}`, auth...)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When cleaning up", func() {
			w := do(mux, http.MethodDelete, "/leaderboard/cleanup?monthsToKeep=3", "", auth...)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.cleanupArg, ShouldEqual, 3)
			So(w.Body.String(), ShouldContainSubstring, `"deleted":7`)

			w = do(mux, http.MethodDelete, "/leaderboard/cleanup?monthsToKeep=-2", "", auth...)
			So(w.Code, ShouldEqual, http.StatusBadRequest)

			w = do(mux, http.MethodPost, "/leaderboard/cleanup", "", auth...)
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When recording a tournament result", func() {
			w := do(mux, http.MethodPost, "/leaderboard/tournament-results",
				`{"tournamentId":"t1","userId":"u1","gameType":"cs2","placement":1,"prize":100}`, auth...)
			So(w.Code, ShouldEqual, http.StatusNoContent)
			So(deps.tournaments, ShouldHaveLength, 1)
			So(deps.tournaments[0].Prize, ShouldEqual, 100.0)

			deps.err = fmt.Errorf("%w: placement must be positive", model.ErrInvalidTournament)
			w = do(mux, http.MethodPost, "/leaderboard/tournament-results", `{"tournamentId":"t1"}`, auth...)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When storing a player", func() {
			w := do(mux, http.MethodPut, "/players/u1", `{"username":"ace","avatar":"https://cdn/u1.png"}`, auth...)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.players, ShouldResemble, []model.Player{{UserID: "u1", Username: "ace", AvatarURL: "https://cdn/u1.png"}})

			w = do(mux, http.MethodPut, "/players/", `{}`, auth...)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})

	Convey("Given admin routes without a token", t, func() {
		mux := newMux(&mockDeps{}, &mockReader{})

		Convey("Then they are open", func() {
			w := do(mux, http.MethodPost, "/leaderboard/initialize", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})
	})
}
