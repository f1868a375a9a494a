package types_test

import (
	"testing"
	"time"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNewEntry(t *testing.T) {
	Convey("Given a ranked monthly entry", t, func() {
		e := model.Entry{
			Key: model.Key{UserID: "u1", View: model.View{
				Partition: model.Partition{GameType: model.GameBGMI, LeaderboardType: model.Monthly},
				Period:    model.Period{Year: 2024, Month: 5},
			}},
			Stats:      model.Stats{TotalMatches: 2, MatchesWon: 1, TotalKills: 6, TotalDeaths: 3, TotalScore: 1200},
			Points:     900,
			Rank:       3,
			RankChange: model.RankUp,
		}

		Convey("When the player is unknown", func() {
			v := types.NewEntry(e, model.Player{})

			Convey("Then the user id is still set and ratios are derived", func() {
				So(v.User.UserID, ShouldEqual, "u1")
				So(v.Stats.KDRatio, ShouldEqual, 2.0)
				So(v.Stats.WinRate, ShouldEqual, 50.0)
				So(v.Stats.AverageScore, ShouldEqual, 600.0)
				So(v.Period, ShouldResemble, &model.Period{Year: 2024, Month: 5})
			})
		})

		Convey("When the player is known", func() {
			v := types.NewEntry(e, model.Player{UserID: "u1", Username: "ace", AvatarURL: "https://cdn/ace.png"})
			So(v.User.Username, ShouldEqual, "ace")
			So(v.Rank, ShouldEqual, 3)
		})

		Convey("Overall entries omit the period", func() {
			e.LeaderboardType = model.Overall
			e.Period = model.Period{}
			e.LastUpdated = time.Now()
			So(types.NewEntry(e, model.Player{}).Period, ShouldBeNil)
		})
	})
}

func TestNewPagination(t *testing.T) {
	Convey("Pagination derives page counts and navigation flags", t, func() {
		p := types.NewPagination(1, 10, 25)
		So(p.TotalPages, ShouldEqual, 3)
		So(p.HasNext, ShouldBeTrue)
		So(p.HasPrev, ShouldBeFalse)

		p = types.NewPagination(3, 10, 25)
		So(p.HasNext, ShouldBeFalse)
		So(p.HasPrev, ShouldBeTrue)

		p = types.NewPagination(1, 10, 0)
		So(p.TotalPages, ShouldEqual, 0)
		So(p.HasNext, ShouldBeFalse)
	})
}
