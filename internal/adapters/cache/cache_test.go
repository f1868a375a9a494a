package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	. "github.com/smartystreets/goconvey/convey"
)

type page struct {
	Rows  []string `json:"rows"`
	Total int      `json:"total"`
}

func TestNoop(t *testing.T) {
	Convey("Given the no-op cache", t, func() {
		ctx := context.Background()
		var c Cache = Noop{}

		Convey("Then writes succeed and every read misses", func() {
			So(c.Set(ctx, "k", page{Total: 1}, time.Minute, "t"), ShouldBeNil)
			var got page
			found, err := c.Get(ctx, "k", &got)
			So(err, ShouldBeNil)
			So(found, ShouldBeFalse)
			n, err := c.InvalidateTags(ctx, "t")
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 0)
			So(c.Close(), ShouldBeNil)
		})
	})
}

func TestRedis(t *testing.T) {
	Convey("Given a Redis cache over miniredis", t, func() {
		mr := miniredis.RunT(t)
		ctx := context.Background()
		c, err := Dial(ctx, mr.Addr(), "", 0, WithPrefix("test"))
		So(err, ShouldBeNil)
		Reset(func() { _ = c.Close() })

		Convey("When a value is stored", func() {
			want := page{Rows: []string{"u1", "u2"}, Total: 2}
			So(c.Set(ctx, "lb:bgmi:overall:1:50", want, time.Minute, "view:bgmi:overall", "stats"), ShouldBeNil)

			Convey("Then it reads back", func() {
				var got page
				found, err := c.Get(ctx, "lb:bgmi:overall:1:50", &got)
				So(err, ShouldBeNil)
				So(found, ShouldBeTrue)
				So(got, ShouldResemble, want)
			})

			Convey("Then keys carry the prefix", func() {
				So(mr.Exists("test:q:lb:bgmi:overall:1:50"), ShouldBeTrue)
				ok, err := mr.SIsMember("test:tag:stats", "test:q:lb:bgmi:overall:1:50")
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
			})

			Convey("Then it expires with its ttl", func() {
				mr.FastForward(2 * time.Minute)
				var got page
				found, err := c.Get(ctx, "lb:bgmi:overall:1:50", &got)
				So(err, ShouldBeNil)
				So(found, ShouldBeFalse)
			})

			Convey("Then invalidating one of its tags drops it", func() {
				So(c.Set(ctx, "other", page{Total: 9}, time.Minute, "view:cs2:overall"), ShouldBeNil)

				n, err := c.InvalidateTags(ctx, "view:bgmi:overall")
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)

				var got page
				found, _ := c.Get(ctx, "lb:bgmi:overall:1:50", &got)
				So(found, ShouldBeFalse)
				found, _ = c.Get(ctx, "other", &got)
				So(found, ShouldBeTrue)
				So(mr.Exists("test:tag:view:bgmi:overall"), ShouldBeFalse)
			})

			Convey("Then invalidating an unknown tag drops nothing", func() {
				n, err := c.InvalidateTags(ctx, "view:none")
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 0)
			})
		})

		Convey("When the stored payload is not valid JSON", func() {
			So(mr.Set("test:q:broken", "{not json"), ShouldBeNil)

			Convey("Then Get reports a codec error", func() {
				var got page
				found, err := c.Get(ctx, "broken", &got)
				So(found, ShouldBeFalse)
				So(errors.Is(err, ErrCodec), ShouldBeTrue)
			})
		})

		Convey("When the server goes away", func() {
			mr.Close()

			Convey("Then calls fail instead of hanging", func() {
				var got page
				_, err := c.Get(ctx, "k", &got)
				So(err, ShouldNotBeNil)
				So(c.Set(ctx, "k", page{}, time.Minute), ShouldNotBeNil)
			})
		})
	})
}

func TestDial(t *testing.T) {
	Convey("Given an address nobody listens on", t, func() {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		Convey("Then Dial fails with ErrConnect", func() {
			_, err := Dial(context.Background(), addr, "", 0, WithDialTimeout(200*time.Millisecond))
			So(errors.Is(err, ErrConnect), ShouldBeTrue)
		})
	})

	Convey("Given an existing client", t, func() {
		mr := miniredis.RunT(t)
		c := NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

		Convey("Then the default prefix is used", func() {
			So(c.Set(context.Background(), "k", 1, 0), ShouldBeNil)
			So(mr.Exists("ladder:q:k"), ShouldBeTrue)
			So(c.Close(), ShouldBeNil)
		})
	})
}
