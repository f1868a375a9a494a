package logger

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the default initialization", t, func() {
		So(Init(), ShouldBeNil)
		Reset(func() { _ = Sync() })

		Convey("Get returns a usable logger", func() {
			l := Get()
			So(l, ShouldNotBeNil)
			l.Info(context.Background(), "test message", String("k", "v"))
		})

		Convey("Named returns a child logger", func() {
			So(Named("test"), ShouldNotBeNil)
		})
	})
}

func TestLoggerFormats(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(InitWithOptions(WithFormat(FormatJSON), WithOutput(&buf), WithLevel("debug")), ShouldBeNil)
		Reset(func() { _ = Init() })

		Convey("fields and component names are encoded", func() {
			Named("aggregator").With(String("view", "bgmi/overall")).
				Error(context.Background(), "update failed", Error(errors.New("boom")), Int64("points", 42))

			var line map[string]any
			So(json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line), ShouldBeNil)
			So(line["msg"], ShouldEqual, "update failed")
			So(line["component"], ShouldEqual, "aggregator")
			So(line["view"], ShouldEqual, "bgmi/overall")
			So(line["error"], ShouldEqual, "boom")
			So(line["points"], ShouldEqual, 42.0)
			So(line["source"], ShouldContainSubstring, "logger_test.go")
		})

		Convey("records below the level are dropped", func() {
			So(SetLevelString("warn"), ShouldBeNil)
			Get().Info(context.Background(), "quiet")
			So(buf.Len(), ShouldEqual, 0)
		})
	})

	Convey("Given the console format", t, func() {
		var buf bytes.Buffer
		So(InitWithOptions(WithFormat(FormatConsole), WithOutput(&buf)), ShouldBeNil)
		Reset(func() { _ = Init() })

		Get().Warn(context.Background(), "backpressure", Int("queue", 10))
		So(buf.String(), ShouldContainSubstring, "backpressure")
		So(buf.String(), ShouldContainSubstring, "queue=10")
	})

	Convey("Unknown formats and levels are rejected", t, func() {
		So(InitWithOptions(WithFormat("xml")), ShouldNotBeNil)
		So(SetLevelString("loud"), ShouldNotBeNil)
		So(Init(), ShouldBeNil)
	})
}

func TestLoggerFileSink(t *testing.T) {
	Convey("Given a rotating file sink", t, func() {
		path := filepath.Join(t.TempDir(), "logs", "ladder.log")
		var buf bytes.Buffer
		So(InitWithOptions(WithOutput(&buf), WithFile(path, 1, 1, 1, false)), ShouldBeNil)

		Get().Info(context.Background(), "to file")
		So(Sync(), ShouldBeNil)
		So(Init(), ShouldBeNil)

		data, err := os.ReadFile(path)
		So(err, ShouldBeNil)
		So(string(data), ShouldContainSubstring, "to file")
		So(buf.String(), ShouldContainSubstring, "to file")
	})
}
