package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created with ladder defaults", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "ladder")
				So(manager.subsystem, ShouldEqual, "leaderboard")
				So(manager.refreshInterval, ShouldEqual, defaultRefreshInterval)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("esports"),
				WithSubsystem("ranks"),
				WithMetricPrefix("v2"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithRefreshInterval(time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.matchesIngested.WithLabelValues("accepted").Inc()

			Convey("Then metric names carry namespace, subsystem and prefix", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				var found bool
				for _, f := range families {
					if f.GetName() == "esports_ranks_v2_matches_ingested_total" {
						found = true
						labels := f.GetMetric()[0].GetLabel()
						var env string
						for _, l := range labels {
							if l.GetName() == "env" {
								env = l.GetValue()
							}
						}
						So(env, ShouldEqual, "test")
					}
					So(strings.HasPrefix(f.GetName(), "esports_ranks_v2_"), ShouldBeTrue)
				}
				So(found, ShouldBeTrue)
				So(manager.refreshInterval, ShouldEqual, time.Second)
			})
		})

		Convey("When empty options are passed", func() {
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithRefreshInterval(0),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "ladder")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
				So(manager.refreshInterval, ShouldEqual, defaultRefreshInterval)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When matches are ingested", func() {
			before := testutil.ToFloat64(globalManager.matchesIngested.WithLabelValues("duplicate"))
			RecordMatchIngested("duplicate")
			RecordMatchIngested("duplicate")

			Convey("Then the outcome counter grows", func() {
				after := testutil.ToFloat64(globalManager.matchesIngested.WithLabelValues("duplicate"))
				So(after-before, ShouldEqual, 2.0)
			})
		})

		Convey("When a recalculation is recorded", func() {
			RecordRecalculation("weekly", 42, 3*time.Millisecond)

			Convey("Then the ranked entries gauge holds the last size", func() {
				So(testutil.ToFloat64(globalManager.rankedEntries.WithLabelValues("weekly")), ShouldEqual, 42.0)
			})
		})

		Convey("When store entries are updated", func() {
			UpdateStoreEntries("memory", 7)
			UpdateStoreEntries("memory", 3)

			Convey("Then the gauge holds the latest value", func() {
				So(testutil.ToFloat64(globalManager.storeEntries.WithLabelValues("memory")), ShouldEqual, 3.0)
			})
		})

		Convey("When cache results are recorded", func() {
			hits := testutil.ToFloat64(globalManager.cacheRequests.WithLabelValues("hit"))
			misses := testutil.ToFloat64(globalManager.cacheRequests.WithLabelValues("miss"))
			RecordCacheHit()
			RecordCacheMiss()
			RecordCacheMiss()

			Convey("Then hits and misses are counted apart", func() {
				So(testutil.ToFloat64(globalManager.cacheRequests.WithLabelValues("hit"))-hits, ShouldEqual, 1.0)
				So(testutil.ToFloat64(globalManager.cacheRequests.WithLabelValues("miss"))-misses, ShouldEqual, 2.0)
			})
		})

		Convey("When retention purges entries", func() {
			before := testutil.ToFloat64(globalManager.purgedTotal)
			RecordRetentionPurge(5)
			RecordRetentionPurge(0)

			Convey("Then the purge counter adds them", func() {
				So(testutil.ToFloat64(globalManager.purgedTotal)-before, ShouldEqual, 5.0)
			})
		})

		Convey("When the remaining recorders are called", func() {
			Convey("Then none of them panic", func() {
				So(func() {
					RecordMatchProcessed(time.Millisecond)
					RecordParticipantUpdate("overall", "updated")
					RecordTournamentResult()
					RecordStoreLatency("postgres", "mutate", 2*time.Millisecond)
					RecordCacheError()
					RecordCacheInvalidation(4)
					UpdateQueueSize(10)
					UpdateQueueCapacity(100)
					RecordQueueEnqueue()
					RecordQueueDequeue()
					RecordQueueEnqueueError()
					UpdateWorkerCount(4)
					RecordWorkerProcessingLatency(time.Millisecond)
					RecordWorkerError()
					RecordConsumerMessage("ladder.matches.completed", "ack")
					RecordHTTPRequest("/leaderboard", "GET", "200")
					RecordHTTPRequestDuration("/leaderboard", "GET", "200", 1.5)
					RecordErrorByComponent("cache", "timeout")
					UpdateSystemMemoryUsage(1 << 20)
					UpdateSystemGoroutineCount(12)
					RecordSystemGCPauseTime(0.3)
				}, ShouldNotPanic)
			})
		})

		Convey("When reading the registry", func() {
			Convey("Then it is the custom one", func() {
				So(GetRegistry(), ShouldEqual, customRegistry)
				So(RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})
	})
}
