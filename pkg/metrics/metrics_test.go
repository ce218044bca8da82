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
		Convey("When creating with default options on a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "mjledger")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("book"),
				WithHistogramBuckets([]float64{1, 10}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.RecordAppend(OutcomeCreated)

			Convey("Then metric names should use them", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_book_appends_total")
			})
		})

		Convey("When empty options are given", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithPrometheusRegistry(registry),
			)

			Convey("Then defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "mjledger")
				So(manager.subsystem, ShouldEqual, "ledger")
				So(manager.histogramBuckets, ShouldNotBeEmpty)
			})
		})
	})
}

func TestLedgerMetrics(t *testing.T) {
	Convey("Given a manager on its own registry", t, func() {
		registry := prometheus.NewRegistry()
		m := NewManager(WithPrometheusRegistry(registry))

		Convey("When loads are recorded", func() {
			m.RecordLedgerLoad(12*time.Millisecond, 3, 44)
			m.RecordLedgerLoadError()

			Convey("Then counters and gauges should reflect them", func() {
				So(testutil.ToFloat64(m.ledgerLoads.WithLabelValues("ok")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.ledgerLoads.WithLabelValues("error")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.sheetsLoaded), ShouldEqual, 3)
				So(testutil.ToFloat64(m.ledgerEvents), ShouldEqual, 44)
				So(testutil.ToFloat64(m.ledgerLastLoadUnix), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When sheets are skipped", func() {
			m.RecordSheetSkipped("not_data_sheet")
			m.RecordSheetSkipped("not_data_sheet")
			m.RecordSheetSkipped("malformed")

			Convey("Then they should be counted per reason", func() {
				So(testutil.ToFloat64(m.sheetsSkipped.WithLabelValues("not_data_sheet")), ShouldEqual, 2)
				So(testutil.ToFloat64(m.sheetsSkipped.WithLabelValues("malformed")), ShouldEqual, 1)
			})
		})

		Convey("When appends and queries are recorded", func() {
			m.RecordAppend(OutcomeAppended)
			m.RecordAppend(OutcomeFull)
			m.RecordAppendLatency(4)
			m.RecordStatsQuery("stats", 1.5)
			m.UpdateLedgerPlayers(6)

			Convey("Then the exposition should contain them", func() {
				So(testutil.ToFloat64(m.appends.WithLabelValues(OutcomeAppended)), ShouldEqual, 1)
				So(testutil.ToFloat64(m.appends.WithLabelValues(OutcomeFull)), ShouldEqual, 1)
				So(testutil.ToFloat64(m.ledgerPlayers), ShouldEqual, 6)
				So(testutil.CollectAndCount(m.statsQueryLatency), ShouldEqual, 1)
			})
		})
	})
}

func TestGlobalMetrics(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording through package functions", func() {
			So(func() {
				RecordLedgerLoad(time.Millisecond, 1, 8)
				RecordLedgerLoadError()
				RecordSheetSkipped("empty")
				UpdateLedgerPlayers(4)
				RecordAppend(OutcomeDuplicate)
				RecordAppendLatency(2)
				RecordStatsQuery("leaderboard", 0.4)
				RecordHTTPRequest("/stats", "GET", "200")
				RecordHTTPRequestDuration("/stats", "GET", "200", 1.2)
				RecordRateLimited("/records")
				RecordErrorByComponent("repository", "sheet_full")
				RecordErrorByEndpoint("/records", "POST", "validation")
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(7)
			}, ShouldNotPanic)

			Convey("Then the custom registry should expose the ledger metrics", func() {
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				var found bool
				for _, f := range families {
					if strings.HasSuffix(f.GetName(), "sheets_skipped_total") {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}
