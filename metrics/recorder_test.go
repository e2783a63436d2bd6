// SPDX-License-Identifier: MIT
package metrics_test

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/katalvlaran/coherent/metrics"
	"github.com/katalvlaran/coherent/reconcile"
)

func TestRecorder(t *testing.T) {
	Convey("Given a recorder on its own registry", t, func() {
		reg := prometheus.NewRegistry()
		rec := metrics.NewRecorder(metrics.WithRegistry(reg), metrics.WithNamespace("test"))
		So(rec.Registry(), ShouldEqual, reg)

		Convey("When a mint_shrink run succeeds", func() {
			rec.ObserveRun(reconcile.Report{
				Strategy:    reconcile.NameMinTrace,
				Method:      reconcile.MethodMinTShrink,
				Backend:     reconcile.BackendSparse,
				Nodes:       9,
				DroppedRows: 2,
				Lambda:      0.25,
				Duration:    3 * time.Millisecond,
			})

			Convey("Then the run is counted with its labels", func() {
				So(testutil.CollectAndCount(reg, "test_reconcile_runs_total"), ShouldEqual, 1)
			})

			Convey("Then the gauges carry the last run", func() {
				expected := `
# HELP test_reconcile_hierarchy_nodes Nodes in the hierarchy of the last run.
# TYPE test_reconcile_hierarchy_nodes gauge
test_reconcile_hierarchy_nodes 9
# HELP test_reconcile_shrinkage_lambda Shrinkage intensity of the last successful mint_shrink run.
# TYPE test_reconcile_shrinkage_lambda gauge
test_reconcile_shrinkage_lambda 0.25
# HELP test_reconcile_residual_rows_dropped_total Residual observations dropped because a node was missing a value.
# TYPE test_reconcile_residual_rows_dropped_total counter
test_reconcile_residual_rows_dropped_total 2
`
				err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
					"test_reconcile_hierarchy_nodes", "test_reconcile_shrinkage_lambda", "test_reconcile_residual_rows_dropped_total")
				So(err, ShouldBeNil)
			})
		})

		Convey("When a run fails", func() {
			rec.ObserveRun(reconcile.Report{Strategy: reconcile.NameBottomUp, Backend: reconcile.BackendNone, Err: errors.New("boom")})

			Convey("Then it is counted as a failure and still as a run", func() {
				So(testutil.CollectAndCount(reg, "test_reconcile_failures_total"), ShouldEqual, 1)
				So(testutil.CollectAndCount(reg, "test_reconcile_runs_total"), ShouldEqual, 1)
				So(testutil.CollectAndCount(reg, "test_reconcile_duration_seconds"), ShouldEqual, 1)
			})
		})

		Convey("When the handler is scraped", func() {
			rec.ObserveRun(reconcile.Report{Strategy: reconcile.NameNone, Backend: reconcile.BackendNone})
			w := httptest.NewRecorder()
			rec.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

			Convey("Then it exposes the run counter", func() {
				So(w.Code, ShouldEqual, 200)
				So(w.Body.String(), ShouldContainSubstring, `test_reconcile_runs_total{backend="none",method="none",strategy="none"} 1`)
			})
		})
	})
}

func TestRecorderDefaults(t *testing.T) {
	Convey("Given a recorder with defaults", t, func() {
		rec := metrics.NewRecorder(metrics.WithDurationBuckets([]float64{0.1, 1}))

		Convey("Then it owns a private registry", func() {
			So(rec.Registry(), ShouldNotBeNil)
			So(rec.Registry(), ShouldNotEqual, prometheus.DefaultRegisterer)
		})
	})
}
