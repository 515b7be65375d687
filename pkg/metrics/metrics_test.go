package metrics

import (
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "faceattr")
				So(manager.subsystem, ShouldEqual, "api")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithConstLabels(map[string]string{"device": "cpu"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options should be applied", func() {
				So(manager.namespace, ShouldEqual, "test_namespace")
				So(manager.subsystem, ShouldEqual, "test_subsystem")
				So(manager.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
				So(manager.constLabels["device"], ShouldEqual, "cpu")
			})
		})

		Convey("When passing empty option values", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithPrometheusRegistry(registry),
			)

			Convey("Then defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "faceattr")
				So(manager.subsystem, ShouldEqual, "api")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording analysis outcomes", func() {
			before := testutil.ToFloat64(globalManager.analyses.WithLabelValues("ok"))
			RecordAnalysis("ok")
			RecordAnalysis("ok")

			Convey("Then the counter should advance", func() {
				after := testutil.ToFloat64(globalManager.analyses.WithLabelValues("ok"))
				So(after-before, ShouldEqual, 2)
			})
		})

		Convey("When recording archive writes", func() {
			before := testutil.ToFloat64(globalManager.archiveWrites.WithLabelValues("aligned", "disk", "error"))
			RecordArchiveWrite("aligned", "disk", false)

			Convey("Then the error result should be counted", func() {
				after := testutil.ToFloat64(globalManager.archiveWrites.WithLabelValues("aligned", "disk", "error"))
				So(after-before, ShouldEqual, 1)
			})
		})

		Convey("When a queue drops an item and a worker fails a job", func() {
			drops := testutil.ToFloat64(globalManager.queueDrops.WithLabelValues("s3-mirror", "queue_full"))
			jobs := testutil.ToFloat64(globalManager.workerJobs.WithLabelValues("s3-mirror", "error"))
			RecordQueueDrop("s3-mirror", "queue_full")
			RecordWorkerJob("s3-mirror", false, 12)
			UpdateQueueSize("s3-mirror", 3)
			UpdateWorkerActiveCount("s3-mirror", 2)

			Convey("Then both counters and gauges should reflect it", func() {
				So(testutil.ToFloat64(globalManager.queueDrops.WithLabelValues("s3-mirror", "queue_full"))-drops, ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.workerJobs.WithLabelValues("s3-mirror", "error"))-jobs, ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.queueSize.WithLabelValues("s3-mirror")), ShouldEqual, 3)
				So(testutil.ToFloat64(globalManager.workerActive.WithLabelValues("s3-mirror")), ShouldEqual, 2)
			})
		})

		Convey("When recording stage, http, error and system metrics", func() {
			Convey("Then nothing should panic", func() {
				So(func() {
					RecordStageDuration(StageDecode, 3)
					RecordStageDuration(StageInfer, 120)
					RecordFacesDetected(1)
					RecordCleanup("success")
					RecordHTTPRequest("analyze-face", "POST", "200")
					RecordHTTPRequestDuration("analyze-face", "POST", "200", 80)
					RecordErrorByType("client_error", "medium")
					RecordErrorByEndpoint("analyze-face", "POST", "client_error")
					UpdateSystemMemoryUsage(1 << 20)
					UpdateSystemGoroutineCount(12)
					RecordSystemGCPauseTime(0.3)
				}, ShouldNotPanic)
			})
		})

		Convey("When gathering the custom registry", func() {
			RecordAnalysis("no_face")
			families, err := GetRegistry().Gather()

			Convey("Then our metric families should be present", func() {
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				joined := strings.Join(names, ",")
				So(joined, ShouldContainSubstring, "faceattr_api_analyses_total")
				So(joined, ShouldNotContainSubstring, "go_goroutines")
			})
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given concurrent recorders", t, func() {
		before := testutil.ToFloat64(globalManager.cleanupRuns.WithLabelValues("concurrent"))

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				RecordCleanup("concurrent")
				RecordStageDuration(StageDetect, 10)
			}()
		}
		wg.Wait()

		Convey("Then every increment should be counted", func() {
			after := testutil.ToFloat64(globalManager.cleanupRuns.WithLabelValues("concurrent"))
			So(after-before, ShouldEqual, 50)
		})
	})
}
