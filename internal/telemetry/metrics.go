package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	JobsCreated      = prometheus.NewCounter(prometheus.CounterOpts{Name: "apk_jobs_created_total", Help: "Total build jobs accepted"})
	JobsCompleted    = prometheus.NewCounter(prometheus.CounterOpts{Name: "apk_jobs_completed_total", Help: "Jobs that produced an artifact"})
	JobsFailed       = prometheus.NewCounter(prometheus.CounterOpts{Name: "apk_jobs_failed_total", Help: "Jobs that ended in failure"})
	BuildTimeouts    = prometheus.NewCounter(prometheus.CounterOpts{Name: "apk_build_timeouts_total", Help: "Gradle invocations killed by the timeout"})
	RateLimitRejects = prometheus.NewCounter(prometheus.CounterOpts{Name: "apk_rate_limit_rejects_total", Help: "Requests rejected by the rate limiter"})
	JobsInFlight     = prometheus.NewGauge(prometheus.GaugeOpts{Name: "apk_jobs_inflight", Help: "Jobs currently being processed"})
	QueueDepthGauge  = prometheus.NewGauge(prometheus.GaugeOpts{Name: "apk_queue_depth", Help: "Jobs waiting for a build worker"})
	BuildDuration    = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "apk_build_duration_seconds",
		Help:    "Wall-clock time of the gradle build stage",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})
)

// Handler exposes the /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			JobsCreated,
			JobsCompleted,
			JobsFailed,
			BuildTimeouts,
			RateLimitRejects,
			JobsInFlight,
			QueueDepthGauge,
			BuildDuration,
		)
	})
	return promhttp.Handler()
}
