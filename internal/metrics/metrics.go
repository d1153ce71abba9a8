package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "commit",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "commit",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "commit",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	goalCompletions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "commit",
			Subsystem: "goals",
			Name:      "completions_total",
			Help:      "Goal completions by kind (personal, member, group).",
		},
		[]string{"kind"},
	)

	goalsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "commit",
			Subsystem: "goals",
			Name:      "expired_total",
			Help:      "Goals moved to failed by the expire sweep.",
		},
	)

	achievementUnlocks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "commit",
			Subsystem: "achievements",
			Name:      "unlocks_total",
			Help:      "Achievement unlocks by rarity.",
		},
		[]string{"rarity"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		goalCompletions,
		goalsExpired,
		achievementUnlocks,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func IncInFlight() { httpInFlight.Inc() }
func DecInFlight() { httpInFlight.Dec() }

// RecordHTTPRequest records one served request. path should be the route
// template, not the raw URL, to keep label cardinality bounded.
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if path == "" {
		path = "unmatched"
	}
	httpRequests.WithLabelValues(method, path, status).Inc()
	httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func RecordGoalCompletion(kind string) {
	goalCompletions.WithLabelValues(kind).Inc()
}

func RecordGoalsExpired(n int) {
	if n > 0 {
		goalsExpired.Add(float64(n))
	}
}

func RecordAchievementUnlock(rarity string) {
	if rarity == "" {
		rarity = "common"
	}
	achievementUnlocks.WithLabelValues(rarity).Inc()
}
