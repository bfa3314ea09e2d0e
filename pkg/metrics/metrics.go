package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the zhiyin collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zhiyin",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	upstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "zhiyin",
			Subsystem: "upstream",
			Name:      "call_duration_seconds",
			Help:      "Duration of generation engine calls.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8), // 250ms to ~32s
		},
		[]string{"success"},
	)

	generations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zhiyin",
			Subsystem: "studio",
			Name:      "generations_total",
			Help:      "Generation attempts by outcome.",
		},
		[]string{"outcome"},
	)
)

// Generation outcomes.
const (
	OutcomeSuccess      = "success"
	OutcomeFailure      = "failure"
	OutcomeInsufficient = "insufficient"
	OutcomeIgnored      = "ignored"
)

func init() {
	Registry.MustRegister(
		httpRequests,
		upstreamDuration,
		generations,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler exposes the registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func RecordHTTPRequest(method, path string, status int) {
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}

func RecordUpstreamCall(success bool, d time.Duration) {
	upstreamDuration.WithLabelValues(strconv.FormatBool(success)).Observe(d.Seconds())
}

func RecordGeneration(outcome string) {
	generations.WithLabelValues(outcome).Inc()
}
