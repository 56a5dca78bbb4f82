package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the client's collectors. It is separate from the default
// registry so tests can read it without interference.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// RequestsTotal counts backend requests by endpoint and outcome
	RequestsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "catgpt",
		Name:      "requests_total",
		Help:      "Backend requests by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})

	// RequestDuration observes time to response headers
	RequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "catgpt",
		Name:      "request_duration_seconds",
		Help:      "Time until backend response headers.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint"})

	// StreamEventsTotal counts decoded run stream events
	StreamEventsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "catgpt",
		Name:      "stream_events_total",
		Help:      "Decoded run stream events by kind and whether they changed state.",
	}, []string{"kind", "accepted"})

	// StreamBytesTotal counts bytes read from run streams
	StreamBytesTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "catgpt",
		Name:      "stream_bytes_total",
		Help:      "Bytes read from run streams.",
	})

	// RunsActive is 1 while a run is streaming
	RunsActive = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "catgpt",
		Name:      "runs_active",
		Help:      "Runs currently streaming.",
	})

	// WatchersConnected is the number of websocket watchers
	WatchersConnected = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "catgpt",
		Name:      "watchers_connected",
		Help:      "Websocket clients watching run status.",
	})
)

// Handler serves the registry in the prometheus text format
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Outcome labels a request result
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
