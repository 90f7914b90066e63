package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the gateway's Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trade_gateway",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "trade_gateway",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	upstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "trade_gateway",
			Subsystem: "upstream",
			Name:      "call_duration_seconds",
			Help:      "Duration of calls to the trading API.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"op", "outcome"},
	)

	realtimeConnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trade_gateway",
			Subsystem: "realtime",
			Name:      "connects_total",
			Help:      "Realtime connection attempts by outcome.",
		},
		[]string{"outcome"},
	)

	realtimeChannels = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "trade_gateway",
			Subsystem: "realtime",
			Name:      "channels",
			Help:      "Live upstream realtime channels (one per signed-in user).",
		},
	)

	realtimeDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "trade_gateway",
			Subsystem: "realtime",
			Name:      "dropped_events_total",
			Help:      "Events discarded because a subscriber queue was full.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		upstreamDuration,
		realtimeConnects,
		realtimeChannels,
		realtimeDropped,
	)
}

// Handler exposes the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latencies labelled by chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// ObserveUpstream records one call to the trading API.
func ObserveUpstream(op string, err error, d time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	upstreamDuration.WithLabelValues(op, outcome).Observe(d.Seconds())
}

// RealtimeConnect counts a connection attempt.
func RealtimeConnect(ok bool) {
	if ok {
		realtimeConnects.WithLabelValues("ok").Inc()
		return
	}
	realtimeConnects.WithLabelValues("error").Inc()
}

// RealtimeChannels adjusts the live-channel gauge by delta.
func RealtimeChannels(delta int) { realtimeChannels.Add(float64(delta)) }

// RealtimeDropped counts an event evicted from a full subscriber queue.
func RealtimeDropped() { realtimeDropped.Inc() }
