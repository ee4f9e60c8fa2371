package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pitwall"

var (
	relayTicks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "relay",
		Name:      "ticks_total",
		Help:      "Relay ticks by outcome (broadcast, suppressed, skipped, failed).",
	}, []string{"outcome"})

	relayTickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "relay",
		Name:      "tick_duration_seconds",
		Help:      "Wall time of one relay tick.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20},
	})

	upstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "upstream",
		Name:      "requests_total",
		Help:      "Upstream API requests by api, endpoint and result.",
	}, []string{"api", "endpoint", "result"})

	upstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "upstream",
		Name:      "request_duration_seconds",
		Help:      "Upstream API request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"api", "endpoint"})

	gatewayClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "clients",
		Help:      "Connected websocket clients.",
	})

	gatewaySubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "live_timing_subscribers",
		Help:      "Clients subscribed to the live-timing room.",
	})

	gatewayDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "dropped_frames_total",
		Help:      "Outbound frames dropped because a client queue was full.",
	})

	apiRateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "rate_limited_total",
		Help:      "API requests refused by the per-client rate limit.",
	})
)

func ObserveTick(outcome string, took time.Duration) {
	relayTicks.WithLabelValues(outcome).Inc()
	relayTickDuration.Observe(took.Seconds())
}

func ObserveUpstream(api, endpoint, result string, took time.Duration) {
	upstreamRequests.WithLabelValues(api, endpoint, result).Inc()
	upstreamDuration.WithLabelValues(api, endpoint).Observe(took.Seconds())
}

func SetClients(n int)     { gatewayClients.Set(float64(n)) }
func SetSubscribers(n int) { gatewaySubscribers.Set(float64(n)) }
func DroppedFrame()        { gatewayDropped.Inc() }
func RateLimited()         { apiRateLimited.Inc() }
