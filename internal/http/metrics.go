package httpx

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	histogramBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}
)

func (r *Router) initMetrics() {
	r.metricsOnce.Do(func() {
		r.requestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "accounts",
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Count of processed HTTP requests",
		}, []string{"method", "route", "status"})

		r.requestLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "accounts",
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers",
			Buckets:   histogramBuckets,
		}, []string{"method", "route", "status"})

		r.authOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "accounts",
			Subsystem: "auth",
			Name:      "outcomes_total",
			Help:      "Results of authentication operations",
		}, []string{"operation", "outcome"})

		r.requestTotal = registerCollector(r.requestTotal)
		r.requestLatency = registerCollector(r.requestLatency)
		r.authOutcomes = registerCollector(r.authOutcomes)
		r.metricsInitialized = true
	})
}

// registerCollector registers c with the default registry, returning the
// already registered instance when another router got there first.
func registerCollector[C prometheus.Collector](c C) C {
	if err := prometheus.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

func (r *Router) recordRequestMetrics(method, route string, status int, duration time.Duration) {
	if !r.metricsInitialized {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"route":  route,
		"status": strconv.Itoa(status),
	}
	r.requestTotal.With(labels).Inc()
	r.requestLatency.With(labels).Observe(duration.Seconds())
}

func (r *Router) recordAuthOutcome(operation, outcome string) {
	if !r.metricsInitialized {
		return
	}
	r.authOutcomes.With(prometheus.Labels{"operation": operation, "outcome": outcome}).Inc()
}
