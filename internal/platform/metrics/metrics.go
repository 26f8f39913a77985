package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hrleave/internal/domain/leave"
)

// Collector owns a private registry so tests and multiple servers in one
// process never collide on the default one.
type Collector struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	durations       *prometheus.HistogramVec
	rateLimited     prometheus.Counter
	transitions     *prometheus.CounterVec
	eventsPublished *prometheus.CounterVec
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hrleave",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hrleave",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hrleave",
			Name:      "http_rate_limited_total",
			Help:      "Requests answered with 429.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hrleave",
			Name:      "leave_transitions_total",
			Help:      "Leave request lifecycle changes by category and event.",
		}, []string{"category", "event"}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hrleave",
			Name:      "events_published_total",
			Help:      "Outbound leave events by outcome.",
		}, []string{"outcome"}),
	}
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.requests, c.durations, c.rateLimited, c.transitions, c.eventsPublished,
	)
	return c
}

func (c *Collector) Record(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	c.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.durations.WithLabelValues(method, route).Observe(duration.Seconds())
	if status == http.StatusTooManyRequests {
		c.rateLimited.Inc()
	}
}

func (c *Collector) RecordTransition(category leave.Category, eventType leave.EventType) {
	c.transitions.WithLabelValues(string(category), string(eventType)).Inc()
}

func (c *Collector) RecordPublish(err error) {
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	c.eventsPublished.WithLabelValues(outcome).Inc()
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
