package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zipview_requests_total",
			Help: "Total number of requests by route and status",
		},
		[]string{"route", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "zipview_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	TransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zipview_transitions_total",
			Help: "Session transitions by operation and result",
		},
		[]string{"op", "result"},
	)

	UploadBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "zipview_upload_bytes",
			Help:    "Size of uploaded archives",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		},
	)

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "zipview_active_sessions",
			Help: "Number of live browser sessions",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		TransitionsTotal,
		UploadBytes,
		ActiveSessions,
	)
}

func metricsHandler() http.Handler {
	return promhttp.Handler()
}

func RecordRequest(route string, status int, duration time.Duration) {
	RequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	RequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordTransition counts a session operation by the class of its error.
func RecordTransition(op string, err error) {
	TransitionsTotal.WithLabelValues(op, transitionResult(err)).Inc()
}

func transitionResult(err error) string {
	var pe *ParseError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &pe):
		return "parse_error"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	}
	return "error"
}
