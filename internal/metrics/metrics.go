// Package metrics exposes Prometheus instrumentation for the comment service
package metrics

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SubmissionsTotal counts submissions by outcome: the initial status on
	// success, or the error kind on rejection.
	SubmissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "anon_comments_submissions_total",
		Help: "Comment submissions by outcome",
	}, []string{"outcome"})

	// TransitionsTotal counts status changes by target status and cause
	TransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "anon_comments_transitions_total",
		Help: "Comment status transitions",
	}, []string{"status", "cause"})

	ReportsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "anon_comments_reports_total",
		Help: "Abuse reports recorded",
	})

	// BansTotal counts ban actions: created, updated, deleted, swept
	BansTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "anon_comments_bans_total",
		Help: "Ban actions",
	}, []string{"action"})

	SubmitLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "anon_comments_submit_latency_seconds",
		Help:    "Submission pipeline latency in seconds",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	})

	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "anon_comments_http_requests_total",
		Help: "HTTP requests by route and status code",
	}, []string{"method", "route", "code"})
)

func init() {
	prometheus.MustRegister(
		SubmissionsTotal,
		TransitionsTotal,
		ReportsTotal,
		BansTotal,
		SubmitLatency,
		HTTPRequests,
	)
}

// ObserveHTTP records one handled request
func ObserveHTTP(method, route string, code int) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
}

// RegisterDBStats exports connection pool statistics for db
func RegisterDBStats(db *sql.DB) error {
	return prometheus.Register(collectors.NewDBStatsCollector(db, "anon_comments"))
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
