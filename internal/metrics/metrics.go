// Package metrics holds the feed server's Prometheus collectors.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "brewlog_http_request_duration_seconds",
		Help:    "Duration of HTTP requests by route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	PublishTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "brewlog_publish_total",
		Help: "publishRecord calls by outcome (inserted, updated, error).",
	}, []string{"outcome"})

	DiscoverRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "brewlog_discover_requests_total",
		Help: "getDiscoverList calls by filter type.",
	}, []string{"filter_type"})

	DiscoverPageSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "brewlog_discover_page_items",
		Help:    "Number of records returned per discover page.",
		Buckets: []float64{0, 1, 5, 10, 20, 50, 100},
	})

	BatchRecordsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "brewlog_batch_records_total",
		Help: "Records processed by batchPublishRecords by result (inserted, skipped, failed).",
	}, []string{"result"})

	LoginsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "brewlog_logins_total",
		Help: "Login attempts by provider and status.",
	}, []string{"provider", "status"})
)

// MustRegister registers every collector with registerer.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		HTTPRequestDuration,
		PublishTotal,
		DiscoverRequestsTotal,
		DiscoverPageSize,
		BatchRecordsTotal,
		LoginsTotal,
	)
}

// ObserveHTTPRequest records one finished request.
func ObserveHTTPRequest(method, route string, status int, start time.Time) {
	if route == "" {
		route = "unknown"
	}
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
}

// ObservePublish counts one publishRecord outcome.
func ObservePublish(updated bool, err error) {
	switch {
	case err != nil:
		PublishTotal.WithLabelValues("error").Inc()
	case updated:
		PublishTotal.WithLabelValues("updated").Inc()
	default:
		PublishTotal.WithLabelValues("inserted").Inc()
	}
}

// ObserveDiscover counts one feed page served.
func ObserveDiscover(filterType string, items int) {
	if filterType == "" {
		filterType = "all"
	}
	DiscoverRequestsTotal.WithLabelValues(filterType).Inc()
	DiscoverPageSize.Observe(float64(items))
}

// ObserveBatch adds one batch's counts.
func ObserveBatch(inserted, skipped, failed int) {
	BatchRecordsTotal.WithLabelValues("inserted").Add(float64(inserted))
	BatchRecordsTotal.WithLabelValues("skipped").Add(float64(skipped))
	BatchRecordsTotal.WithLabelValues("failed").Add(float64(failed))
}

// ObserveLogin counts one login attempt.
func ObserveLogin(provider string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	if provider == "" {
		provider = "default"
	}
	LoginsTotal.WithLabelValues(provider, status).Inc()
}
