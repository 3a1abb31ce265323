package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	Namespace = "contacts"

	NameHTTPRequests        = "http_requests_total"
	NameHTTPRequestDuration = "http_request_duration_seconds"
	NameStoreFailures       = "store_failures_total"
	LabelMethod             = "method"
	LabelRoute              = "route"
	LabelStatus             = "status"
)

var HTTPRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name:      NameHTTPRequests,
		Help:      "Handled HTTP requests",
		Namespace: Namespace,
	},
	[]string{LabelMethod, LabelRoute, LabelStatus},
)

var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:      NameHTTPRequestDuration,
		Help:      "Latency of handled HTTP requests",
		Namespace: Namespace,
		Buckets:   prometheus.DefBuckets,
	},
	[]string{LabelMethod, LabelRoute},
)

// StoreFailures counts requests that ended in an internal failure because of the store.
var StoreFailures = promauto.NewCounter(
	prometheus.CounterOpts{
		Name:      NameStoreFailures,
		Help:      "Store operations that failed unexpectedly",
		Namespace: Namespace,
	},
)
