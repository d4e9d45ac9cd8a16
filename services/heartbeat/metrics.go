package heartbeat

import (
	"time"

	"heartbeat-controlplane/services/license"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "license_heartbeat_requests_total",
		Help: "Heartbeat requests by result code.",
	}, []string{"code"})
	requestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "license_heartbeat_duration_seconds",
		Help:    "Heartbeat pipeline latency.",
		Buckets: prometheus.DefBuckets,
	})
	geoLookupFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "license_geoip_lookup_failures_total",
		Help: "Geo lookups that failed or timed out; the country check was skipped.",
	})
	requestLogPublishFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "license_request_log_publish_failures_total",
		Help: "Request logs that could not be handed to the writer and were dropped.",
	})
)

func init() {
	prometheus.MustRegister(requestsTotal, requestDuration, geoLookupFailures, requestLogPublishFailures)
}

func observe(code license.RequestStatus, elapsed time.Duration) {
	requestsTotal.WithLabelValues(code.String()).Inc()
	requestDuration.Observe(elapsed.Seconds())
}
