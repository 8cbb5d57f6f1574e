package monitor

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestsTotal counts calls to the transaction service.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safe_service_requests_total",
			Help: "Total number of requests sent to the Safe transaction service.",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration tracks transaction service latency.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "safe_service_request_duration_seconds",
			Help:    "Safe transaction service request latency distributions.",
			Buckets: []float64{0.1, 0.3, 0.5, 1.0, 2.0, 5.0},
		},
		[]string{"method", "endpoint"},
	)

	initOnce sync.Once
)

// Init registers all metrics with the default registry. Safe to call more
// than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestsTotal)
		prometheus.MustRegister(RequestDuration)
		InitBusinessMetrics()
	})
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRequest records one transport round trip. status is the HTTP code
// or "error" when no response arrived.
func ObserveRequest(method, endpoint, status string, d time.Duration) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(d.Seconds())
}

// EndpointLabel turns a concrete API path into a template so addresses and
// hashes do not explode label cardinality:
// api/v1/safes/0xabc/ -> api/v1/safes/{id}/
func EndpointLabel(path string) string {
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for i, s := range segments {
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			segments[i] = "{id}"
		}
	}
	return strings.Join(segments, "/")
}
