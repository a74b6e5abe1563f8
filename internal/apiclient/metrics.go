package apiclient

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce sync.Once

	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopadmin_api_requests_total",
			Help: "Backend API calls by method and outcome kind.",
		},
		[]string{"method", "kind"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shopadmin_api_request_duration_seconds",
			Help:    "Backend API call latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	forcedLogouts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shopadmin_forced_logouts_total",
		Help: "Sessions torn down after a 401 from the backend.",
	})
)

// RegisterMetrics registers the client collectors with reg (once per
// process). Collectors are updated whether or not they are registered.
func RegisterMetrics(reg prometheus.Registerer) {
	metricsOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		reg.MustRegister(requestsTotal, requestDuration, forcedLogouts)
	})
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return KindOf(err).String()
}
