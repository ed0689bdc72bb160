package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	responseTime = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "response_time",
			Help:    "http response time.",
			Buckets: []float64{0.5, 1, 5, 10, 30, 60},
		},
	)

	totalHttpRequestsFromRole = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "total_http_requests_from_role", Help: "http requests from role"},
		[]string{"role"},
	)

	totalHttpRequestsToUri = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "total_http_requests_to_uri", Help: "http requests to uri"},
		[]string{"code", "uri", "method"},
	)

	totalHttpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "total_http_requests", Help: "http requests by code, and method"},
		[]string{"code", "method"},
	)

	procedureCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "rpc_procedure_calls_total", Help: "procedure calls by name and response code"},
		[]string{"procedure", "code"},
	)

	procedureDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rpc_procedure_duration_seconds",
			Help:    "time spent decoding arguments and running the procedure",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"procedure"},
	)

	argumentRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "rpc_argument_rejections_total", Help: "calls rejected by argument validation"},
		[]string{"procedure"},
	)
)

func init() {
	prometheus.MustRegister(
		responseTime,
		totalHttpRequestsFromRole,
		totalHttpRequestsToUri,
		totalHttpRequests,
		procedureCalls,
		procedureDuration,
		argumentRejections,
	)
}

// ObserveCall counts one dispatched procedure call.
func ObserveCall(procedure string, code int) {
	procedureCalls.WithLabelValues(procedure, strconv.Itoa(code)).Inc()
}

// ObserveDuration records how long one procedure invocation took.
func ObserveDuration(procedure string, elapsed time.Duration) {
	procedureDuration.WithLabelValues(procedure).Observe(elapsed.Seconds())
}

// ObserveRejection counts a call refused before the procedure body ran.
func ObserveRejection(procedure string) {
	argumentRejections.WithLabelValues(procedure).Inc()
}

// TrackWhitelisted exports count as the rpc_whitelisted_procedures gauge.
// Registering twice keeps the first source.
func TrackWhitelisted(count func() int) error {
	g := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{Name: "rpc_whitelisted_procedures", Help: "procedures currently whitelisted"},
		func() float64 { return float64(count()) },
	)
	if err := prometheus.Register(g); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return nil
		}
		return err
	}
	return nil
}
