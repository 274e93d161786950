package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dab_requests_total",
			Help: "Handled requests by operation and response status.",
		},
		[]string{"operation", "status"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dab_request_duration_seconds",
			Help:    "Time spent handling a request, including vendor calls and settle delays.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 20},
		},
		[]string{"operation"},
	)

	rpcCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rdk_rpc_calls_total",
			Help: "Vendor JSON-RPC calls by method and result.",
		},
		[]string{"method", "result"},
	)

	publishCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mqtt_publish_total",
			Help: "Outbound publishes by result.",
		},
		[]string{"result"},
	)

	publishQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mqtt_publish_queue_depth",
			Help: "Messages waiting for the publish worker.",
		},
	)

	reconnectCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mqtt_reconnect_attempts_total",
			Help: "Broker reconnect attempts.",
		},
	)

	telemetryRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dab_telemetry_running",
			Help: "1 while the telemetry publisher is active.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		requestCounter,
		requestDuration,
		rpcCounter,
		publishCounter,
		publishQueueDepth,
		reconnectCounter,
		telemetryRunning,
	)
}

// ObserveRequest records one handled request
func ObserveRequest(operation string, status int, elapsed time.Duration) {
	requestCounter.WithLabelValues(operation, strconv.Itoa(status)).Inc()
	requestDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveRPC records one vendor call
func ObserveRPC(method string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	rpcCounter.WithLabelValues(method, result).Inc()
}

// ObservePublish records one outbound publish
func ObservePublish(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	publishCounter.WithLabelValues(result).Inc()
}

// SetQueueDepth reports the publish queue length
func SetQueueDepth(n int) {
	publishQueueDepth.Set(float64(n))
}

// ObserveReconnect counts a reconnect attempt
func ObserveReconnect() {
	reconnectCounter.Inc()
}

// SetTelemetryRunning reports whether the telemetry publisher is active
func SetTelemetryRunning(running bool) {
	if running {
		telemetryRunning.Set(1)
		return
	}
	telemetryRunning.Set(0)
}
