package openaihttp

import (
	"strconv"
	"time"

	"github.com/LubyRuffy/ironb2o/backend"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ironb2o_http_requests_total",
			Help: "Total number of inbound HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	chatCompletionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ironb2o_chat_completions_total",
			Help: "Chat completion requests by response mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	streamFramesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ironb2o_stream_frames_total",
			Help: "Total number of chat.completion.chunk frames written to clients",
		},
	)

	malformedRecordsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ironb2o_malformed_records_total",
			Help: "Upstream SSE records skipped because they failed to parse",
		},
	)

	upstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ironb2o_upstream_requests_total",
			Help: "Upstream requests by endpoint and status code (0 = no response)",
		},
		[]string{"endpoint", "status"},
	)

	upstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ironb2o_upstream_request_duration_seconds",
			Help:    "Time until upstream response headers arrive",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"endpoint"},
	)
)

// ObserveUpstream 记录上游请求次数与耗时，可作为 backend.ClientConfig.Observer 使用。
func ObserveUpstream(endpoint backend.Endpoint, status int, elapsed time.Duration) {
	upstreamRequestsTotal.WithLabelValues(string(endpoint), strconv.Itoa(status)).Inc()
	upstreamRequestDuration.WithLabelValues(string(endpoint)).Observe(elapsed.Seconds())
}
