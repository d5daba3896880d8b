package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal HTTP 请求计数
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nutriflow_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration HTTP 请求耗时
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nutriflow_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// BatchRowsTotal 批量计算处理的行数，result=matched|not_found
	BatchRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nutriflow_batch_rows_total",
			Help: "Usage rows processed by batch calculation",
		},
		[]string{"result"},
	)

	// BatchDuration 单批计算耗时
	BatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nutriflow_batch_duration_seconds",
		Help:    "Duration of a usage calculation batch",
		Buckets: prometheus.DefBuckets,
	})

	// BatchFailuresTotal 因存储错误中止的批次
	BatchFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nutriflow_batch_failures_total",
		Help: "Batches aborted by a store error",
	})

	// UsageRowsSaved 按期间保存的行数
	UsageRowsSaved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nutriflow_usage_rows_saved_total",
		Help: "Usage rows persisted by period replace",
	})
)
