package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// 同步核心指标
	SyncPushCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_push_total",
			Help: "Total number of progress push attempts",
		},
		[]string{"result"},
	)

	SyncPushRowCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_push_rows_total",
			Help: "Total number of per-course upsert rows pushed",
		},
		[]string{"result"},
	)

	SyncPullCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_pull_total",
			Help: "Total number of progress pull attempts",
		},
		[]string{"result"},
	)

	ChannelFlushCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_channel_flush_total",
			Help: "Total number of companion channel flush attempts",
		},
		[]string{"channel", "result"},
	)

	LifecycleCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_lifecycle_transitions_total",
			Help: "Total number of observed app lifecycle transitions",
		},
		[]string{"to"},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(SyncPushCounter)
	prometheus.MustRegister(SyncPushRowCounter)
	prometheus.MustRegister(SyncPullCounter)
	prometheus.MustRegister(ChannelFlushCounter)
	prometheus.MustRegister(LifecycleCounter)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
