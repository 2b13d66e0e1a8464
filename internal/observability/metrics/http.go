package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "opsledger_http_request_duration_seconds",
	Help:    "HTTP request latency by endpoint and status code.",
	Buckets: prometheus.DefBuckets,
}, []string{"endpoint", "method", "status_code"})

// GinMiddleware records request latency with low-cardinality labels.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		endpoint := normalizeEndpoint(c.FullPath())
		start := time.Now()
		c.Next()

		httpRequestDuration.WithLabelValues(
			endpoint,
			c.Request.Method,
			strconv.Itoa(c.Writer.Status()),
		).Observe(time.Since(start).Seconds())
	}
}

func normalizeEndpoint(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return "unmatched"
	}
	return path
}
