package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Route labels use c.FullPath() so cardinality stays bounded; requests that
// match no route share "unmatched". The caller label separates anonymous
// marketplace browsing from signed-in traffic.
var (
	httpReqs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "harvest",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, status and caller.",
	}, []string{"method", "path", "status", "caller"})

	httpLat = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "harvest",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	httpInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "harvest",
		Name:      "http_requests_inflight",
		Help:      "HTTP requests currently being served.",
	})

	// Up to 16 MiB: image uploads and PDF statements.
	httpRespSize = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "harvest",
		Name:      "http_response_size_bytes",
		Help:      "HTTP response body size by route.",
		Buckets:   prometheus.ExponentialBuckets(256, 4, 9),
	}, []string{"method", "path"})
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, httpRespSize)
}

// Metrics records the collectors above for every request.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		caller := "anonymous"
		if UserID(c) != "" {
			caller = "user"
		}
		m := c.Request.Method
		httpReqs.WithLabelValues(m, path, strconv.Itoa(c.Writer.Status()), caller).Inc()
		httpLat.WithLabelValues(m, path).Observe(time.Since(start).Seconds())
		if n := c.Writer.Size(); n >= 0 {
			httpRespSize.WithLabelValues(m, path).Observe(float64(n))
		}
	}
}
