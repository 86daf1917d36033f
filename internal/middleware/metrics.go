package middleware

import (
	"strconv"
	"time"

	"matesl-go/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics 以路由模板为标签记录请求数和耗时。
func Metrics() gin.HandlerFunc {
	m := metrics.Global()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
