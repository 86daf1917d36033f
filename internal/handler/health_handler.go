package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthCheck 是一个依赖检查，返回 nil 表示正常。
type HealthCheck func(ctx context.Context) error

// Health 依次执行检查，任一失败返回 503。
func Health(service string, checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}
		state := "ok"
		if status != http.StatusOK {
			state = "degraded"
		}
		c.JSON(status, gin.H{
			"code":    status,
			"message": state,
			"data": gin.H{
				"service":   service,
				"status":    state,
				"checks":    results,
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			},
		})
	}
}
