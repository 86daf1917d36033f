package middleware

import (
	"bytes"
	"io"
	"strings"
	"time"

	"matesl-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// maxLoggedBody 截断记录的请求体和响应体。
const maxLoggedBody = 2048

// bodyLogWriter 用于捕获响应体
type bodyLogWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

// Write 将响应写入 gin.ResponseWriter 和一个内部的 buffer
func (w bodyLogWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// sensitivePath 的请求体和响应体包含密码或 token，不记录。
func sensitivePath(path string) bool {
	return strings.Contains(path, "/auth/") || strings.HasSuffix(path, "/password")
}

func truncate(b []byte) string {
	if len(b) > maxLoggedBody {
		return string(b[:maxLoggedBody]) + "...(truncated)"
	}
	return string(b)
}

// RequestLogger 是一个 Gin 中间件，用于记录请求和响应日志。
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		path := c.Request.URL.Path
		withBody := !sensitivePath(path) && !strings.HasSuffix(path, "/export")

		var requestBody []byte
		var blw *bodyLogWriter
		if withBody {
			if c.Request.Body != nil {
				requestBody, _ = io.ReadAll(c.Request.Body)
			}
			// 将读取的请求体重新设置回去，以便后续处理函数可以正常读取
			c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))
			blw = &bodyLogWriter{body: bytes.NewBufferString(""), ResponseWriter: c.Writer}
			c.Writer = blw
		}

		c.Next()

		fields := []interface{}{
			"statusCode", c.Writer.Status(),
			"latency", time.Since(startTime).String(),
			"clientIP", c.ClientIP(),
			"method", c.Request.Method,
			"path", path,
		}
		if withBody {
			fields = append(fields, "requestBody", truncate(requestBody), "responseBody", truncate(blw.body.Bytes()))
		}
		log.Infow("HTTP Request Log", fields...)
	}
}
