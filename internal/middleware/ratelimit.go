package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"matesl-go/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

var incrWithTTLScript = redis.NewScript(`
local c = redis.call("INCR", KEYS[1])
if c == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return c
`)

// RateLimiter 是基于 Redis 固定窗口的计数限流器。
type RateLimiter struct {
	redis  *redis.Client
	scope  string
	limit  int64
	window time.Duration
}

// NewRateLimiter 创建限流器，scope 用于区分不同的路由组。
func NewRateLimiter(rdb *redis.Client, scope string, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{redis: rdb, scope: scope, limit: limit, window: window}
}

// Allow 对 subject 计数一次，返回是否放行、已用次数和窗口结束时间。
func (r *RateLimiter) Allow(ctx context.Context, subject string, now time.Time) (allowed bool, used int64, resetAt time.Time, err error) {
	windowStart := now.UTC().Truncate(r.window)
	windowEnd := windowStart.Add(r.window)
	ttl := int64(windowEnd.Sub(now.UTC()).Seconds())
	if ttl < 1 {
		ttl = 1
	}

	key := fmt.Sprintf("ratelimit:%s:%s:%d", r.scope, subject, windowStart.Unix())
	res, err := incrWithTTLScript.Run(ctx, r.redis, []string{key}, ttl).Int64()
	if err != nil {
		return false, 0, time.Time{}, fmt.Errorf("rate limit script: %w", err)
	}
	return res <= r.limit, res, windowEnd, nil
}

// RateLimit 按用户（已登录）或客户端 IP 限流。Redis 不可用时放行。
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := "ip:" + c.ClientIP()
		if id := CurrentUserID(c); id != nil {
			subject = "user:" + strconv.FormatUint(uint64(*id), 10)
		}
		allowed, used, resetAt, err := limiter.Allow(c.Request.Context(), subject, time.Now())
		if err != nil {
			log.Warnf("[RateLimit] 限流检查失败, 放行请求: %v", err)
			c.Next()
			return
		}
		remaining := limiter.limit - used
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.FormatInt(limiter.limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"code": http.StatusTooManyRequests, "message": "请求过于频繁，请稍后再试", "data": nil})
			return
		}
		c.Next()
	}
}
