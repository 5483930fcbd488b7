package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"attendance-engine/backend/pkg/redis"
	"attendance-engine/backend/pkg/response"
)

// RateLimit 批量计算类接口限流（Redis 固定窗口计数）
// 已认证请求按操作人计数，否则按客户端 IP；rdb 为 nil 或 Redis 出错时放行
func RateLimit(rdb *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil || limit <= 0 {
			c.Next()
			return
		}

		subject := c.GetString("user_id")
		if subject == "" {
			subject = "ip:" + c.ClientIP()
		}
		key := fmt.Sprintf("attendance:rate:%s:%s", c.FullPath(), subject)

		allowed, err := rdb.CheckRateLimit(c.Request.Context(), key, limit, window)
		if err != nil {
			c.Next()
			return
		}
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			response.TooManyRequests(c, 10004, "批量计算请求过于频繁，请稍后再试")
			c.Abort()
			return
		}

		c.Next()
	}
}
