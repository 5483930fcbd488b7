package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
	// 外部传入的 Request-ID 超长时重新生成，避免污染日志
	requestIDMaxLen = 64
)

type requestIDCtxKey struct{}

// RequestID 请求追踪 ID 中间件
// 沿用请求头 X-Request-ID，缺失时生成 UUID；同时写入 gin.Context 与 request context，
// 下游可通过 RequestIDFromContext 取得
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" || len(rid) > requestIDMaxLen {
			rid = uuid.NewString()
		}

		c.Set(requestIDKey, rid)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), requestIDCtxKey{}, rid))
		c.Header(requestIDHeader, rid)

		c.Next()
	}
}

// RequestIDFromContext 读取请求追踪 ID，不存在时返回空串
func RequestIDFromContext(ctx context.Context) string {
	rid, _ := ctx.Value(requestIDCtxKey{}).(string)
	return rid
}
