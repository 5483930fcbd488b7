package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"attendance-engine/backend/pkg/response"
)

// BodyLimit 请求体大小限制中间件
// overrides 按路由模板（c.FullPath()）单独放宽，例如门禁事件批量导入
func BodyLimit(defaultBytes int64, overrides map[string]int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := defaultBytes
		if n, ok := overrides[c.FullPath()]; ok {
			limit = n
		}
		if c.Request.Body != nil && limit > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}

		c.Next()

		if c.Writer.Written() {
			return
		}
		for _, ginErr := range c.Errors {
			var tooLarge *http.MaxBytesError
			if errors.As(ginErr.Err, &tooLarge) {
				response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
				return
			}
		}
	}
}
