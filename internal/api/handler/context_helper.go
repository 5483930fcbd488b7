package handler

import (
	"github.com/gin-gonic/gin"

	"attendance-engine/backend/internal/dto"
	"attendance-engine/backend/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id，作为审计字段中的操作人。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// bindPage 读取分页参数；校验失败时写入 400 响应
func bindPage(c *gin.Context) (dto.PaginationRequest, bool) {
	var p dto.PaginationRequest
	if err := c.ShouldBindQuery(&p); err != nil {
		response.BadRequest(c, 10001, "分页参数无效")
		return p, false
	}
	return p, true
}

// pageOf 对内存中的结果切片分页
func pageOf[T any](items []T, p dto.PaginationRequest) []T {
	offset := p.GetOffset()
	if offset >= len(items) {
		return []T{}
	}
	end := offset + p.GetPageSize()
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
