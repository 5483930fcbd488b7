package handler

import (
	"github.com/gin-gonic/gin"

	"attendance-engine/backend/internal/dto"
	"attendance-engine/backend/internal/service"
	"attendance-engine/backend/pkg/response"
)

// UsageHandler 考勤类型使用记录 HTTP 处理器
type UsageHandler struct {
	usageSvc service.UsageService
}

// NewUsageHandler 创建 UsageHandler
func NewUsageHandler(usageSvc service.UsageService) *UsageHandler {
	return &UsageHandler{usageSvc: usageSvc}
}

// RecordUsage 登记考勤类型使用
// POST /api/v1/attendance/usages
func (h *UsageHandler) RecordUsage(c *gin.Context) {
	var req dto.RecordUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, err)
		return
	}
	actor, ok := MustGetUserID(c)
	if !ok {
		return
	}

	usage, err := h.usageSvc.RecordUsage(c.Request.Context(), &req, actor)
	if err != nil {
		handleServiceError(c, codeUsage, err)
		return
	}

	response.Created(c, usage)
}

// ListUsage 查询使用记录
// GET /api/v1/attendance/usages?year_month=2025-11&employee_id=xxx
func (h *UsageHandler) ListUsage(c *gin.Context) {
	var q dto.UsageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ValidationFailed(c, err)
		return
	}

	rows, err := h.usageSvc.ListUsage(c.Request.Context(), &q)
	if err != nil {
		handleServiceError(c, codeUsage, err)
		return
	}

	response.OK(c, gin.H{"list": rows})
}

// DeleteUsage 删除使用记录
// DELETE /api/v1/attendance/usages/:id
func (h *UsageHandler) DeleteUsage(c *gin.Context) {
	actor, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.usageSvc.DeleteUsage(c.Request.Context(), c.Param("id"), actor); err != nil {
		handleServiceError(c, codeUsage, err)
		return
	}

	response.OK(c, nil)
}
