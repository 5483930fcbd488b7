package handler

import (
	"github.com/gin-gonic/gin"

	"attendance-engine/backend/internal/dto"
	"attendance-engine/backend/internal/service"
	"attendance-engine/backend/pkg/response"
)

// AccessEventHandler 门禁事件导入 HTTP 处理器
type AccessEventHandler struct {
	eventSvc service.AccessEventService
}

// NewAccessEventHandler 创建 AccessEventHandler
func NewAccessEventHandler(eventSvc service.AccessEventService) *AccessEventHandler {
	return &AccessEventHandler{eventSvc: eventSvc}
}

// ImportEvents 批量导入门禁事件，重复事件忽略
// POST /api/v1/attendance/access-events
func (h *AccessEventHandler) ImportEvents(c *gin.Context) {
	var req dto.ImportAccessEventsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, err)
		return
	}

	result, err := h.eventSvc.ImportAccessEvents(c.Request.Context(), &req)
	if err != nil {
		handleServiceError(c, codeAccessEvent, err)
		return
	}

	response.OK(c, result)
}
