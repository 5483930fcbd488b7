package handler

import (
	"github.com/gin-gonic/gin"

	"attendance-engine/backend/internal/dto"
	"attendance-engine/backend/internal/service"
	"attendance-engine/backend/pkg/response"
)

// PolicyConfigHandler 考勤策略配置 HTTP 处理器
type PolicyConfigHandler struct {
	configSvc service.PolicyConfigService
}

// NewPolicyConfigHandler 创建 PolicyConfigHandler
func NewPolicyConfigHandler(configSvc service.PolicyConfigService) *PolicyConfigHandler {
	return &PolicyConfigHandler{configSvc: configSvc}
}

// GetConfig 获取考勤策略配置
// GET /api/v1/attendance/policy-config
func (h *PolicyConfigHandler) GetConfig(c *gin.Context) {
	cfg, err := h.configSvc.Get(c.Request.Context())
	if err != nil {
		handleServiceError(c, codePolicyConfig, err)
		return
	}

	response.OK(c, cfg)
}

// UpdateConfig 更新考勤策略配置
// PUT /api/v1/attendance/policy-config
func (h *PolicyConfigHandler) UpdateConfig(c *gin.Context) {
	var req dto.UpdatePolicyConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, err)
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	cfg, err := h.configSvc.Update(c.Request.Context(), &req, callerID)
	if err != nil {
		handleServiceError(c, codePolicyConfig, err)
		return
	}

	response.OK(c, cfg)
}
