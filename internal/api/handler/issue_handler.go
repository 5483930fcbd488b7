package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"attendance-engine/backend/internal/dto"
	"attendance-engine/backend/internal/service"
	"attendance-engine/backend/pkg/response"
)

// IssueHandler 考勤问题 HTTP 处理器
type IssueHandler struct {
	issueSvc service.IssueService
}

// NewIssueHandler 创建 IssueHandler
func NewIssueHandler(issueSvc service.IssueService) *IssueHandler {
	return &IssueHandler{issueSvc: issueSvc}
}

// ListIssues 分页查询考勤问题
// GET /api/v1/attendance/issues?year_month=2025-11&status=REQUEST&page=1&page_size=20
func (h *IssueHandler) ListIssues(c *gin.Context) {
	var q dto.IssueQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ValidationFailed(c, err)
		return
	}
	page, ok := bindPage(c)
	if !ok {
		return
	}

	issues, err := h.issueSvc.ListIssues(c.Request.Context(), &q)
	if err != nil {
		handleServiceError(c, codeIssue, err)
		return
	}

	response.OKPage(c, pageOf(issues, page), int64(len(issues)), page.GetPage(), page.GetPageSize())
}

// GetIssue 考勤问题详情
// GET /api/v1/attendance/issues/:id
func (h *IssueHandler) GetIssue(c *gin.Context) {
	issue, err := h.issueSvc.GetIssue(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, codeIssue, err)
		return
	}

	response.OK(c, issue)
}

// RecordCorrection 填写修正值（修正时刻与修正类型互斥）
// PUT /api/v1/attendance/issues/:id/correction
func (h *IssueHandler) RecordCorrection(c *gin.Context) {
	var req dto.IssueCorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, err)
		return
	}
	actor, ok := MustGetUserID(c)
	if !ok {
		return
	}

	issue, err := h.issueSvc.RecordIssueCorrection(c.Request.Context(), c.Param("id"), &req, actor)
	if err != nil {
		handleServiceError(c, codeIssue, err)
		return
	}

	response.OK(c, issue)
}

// ApplyIssue 审核通过，修正值写入每日汇总
// POST /api/v1/attendance/issues/:id/apply
func (h *IssueHandler) ApplyIssue(c *gin.Context) {
	// 请求体可省略（version 缺省为 0，跳过乐观锁校验）
	var req dto.ApplyIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.ValidationFailed(c, err)
		return
	}
	actor, ok := MustGetUserID(c)
	if !ok {
		return
	}

	issue, err := h.issueSvc.ApplyIssue(c.Request.Context(), c.Param("id"), req.Version, actor)
	if err != nil {
		handleServiceError(c, codeIssue, err)
		return
	}

	response.OK(c, issue)
}

// RejectIssue 驳回
// POST /api/v1/attendance/issues/:id/reject
func (h *IssueHandler) RejectIssue(c *gin.Context) {
	var req dto.RejectIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, err)
		return
	}
	actor, ok := MustGetUserID(c)
	if !ok {
		return
	}

	issue, err := h.issueSvc.RejectIssue(c.Request.Context(), c.Param("id"), &req, actor)
	if err != nil {
		handleServiceError(c, codeIssue, err)
		return
	}

	response.OK(c, issue)
}
