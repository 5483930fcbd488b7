package handler

import (
	"github.com/gin-gonic/gin"

	"attendance-engine/backend/internal/dto"
	"attendance-engine/backend/internal/service"
	"attendance-engine/backend/pkg/response"
)

// SummaryHandler 每日 / 月度汇总与整月重算 HTTP 处理器
type SummaryHandler struct {
	dailySvc   service.DailySummaryService
	monthlySvc service.MonthlySummaryService
	jobSvc     service.PeriodJobService
}

// NewSummaryHandler 创建 SummaryHandler
func NewSummaryHandler(dailySvc service.DailySummaryService, monthlySvc service.MonthlySummaryService, jobSvc service.PeriodJobService) *SummaryHandler {
	return &SummaryHandler{dailySvc: dailySvc, monthlySvc: monthlySvc, jobSvc: jobSvc}
}

// ════════════════════════════════════════════════════════════
// 每日汇总
// ════════════════════════════════════════════════════════════

// GenerateDaily 以当前门禁事件与使用记录重新生成整月每日汇总
// POST /api/v1/attendance/daily/generate
func (h *SummaryHandler) GenerateDaily(c *gin.Context) {
	var req dto.GenerateDailyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, err)
		return
	}
	actor, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.dailySvc.GenerateDailySummaries(c.Request.Context(), req.YearMonth, service.GenerationModeLive, nil, actor)
	if err != nil {
		handleServiceError(c, codeSummary, err)
		return
	}

	response.OK(c, result)
}

// ListDaily 查询每日汇总
// GET /api/v1/attendance/daily?year_month=2025-11&employee_id=xxx
func (h *SummaryHandler) ListDaily(c *gin.Context) {
	var q dto.DailySummaryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ValidationFailed(c, err)
		return
	}

	rows, err := h.dailySvc.ListDailySummaries(c.Request.Context(), q.YearMonth, q.EmployeeID)
	if err != nil {
		handleServiceError(c, codeSummary, err)
		return
	}

	response.OK(c, gin.H{"list": rows})
}

// GetDaily 每日汇总详情
// GET /api/v1/attendance/daily/:id
func (h *SummaryHandler) GetDaily(c *gin.Context) {
	row, err := h.dailySvc.GetDailySummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, codeSummary, err)
		return
	}

	response.OK(c, row)
}

// UpdateDaily 人工修改每日汇总（写入修改记录）
// PUT /api/v1/attendance/daily/:id
func (h *SummaryHandler) UpdateDaily(c *gin.Context) {
	var req dto.UpdateDailySummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, err)
		return
	}
	actor, ok := MustGetUserID(c)
	if !ok {
		return
	}

	row, err := h.dailySvc.UpdateDailySummary(c.Request.Context(), c.Param("id"), &req, actor)
	if err != nil {
		handleServiceError(c, codeSummary, err)
		return
	}

	response.OK(c, row)
}

// ListChangeHistory 每日汇总的修改记录
// GET /api/v1/attendance/daily/:id/histories
func (h *SummaryHandler) ListChangeHistory(c *gin.Context) {
	rows, err := h.dailySvc.ListChangeHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, codeSummary, err)
		return
	}

	response.OK(c, gin.H{"list": rows})
}

// ════════════════════════════════════════════════════════════
// 月度汇总
// ════════════════════════════════════════════════════════════

// GenerateMonthly 由每日汇总聚合月度汇总；指定 employee_id 时只生成该员工
// POST /api/v1/attendance/monthly/generate
func (h *SummaryHandler) GenerateMonthly(c *gin.Context) {
	var req dto.GenerateMonthlyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, err)
		return
	}
	actor, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if req.EmployeeID != "" {
		row, err := h.monthlySvc.GenerateEmployeeMonthlySummary(c.Request.Context(), req.EmployeeID, req.YearMonth, actor)
		if err != nil {
			handleServiceError(c, codeSummary, err)
			return
		}
		response.OK(c, row)
		return
	}

	result, err := h.monthlySvc.GenerateMonthlySummaries(c.Request.Context(), req.YearMonth, actor)
	if err != nil {
		handleServiceError(c, codeSummary, err)
		return
	}

	response.OK(c, result)
}

// ListMonthly 查询月度汇总
// GET /api/v1/attendance/monthly?year_month=2025-11&department_id=xxx
func (h *SummaryHandler) ListMonthly(c *gin.Context) {
	var q dto.MonthlySummaryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ValidationFailed(c, err)
		return
	}

	rows, err := h.monthlySvc.ListMonthlySummaries(c.Request.Context(), q.YearMonth, q.DepartmentID)
	if err != nil {
		handleServiceError(c, codeSummary, err)
		return
	}

	response.OK(c, gin.H{"list": rows})
}

// GetMonthly 单个员工的月度汇总
// GET /api/v1/attendance/monthly/:employee_id?year_month=2025-11
func (h *SummaryHandler) GetMonthly(c *gin.Context) {
	yearMonth := c.Query("year_month")
	if yearMonth == "" {
		response.BadRequest(c, 10001, "year_month 不能为空")
		return
	}

	row, err := h.monthlySvc.GetMonthlySummary(c.Request.Context(), c.Param("employee_id"), yearMonth)
	if err != nil {
		handleServiceError(c, codeSummary, err)
		return
	}

	response.OK(c, row)
}

// ── 整月重算 ──

// RunMonth 在月份锁保护下依次生成每日汇总与月度汇总
// POST /api/v1/attendance/jobs/run-month
func (h *SummaryHandler) RunMonth(c *gin.Context) {
	var req dto.RunMonthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, err)
		return
	}
	actor, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.jobSvc.RunMonth(c.Request.Context(), req.YearMonth, actor)
	if err != nil {
		handleServiceError(c, codeSummary, err)
		return
	}

	response.OK(c, result)
}
