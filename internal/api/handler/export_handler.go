package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"attendance-engine/backend/internal/service"
	"attendance-engine/backend/pkg/response"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypePDF  = "application/pdf"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportMonthly 导出月度汇总 Excel
// GET /api/v1/attendance/export/monthly?year_month=2025-11&department_id=xxx
func (h *ExportHandler) ExportMonthly(c *gin.Context) {
	yearMonth := c.Query("year_month")
	if yearMonth == "" {
		response.BadRequest(c, 10001, "year_month 不能为空")
		return
	}

	buf, filename, err := h.exportSvc.ExportMonthlySummaries(c.Request.Context(), yearMonth, c.Query("department_id"))
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	response.Attachment(c, buf, filename, contentTypeXLSX)
}

// ExportEmployeePDF 导出单人月度考勤确认单
// GET /api/v1/attendance/export/monthly/:employee_id/pdf?year_month=2025-11
func (h *ExportHandler) ExportEmployeePDF(c *gin.Context) {
	yearMonth := c.Query("year_month")
	if yearMonth == "" {
		response.BadRequest(c, 10001, "year_month 不能为空")
		return
	}

	buf, filename, err := h.exportSvc.ExportEmployeeMonthlyPDF(c.Request.Context(), c.Param("employee_id"), yearMonth)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	response.Attachment(c, buf, filename, contentTypePDF)
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportGenerateFail):
		_ = c.Error(err)
		response.InternalError(c)
	default:
		handleServiceError(c, codeExport, err)
	}
}
