package dto

// ── 每日 / 月度汇总 DTO ──

// GenerateDailyRequest 生成每日汇总请求（LIVE 模式）
type GenerateDailyRequest struct {
	YearMonth string `json:"year_month" binding:"required"` // "2025-11"
}

// GenerateMonthlyRequest 生成月度汇总请求
type GenerateMonthlyRequest struct {
	YearMonth  string `json:"year_month"  binding:"required"`
	EmployeeID string `json:"employee_id"` // 为空表示全部员工
}

// DailyGenerationResponse 每日汇总生成结果
type DailyGenerationResponse struct {
	YearMonth     string `json:"year_month"`
	Mode          string `json:"mode"` // LIVE | SNAPSHOT
	EmployeeCount int    `json:"employee_count"`
	Count         int    `json:"count"`
	IssueCount    int    `json:"issue_count"`
	NewIssueCount int    `json:"new_issue_count"`
}

// MonthlyGenerationResponse 月度汇总生成结果
type MonthlyGenerationResponse struct {
	YearMonth string `json:"year_month"`
	Count     int    `json:"count"`
}

// RunMonthRequest 整月重算请求
type RunMonthRequest struct {
	YearMonth string `json:"year_month" binding:"required"`
}

// RunMonthResponse 整月重算结果
type RunMonthResponse struct {
	YearMonth string                    `json:"year_month"`
	Daily     DailyGenerationResponse   `json:"daily"`
	Monthly   MonthlyGenerationResponse `json:"monthly"`
}

// DailySummaryQuery 每日汇总查询参数
type DailySummaryQuery struct {
	YearMonth  string `form:"year_month"  binding:"required"`
	EmployeeID string `form:"employee_id"`
}

// MonthlySummaryQuery 月度汇总查询参数
type MonthlySummaryQuery struct {
	YearMonth    string `form:"year_month"    binding:"required"`
	DepartmentID string `form:"department_id"`
}

// UpdateDailySummaryRequest 人工修改每日汇总
// 未提供的字段保持不变；Reason 必填，写入修改记录
type UpdateDailySummaryRequest struct {
	EnterTime *string `json:"enter_time"` // "HH:MM" 或 "HH:MM:SS"
	LeaveTime *string `json:"leave_time"`
	Note      *string `json:"note"       binding:"omitempty,max=500"`
	IsChecked *bool   `json:"is_checked"`
	Reason    string  `json:"reason"     binding:"required,max=500"`
}
