package dto

import "time"

// ── 快照 DTO ──

// SaveSnapshotRequest 保存快照请求
type SaveSnapshotRequest struct {
	Year         int     `json:"year"          binding:"required,min=2000,max=2100"`
	Month        int     `json:"month"         binding:"required,min=1,max=12"`
	Scope        string  `json:"scope"         binding:"required,oneof=COMPANY DEPARTMENT"`
	DepartmentID string  `json:"department_id"`
	Name         string  `json:"name"          binding:"max=100"`
	SnapshotType string  `json:"snapshot_type" binding:"max=30"`
	Description  string  `json:"description"   binding:"max=500"`
	ApprovedBy   *string `json:"approved_by"`
}

// SaveDepartmentSnapshotsRequest 按部门批量保存快照
type SaveDepartmentSnapshotsRequest struct {
	Year         int     `json:"year"          binding:"required,min=2000,max=2100"`
	Month        int     `json:"month"         binding:"required,min=1,max=12"`
	Name         string  `json:"name"          binding:"max=100"`
	SnapshotType string  `json:"snapshot_type" binding:"max=30"`
	Description  string  `json:"description"   binding:"max=500"`
	ApprovedBy   *string `json:"approved_by"`
}

// SnapshotQuery 快照列表查询参数
type SnapshotQuery struct {
	Year         int    `form:"year"`
	Month        int    `form:"month"         binding:"omitempty,min=1,max=12"`
	Scope        string `form:"scope"         binding:"omitempty,oneof=COMPANY DEPARTMENT"`
	DepartmentID string `form:"department_id"`
}

// SnapshotResponse 快照头
type SnapshotResponse struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	SnapshotType  string     `json:"snapshot_type"`
	Year          int        `json:"year"`
	Month         int        `json:"month"`
	Scope         string     `json:"scope"`
	DepartmentID  string     `json:"department_id,omitempty"`
	Version       string     `json:"version"`
	Description   string     `json:"description"`
	ApprovedBy    *string    `json:"approved_by,omitempty"`
	ApprovedAt    *time.Time `json:"approved_at,omitempty"`
	EmployeeCount int        `json:"employee_count"`
	CreatedAt     string     `json:"created_at"`
}

// SnapshotChildSummary 快照明细摘要（不含载荷正文）
type SnapshotChildSummary struct {
	EmployeeID     string `json:"employee_id"`
	EmployeeNumber string `json:"employee_number"`
	DailyCount     int    `json:"daily_count"`
	IssueCount     int    `json:"issue_count"`
	HistoryCount   int    `json:"history_count"`
	HasRawInput    bool   `json:"has_raw_input"`
}

// SnapshotDetailResponse 快照详情
type SnapshotDetailResponse struct {
	SnapshotResponse
	Children []SnapshotChildSummary `json:"children"`
}

// DepartmentSnapshotsResponse 按部门批量保存结果
type DepartmentSnapshotsResponse struct {
	Saved               []SnapshotResponse `json:"saved"`
	SkippedDepartments  []string           `json:"skipped_departments"` // 无月度汇总
	FailedDepartmentIDs []string           `json:"failed_department_ids"`
}

// RestoreSnapshotResponse 快照恢复结果
type RestoreSnapshotResponse struct {
	SnapshotID        string `json:"snapshot_id"`
	YearMonth         string `json:"year_month"`
	RestoredDaily     int    `json:"restored_daily"`
	RestoredMonthly   int    `json:"restored_monthly"`
	RestoredIssues    int    `json:"restored_issues"`
	RestoredHistories int    `json:"restored_histories"`
}
