package dto

import "time"

// ── 考勤类型使用记录 / 门禁事件 / 策略配置 DTO ──

// RecordUsageRequest 登记考勤类型使用
type RecordUsageRequest struct {
	EmployeeID       string `json:"employee_id"        binding:"required"`
	UsedDate         string `json:"used_date"          binding:"required"` // "2025-11-04"
	AttendanceTypeID string `json:"attendance_type_id" binding:"required"`
}

// UsageQuery 使用记录查询参数
type UsageQuery struct {
	YearMonth  string `form:"year_month"  binding:"required"`
	EmployeeID string `form:"employee_id"`
}

// AccessEventInput 单条门禁事件
type AccessEventInput struct {
	EmployeeNumber  string     `json:"employee_number"  binding:"required,max=20"`
	EventDate       string     `json:"event_date"`       // yyyyMMdd；为空时由 source_timestamp 推导
	EventTime       string     `json:"event_time"`       // HHmmss
	SourceTimestamp *time.Time `json:"source_timestamp"`
}

// ImportAccessEventsRequest 批量导入门禁事件
type ImportAccessEventsRequest struct {
	Events []AccessEventInput `json:"events" binding:"required,min=1,dive"`
}

// ImportAccessEventsResponse 导入结果
type ImportAccessEventsResponse struct {
	Received   int   `json:"received"`
	Inserted   int64 `json:"inserted"`
	Duplicates int64 `json:"duplicates"`
}

// PolicyConfigResponse 考勤策略配置
type PolicyConfigResponse struct {
	NormalStartTime       string `json:"normal_start_time"`
	NormalEndTime         string `json:"normal_end_time"`
	LateGraceMinutes      int    `json:"late_grace_minutes"`
	WorkableMinutesPerDay int    `json:"workable_minutes_per_day"`
	IsDefault             bool   `json:"is_default"` // 数据库无配置时回退到配置文件
	UpdatedAt             string `json:"updated_at,omitempty"`
}

// UpdatePolicyConfigRequest 更新考勤策略配置（部分更新）
type UpdatePolicyConfigRequest struct {
	NormalStartTime       *string `json:"normal_start_time"`
	NormalEndTime         *string `json:"normal_end_time"`
	LateGraceMinutes      *int    `json:"late_grace_minutes"       binding:"omitempty,min=0,max=240"`
	WorkableMinutesPerDay *int    `json:"workable_minutes_per_day" binding:"omitempty,min=1,max=1440"`
}
