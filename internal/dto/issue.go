package dto

// ── 考勤问题 DTO ──

// IssueQuery 考勤问题查询参数
type IssueQuery struct {
	YearMonth  string `form:"year_month"  binding:"required"`
	Status     string `form:"status"      binding:"omitempty,oneof=REQUEST APPLIED NOT_APPLIED"`
	EmployeeID string `form:"employee_id"`
}

// IssueCorrectionRequest 填写修正值
// 修正时刻与修正考勤类型互斥
type IssueCorrectionRequest struct {
	CorrectedEnterTime         *string  `json:"corrected_enter_time"`
	CorrectedLeaveTime         *string  `json:"corrected_leave_time"`
	CorrectedAttendanceTypeIDs []string `json:"corrected_attendance_type_ids" binding:"omitempty,max=2"`
	Version                    int      `json:"version"`
}

// ApplyIssueRequest 审核通过
type ApplyIssueRequest struct {
	Version int `json:"version"`
}

// RejectIssueRequest 驳回
type RejectIssueRequest struct {
	Reason  string `json:"reason"  binding:"required,max=500"`
	Version int    `json:"version"`
}
