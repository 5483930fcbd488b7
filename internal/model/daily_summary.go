package model

import "gorm.io/gorm"

// DailyEventSummary 每日考勤汇总表 — 对应 daily_event_summaries
// 自然键 (date, employee_id) 唯一（含软删除行）：重新计算时复活旧行而非插入新行
type DailyEventSummary struct {
	DailyEventSummaryID string  `gorm:"type:varchar(36);primaryKey"                                    json:"daily_event_summary_id"`
	Date                string  `gorm:"type:varchar(10);not null;uniqueIndex:uk_daily_summary,priority:1" json:"date"`
	EmployeeID          string  `gorm:"type:varchar(36);not null;uniqueIndex:uk_daily_summary,priority:2;index" json:"employee_id"`
	EmployeeNumber      string  `gorm:"type:varchar(20);not null;default:''"                           json:"employee_number"`
	IsHoliday           bool    `gorm:"not null;default:false"                                         json:"is_holiday"`
	EnterTime           *string `gorm:"type:varchar(8)"                                                json:"enter_time"`     // 策略修正后的上班时刻
	LeaveTime           *string `gorm:"type:varchar(8)"                                                json:"leave_time"`     // 策略修正后的下班时刻
	RawEnterTime        *string `gorm:"type:varchar(8)"                                                json:"raw_enter_time"` // 门禁最早刷卡
	RawLeaveTime        *string `gorm:"type:varchar(8)"                                                json:"raw_leave_time"` // 门禁最晚刷卡
	IsChecked           bool    `gorm:"not null;default:false"                                         json:"is_checked"`
	IsLate              bool    `gorm:"not null;default:false"                                         json:"is_late"`
	IsAbsent            bool    `gorm:"not null;default:false"                                         json:"is_absent"`
	IsEarlyLeave        bool    `gorm:"not null;default:false"                                         json:"is_early_leave"`
	HasTypeConflict     bool    `gorm:"not null;default:false"                                         json:"has_type_conflict"`
	HasTypeOverlap      bool    `gorm:"not null;default:false"                                         json:"has_type_overlap"`
	WorkTime            *int    `                                                                      json:"work_time"` // 分钟
	Note                string  `gorm:"type:varchar(500);not null;default:''"                          json:"note"`

	AppliedAttendances    []AppliedAttendance `gorm:"serializer:json;type:text"  json:"applied_attendances"`
	MonthlyEventSummaryID *string             `gorm:"type:varchar(36);index"     json:"monthly_event_summary_id,omitempty"`
	SoftDeleteModel
}

// TableName 指定表名
func (DailyEventSummary) TableName() string { return "daily_event_summaries" }

func (d *DailyEventSummary) BeforeCreate(_ *gorm.DB) error {
	ensureID(&d.DailyEventSummaryID)
	return nil
}

// NaturalKey 自然键
func (d *DailyEventSummary) NaturalKey() string { return DailyKey(d.Date, d.EmployeeID) }

// DailyKey 拼接 (date, employeeId) 自然键
func DailyKey(date, employeeID string) string { return date + "|" + employeeID }

// NeedsReview 是否超出正常考勤范围（需生成考勤问题）
func (d *DailyEventSummary) NeedsReview() bool {
	return d.IsLate || d.IsEarlyLeave || d.IsAbsent || d.HasTypeConflict
}

// AppliedAttendance 当天使用的考勤类型（冗余快照，避免类型定义变更影响历史数据）
type AppliedAttendance struct {
	UsedAttendanceID       string                 `json:"used_attendance_id"`
	AttendanceTypeID       string                 `json:"attendance_type_id"`
	Title                  string                 `json:"title"`
	Category               AttendanceTypeCategory `json:"category"`
	IsRecognizedAsWorkTime bool                   `json:"is_recognized_as_work_time"`
	NominalDurationMinutes int                    `json:"nominal_duration_minutes"`
	WindowStart            *string                `json:"window_start,omitempty"`
	WindowEnd              *string                `json:"window_end,omitempty"`
}
