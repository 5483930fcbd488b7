package model

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MonthlyEventSummary 月度考勤汇总表 — 对应 monthly_event_summaries
// 自然键 (employee_id, year_month) 唯一；每月每人只存在一行，重复计算时更新
type MonthlyEventSummary struct {
	MonthlyEventSummaryID string          `gorm:"type:varchar(36);primaryKey"                                       json:"monthly_event_summary_id"`
	EmployeeID            string          `gorm:"type:varchar(36);not null;uniqueIndex:uk_monthly_summary,priority:1" json:"employee_id"`
	YearMonth             string          `gorm:"type:varchar(7);not null;uniqueIndex:uk_monthly_summary,priority:2;index" json:"year_month"`
	EmployeeNumber        string          `gorm:"type:varchar(20);not null;default:''"                              json:"employee_number"`
	WorkDaysCount         int             `gorm:"not null;default:0"                                                json:"work_days_count"`
	TotalWorkableMinutes  int             `gorm:"not null;default:0"                                                json:"total_workable_minutes"`
	TotalWorkMinutes      int             `gorm:"not null;default:0"                                                json:"total_work_minutes"`
	AverageWorkMinutes    decimal.Decimal `gorm:"type:decimal(10,2);not null"                                       json:"average_work_minutes"`
	DeductedLeaveUnits    decimal.Decimal `gorm:"type:decimal(10,2);not null"                                       json:"deducted_leave_units"`
	LateCount             int             `gorm:"not null;default:0"                                                json:"late_count"`
	AbsenceCount          int             `gorm:"not null;default:0"                                                json:"absence_count"`
	EarlyLeaveCount       int             `gorm:"not null;default:0"                                                json:"early_leave_count"`

	AttendanceTypeCounts []AttendanceTypeCount `gorm:"serializer:json;type:text" json:"attendance_type_counts"`
	WeeklyWorkTimes      []WeeklyWorkTime      `gorm:"serializer:json;type:text" json:"weekly_work_times"`
	LateDetails          []LateDetail          `gorm:"serializer:json;type:text" json:"late_details"`
	AbsenceDetails       []AbsenceDetail       `gorm:"serializer:json;type:text" json:"absence_details"`
	EarlyLeaveDetails    []EarlyLeaveDetail    `gorm:"serializer:json;type:text" json:"early_leave_details"`
	SoftDeleteModel

	// 关联
	DailySummaries []DailyEventSummary `gorm:"foreignKey:MonthlyEventSummaryID;references:MonthlyEventSummaryID" json:"daily_summaries,omitempty"`
}

// TableName 指定表名
func (MonthlyEventSummary) TableName() string { return "monthly_event_summaries" }

func (m *MonthlyEventSummary) BeforeCreate(_ *gorm.DB) error {
	ensureID(&m.MonthlyEventSummaryID)
	return nil
}

// ── 明细项（JSON 列） ──

// AttendanceTypeCount 按考勤类型统计的使用天数
type AttendanceTypeCount struct {
	AttendanceTypeID string `json:"attendance_type_id"`
	Title            string `json:"title"`
	Count            int    `json:"count"`
}

// WeeklyWorkTime ISO 周的工作时长
// 周的起止日期截取到本月范围内
type WeeklyWorkTime struct {
	ISOYear     int    `json:"iso_year"`
	ISOWeek     int    `json:"iso_week"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	WorkMinutes int    `json:"work_minutes"`
}

// LateDetail 迟到明细
type LateDetail struct {
	Date         string  `json:"date"`
	EnterTime    *string `json:"enter_time"`
	RawEnterTime *string `json:"raw_enter_time"`
	Note         string  `json:"note,omitempty"`
}

// AbsenceDetail 缺勤明细
type AbsenceDetail struct {
	Date string `json:"date"`
	Note string `json:"note,omitempty"`
}

// EarlyLeaveDetail 早退明细
type EarlyLeaveDetail struct {
	Date         string  `json:"date"`
	LeaveTime    *string `json:"leave_time"`
	RawLeaveTime *string `json:"raw_leave_time"`
	Note         string  `json:"note,omitempty"`
}
