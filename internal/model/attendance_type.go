package model

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	pkgerrors "attendance-engine/backend/pkg/errors"
)

// AttendanceTypeCategory 考勤类型分类，用于整天/半天的认定
type AttendanceTypeCategory string

const (
	CategoryFullDay       AttendanceTypeCategory = "FULL_DAY"
	CategoryMorningHalf   AttendanceTypeCategory = "MORNING_HALF"
	CategoryAfternoonHalf AttendanceTypeCategory = "AFTERNOON_HALF"
	CategoryOther         AttendanceTypeCategory = "OTHER"
)

// Valid 是否为已知分类
func (c AttendanceTypeCategory) Valid() bool {
	switch c {
	case CategoryFullDay, CategoryMorningHalf, CategoryAfternoonHalf, CategoryOther:
		return true
	}
	return false
}

// AttendanceType 考勤类型定义表 — 对应 attendance_types（策略数据，核心只读）
type AttendanceType struct {
	AttendanceTypeID       string                 `gorm:"type:varchar(36);primaryKey"                  json:"attendance_type_id"`
	Title                  string                 `gorm:"type:varchar(50);not null"                    json:"title"`
	Category               AttendanceTypeCategory `gorm:"type:varchar(20);not null;default:'OTHER'"    json:"category"`
	NominalDurationMinutes int                    `gorm:"not null;default:0"                           json:"nominal_duration_minutes"`
	IsRecognizedAsWorkTime bool                   `gorm:"not null;default:false"                       json:"is_recognized_as_work_time"`
	WindowStart            *string                `gorm:"type:varchar(8)"                              json:"window_start,omitempty"` // HH:MM:SS
	WindowEnd              *string                `gorm:"type:varchar(8)"                              json:"window_end,omitempty"`   // HH:MM:SS
	DeductedLeaveUnits     decimal.Decimal        `gorm:"type:decimal(5,2);not null"                   json:"deducted_leave_units"`
	SoftDeleteModel
}

// TableName 指定表名
func (AttendanceType) TableName() string { return "attendance_types" }

func (a *AttendanceType) BeforeCreate(_ *gorm.DB) error {
	ensureID(&a.AttendanceTypeID)
	return a.Validate()
}

// Validate 校验实体不变量
func (a *AttendanceType) Validate() error {
	if a.Title == "" {
		return pkgerrors.Validation("考勤类型名称不能为空")
	}
	if a.Category == "" {
		a.Category = CategoryOther
	}
	if !a.Category.Valid() {
		return pkgerrors.Validation("考勤类型分类无效: %s", a.Category)
	}
	if a.NominalDurationMinutes < 0 {
		return pkgerrors.Validation("考勤类型时长不能为负数")
	}
	if a.DeductedLeaveUnits.IsNegative() {
		return pkgerrors.Validation("扣减假期单位不能为负数")
	}
	if (a.WindowStart == nil) != (a.WindowEnd == nil) {
		return pkgerrors.Validation("时间窗口的开始与结束必须同时设置")
	}
	if a.WindowStart != nil {
		start, err := ParseClock(*a.WindowStart)
		if err != nil {
			return pkgerrors.Validation("时间窗口开始%s", err.Error())
		}
		end, err := ParseClock(*a.WindowEnd)
		if err != nil {
			return pkgerrors.Validation("时间窗口结束%s", err.Error())
		}
		if end <= start {
			return pkgerrors.Validation("时间窗口结束必须晚于开始")
		}
	}
	return nil
}

// Window 返回时间窗口（秒），未设置时 ok=false
func (a *AttendanceType) Window() (start, end int, ok bool) {
	if a.WindowStart == nil || a.WindowEnd == nil {
		return 0, 0, false
	}
	s, err1 := ParseClock(*a.WindowStart)
	e, err2 := ParseClock(*a.WindowEnd)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return s, e, true
}

// UsedAttendance 考勤类型使用记录表 — 对应 used_attendances
// 表示某员工某天使用了某种休假/外出类型
type UsedAttendance struct {
	UsedAttendanceID string `gorm:"type:varchar(36);primaryKey"   json:"used_attendance_id"`
	EmployeeID       string `gorm:"type:varchar(36);not null;index:idx_used_attendance_emp_date,priority:1" json:"employee_id"`
	UsedDate         string `gorm:"type:varchar(10);not null;index:idx_used_attendance_emp_date,priority:2" json:"used_date"` // yyyy-MM-dd
	AttendanceTypeID string `gorm:"type:varchar(36);not null"     json:"attendance_type_id"`
	SoftDeleteModel

	// 关联
	AttendanceType *AttendanceType `gorm:"foreignKey:AttendanceTypeID;references:AttendanceTypeID" json:"attendance_type,omitempty"`
}

// TableName 指定表名
func (UsedAttendance) TableName() string { return "used_attendances" }

func (u *UsedAttendance) BeforeCreate(_ *gorm.DB) error {
	ensureID(&u.UsedAttendanceID)
	return nil
}
