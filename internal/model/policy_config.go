package model

import pkgerrors "attendance-engine/backend/pkg/errors"

// AttendancePolicyConfig 考勤策略配置表 — 对应 attendance_policy_config（单行强类型）
// 无记录时策略提供者回退到配置文件 attendance.* 默认值
type AttendancePolicyConfig struct {
	Singleton             bool   `gorm:"primaryKey;default:true"                  json:"-"`
	NormalStartTime       string `gorm:"type:varchar(8);not null;default:'09:00:00'" json:"normal_start_time"`
	NormalEndTime         string `gorm:"type:varchar(8);not null;default:'18:00:00'" json:"normal_end_time"`
	LateGraceMinutes      int    `gorm:"not null;default:10"                      json:"late_grace_minutes"`
	WorkableMinutesPerDay int    `gorm:"not null;default:480"                     json:"workable_minutes_per_day"`
	BaseModel
}

// TableName 指定表名
func (AttendancePolicyConfig) TableName() string { return "attendance_policy_config" }

// Validate 校验并规范化时刻格式
func (c *AttendancePolicyConfig) Validate() error {
	start, err := NormalizeClock(c.NormalStartTime)
	if err != nil {
		return pkgerrors.Validation("上班时间%s", err.Error())
	}
	end, err := NormalizeClock(c.NormalEndTime)
	if err != nil {
		return pkgerrors.Validation("下班时间%s", err.Error())
	}
	if end <= start {
		return pkgerrors.Validation("下班时间必须晚于上班时间")
	}
	if c.LateGraceMinutes < 0 {
		return pkgerrors.Validation("迟到宽限分钟不能为负数")
	}
	if c.WorkableMinutesPerDay <= 0 {
		return pkgerrors.Validation("每日可工作分钟必须为正数")
	}
	c.NormalStartTime, c.NormalEndTime = start, end
	return nil
}
