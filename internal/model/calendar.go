package model

import "gorm.io/gorm"

// HolidayInfo 节假日表 — 对应 holiday_infos（外部维护，按月批量读取）
type HolidayInfo struct {
	HolidayID string `gorm:"type:varchar(36);primaryKey"           json:"holiday_id"`
	Date      string `gorm:"type:varchar(10);not null;uniqueIndex" json:"date"`
	Name      string `gorm:"type:varchar(100);not null"            json:"name"`
	BaseModel
}

// TableName 指定表名
func (HolidayInfo) TableName() string { return "holiday_infos" }

func (h *HolidayInfo) BeforeCreate(_ *gorm.DB) error {
	ensureID(&h.HolidayID)
	return nil
}

// WorkTimeOverride 按日期覆盖的上下班时间 — 对应 work_time_overrides
type WorkTimeOverride struct {
	OverrideID string `gorm:"type:varchar(36);primaryKey"           json:"override_id"`
	Date       string `gorm:"type:varchar(10);not null;uniqueIndex" json:"date"`
	StartTime  string `gorm:"type:varchar(8);not null"              json:"start_time"` // HH:MM:SS
	EndTime    string `gorm:"type:varchar(8);not null"              json:"end_time"`   // HH:MM:SS
	Reason     string `gorm:"type:varchar(200)"                     json:"reason"`
	BaseModel
}

// TableName 指定表名
func (WorkTimeOverride) TableName() string { return "work_time_overrides" }

func (w *WorkTimeOverride) BeforeCreate(_ *gorm.DB) error {
	ensureID(&w.OverrideID)
	return nil
}
