package model

import (
	"time"

	"gorm.io/gorm"
)

// AccessEvent 门禁刷卡事件表 — 对应 access_events（上游导入，只追加）
type AccessEvent struct {
	EventID         string    `gorm:"type:varchar(36);primaryKey"                                              json:"event_id"`
	EmployeeNumber  string    `gorm:"type:varchar(20);not null;uniqueIndex:uk_access_event,priority:1"         json:"employee_number"`
	EventDate       string    `gorm:"type:varchar(8);not null;uniqueIndex:uk_access_event,priority:2;index"    json:"event_date"` // yyyyMMdd
	EventTime       string    `gorm:"type:varchar(6);not null;uniqueIndex:uk_access_event,priority:3"          json:"event_time"` // HHmmss
	SourceTimestamp time.Time `gorm:"not null"                                                                 json:"source_timestamp"`
	CreatedAt       time.Time `gorm:"not null;autoCreateTime"                                                  json:"created_at"`
}

// TableName 指定表名
func (AccessEvent) TableName() string { return "access_events" }

func (e *AccessEvent) BeforeCreate(_ *gorm.DB) error {
	ensureID(&e.EventID)
	return nil
}
