package model

import "gorm.io/gorm"

// ChangeHistory 每日汇总人工修改记录 — 对应 change_histories（只追加）
// SnapshotID 为空表示在线修改；从快照恢复的记录指向来源快照
type ChangeHistory struct {
	ChangeHistoryID     string  `gorm:"type:varchar(36);primaryKey"     json:"change_history_id"`
	DailyEventSummaryID string  `gorm:"type:varchar(36);not null;index" json:"daily_event_summary_id"`
	EmployeeID          string  `gorm:"type:varchar(36);not null;index" json:"employee_id"`
	Date                string  `gorm:"type:varchar(10);not null;index" json:"date"`
	Actor               string  `gorm:"type:varchar(64);not null"       json:"actor"`
	Reason              string  `gorm:"type:varchar(500);not null"      json:"reason"`
	Content             string  `gorm:"type:text;not null"              json:"content"`
	SnapshotID          *string `gorm:"type:varchar(36)"                json:"snapshot_id,omitempty"`
	SoftDeleteModel
}

// TableName 指定表名
func (ChangeHistory) TableName() string { return "change_histories" }

func (c *ChangeHistory) BeforeCreate(_ *gorm.DB) error {
	ensureID(&c.ChangeHistoryID)
	return nil
}
