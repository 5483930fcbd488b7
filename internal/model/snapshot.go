package model

import (
	"time"

	"gorm.io/gorm"

	pkgerrors "attendance-engine/backend/pkg/errors"
)

// SnapshotScope 快照范围
type SnapshotScope string

const (
	SnapshotScopeCompany    SnapshotScope = "COMPANY"
	SnapshotScopeDepartment SnapshotScope = "DEPARTMENT"
)

// 快照版本号为单个大写字母 A–Z
const (
	FirstSnapshotVersion = "A"
	LastSnapshotVersion  = "Z"
)

// DataSnapshotInfo 快照头 — 对应 data_snapshot_infos
// (year, month, scope, department_id, version) 唯一；创建后除软删除外不再修改
type DataSnapshotInfo struct {
	DataSnapshotInfoID string        `gorm:"type:varchar(36);primaryKey"                                    json:"data_snapshot_info_id"`
	Name               string        `gorm:"type:varchar(100);not null"                                     json:"name"`
	SnapshotType       string        `gorm:"type:varchar(30);not null;default:'MONTHLY'"                    json:"snapshot_type"`
	Year               int           `gorm:"not null;uniqueIndex:uk_snapshot_version,priority:1"            json:"year"`
	Month              int           `gorm:"not null;uniqueIndex:uk_snapshot_version,priority:2"            json:"month"`
	Scope              SnapshotScope `gorm:"type:varchar(20);not null;uniqueIndex:uk_snapshot_version,priority:3" json:"scope"`
	DepartmentID       string        `gorm:"type:varchar(36);not null;default:'';uniqueIndex:uk_snapshot_version,priority:4" json:"department_id"`
	Version            string        `gorm:"type:varchar(1);not null;uniqueIndex:uk_snapshot_version,priority:5" json:"version"`
	Description        string        `gorm:"type:varchar(500);not null;default:''"                          json:"description"`
	ApprovedBy         *string       `gorm:"type:varchar(64)"                                               json:"approved_by,omitempty"`
	ApprovedAt         *time.Time    `                                                                      json:"approved_at,omitempty"`
	EmployeeCount      int           `gorm:"not null;default:0"                                             json:"employee_count"`
	SoftDeleteModel

	// 关联
	Children []DataSnapshotChild `gorm:"foreignKey:DataSnapshotInfoID;references:DataSnapshotInfoID" json:"children,omitempty"`
}

// TableName 指定表名
func (DataSnapshotInfo) TableName() string { return "data_snapshot_infos" }

func (s *DataSnapshotInfo) BeforeCreate(_ *gorm.DB) error {
	ensureID(&s.DataSnapshotInfoID)
	return s.Validate()
}

// Validate 校验快照头不变量
func (s *DataSnapshotInfo) Validate() error {
	if s.Month < 1 || s.Month > 12 {
		return pkgerrors.Validation("快照月份无效: %d", s.Month)
	}
	if !IsVersionLetter(s.Version) {
		return pkgerrors.Validation("快照版本号必须为单个大写字母: %q", s.Version)
	}
	switch s.Scope {
	case SnapshotScopeCompany:
		if s.DepartmentID != "" {
			return pkgerrors.Validation("全公司快照不能指定部门")
		}
	case SnapshotScopeDepartment:
		if s.DepartmentID == "" {
			return pkgerrors.Validation("部门快照必须指定部门")
		}
	default:
		return pkgerrors.Validation("快照范围无效: %s", s.Scope)
	}
	return nil
}

// YearMonth 返回 yyyy-MM
func (s *DataSnapshotInfo) YearMonth() string {
	return time.Date(s.Year, time.Month(s.Month), 1, 0, 0, 0, 0, time.UTC).Format(YearMonthLayout)
}

// IsVersionLetter 是否为 A–Z 单字母
func IsVersionLetter(v string) bool {
	return len(v) == 1 && v[0] >= 'A' && v[0] <= 'Z'
}

// NextSnapshotVersion 计算下一个版本号；current 为空表示尚无版本
func NextSnapshotVersion(current string) (string, error) {
	if current == "" {
		return FirstSnapshotVersion, nil
	}
	if !IsVersionLetter(current) {
		return "", pkgerrors.Validation("已有快照版本号无效: %q", current)
	}
	if current == LastSnapshotVersion {
		return "", pkgerrors.Conflict("快照版本已用尽（已达 %s）", LastSnapshotVersion)
	}
	return string(current[0] + 1), nil
}

// DataSnapshotChild 快照明细 — 对应 data_snapshot_children
// 每名员工一行：Payload 为 EmployeeSnapshot JSON，RawInput 为 RawInputSnapshot JSON（可选）
type DataSnapshotChild struct {
	DataSnapshotChildID string  `gorm:"type:varchar(36);primaryKey"     json:"data_snapshot_child_id"`
	DataSnapshotInfoID  string  `gorm:"type:varchar(36);not null;index" json:"data_snapshot_info_id"`
	EmployeeID          string  `gorm:"type:varchar(36);not null"       json:"employee_id"`
	Payload             string  `gorm:"type:text;not null"              json:"-"`
	RawInput            *string `gorm:"type:text"                       json:"-"`
	SoftDeleteModel
}

// TableName 指定表名
func (DataSnapshotChild) TableName() string { return "data_snapshot_children" }

func (c *DataSnapshotChild) BeforeCreate(_ *gorm.DB) error {
	ensureID(&c.DataSnapshotChildID)
	return nil
}

// ── 快照载荷 ──

// EmployeeSnapshot 单名员工一个月的计算结果子树
type EmployeeSnapshot struct {
	EmployeeID      string              `json:"employee_id"`
	EmployeeNumber  string              `json:"employee_number"`
	YearMonth       string              `json:"year_month"`
	Monthly         MonthlyEventSummary `json:"monthly"`
	DailySummaries  []DailyEventSummary `json:"daily_summaries"`
	Issues          []AttendanceIssue   `json:"issues"`
	ChangeHistories []ChangeHistory     `json:"change_histories"`
}

// RawInputSnapshot 快照时刻的原始输入（门禁事件与考勤类型使用记录）
type RawInputSnapshot struct {
	AccessEvents    []AccessEvent    `json:"access_events"`
	UsedAttendances []UsedAttendance `json:"used_attendances"`
}
