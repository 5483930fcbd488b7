package model

import (
	"time"

	"gorm.io/gorm"

	pkgerrors "attendance-engine/backend/pkg/errors"
)

// IssueStatus 考勤问题状态
type IssueStatus string

const (
	IssueStatusRequest    IssueStatus = "REQUEST"     // 待处理
	IssueStatusApplied    IssueStatus = "APPLIED"     // 已应用（终态）
	IssueStatusNotApplied IssueStatus = "NOT_APPLIED" // 已驳回（终态）
)

// MaxIssueAttendanceTypes 问题上可记录的考勤类型数量上限
const MaxIssueAttendanceTypes = 2

// AttendanceIssue 考勤问题表 — 对应 attendance_issues
// 每条每日汇总至多一条问题；重新计算时按 daily_event_summary_id 查找并复活
type AttendanceIssue struct {
	AttendanceIssueID   string `gorm:"type:varchar(36);primaryKey"    json:"attendance_issue_id"`
	EmployeeID          string `gorm:"type:varchar(36);not null;index" json:"employee_id"`
	Date                string `gorm:"type:varchar(10);not null;index" json:"date"`
	DailyEventSummaryID string `gorm:"type:varchar(36);not null;index" json:"daily_event_summary_id"`

	ProblemEnterTime         *string  `gorm:"type:varchar(8)"          json:"problem_enter_time"`
	ProblemLeaveTime         *string  `gorm:"type:varchar(8)"          json:"problem_leave_time"`
	ProblemAttendanceTypeIDs []string `gorm:"serializer:json;type:text" json:"problem_attendance_type_ids"`

	CorrectedEnterTime         *string  `gorm:"type:varchar(8)"          json:"corrected_enter_time"`
	CorrectedLeaveTime         *string  `gorm:"type:varchar(8)"          json:"corrected_leave_time"`
	CorrectedAttendanceTypeIDs []string `gorm:"serializer:json;type:text" json:"corrected_attendance_type_ids"`

	Status          IssueStatus `gorm:"type:varchar(20);not null;default:'REQUEST';index" json:"status"`
	Description     string      `gorm:"type:varchar(500);not null;default:''"            json:"description"`
	ConfirmedBy     *string     `gorm:"type:varchar(64)"                                 json:"confirmed_by,omitempty"`
	ConfirmedAt     *time.Time  `                                                        json:"confirmed_at,omitempty"`
	ResolvedAt      *time.Time  `                                                        json:"resolved_at,omitempty"`
	RejectionReason *string     `gorm:"type:varchar(500)"                                json:"rejection_reason,omitempty"`
	VersionedModel
}

// TableName 指定表名
func (AttendanceIssue) TableName() string { return "attendance_issues" }

func (i *AttendanceIssue) BeforeCreate(_ *gorm.DB) error {
	ensureID(&i.AttendanceIssueID)
	if i.Status == "" {
		i.Status = IssueStatusRequest
	}
	if i.Version == 0 {
		i.Version = 1
	}
	return nil
}

// IsOpen 是否处于待处理状态
func (i *AttendanceIssue) IsOpen() bool { return i.Status == IssueStatusRequest }

// HasTimeCorrection 是否已填写修正时刻
func (i *AttendanceIssue) HasTimeCorrection() bool {
	return i.CorrectedEnterTime != nil || i.CorrectedLeaveTime != nil
}

// HasTypeCorrection 是否已填写修正考勤类型
func (i *AttendanceIssue) HasTypeCorrection() bool { return len(i.CorrectedAttendanceTypeIDs) > 0 }

// SetProblemTypes 记录问题当天的考勤类型
func (i *AttendanceIssue) SetProblemTypes(ids []string) error {
	if len(ids) > MaxIssueAttendanceTypes {
		return pkgerrors.Validation("考勤问题最多记录 %d 个考勤类型", MaxIssueAttendanceTypes)
	}
	i.ProblemAttendanceTypeIDs = ids
	return nil
}

// RecordCorrection 填写修正值
// 时刻修正与类型修正互斥；每次填写整体替换上一次的修正
func (i *AttendanceIssue) RecordCorrection(enter, leave *string, typeIDs []string) error {
	if !i.IsOpen() {
		return pkgerrors.PolicyInconsistency("仅待处理状态的考勤问题可以修改")
	}
	hasTime := enter != nil || leave != nil
	hasType := len(typeIDs) > 0
	if hasTime && hasType {
		return pkgerrors.PolicyInconsistency("修正时刻与修正考勤类型不能同时提交")
	}
	if !hasTime && !hasType {
		return pkgerrors.Validation("未提交任何修正内容")
	}
	if len(typeIDs) > MaxIssueAttendanceTypes {
		return pkgerrors.Validation("修正考勤类型最多 %d 个", MaxIssueAttendanceTypes)
	}
	seen := make(map[string]bool, len(typeIDs))
	for _, id := range typeIDs {
		if seen[id] {
			return pkgerrors.Validation("修正考勤类型重复: %s", id)
		}
		seen[id] = true
	}

	var normEnter, normLeave *string
	for _, pair := range []struct {
		src *string
		dst **string
	}{{enter, &normEnter}, {leave, &normLeave}} {
		if pair.src == nil {
			continue
		}
		v, err := NormalizeClock(*pair.src)
		if err != nil {
			return pkgerrors.Validation("修正%s", err.Error())
		}
		*pair.dst = &v
	}
	if normEnter != nil && normLeave != nil && *normLeave <= *normEnter {
		return pkgerrors.Validation("修正下班时刻必须晚于上班时刻")
	}

	i.CorrectedEnterTime, i.CorrectedLeaveTime = normEnter, normLeave
	if hasType {
		i.CorrectedAttendanceTypeIDs = append([]string(nil), typeIDs...)
	} else {
		i.CorrectedAttendanceTypeIDs = nil
	}
	return nil
}

// Apply 审核通过（REQUEST → APPLIED）
func (i *AttendanceIssue) Apply(confirmedBy string, now time.Time) error {
	if !i.IsOpen() {
		return pkgerrors.PolicyInconsistency("考勤问题已处于终态 %s", i.Status)
	}
	if !i.HasTimeCorrection() && !i.HasTypeCorrection() {
		return pkgerrors.PolicyInconsistency("未填写修正内容的考勤问题不能应用")
	}
	i.Status = IssueStatusApplied
	i.ConfirmedBy = &confirmedBy
	i.ConfirmedAt = &now
	i.ResolvedAt = &now
	return nil
}

// Reject 驳回（REQUEST → NOT_APPLIED）
func (i *AttendanceIssue) Reject(reason, by string, now time.Time) error {
	if !i.IsOpen() {
		return pkgerrors.PolicyInconsistency("考勤问题已处于终态 %s", i.Status)
	}
	if reason == "" {
		return pkgerrors.Validation("驳回原因不能为空")
	}
	i.Status = IssueStatusNotApplied
	i.RejectionReason = &reason
	i.ConfirmedBy = &by
	i.ConfirmedAt = &now
	i.ResolvedAt = &now
	return nil
}
