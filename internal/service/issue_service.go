package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"attendance-engine/backend/internal/dto"
	"attendance-engine/backend/internal/model"
	"attendance-engine/backend/internal/repository"
	pkgerrors "attendance-engine/backend/pkg/errors"
)

// ── 考勤问题模块业务错误 ──

var (
	ErrIssueNotFound          = pkgerrors.NotFound("考勤问题不存在")
	ErrAttendanceTypeNotFound = pkgerrors.NotFound("考勤类型不存在")
)

// IssueService 考勤问题业务接口
type IssueService interface {
	ListIssues(ctx context.Context, query *dto.IssueQuery) ([]model.AttendanceIssue, error)
	GetIssue(ctx context.Context, id string) (*model.AttendanceIssue, error)
	// RecordIssueCorrection 填写修正值（仅 REQUEST 状态）
	RecordIssueCorrection(ctx context.Context, id string, req *dto.IssueCorrectionRequest, actor string) (*model.AttendanceIssue, error)
	// ApplyIssue 审核通过并把修正值写回每日汇总
	ApplyIssue(ctx context.Context, id string, version int, confirmedBy string) (*model.AttendanceIssue, error)
	RejectIssue(ctx context.Context, id string, req *dto.RejectIssueRequest, actor string) (*model.AttendanceIssue, error)
}

type issueService struct {
	repo   *repository.Repository
	policy *PolicyProvider
	logger *zap.Logger
	now    func() time.Time
}

// NewIssueService 创建 IssueService 实例
func NewIssueService(repo *repository.Repository, policy *PolicyProvider, logger *zap.Logger) IssueService {
	return &issueService{repo: repo, policy: policy, logger: logger, now: time.Now}
}

// ────────────────────── 查询 ──────────────────────

func (s *issueService) ListIssues(ctx context.Context, query *dto.IssueQuery) ([]model.AttendanceIssue, error) {
	period, err := ParsePeriod(query.YearMonth)
	if err != nil {
		return nil, err
	}
	issues, err := s.repo.Issue.List(ctx, repository.IssueFilter{
		From:       period.From(),
		To:         period.To(),
		EmployeeID: query.EmployeeID,
		Status:     model.IssueStatus(query.Status),
	})
	if err != nil {
		s.logger.Error("查询考勤问题失败", zap.String("year_month", query.YearMonth), zap.Error(err))
		return nil, err
	}
	return issues, nil
}

func (s *issueService) GetIssue(ctx context.Context, id string) (*model.AttendanceIssue, error) {
	return s.loadIssue(ctx, s.repo, id)
}

func (s *issueService) loadIssue(ctx context.Context, repo *repository.Repository, id string) (*model.AttendanceIssue, error) {
	issue, err := repo.Issue.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIssueNotFound
		}
		s.logger.Error("查询考勤问题失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return issue, nil
}

// checkVersion version 为 0 时不校验
func checkVersion(issue *model.AttendanceIssue, version int) error {
	if version != 0 && version != issue.Version {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}

// ────────────────────── RecordIssueCorrection ──────────────────────

func (s *issueService) RecordIssueCorrection(ctx context.Context, id string, req *dto.IssueCorrectionRequest, actor string) (*model.AttendanceIssue, error) {
	var updated *model.AttendanceIssue
	err := s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		issue, err := s.loadIssue(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := checkVersion(issue, req.Version); err != nil {
			return err
		}
		for _, typeID := range req.CorrectedAttendanceTypeIDs {
			if _, err := tx.AttendanceType.GetByID(ctx, typeID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrAttendanceTypeNotFound
				}
				s.logger.Error("查询考勤类型失败", zap.String("attendance_type_id", typeID), zap.Error(err))
				return err
			}
		}
		if err := issue.RecordCorrection(req.CorrectedEnterTime, req.CorrectedLeaveTime, req.CorrectedAttendanceTypeIDs); err != nil {
			return err
		}
		issue.UpdatedBy = &actor
		if err := tx.Issue.Update(ctx, issue); err != nil {
			if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
				s.logger.Error("更新考勤问题失败", zap.String("id", id), zap.Error(err))
			}
			return err
		}
		updated = issue
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ────────────────────── ApplyIssue ──────────────────────
//
// 修正时刻：写回每日汇总，重算工作时长并重新判定，已审核置为 true
// 修正考勤类型：替换当天的使用记录，按门禁事件与新类型重新计算当天汇总

func (s *issueService) ApplyIssue(ctx context.Context, id string, version int, confirmedBy string) (*model.AttendanceIssue, error) {
	var updated *model.AttendanceIssue
	err := s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		issue, err := s.loadIssue(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := checkVersion(issue, version); err != nil {
			return err
		}
		if err := issue.Apply(confirmedBy, s.now()); err != nil {
			return err
		}

		row, err := tx.DailySummary.GetByID(ctx, issue.DailyEventSummaryID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDailySummaryNotFound
			}
			s.logger.Error("查询每日汇总失败", zap.String("id", issue.DailyEventSummaryID), zap.Error(err))
			return err
		}
		period, err := ParsePeriod(row.Date[:7])
		if err != nil {
			return err
		}
		policy, err := s.policy.Load(ctx, tx, period)
		if err != nil {
			return err
		}

		before := *row
		if issue.HasTypeCorrection() {
			if err := s.replaceUsage(ctx, tx, policy, row, issue.CorrectedAttendanceTypeIDs, confirmedBy); err != nil {
				return err
			}
		} else {
			applyCorrectedTimes(policy, row, issue.CorrectedEnterTime, issue.CorrectedLeaveTime)
		}
		row.UpdatedBy = &confirmedBy

		if err := tx.DailySummary.Update(ctx, row); err != nil {
			s.logger.Error("更新每日汇总失败", zap.String("id", row.DailyEventSummaryID), zap.Error(err))
			return err
		}

		history := &model.ChangeHistory{
			DailyEventSummaryID: row.DailyEventSummaryID,
			EmployeeID:          row.EmployeeID,
			Date:                row.Date,
			Actor:               confirmedBy,
			Reason:              fmt.Sprintf("考勤问题审核通过（%s）", issue.AttendanceIssueID),
			Content:             describeDailyChange(&before, row),
		}
		history.CreatedBy = &confirmedBy
		history.UpdatedBy = &confirmedBy
		if err := tx.ChangeHistory.Create(ctx, history); err != nil {
			s.logger.Error("写入修改记录失败", zap.String("daily_event_summary_id", row.DailyEventSummaryID), zap.Error(err))
			return err
		}

		issue.UpdatedBy = &confirmedBy
		if err := tx.Issue.Update(ctx, issue); err != nil {
			if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
				s.logger.Error("更新考勤问题失败", zap.String("id", id), zap.Error(err))
			}
			return err
		}
		updated = issue
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("考勤问题已应用", zap.String("id", id), zap.String("confirmed_by", confirmedBy))
	return updated, nil
}

// replaceUsage 以修正考勤类型替换当天使用记录并重算当天汇总
func (s *issueService) replaceUsage(ctx context.Context, repo *repository.Repository, policy *MonthPolicy, row *model.DailyEventSummary, typeIDs []string, actor string) error {
	if _, err := repo.UsedAttendance.SoftDeleteByEmployeeDate(ctx, row.EmployeeID, row.Date, actor); err != nil {
		s.logger.Error("软删除使用记录失败", zap.String("employee_id", row.EmployeeID), zap.String("date", row.Date), zap.Error(err))
		return err
	}
	for _, typeID := range typeIDs {
		if _, ok := policy.Type(typeID); !ok {
			return ErrAttendanceTypeNotFound
		}
		u := &model.UsedAttendance{EmployeeID: row.EmployeeID, UsedDate: row.Date, AttendanceTypeID: typeID}
		u.CreatedBy = &actor
		u.UpdatedBy = &actor
		if err := repo.UsedAttendance.Create(ctx, u); err != nil {
			s.logger.Error("登记使用记录失败", zap.String("employee_id", row.EmployeeID), zap.String("date", row.Date), zap.Error(err))
			return err
		}
	}

	emp, err := repo.Employee.GetByID(ctx, row.EmployeeID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("查询员工失败", zap.String("employee_id", row.EmployeeID), zap.Error(err))
			return err
		}
		emp = &model.Employee{EmployeeID: row.EmployeeID, EmployeeNumber: row.EmployeeNumber}
	}
	events, err := repo.AccessEvent.List(ctx, repository.AccessEventFilter{
		From:            model.CompactDate(row.Date),
		To:              model.CompactDate(row.Date),
		EmployeeNumbers: []string{emp.EmployeeNumber},
	})
	if err != nil {
		s.logger.Error("查询门禁事件失败", zap.String("employee_id", row.EmployeeID), zap.String("date", row.Date), zap.Error(err))
		return err
	}
	usages, err := repo.UsedAttendance.List(ctx, repository.UsedAttendanceFilter{
		From: row.Date, To: row.Date, EmployeeIDs: []string{row.EmployeeID},
	})
	if err != nil {
		s.logger.Error("查询使用记录失败", zap.String("employee_id", row.EmployeeID), zap.String("date", row.Date), zap.Error(err))
		return err
	}

	fresh := computeDay(policy, emp, row.Date, indexEvents(events, s.logger)[emp.EmployeeNumber][row.Date], usages)
	fresh.DailyEventSummaryID = row.DailyEventSummaryID
	fresh.MonthlyEventSummaryID = row.MonthlyEventSummaryID
	fresh.SoftDeleteModel = row.SoftDeleteModel
	if row.Note != "" {
		fresh.Note = row.Note
	}
	fresh.IsChecked = true
	*row = fresh
	return nil
}

// ────────────────────── RejectIssue ──────────────────────

func (s *issueService) RejectIssue(ctx context.Context, id string, req *dto.RejectIssueRequest, actor string) (*model.AttendanceIssue, error) {
	var updated *model.AttendanceIssue
	err := s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		issue, err := s.loadIssue(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := checkVersion(issue, req.Version); err != nil {
			return err
		}
		if err := issue.Reject(strings.TrimSpace(req.Reason), actor, s.now()); err != nil {
			return err
		}
		issue.UpdatedBy = &actor
		if err := tx.Issue.Update(ctx, issue); err != nil {
			if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
				s.logger.Error("更新考勤问题失败", zap.String("id", id), zap.Error(err))
			}
			return err
		}
		updated = issue
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("考勤问题已驳回", zap.String("id", id), zap.String("actor", actor))
	return updated, nil
}

// describeDailyChange 生成每日汇总变更的可读描述
func describeDailyChange(before, after *model.DailyEventSummary) string {
	var parts []string
	if model.StrValue(before.EnterTime) != model.StrValue(after.EnterTime) {
		parts = append(parts, fmt.Sprintf("上班时刻: %s → %s", displayClock(before.EnterTime), displayClock(after.EnterTime)))
	}
	if model.StrValue(before.LeaveTime) != model.StrValue(after.LeaveTime) {
		parts = append(parts, fmt.Sprintf("下班时刻: %s → %s", displayClock(before.LeaveTime), displayClock(after.LeaveTime)))
	}
	if !intPtrEqual(before.WorkTime, after.WorkTime) {
		parts = append(parts, fmt.Sprintf("工作时长: %s → %s", displayMinutes(before.WorkTime), displayMinutes(after.WorkTime)))
	}
	if titles(before.AppliedAttendances) != titles(after.AppliedAttendances) {
		parts = append(parts, fmt.Sprintf("考勤类型: %s → %s", titles(before.AppliedAttendances), titles(after.AppliedAttendances)))
	}
	if before.IsAbsent != after.IsAbsent || before.IsLate != after.IsLate || before.IsEarlyLeave != after.IsEarlyLeave {
		parts = append(parts, fmt.Sprintf("判定: %s → %s", judgmentText(before), judgmentText(after)))
	}
	if len(parts) == 0 {
		return "已审核"
	}
	return strings.Join(parts, "; ")
}

func titles(applied []model.AppliedAttendance) string {
	if len(applied) == 0 {
		return "-"
	}
	names := make([]string, 0, len(applied))
	for _, a := range applied {
		names = append(names, a.Title)
	}
	return strings.Join(names, "+")
}

func judgmentText(row *model.DailyEventSummary) string {
	if text := describeAnomaly(row); text != "" {
		return text
	}
	return "正常"
}
