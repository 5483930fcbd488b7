package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"attendance-engine/backend/internal/model"
	"attendance-engine/backend/internal/repository"
)

// issueDetector 重新生成每日汇总后的考勤问题检测
//
//	已有终态问题（APPLIED / NOT_APPLIED）：原样复活，APPLIED 的修正时刻重新作用到当天汇总
//	已有待处理问题：当天仍超出正常范围则复活并刷新问题快照，否则保持软删除
//	无已有问题且超出正常范围：新建 REQUEST
type issueDetector struct {
	batchSize int
	logger    *zap.Logger
}

type detectionResult struct {
	issues  []model.AttendanceIssue
	open    int
	created int
}

func (d *issueDetector) detect(ctx context.Context, repo *repository.Repository, policy *MonthPolicy, rows []model.DailyEventSummary, actor string) (*detectionResult, error) {
	result := &detectionResult{}
	if len(rows) == 0 {
		return result, nil
	}

	empSet := make(map[string]struct{})
	for _, r := range rows {
		empSet[r.EmployeeID] = struct{}{}
	}
	existing, err := repo.Issue.List(ctx, repository.IssueFilter{
		From:           policy.From(),
		To:             policy.To(),
		EmployeeIDs:    keysOf(empSet),
		IncludeDeleted: true,
	})
	if err != nil {
		d.logger.Error("查询已有考勤问题失败", zap.String("year_month", policy.YearMonth), zap.Error(err))
		return nil, err
	}

	byDaily := make(map[string]*model.AttendanceIssue, len(existing))
	for i := range existing {
		issue := &existing[i]
		if prev, ok := byDaily[issue.DailyEventSummaryID]; ok && !preferIssue(issue, prev) {
			continue
		}
		byDaily[issue.DailyEventSummaryID] = issue
	}

	for i := range rows {
		row := &rows[i]
		issue, ok := byDaily[row.DailyEventSummaryID]
		if !ok {
			if row.NeedsReview() {
				result.issues = append(result.issues, newIssueFor(row, actor))
				result.open++
				result.created++
			}
			continue
		}

		switch issue.Status {
		case model.IssueStatusApplied:
			if issue.HasTimeCorrection() {
				applyCorrectedTimes(policy, row, issue.CorrectedEnterTime, issue.CorrectedLeaveTime)
			}
			row.IsChecked = true
		case model.IssueStatusNotApplied:
			row.IsChecked = true
		default:
			if !row.NeedsReview() {
				continue
			}
			refreshProblem(issue, row)
			result.open++
		}
		issue.Revive()
		issue.UpdatedBy = &actor
		result.issues = append(result.issues, *issue)
	}
	return result, nil
}

// preferIssue 同一每日汇总存在多条问题时的取舍：终态优先，其次取最新
func preferIssue(candidate, current *model.AttendanceIssue) bool {
	if candidate.IsOpen() != current.IsOpen() {
		return !candidate.IsOpen()
	}
	return candidate.UpdatedAt.After(current.UpdatedAt)
}

func newIssueFor(row *model.DailyEventSummary, actor string) model.AttendanceIssue {
	issue := model.AttendanceIssue{
		AttendanceIssueID:   model.NewID(),
		EmployeeID:          row.EmployeeID,
		Date:                row.Date,
		DailyEventSummaryID: row.DailyEventSummaryID,
		Status:              model.IssueStatusRequest,
	}
	issue.Version = 1
	issue.CreatedBy = &actor
	issue.UpdatedBy = &actor
	refreshProblem(&issue, row)
	return issue
}

// refreshProblem 以当天汇总刷新问题快照
func refreshProblem(issue *model.AttendanceIssue, row *model.DailyEventSummary) {
	issue.ProblemEnterTime = row.EnterTime
	issue.ProblemLeaveTime = row.LeaveTime

	ids := make([]string, 0, model.MaxIssueAttendanceTypes)
	for _, a := range row.AppliedAttendances {
		if len(ids) == model.MaxIssueAttendanceTypes {
			break
		}
		ids = append(ids, a.AttendanceTypeID)
	}
	_ = issue.SetProblemTypes(ids)
	issue.Description = describeAnomaly(row)
}

// describeAnomaly 问题描述
func describeAnomaly(row *model.DailyEventSummary) string {
	var parts []string
	if row.IsAbsent {
		parts = append(parts, "缺勤")
	}
	if row.IsLate {
		parts = append(parts, "迟到")
	}
	if row.IsEarlyLeave {
		parts = append(parts, "早退")
	}
	if row.HasTypeConflict {
		parts = append(parts, "考勤类型冲突")
	}
	return strings.Join(parts, "、")
}
