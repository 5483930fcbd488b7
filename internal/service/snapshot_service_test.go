package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendance-engine/backend/internal/dto"
	"attendance-engine/backend/internal/model"
	pkgerrors "attendance-engine/backend/pkg/errors"
)

func setupSnapshotScenario(t *testing.T, includeRaw bool) (*testEnv, SnapshotService) {
	t.Helper()
	env := newTestEnv()
	seedNovember(t, env)
	env.generateLive(t)
	_, err := env.monthlyService().GenerateMonthlySummaries(context.Background(), testYearMonth, testActor)
	require.NoError(t, err)
	return env, env.snapshotService(includeRaw)
}

func companyRequest() *dto.SaveSnapshotRequest {
	return &dto.SaveSnapshotRequest{Year: 2025, Month: 11, Scope: string(model.SnapshotScopeCompany)}
}

// ── 保存 ──

func TestSnapshotService_SaveSnapshot_Company(t *testing.T) {
	_, svc := setupSnapshotScenario(t, false)

	saved, err := svc.SaveSnapshot(context.Background(), companyRequest(), testActor)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "A", saved.Version)
	assert.Equal(t, 1, saved.EmployeeCount)
	assert.Equal(t, "MONTHLY", saved.SnapshotType)
	assert.Equal(t, "2025-11 考勤快照 A", saved.Name)
	assert.Empty(t, saved.DepartmentID)
}

func TestSnapshotService_SaveSnapshot_NoMonthlySummaries(t *testing.T) {
	env := newTestEnv()
	saved, err := env.snapshotService(false).SaveSnapshot(context.Background(), companyRequest(), testActor)
	require.NoError(t, err)
	assert.Nil(t, saved, "范围内没有月度汇总时不生成快照")
	assert.Empty(t, env.snapshots.infos)
}

func TestSnapshotService_SaveSnapshot_VersionSequence(t *testing.T) {
	_, svc := setupSnapshotScenario(t, false)
	ctx := context.Background()

	for i := 0; i < 26; i++ {
		saved, err := svc.SaveSnapshot(ctx, companyRequest(), testActor)
		require.NoError(t, err)
		assert.Equal(t, string(rune('A'+i)), saved.Version)
	}

	_, err := svc.SaveSnapshot(ctx, companyRequest(), testActor)
	assert.True(t, pkgerrors.IsKind(err, pkgerrors.KindConflict), "版本号用尽后应返回冲突")
}

func TestSnapshotService_SaveSnapshot_DeletedVersionNotReused(t *testing.T) {
	_, svc := setupSnapshotScenario(t, false)
	ctx := context.Background()

	first, err := svc.SaveSnapshot(ctx, companyRequest(), testActor)
	require.NoError(t, err)
	require.NoError(t, svc.DeleteSnapshot(ctx, first.ID, testActor))

	_, err = svc.GetSnapshot(ctx, first.ID)
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
	assert.ErrorIs(t, svc.DeleteSnapshot(ctx, first.ID, testActor), ErrSnapshotNotFound)

	second, err := svc.SaveSnapshot(ctx, companyRequest(), testActor)
	require.NoError(t, err)
	assert.Equal(t, "B", second.Version)
}

func TestSnapshotService_SaveSnapshot_DepartmentScope(t *testing.T) {
	_, svc := setupSnapshotScenario(t, false)
	ctx := context.Background()

	saved, err := svc.SaveSnapshot(ctx, &dto.SaveSnapshotRequest{
		Year: 2025, Month: 11, Scope: string(model.SnapshotScopeDepartment), DepartmentID: testDeptID,
	}, testActor)
	require.NoError(t, err)
	assert.Equal(t, "A", saved.Version)
	assert.Equal(t, testDeptID, saved.DepartmentID)

	company, err := svc.SaveSnapshot(ctx, companyRequest(), testActor)
	require.NoError(t, err)
	assert.Equal(t, "A", company.Version, "不同范围的版本号独立递增")

	_, err = svc.SaveSnapshot(ctx, &dto.SaveSnapshotRequest{Year: 2025, Month: 11, Scope: "DEPARTMENT"}, testActor)
	assert.True(t, pkgerrors.IsKind(err, pkgerrors.KindValidation))

	_, err = svc.SaveSnapshot(ctx, &dto.SaveSnapshotRequest{
		Year: 2025, Month: 11, Scope: "DEPARTMENT", DepartmentID: "dept-404",
	}, testActor)
	assert.ErrorIs(t, err, ErrDepartmentNotFound)

	_, err = svc.SaveSnapshot(ctx, &dto.SaveSnapshotRequest{Year: 2025, Month: 11, Scope: "TEAM"}, testActor)
	assert.True(t, pkgerrors.IsKind(err, pkgerrors.KindValidation))
}

func TestSnapshotService_SaveDepartmentSnapshots(t *testing.T) {
	env, svc := setupSnapshotScenario(t, false)
	env.addDepartment("dept-2", "财务部")

	result, err := svc.SaveDepartmentSnapshots(context.Background(), &dto.SaveDepartmentSnapshotsRequest{Year: 2025, Month: 11}, testActor)
	require.NoError(t, err)
	require.Len(t, result.Saved, 1)
	assert.Equal(t, testDeptID, result.Saved[0].DepartmentID)
	assert.Equal(t, []string{"dept-2"}, result.SkippedDepartments)
	assert.Empty(t, result.FailedDepartmentIDs)
}

// ── 查询 ──

func TestSnapshotService_GetSnapshot_WithRawInput(t *testing.T) {
	env, svc := setupSnapshotScenario(t, true)
	ctx := context.Background()

	saved, err := svc.SaveSnapshot(ctx, companyRequest(), testActor)
	require.NoError(t, err)

	detail, err := svc.GetSnapshot(ctx, saved.ID)
	require.NoError(t, err)
	require.Len(t, detail.Children, 1)
	child := detail.Children[0]
	assert.Equal(t, testEmpID, child.EmployeeID)
	assert.Equal(t, testEmpNumber, child.EmployeeNumber)
	assert.Equal(t, 30, child.DailyCount)
	assert.Equal(t, 18, child.IssueCount)
	assert.Equal(t, 0, child.HistoryCount)
	assert.True(t, child.HasRawInput)

	stored := env.snapshots.infos[saved.ID]
	require.NotNil(t, stored.Children[0].RawInput)
	var raw model.RawInputSnapshot
	require.NoError(t, json.Unmarshal([]byte(*stored.Children[0].RawInput), &raw))
	assert.Len(t, raw.AccessEvents, 2)
	assert.Len(t, raw.UsedAttendances, 1)

	list, err := svc.ListSnapshots(ctx, &dto.SnapshotQuery{Year: 2025, Month: 11})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, saved.ID, list[0].ID)

	_, err = svc.GetSnapshot(ctx, "missing")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

// ── 恢复 ──

func TestSnapshotService_Restore_RoundTrip(t *testing.T) {
	env, svc := setupSnapshotScenario(t, false)
	ctx := context.Background()
	daily := env.dailyService()
	monthly := env.monthlyService()

	beforeDailies, err := daily.ListDailySummaries(ctx, testYearMonth, "")
	require.NoError(t, err)
	beforeMonthly, err := monthly.GetMonthlySummary(ctx, testEmpID, testYearMonth)
	require.NoError(t, err)

	saved, err := svc.SaveSnapshot(ctx, companyRequest(), testActor)
	require.NoError(t, err)

	// 快照之后修改在线数据
	nov3 := env.dailyOn(t, testEmpID, "2025-11-03")
	_, err = daily.UpdateDailySummary(ctx, nov3.DailyEventSummaryID, &dto.UpdateDailySummaryRequest{
		EnterTime: model.StrPtr("10:00"), Reason: "调整",
	}, "manager")
	require.NoError(t, err)
	_, err = monthly.GenerateMonthlySummaries(ctx, testYearMonth, testActor)
	require.NoError(t, err)
	changed, err := monthly.GetMonthlySummary(ctx, testEmpID, testYearMonth)
	require.NoError(t, err)
	require.Equal(t, 1, changed.LateCount)

	for round := 1; round <= 2; round++ {
		result, err := svc.RestoreFromSnapshot(ctx, saved.ID, "restorer")
		require.NoError(t, err)
		assert.Equal(t, testYearMonth, result.YearMonth)
		assert.Equal(t, 30, result.RestoredDaily)
		assert.Equal(t, 1, result.RestoredMonthly)
		assert.Equal(t, 18, result.RestoredIssues)
		assert.Equal(t, 0, result.RestoredHistories)

		afterDailies, err := daily.ListDailySummaries(ctx, testYearMonth, "")
		require.NoError(t, err)
		require.Len(t, afterDailies, len(beforeDailies))
		for i := range beforeDailies {
			assert.Equal(t, dailyFields(beforeDailies[i]), dailyFields(afterDailies[i]), "第 %d 次恢复 %s", round, beforeDailies[i].Date)
		}

		afterMonthly, err := monthly.GetMonthlySummary(ctx, testEmpID, testYearMonth)
		require.NoError(t, err)
		assert.Equal(t, monthlyFields(*beforeMonthly), monthlyFields(*afterMonthly), "第 %d 次恢复", round)

		histories, err := daily.ListChangeHistory(ctx, nov3.DailyEventSummaryID)
		require.NoError(t, err)
		assert.Empty(t, histories, "快照之后的修改记录被软删除")
		assert.Equal(t, 18, env.liveIssueCount())
	}

	assert.Len(t, env.dailies.rows, 30, "恢复按自然键复用主键")
	assert.Len(t, env.monthlies.rows, 1)
}

func TestSnapshotService_Restore_KeepsReviewState(t *testing.T) {
	env, svc := setupSnapshotScenario(t, false)
	ctx := context.Background()
	issues := env.issueService()

	issue := env.issueOn(t, testEmpID, "2025-11-05")
	_, err := issues.RecordIssueCorrection(ctx, issue.AttendanceIssueID, &dto.IssueCorrectionRequest{
		CorrectedEnterTime: model.StrPtr("09:00"), CorrectedLeaveTime: model.StrPtr("18:00"),
	}, "clerk")
	require.NoError(t, err)
	_, err = issues.ApplyIssue(ctx, issue.AttendanceIssueID, 0, "manager")
	require.NoError(t, err)

	nov5 := env.dailyOn(t, testEmpID, "2025-11-05")
	live, err := env.dailyService().ListChangeHistory(ctx, nov5.DailyEventSummaryID)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Nil(t, live[0].SnapshotID, "在线修改不关联快照")

	saved, err := svc.SaveSnapshot(ctx, companyRequest(), testActor)
	require.NoError(t, err)

	// 快照之后整月重新生成，再恢复
	env.events.addEvent(testEmpNumber, "2025-11-06", "09:00:00")
	env.events.addEvent(testEmpNumber, "2025-11-06", "18:00:00")
	env.generateLive(t)
	require.False(t, env.dailyOn(t, testEmpID, "2025-11-06").IsAbsent)

	result, err := svc.RestoreFromSnapshot(ctx, saved.ID, "restorer")
	require.NoError(t, err)
	assert.Equal(t, 1, result.RestoredHistories)

	restored := env.issueOn(t, testEmpID, "2025-11-05")
	assert.Equal(t, issue.AttendanceIssueID, restored.AttendanceIssueID)
	assert.Equal(t, model.IssueStatusApplied, restored.Status)
	assert.True(t, env.dailyOn(t, testEmpID, "2025-11-05").IsChecked)
	assert.True(t, env.dailyOn(t, testEmpID, "2025-11-06").IsAbsent, "恢复为快照时的数据，而不是重新计算")

	histories, err := env.dailyService().ListChangeHistory(ctx, nov5.DailyEventSummaryID)
	require.NoError(t, err)
	require.Len(t, histories, 1)
	assert.Equal(t, live[0].ChangeHistoryID, histories[0].ChangeHistoryID)
	assert.Equal(t, saved.ID, model.StrValue(histories[0].SnapshotID), "恢复的修改记录指向来源快照")
}

func TestSnapshotService_Restore_NotFound(t *testing.T) {
	env := newTestEnv()
	_, err := env.snapshotService(false).RestoreFromSnapshot(context.Background(), "missing", testActor)
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}
