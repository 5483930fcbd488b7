package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendance-engine/backend/internal/model"
	pkgerrors "attendance-engine/backend/pkg/errors"
)

func TestMonthlySummaryService_Generate_NovemberScenario(t *testing.T) {
	env := newTestEnv()
	seedNovember(t, env)
	env.generateLive(t)
	svc := env.monthlyService()
	ctx := context.Background()

	resp, err := svc.GenerateMonthlySummaries(ctx, testYearMonth, testActor)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Count)

	m, err := svc.GetMonthlySummary(ctx, testEmpID, testYearMonth)
	require.NoError(t, err)
	assert.Equal(t, testEmpNumber, m.EmployeeNumber)
	assert.Equal(t, 2, m.WorkDaysCount, "11-03 出勤、11-04 年假")
	assert.Equal(t, 495+540, m.TotalWorkMinutes)
	assert.Equal(t, 20*480, m.TotalWorkableMinutes, "20 个工作日 × 480")
	assert.True(t, m.AverageWorkMinutes.Equal(decimal.RequireFromString("517.5")), "实际: %s", m.AverageWorkMinutes)
	assert.True(t, m.DeductedLeaveUnits.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, 0, m.LateCount)
	assert.Equal(t, 18, m.AbsenceCount)
	assert.Len(t, m.AbsenceDetails, 18)
	assert.Equal(t, 0, m.EarlyLeaveCount)
	require.Len(t, m.AttendanceTypeCounts, 1)
	assert.Equal(t, model.AttendanceTypeCount{AttendanceTypeID: annualTypeID, Title: "年假", Count: 1}, m.AttendanceTypeCounts[0])

	require.Len(t, m.WeeklyWorkTimes, 5)
	assert.Equal(t, model.WeeklyWorkTime{ISOYear: 2025, ISOWeek: 44, StartDate: "2025-11-01", EndDate: "2025-11-02"}, m.WeeklyWorkTimes[0])
	assert.Equal(t, model.WeeklyWorkTime{ISOYear: 2025, ISOWeek: 45, StartDate: "2025-11-03", EndDate: "2025-11-09", WorkMinutes: 1035}, m.WeeklyWorkTimes[1])
	assert.Equal(t, "2025-11-30", m.WeeklyWorkTimes[4].EndDate)

	// 每日汇总全部关联到月度汇总
	for _, d := range env.dailies.rows {
		assert.Equal(t, m.MonthlyEventSummaryID, model.StrValue(d.MonthlyEventSummaryID), "日期 %s", d.Date)
	}
}

func TestMonthlySummaryService_Generate_StableIdentity(t *testing.T) {
	env := newTestEnv()
	seedNovember(t, env)
	env.generateLive(t)
	svc := env.monthlyService()
	ctx := context.Background()

	_, err := svc.GenerateMonthlySummaries(ctx, testYearMonth, testActor)
	require.NoError(t, err)
	first, err := svc.GetMonthlySummary(ctx, testEmpID, testYearMonth)
	require.NoError(t, err)

	// 重新生成每日汇总后关联保持
	env.generateLive(t)
	assert.Equal(t, first.MonthlyEventSummaryID, model.StrValue(env.dailyOn(t, testEmpID, "2025-11-10").MonthlyEventSummaryID))

	_, err = svc.GenerateMonthlySummaries(ctx, testYearMonth, testActor)
	require.NoError(t, err)
	second, err := svc.GetMonthlySummary(ctx, testEmpID, testYearMonth)
	require.NoError(t, err)
	assert.Equal(t, monthlyFields(*first), monthlyFields(*second))
	assert.Len(t, env.monthlies.rows, 1)
}

func TestMonthlySummaryService_Generate_NoDailySummaries(t *testing.T) {
	env := newTestEnv()
	_, err := env.monthlyService().GenerateMonthlySummaries(context.Background(), testYearMonth, testActor)
	assert.True(t, pkgerrors.IsKind(err, pkgerrors.KindNotFound))
}

func TestMonthlySummaryService_GenerateEmployee(t *testing.T) {
	env := newTestEnv()
	seedNovember(t, env)
	env.addEmployee("emp-2", "E002", testDeptID)
	env.events.addEvent("E002", "2025-11-03", "09:30:00")
	env.events.addEvent("E002", "2025-11-03", "17:00:00")
	env.generateLive(t)
	svc := env.monthlyService()
	ctx := context.Background()

	m, err := svc.GenerateEmployeeMonthlySummary(ctx, "emp-2", testYearMonth, testActor)
	require.NoError(t, err)
	assert.Equal(t, 1, m.LateCount)
	assert.Equal(t, 1, m.EarlyLeaveCount)
	require.Len(t, m.LateDetails, 1)
	assert.Equal(t, "09:30:00", model.StrValue(m.LateDetails[0].EnterTime))
	assert.Len(t, env.monthlies.rows, 1, "只生成指定员工")

	_, err = svc.GetMonthlySummary(ctx, testEmpID, testYearMonth)
	assert.ErrorIs(t, err, ErrMonthlySummaryNotFound)

	_, err = svc.GenerateEmployeeMonthlySummary(ctx, "emp-404", testYearMonth, testActor)
	assert.True(t, pkgerrors.IsKind(err, pkgerrors.KindNotFound))
}

func TestMonthlySummaryService_ListByDepartment(t *testing.T) {
	env := newTestEnv()
	seedNovember(t, env)
	env.addDepartment("dept-2", "财务部")
	env.addEmployee("emp-2", "E002", "dept-2")
	env.events.addEvent("E002", "2025-11-03", "09:00:00")
	env.events.addEvent("E002", "2025-11-03", "18:00:00")
	env.generateLive(t)
	svc := env.monthlyService()
	ctx := context.Background()

	_, err := svc.GenerateMonthlySummaries(ctx, testYearMonth, testActor)
	require.NoError(t, err)

	all, err := svc.ListMonthlySummaries(ctx, testYearMonth, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, testEmpNumber, all[0].EmployeeNumber, "按工号排序")

	dept2, err := svc.ListMonthlySummaries(ctx, testYearMonth, "dept-2")
	require.NoError(t, err)
	require.Len(t, dept2, 1)
	assert.Equal(t, "emp-2", dept2[0].EmployeeID)

	empty, err := svc.ListMonthlySummaries(ctx, testYearMonth, "dept-none")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
