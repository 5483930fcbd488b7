package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"attendance-engine/backend/config"
	"attendance-engine/backend/internal/model"
	"attendance-engine/backend/internal/repository"
)

// ── 测试环境 ──

const (
	testYearMonth = "2025-11"
	testActor     = "tester"
	testEmpID     = "emp-1"
	testEmpNumber = "E001"
	testDeptID    = "dept-1"
	annualTypeID  = "type-annual"
)

// testEnv 一组内存仓储及其聚合
type testEnv struct {
	repo      *repository.Repository
	depts     *mockDeptRepo
	emps      *mockEmployeeRepo
	events    *mockAccessEventRepo
	types     *mockAttendanceTypeRepo
	usages    *mockUsedAttendanceRepo
	calendar  *mockCalendarRepo
	policyCfg *mockPolicyConfigRepo
	dailies   *mockDailySummaryRepo
	monthlies *mockMonthlySummaryRepo
	issues    *mockIssueRepo
	histories *mockChangeHistoryRepo
	snapshots *mockSnapshotRepo
	policy    *PolicyProvider
	logger    *zap.Logger
}

func testAttendanceConfig() config.AttendanceConfig {
	return config.AttendanceConfig{
		NormalStartTime:       "09:00:00",
		NormalEndTime:         "18:00:00",
		LateGraceMinutes:      10,
		WorkableMinutesPerDay: 480,
		BatchSize:             100,
		PeriodLockTTL:         time.Minute,
		Timezone:              "Asia/Shanghai",
	}
}

func newTestEnv() *testEnv {
	env := &testEnv{
		depts:     newMockDeptRepo(),
		emps:      newMockEmployeeRepo(),
		events:    newMockAccessEventRepo(),
		types:     newMockAttendanceTypeRepo(),
		usages:    newMockUsedAttendanceRepo(),
		calendar:  newMockCalendarRepo(),
		policyCfg: newMockPolicyConfigRepo(),
		dailies:   newMockDailySummaryRepo(),
		monthlies: newMockMonthlySummaryRepo(),
		issues:    newMockIssueRepo(),
		histories: newMockChangeHistoryRepo(),
		snapshots: newMockSnapshotRepo(),
		logger:    zap.NewNop(),
	}
	env.repo = &repository.Repository{
		Department:     env.depts,
		Employee:       env.emps,
		AccessEvent:    env.events,
		AttendanceType: env.types,
		UsedAttendance: env.usages,
		Calendar:       env.calendar,
		PolicyConfig:   env.policyCfg,
		DailySummary:   env.dailies,
		MonthlySummary: env.monthlies,
		Issue:          env.issues,
		ChangeHistory:  env.histories,
		Snapshot:       env.snapshots,
	}
	env.repo.Tx = &mockTransactor{repo: env.repo}
	env.policy = NewPolicyProvider(testAttendanceConfig(), env.logger)
	return env
}

// ── 各服务构造 ──

func (env *testEnv) dailyService() DailySummaryService {
	return NewDailySummaryService(env.repo, env.policy, 100, env.logger)
}

func (env *testEnv) monthlyService() MonthlySummaryService {
	return NewMonthlySummaryService(env.repo, env.policy, 100, env.logger)
}

func (env *testEnv) issueService() IssueService {
	return NewIssueService(env.repo, env.policy, env.logger)
}

func (env *testEnv) snapshotService(includeRaw bool) SnapshotService {
	return NewSnapshotService(env.repo, env.policy, 100, includeRaw, env.logger)
}

// ── 种子数据 ──

func (env *testEnv) addEmployee(id, number, deptID string) {
	emp := &model.Employee{EmployeeID: id, EmployeeNumber: number, Name: "员工" + number}
	if deptID != "" {
		emp.DepartmentID = model.StrPtr(deptID)
	}
	env.emps.emps[id] = emp
}

func (env *testEnv) addDepartment(id, name string) {
	env.depts.depts[id] = &model.Department{DepartmentID: id, DepartmentName: name, IsActive: true}
}

func (env *testEnv) addType(t *testing.T, at *model.AttendanceType) {
	t.Helper()
	require.NoError(t, env.types.Create(context.Background(), at))
}

func (env *testEnv) addUsage(t *testing.T, empID, date, typeID string) {
	t.Helper()
	require.NoError(t, env.usages.Create(context.Background(), &model.UsedAttendance{
		EmployeeID: empID, UsedDate: date, AttendanceTypeID: typeID,
	}))
}

// annualLeave 整天年假：09:00–18:00，名义 540 分钟，认定为工作时间，扣减 1 天
func annualLeave() *model.AttendanceType {
	return &model.AttendanceType{
		AttendanceTypeID:       annualTypeID,
		Title:                  "年假",
		Category:               model.CategoryFullDay,
		NominalDurationMinutes: 540,
		IsRecognizedAsWorkTime: true,
		WindowStart:            model.StrPtr("09:00:00"),
		WindowEnd:              model.StrPtr("18:00:00"),
		DeductedLeaveUnits:     decimal.NewFromInt(1),
	}
}

// seedNovember 员工 E001：11-03 刷卡 09:05/18:20，11-04 使用整天年假
func seedNovember(t *testing.T, env *testEnv) {
	t.Helper()
	env.addDepartment(testDeptID, "研发部")
	env.addEmployee(testEmpID, testEmpNumber, testDeptID)
	env.addType(t, annualLeave())
	env.addUsage(t, testEmpID, "2025-11-04", annualTypeID)
	env.events.addEvent(testEmpNumber, "2025-11-03", "09:05:00")
	env.events.addEvent(testEmpNumber, "2025-11-03", "18:20:00")
}

func (env *testEnv) generateLive(t *testing.T) {
	t.Helper()
	_, err := env.dailyService().GenerateDailySummaries(context.Background(), testYearMonth, GenerationModeLive, nil, testActor)
	require.NoError(t, err)
}

// dailyOn 查找某员工某天的有效每日汇总
func (env *testEnv) dailyOn(t *testing.T, empID, date string) *model.DailyEventSummary {
	t.Helper()
	for _, r := range env.dailies.rows {
		if !r.IsDeleted() && r.EmployeeID == empID && r.Date == date {
			out := *r
			return &out
		}
	}
	t.Fatalf("未找到 %s %s 的每日汇总", empID, date)
	return nil
}

// issueOn 查找某员工某天的有效考勤问题
func (env *testEnv) issueOn(t *testing.T, empID, date string) *model.AttendanceIssue {
	t.Helper()
	for _, i := range env.issues.issues {
		if !i.IsDeleted() && i.EmployeeID == empID && i.Date == date {
			out := *i
			return &out
		}
	}
	t.Fatalf("未找到 %s %s 的考勤问题", empID, date)
	return nil
}

func (env *testEnv) liveIssueCount() int {
	n := 0
	for _, i := range env.issues.issues {
		if !i.IsDeleted() {
			n++
		}
	}
	return n
}

func (env *testEnv) loadPolicy(t *testing.T, yearMonth string) *MonthPolicy {
	t.Helper()
	period, err := ParsePeriod(yearMonth)
	require.NoError(t, err)
	policy, err := env.policy.Load(context.Background(), env.repo, period)
	require.NoError(t, err)
	return policy
}

// dailyFields 去掉审计字段，便于比较两次计算结果
func dailyFields(d model.DailyEventSummary) model.DailyEventSummary {
	d.SoftDeleteModel = model.SoftDeleteModel{}
	return d
}

// monthlyView 去掉审计字段的月度汇总，decimal 统一为字符串比较
type monthlyView struct {
	ID                   string
	EmployeeID           string
	WorkDaysCount        int
	TotalWorkableMinutes int
	TotalWorkMinutes     int
	AverageWorkMinutes   string
	DeductedLeaveUnits   string
	LateCount            int
	AbsenceCount         int
	EarlyLeaveCount      int
	AttendanceTypeCounts []model.AttendanceTypeCount
	WeeklyWorkTimes      []model.WeeklyWorkTime
	LateDetails          []model.LateDetail
	AbsenceDetails       []model.AbsenceDetail
	EarlyLeaveDetails    []model.EarlyLeaveDetail
}

func monthlyFields(m model.MonthlyEventSummary) monthlyView {
	return monthlyView{
		ID:                   m.MonthlyEventSummaryID,
		EmployeeID:           m.EmployeeID,
		WorkDaysCount:        m.WorkDaysCount,
		TotalWorkableMinutes: m.TotalWorkableMinutes,
		TotalWorkMinutes:     m.TotalWorkMinutes,
		AverageWorkMinutes:   m.AverageWorkMinutes.StringFixed(2),
		DeductedLeaveUnits:   m.DeductedLeaveUnits.StringFixed(2),
		LateCount:            m.LateCount,
		AbsenceCount:         m.AbsenceCount,
		EarlyLeaveCount:      m.EarlyLeaveCount,
		AttendanceTypeCounts: m.AttendanceTypeCounts,
		WeeklyWorkTimes:      m.WeeklyWorkTimes,
		LateDetails:          m.LateDetails,
		AbsenceDetails:       m.AbsenceDetails,
		EarlyLeaveDetails:    m.EarlyLeaveDetails,
	}
}

func intPtr(v int) *int { return &v }
