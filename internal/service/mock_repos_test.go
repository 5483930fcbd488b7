package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"attendance-engine/backend/internal/model"
	"attendance-engine/backend/internal/repository"
	pkgerrors "attendance-engine/backend/pkg/errors"
)

// ── 内存仓储公共辅助 ──

// mockClock 单调递增的时间，保证 created_at 排序稳定
var mockClock = struct {
	sync.Mutex
	t time.Time
}{t: time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)}

func mockNow() time.Time {
	mockClock.Lock()
	defer mockClock.Unlock()
	mockClock.t = mockClock.t.Add(time.Second)
	return mockClock.t
}

func tombstone(m *model.SoftDeleteModel, by string) {
	m.DeletedAt = gorm.DeletedAt{Time: mockNow(), Valid: true}
	m.DeletedBy = &by
}

func inRange(date, from, to string) bool {
	if from == "" || to == "" {
		return true
	}
	return date >= from && date <= to
}

func inSet(v string, set []string) bool {
	if set == nil {
		return true
	}
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func touch(m *model.BaseModel) {
	now := mockNow()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
}

// ── Mock Transactor ──

// mockTransactor 直接在同一组内存仓储上执行（不支持回滚）
type mockTransactor struct {
	repo *repository.Repository
}

func (m *mockTransactor) Transaction(_ context.Context, fn func(repo *repository.Repository) error) error {
	return fn(m.repo)
}

// ── Mock DepartmentRepository ──

type mockDeptRepo struct {
	depts map[string]*model.Department
}

func newMockDeptRepo() *mockDeptRepo {
	return &mockDeptRepo{depts: make(map[string]*model.Department)}
}

func (m *mockDeptRepo) GetByID(_ context.Context, id string) (*model.Department, error) {
	if d, ok := m.depts[id]; ok && !d.IsDeleted() {
		out := *d
		return &out, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDeptRepo) List(_ context.Context) ([]model.Department, error) {
	var result []model.Department
	for _, d := range m.depts {
		if d.IsActive && !d.IsDeleted() {
			result = append(result, *d)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].DepartmentName < result[j].DepartmentName })
	return result, nil
}

// ── Mock EmployeeRepository ──

type mockEmployeeRepo struct {
	emps map[string]*model.Employee
}

func newMockEmployeeRepo() *mockEmployeeRepo {
	return &mockEmployeeRepo{emps: make(map[string]*model.Employee)}
}

func (m *mockEmployeeRepo) GetByID(_ context.Context, id string) (*model.Employee, error) {
	if e, ok := m.emps[id]; ok && !e.IsDeleted() {
		out := *e
		return &out, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEmployeeRepo) List(_ context.Context, filter repository.EmployeeFilter) ([]model.Employee, error) {
	if (filter.EmployeeIDs != nil && len(filter.EmployeeIDs) == 0) ||
		(filter.EmployeeNumbers != nil && len(filter.EmployeeNumbers) == 0) {
		return nil, nil
	}
	var result []model.Employee
	for _, e := range m.emps {
		if e.IsDeleted() || !inSet(e.EmployeeID, filter.EmployeeIDs) || !inSet(e.EmployeeNumber, filter.EmployeeNumbers) {
			continue
		}
		if filter.DepartmentID != "" && model.StrValue(e.DepartmentID) != filter.DepartmentID {
			continue
		}
		result = append(result, *e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].EmployeeNumber < result[j].EmployeeNumber })
	return result, nil
}

// ── Mock AccessEventRepository ──

type mockAccessEventRepo struct {
	events []model.AccessEvent
}

func newMockAccessEventRepo() *mockAccessEventRepo {
	return &mockAccessEventRepo{}
}

func (m *mockAccessEventRepo) List(_ context.Context, filter repository.AccessEventFilter) ([]model.AccessEvent, error) {
	if filter.EmployeeNumbers != nil && len(filter.EmployeeNumbers) == 0 {
		return nil, nil
	}
	var result []model.AccessEvent
	for _, e := range m.events {
		if inRange(e.EventDate, filter.From, filter.To) && inSet(e.EmployeeNumber, filter.EmployeeNumbers) {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.EmployeeNumber != b.EmployeeNumber {
			return a.EmployeeNumber < b.EmployeeNumber
		}
		if a.EventDate != b.EventDate {
			return a.EventDate < b.EventDate
		}
		return a.EventTime < b.EventTime
	})
	return result, nil
}

func (m *mockAccessEventRepo) BulkInsert(_ context.Context, events []model.AccessEvent, _ int) (int64, error) {
	seen := make(map[string]bool, len(m.events))
	for _, e := range m.events {
		seen[e.EmployeeNumber+"|"+e.EventDate+"|"+e.EventTime] = true
	}
	var inserted int64
	for _, e := range events {
		key := e.EmployeeNumber + "|" + e.EventDate + "|" + e.EventTime
		if seen[key] {
			continue
		}
		seen[key] = true
		if e.EventID == "" {
			e.EventID = model.NewID()
		}
		m.events = append(m.events, e)
		inserted++
	}
	return inserted, nil
}

// removeEmployee 测试辅助：删除某工号的全部门禁事件（模拟重新导入）
func (m *mockAccessEventRepo) removeEmployee(number string) {
	kept := m.events[:0]
	for _, e := range m.events {
		if e.EmployeeNumber != number {
			kept = append(kept, e)
		}
	}
	m.events = kept
}

// addEvent 测试辅助：直接写入一条门禁事件（date 为 yyyy-MM-dd，clock 为 HH:MM:SS）
func (m *mockAccessEventRepo) addEvent(number, date, clock string) {
	m.events = append(m.events, model.AccessEvent{
		EventID:        model.NewID(),
		EmployeeNumber: number,
		EventDate:      model.CompactDate(date),
		EventTime:      clock[:2] + clock[3:5] + clock[6:],
	})
}

// ── Mock AttendanceTypeRepository ──

type mockAttendanceTypeRepo struct {
	types map[string]*model.AttendanceType
}

func newMockAttendanceTypeRepo() *mockAttendanceTypeRepo {
	return &mockAttendanceTypeRepo{types: make(map[string]*model.AttendanceType)}
}

func (m *mockAttendanceTypeRepo) Create(_ context.Context, t *model.AttendanceType) error {
	if t.AttendanceTypeID == "" {
		t.AttendanceTypeID = model.NewID()
	}
	if err := t.Validate(); err != nil {
		return err
	}
	if _, ok := m.types[t.AttendanceTypeID]; ok {
		return pkgerrors.Conflict("考勤类型已存在")
	}
	stored := *t
	m.types[t.AttendanceTypeID] = &stored
	return nil
}

func (m *mockAttendanceTypeRepo) GetByID(_ context.Context, id string) (*model.AttendanceType, error) {
	if t, ok := m.types[id]; ok && !t.IsDeleted() {
		out := *t
		return &out, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttendanceTypeRepo) List(_ context.Context) ([]model.AttendanceType, error) {
	result := make([]model.AttendanceType, 0, len(m.types))
	for _, t := range m.types {
		result = append(result, *t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Title < result[j].Title })
	return result, nil
}

// ── Mock UsedAttendanceRepository ──

type mockUsedAttendanceRepo struct {
	rows map[string]*model.UsedAttendance
}

func newMockUsedAttendanceRepo() *mockUsedAttendanceRepo {
	return &mockUsedAttendanceRepo{rows: make(map[string]*model.UsedAttendance)}
}

func (m *mockUsedAttendanceRepo) Create(_ context.Context, u *model.UsedAttendance) error {
	for _, r := range m.rows {
		if !r.IsDeleted() && r.EmployeeID == u.EmployeeID && r.UsedDate == u.UsedDate && r.AttendanceTypeID == u.AttendanceTypeID {
			return pkgerrors.Conflict("同一天已登记相同考勤类型")
		}
	}
	if u.UsedAttendanceID == "" {
		u.UsedAttendanceID = model.NewID()
	}
	touch(&u.BaseModel)
	stored := *u
	stored.AttendanceType = nil
	m.rows[u.UsedAttendanceID] = &stored
	return nil
}

func (m *mockUsedAttendanceRepo) GetByID(_ context.Context, id string) (*model.UsedAttendance, error) {
	if u, ok := m.rows[id]; ok && !u.IsDeleted() {
		out := *u
		return &out, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUsedAttendanceRepo) List(_ context.Context, filter repository.UsedAttendanceFilter) ([]model.UsedAttendance, error) {
	if filter.EmployeeIDs != nil && len(filter.EmployeeIDs) == 0 {
		return nil, nil
	}
	var result []model.UsedAttendance
	for _, u := range m.rows {
		if !u.IsDeleted() && inRange(u.UsedDate, filter.From, filter.To) && inSet(u.EmployeeID, filter.EmployeeIDs) {
			result = append(result, *u)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.EmployeeID != b.EmployeeID {
			return a.EmployeeID < b.EmployeeID
		}
		if a.UsedDate != b.UsedDate {
			return a.UsedDate < b.UsedDate
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return result, nil
}

func (m *mockUsedAttendanceRepo) ExistsActive(_ context.Context, employeeID, usedDate, attendanceTypeID string) (bool, error) {
	for _, r := range m.rows {
		if !r.IsDeleted() && r.EmployeeID == employeeID && r.UsedDate == usedDate && r.AttendanceTypeID == attendanceTypeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUsedAttendanceRepo) SoftDelete(_ context.Context, id, deletedBy string) error {
	if u, ok := m.rows[id]; ok && !u.IsDeleted() {
		tombstone(&u.SoftDeleteModel, deletedBy)
	}
	return nil
}

func (m *mockUsedAttendanceRepo) SoftDeleteByEmployeeDate(_ context.Context, employeeID, usedDate, deletedBy string) (int64, error) {
	var n int64
	for _, u := range m.rows {
		if !u.IsDeleted() && u.EmployeeID == employeeID && u.UsedDate == usedDate {
			tombstone(&u.SoftDeleteModel, deletedBy)
			n++
		}
	}
	return n, nil
}

// ── Mock CalendarRepository ──

type mockCalendarRepo struct {
	holidays  []model.HolidayInfo
	overrides []model.WorkTimeOverride
}

func newMockCalendarRepo() *mockCalendarRepo {
	return &mockCalendarRepo{}
}

func (m *mockCalendarRepo) ListHolidays(_ context.Context, from, to string) ([]model.HolidayInfo, error) {
	var result []model.HolidayInfo
	for _, h := range m.holidays {
		if inRange(h.Date, from, to) {
			result = append(result, h)
		}
	}
	return result, nil
}

func (m *mockCalendarRepo) ListOverrides(_ context.Context, from, to string) ([]model.WorkTimeOverride, error) {
	var result []model.WorkTimeOverride
	for _, o := range m.overrides {
		if inRange(o.Date, from, to) {
			result = append(result, o)
		}
	}
	return result, nil
}

// ── Mock PolicyConfigRepository ──

type mockPolicyConfigRepo struct {
	cfg *model.AttendancePolicyConfig
}

func newMockPolicyConfigRepo() *mockPolicyConfigRepo {
	return &mockPolicyConfigRepo{}
}

func (m *mockPolicyConfigRepo) Get(_ context.Context) (*model.AttendancePolicyConfig, error) {
	if m.cfg == nil {
		return nil, gorm.ErrRecordNotFound
	}
	out := *m.cfg
	return &out, nil
}

func (m *mockPolicyConfigRepo) Save(_ context.Context, cfg *model.AttendancePolicyConfig) error {
	cfg.Singleton = true
	touch(&cfg.BaseModel)
	stored := *cfg
	m.cfg = &stored
	return nil
}

// ── Mock DailySummaryRepository ──

type mockDailySummaryRepo struct {
	rows map[string]*model.DailyEventSummary
}

func newMockDailySummaryRepo() *mockDailySummaryRepo {
	return &mockDailySummaryRepo{rows: make(map[string]*model.DailyEventSummary)}
}

func (m *mockDailySummaryRepo) GetByID(_ context.Context, id string) (*model.DailyEventSummary, error) {
	if r, ok := m.rows[id]; ok && !r.IsDeleted() {
		out := *r
		return &out, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDailySummaryRepo) List(_ context.Context, filter repository.DailySummaryFilter) ([]model.DailyEventSummary, error) {
	if filter.EmployeeIDs != nil && len(filter.EmployeeIDs) == 0 {
		return nil, nil
	}
	var result []model.DailyEventSummary
	for _, r := range m.rows {
		if r.IsDeleted() && !filter.IncludeDeleted {
			continue
		}
		if !inRange(r.Date, filter.From, filter.To) || !inSet(r.EmployeeID, filter.EmployeeIDs) {
			continue
		}
		if filter.MonthlyEventSummaryID != "" && model.StrValue(r.MonthlyEventSummaryID) != filter.MonthlyEventSummaryID {
			continue
		}
		result = append(result, *r)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].EmployeeID != result[j].EmployeeID {
			return result[i].EmployeeID < result[j].EmployeeID
		}
		return result[i].Date < result[j].Date
	})
	return result, nil
}

func (m *mockDailySummaryRepo) SoftDeleteByPeriod(_ context.Context, from, to string, employeeIDs []string, deletedBy string) (int64, error) {
	var n int64
	for _, r := range m.rows {
		if !r.IsDeleted() && inRange(r.Date, from, to) && inSet(r.EmployeeID, employeeIDs) {
			tombstone(&r.SoftDeleteModel, deletedBy)
			n++
		}
	}
	return n, nil
}

// BatchUpsert 与数据库一致：(date, employee_id) 唯一约束包含软删除行
func (m *mockDailySummaryRepo) BatchUpsert(_ context.Context, rows []model.DailyEventSummary, _ int) error {
	byKey := make(map[string]string, len(m.rows))
	for id, r := range m.rows {
		byKey[r.NaturalKey()] = id
	}
	for _, row := range rows {
		if id, ok := byKey[row.NaturalKey()]; ok && id != row.DailyEventSummaryID {
			return pkgerrors.Conflict("每日汇总自然键冲突")
		}
		if row.DailyEventSummaryID == "" {
			row.DailyEventSummaryID = model.NewID()
		}
		touch(&row.BaseModel)
		stored := row
		m.rows[row.DailyEventSummaryID] = &stored
		byKey[row.NaturalKey()] = row.DailyEventSummaryID
	}
	return nil
}

func (m *mockDailySummaryRepo) Update(_ context.Context, row *model.DailyEventSummary) error {
	touch(&row.BaseModel)
	stored := *row
	m.rows[row.DailyEventSummaryID] = &stored
	return nil
}

func (m *mockDailySummaryRepo) LinkMonthly(_ context.Context, ids []string, monthlyID string) error {
	for _, id := range ids {
		if r, ok := m.rows[id]; ok {
			v := monthlyID
			r.MonthlyEventSummaryID = &v
		}
	}
	return nil
}

// ── Mock MonthlySummaryRepository ──

type mockMonthlySummaryRepo struct {
	rows map[string]*model.MonthlyEventSummary
}

func newMockMonthlySummaryRepo() *mockMonthlySummaryRepo {
	return &mockMonthlySummaryRepo{rows: make(map[string]*model.MonthlyEventSummary)}
}

func (m *mockMonthlySummaryRepo) GetByID(_ context.Context, id string) (*model.MonthlyEventSummary, error) {
	if r, ok := m.rows[id]; ok && !r.IsDeleted() {
		out := *r
		return &out, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockMonthlySummaryRepo) GetByEmployeeMonth(_ context.Context, employeeID, yearMonth string) (*model.MonthlyEventSummary, error) {
	for _, r := range m.rows {
		if !r.IsDeleted() && r.EmployeeID == employeeID && r.YearMonth == yearMonth {
			out := *r
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockMonthlySummaryRepo) List(_ context.Context, filter repository.MonthlySummaryFilter) ([]model.MonthlyEventSummary, error) {
	if filter.EmployeeIDs != nil && len(filter.EmployeeIDs) == 0 {
		return nil, nil
	}
	var result []model.MonthlyEventSummary
	for _, r := range m.rows {
		if r.IsDeleted() && !filter.IncludeDeleted {
			continue
		}
		if filter.YearMonth != "" && r.YearMonth != filter.YearMonth {
			continue
		}
		if !inSet(r.EmployeeID, filter.EmployeeIDs) {
			continue
		}
		result = append(result, *r)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].EmployeeNumber != result[j].EmployeeNumber {
			return result[i].EmployeeNumber < result[j].EmployeeNumber
		}
		return result[i].EmployeeID < result[j].EmployeeID
	})
	return result, nil
}

func (m *mockMonthlySummaryRepo) BatchUpsert(_ context.Context, rows []model.MonthlyEventSummary, _ int) error {
	for _, row := range rows {
		for id, r := range m.rows {
			if id != row.MonthlyEventSummaryID && r.EmployeeID == row.EmployeeID && r.YearMonth == row.YearMonth {
				return pkgerrors.Conflict("月度汇总自然键冲突")
			}
		}
		if row.MonthlyEventSummaryID == "" {
			row.MonthlyEventSummaryID = model.NewID()
		}
		touch(&row.BaseModel)
		stored := row
		stored.DailySummaries = nil
		m.rows[row.MonthlyEventSummaryID] = &stored
	}
	return nil
}

func (m *mockMonthlySummaryRepo) SoftDeleteByPeriod(_ context.Context, yearMonth string, exceptEmployeeIDs []string, deletedBy string) (int64, error) {
	var n int64
	for _, r := range m.rows {
		if r.IsDeleted() || r.YearMonth != yearMonth {
			continue
		}
		if len(exceptEmployeeIDs) > 0 && inSet(r.EmployeeID, exceptEmployeeIDs) {
			continue
		}
		tombstone(&r.SoftDeleteModel, deletedBy)
		n++
	}
	return n, nil
}

// ── Mock AttendanceIssueRepository ──

type mockIssueRepo struct {
	issues map[string]*model.AttendanceIssue
}

func newMockIssueRepo() *mockIssueRepo {
	return &mockIssueRepo{issues: make(map[string]*model.AttendanceIssue)}
}

func (m *mockIssueRepo) GetByID(_ context.Context, id string) (*model.AttendanceIssue, error) {
	if i, ok := m.issues[id]; ok && !i.IsDeleted() {
		out := *i
		return &out, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockIssueRepo) List(_ context.Context, filter repository.IssueFilter) ([]model.AttendanceIssue, error) {
	if filter.EmployeeIDs != nil && len(filter.EmployeeIDs) == 0 {
		return nil, nil
	}
	var result []model.AttendanceIssue
	for _, i := range m.issues {
		if i.IsDeleted() && !filter.IncludeDeleted {
			continue
		}
		if !inRange(i.Date, filter.From, filter.To) || !inSet(i.EmployeeID, filter.EmployeeIDs) {
			continue
		}
		if filter.EmployeeID != "" && i.EmployeeID != filter.EmployeeID {
			continue
		}
		if filter.Status != "" && i.Status != filter.Status {
			continue
		}
		result = append(result, *i)
	}
	sort.Slice(result, func(a, b int) bool {
		if result[a].Date != result[b].Date {
			return result[a].Date < result[b].Date
		}
		return result[a].EmployeeID < result[b].EmployeeID
	})
	return result, nil
}

func (m *mockIssueRepo) Update(_ context.Context, issue *model.AttendanceIssue) error {
	stored, ok := m.issues[issue.AttendanceIssueID]
	if !ok || stored.IsDeleted() || stored.Version != issue.Version {
		return pkgerrors.ErrOptimisticLock
	}
	issue.Version++
	touch(&issue.BaseModel)
	out := *issue
	m.issues[issue.AttendanceIssueID] = &out
	return nil
}

func (m *mockIssueRepo) BatchUpsert(_ context.Context, issues []model.AttendanceIssue, _ int) error {
	for _, issue := range issues {
		if issue.AttendanceIssueID == "" {
			issue.AttendanceIssueID = model.NewID()
		}
		if issue.Version == 0 {
			issue.Version = 1
		}
		touch(&issue.BaseModel)
		stored := issue
		m.issues[issue.AttendanceIssueID] = &stored
	}
	return nil
}

func (m *mockIssueRepo) SoftDeleteByPeriod(_ context.Context, from, to string, employeeIDs []string, deletedBy string) (int64, error) {
	var n int64
	for _, i := range m.issues {
		if !i.IsDeleted() && inRange(i.Date, from, to) && inSet(i.EmployeeID, employeeIDs) {
			tombstone(&i.SoftDeleteModel, deletedBy)
			n++
		}
	}
	return n, nil
}

// ── Mock ChangeHistoryRepository ──

type mockChangeHistoryRepo struct {
	rows map[string]*model.ChangeHistory
}

func newMockChangeHistoryRepo() *mockChangeHistoryRepo {
	return &mockChangeHistoryRepo{rows: make(map[string]*model.ChangeHistory)}
}

func (m *mockChangeHistoryRepo) Create(_ context.Context, h *model.ChangeHistory) error {
	if h.ChangeHistoryID == "" {
		h.ChangeHistoryID = model.NewID()
	}
	touch(&h.BaseModel)
	stored := *h
	m.rows[h.ChangeHistoryID] = &stored
	return nil
}

func (m *mockChangeHistoryRepo) List(_ context.Context, filter repository.ChangeHistoryFilter) ([]model.ChangeHistory, error) {
	if filter.EmployeeIDs != nil && len(filter.EmployeeIDs) == 0 {
		return nil, nil
	}
	var result []model.ChangeHistory
	for _, h := range m.rows {
		if h.IsDeleted() && !filter.IncludeDeleted {
			continue
		}
		if !inRange(h.Date, filter.From, filter.To) || !inSet(h.EmployeeID, filter.EmployeeIDs) {
			continue
		}
		if filter.DailyEventSummaryID != "" && h.DailyEventSummaryID != filter.DailyEventSummaryID {
			continue
		}
		result = append(result, *h)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (m *mockChangeHistoryRepo) BatchUpsert(_ context.Context, rows []model.ChangeHistory, _ int) error {
	for _, h := range rows {
		touch(&h.BaseModel)
		stored := h
		m.rows[h.ChangeHistoryID] = &stored
	}
	return nil
}

func (m *mockChangeHistoryRepo) SoftDeleteByPeriod(_ context.Context, from, to string, employeeIDs []string, deletedBy string) (int64, error) {
	var n int64
	for _, h := range m.rows {
		if !h.IsDeleted() && inRange(h.Date, from, to) && inSet(h.EmployeeID, employeeIDs) {
			tombstone(&h.SoftDeleteModel, deletedBy)
			n++
		}
	}
	return n, nil
}

// ── Mock SnapshotRepository ──

type mockSnapshotRepo struct {
	infos map[string]*model.DataSnapshotInfo
}

func newMockSnapshotRepo() *mockSnapshotRepo {
	return &mockSnapshotRepo{infos: make(map[string]*model.DataSnapshotInfo)}
}

func (m *mockSnapshotRepo) Create(_ context.Context, info *model.DataSnapshotInfo, _ int) error {
	if info.DataSnapshotInfoID == "" {
		info.DataSnapshotInfoID = model.NewID()
	}
	if err := info.Validate(); err != nil {
		return err
	}
	for _, s := range m.infos {
		if s.Year == info.Year && s.Month == info.Month && s.Scope == info.Scope &&
			s.DepartmentID == info.DepartmentID && s.Version == info.Version {
			return pkgerrors.Conflict("快照版本号冲突")
		}
	}
	touch(&info.BaseModel)
	for i := range info.Children {
		info.Children[i].DataSnapshotInfoID = info.DataSnapshotInfoID
		if info.Children[i].DataSnapshotChildID == "" {
			info.Children[i].DataSnapshotChildID = model.NewID()
		}
	}
	stored := *info
	stored.Children = append([]model.DataSnapshotChild(nil), info.Children...)
	m.infos[info.DataSnapshotInfoID] = &stored
	return nil
}

func (m *mockSnapshotRepo) GetByID(_ context.Context, id string, withChildren bool) (*model.DataSnapshotInfo, error) {
	s, ok := m.infos[id]
	if !ok || s.IsDeleted() {
		return nil, gorm.ErrRecordNotFound
	}
	out := *s
	out.Children = nil
	if withChildren {
		out.Children = append([]model.DataSnapshotChild(nil), s.Children...)
		sort.Slice(out.Children, func(i, j int) bool { return out.Children[i].EmployeeID < out.Children[j].EmployeeID })
	}
	return &out, nil
}

func (m *mockSnapshotRepo) List(_ context.Context, filter repository.SnapshotFilter) ([]model.DataSnapshotInfo, error) {
	var result []model.DataSnapshotInfo
	for _, s := range m.infos {
		if s.IsDeleted() {
			continue
		}
		if (filter.Year != 0 && s.Year != filter.Year) || (filter.Month != 0 && s.Month != filter.Month) ||
			(filter.Scope != "" && s.Scope != filter.Scope) || (filter.DepartmentID != "" && s.DepartmentID != filter.DepartmentID) {
			continue
		}
		out := *s
		out.Children = nil
		result = append(result, out)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Version > result[j].Version })
	return result, nil
}

func (m *mockSnapshotRepo) MaxVersion(_ context.Context, year, month int, scope model.SnapshotScope, departmentID string) (string, error) {
	max := ""
	for _, s := range m.infos {
		if s.Year == year && s.Month == month && s.Scope == scope && s.DepartmentID == departmentID && s.Version > max {
			max = s.Version
		}
	}
	return max, nil
}

func (m *mockSnapshotRepo) SoftDelete(_ context.Context, id, deletedBy string) error {
	s, ok := m.infos[id]
	if !ok || s.IsDeleted() {
		return gorm.ErrRecordNotFound
	}
	tombstone(&s.SoftDeleteModel, deletedBy)
	for i := range s.Children {
		tombstone(&s.Children[i].SoftDeleteModel, deletedBy)
	}
	return nil
}
