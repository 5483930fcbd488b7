package service

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"attendance-engine/backend/internal/model"
	"attendance-engine/backend/internal/repository"
	pkgerrors "attendance-engine/backend/pkg/errors"
)

// monthlyAggregator 月度汇总聚合器
// 必须在同月每日汇总生成之后调用；所有方法在调用方事务内执行
type monthlyAggregator struct {
	policy    *PolicyProvider
	batchSize int
	logger    *zap.Logger
}

func newMonthlyAggregator(policy *PolicyProvider, batchSize int, logger *zap.Logger) *monthlyAggregator {
	return &monthlyAggregator{policy: policy, batchSize: batchSize, logger: logger}
}

// aggregate 由每日汇总计算月度汇总；employeeIDs 为 nil 表示本月全部员工
func (a *monthlyAggregator) aggregate(ctx context.Context, repo *repository.Repository, period Period, employeeIDs []string, actor string) ([]model.MonthlyEventSummary, error) {
	log := a.logger.With(zap.String("year_month", period.YearMonth))

	dailies, err := repo.DailySummary.List(ctx, repository.DailySummaryFilter{
		From:        period.From(),
		To:          period.To(),
		EmployeeIDs: employeeIDs,
	})
	if err != nil {
		log.Error("查询每日汇总失败", zap.Error(err))
		return nil, err
	}
	if len(dailies) == 0 {
		return nil, pkgerrors.NotFound("%s 尚未生成每日汇总", period.YearMonth)
	}

	policy, err := a.policy.Load(ctx, repo, period)
	if err != nil {
		return nil, err
	}

	byEmployee, order := groupDailies(dailies)
	if employeeIDs == nil {
		// 本月已无有效每日汇总的员工，其月度汇总随之失效
		retired, err := repo.MonthlySummary.SoftDeleteByPeriod(ctx, period.YearMonth, order, actor)
		if err != nil {
			log.Error("软删除失效月度汇总失败", zap.Error(err))
			return nil, err
		}
		if retired > 0 {
			log.Info("已软删除失效月度汇总", zap.Int64("count", retired))
		}
	}
	existing, err := a.existingMonthly(ctx, repo, period, order)
	if err != nil {
		log.Error("查询已有月度汇总失败", zap.Error(err))
		return nil, err
	}

	workable := countWeekdays(period) * policy.WorkableMinutesPerDay()
	rows := make([]model.MonthlyEventSummary, 0, len(order))
	for _, empID := range order {
		days := byEmployee[empID]
		row := summarizeMonth(policy, period, days)
		row.TotalWorkableMinutes = workable
		adoptMonthlyIdentity(&row, existing[empID], actor)
		rows = append(rows, row)
	}

	if err := a.persist(ctx, repo, rows, byEmployee); err != nil {
		log.Error("写入月度汇总失败", zap.Error(err))
		return nil, err
	}

	log.Info("月度汇总生成完成", zap.Int("employees", len(rows)))
	return rows, nil
}

// replay 以快照载荷中的月度汇总原样恢复，并关联已恢复的每日汇总
func (a *monthlyAggregator) replay(ctx context.Context, repo *repository.Repository, period Period, payload []model.EmployeeSnapshot, dailies []model.DailyEventSummary, actor string) ([]model.MonthlyEventSummary, error) {
	byEmployee, _ := groupDailies(dailies)
	order := make([]string, 0, len(payload))
	for _, p := range payload {
		order = append(order, p.EmployeeID)
	}
	existing, err := a.existingMonthly(ctx, repo, period, order)
	if err != nil {
		a.logger.Error("查询已有月度汇总失败", zap.String("year_month", period.YearMonth), zap.Error(err))
		return nil, err
	}

	rows := make([]model.MonthlyEventSummary, 0, len(payload))
	for _, p := range payload {
		row := p.Monthly
		row.EmployeeID = p.EmployeeID
		row.YearMonth = period.YearMonth
		row.DailySummaries = nil
		row.Revive()
		if ex := existing[p.EmployeeID]; ex != nil {
			row.MonthlyEventSummaryID = ex.MonthlyEventSummaryID
			row.CreatedAt = ex.CreatedAt
			row.CreatedBy = ex.CreatedBy
		} else if row.MonthlyEventSummaryID == "" {
			row.MonthlyEventSummaryID = model.NewID()
		}
		row.UpdatedBy = &actor
		rows = append(rows, row)
	}

	if err := a.persist(ctx, repo, rows, byEmployee); err != nil {
		a.logger.Error("恢复月度汇总失败", zap.String("year_month", period.YearMonth), zap.Error(err))
		return nil, err
	}
	return rows, nil
}

// persist 写入月度汇总并把每日汇总关联到对应月度汇总
func (a *monthlyAggregator) persist(ctx context.Context, repo *repository.Repository, rows []model.MonthlyEventSummary, dailies map[string][]*model.DailyEventSummary) error {
	if err := repo.MonthlySummary.BatchUpsert(ctx, rows, a.batchSize); err != nil {
		return err
	}
	for i := range rows {
		days := dailies[rows[i].EmployeeID]
		ids := make([]string, 0, len(days))
		for _, d := range days {
			ids = append(ids, d.DailyEventSummaryID)
			id := rows[i].MonthlyEventSummaryID
			d.MonthlyEventSummaryID = &id
		}
		if len(ids) == 0 {
			continue
		}
		if err := repo.DailySummary.LinkMonthly(ctx, ids, rows[i].MonthlyEventSummaryID); err != nil {
			return err
		}
	}
	return nil
}

func (a *monthlyAggregator) existingMonthly(ctx context.Context, repo *repository.Repository, period Period, employeeIDs []string) (map[string]*model.MonthlyEventSummary, error) {
	rows, err := repo.MonthlySummary.List(ctx, repository.MonthlySummaryFilter{
		YearMonth:      period.YearMonth,
		EmployeeIDs:    employeeIDs,
		IncludeDeleted: true,
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string]*model.MonthlyEventSummary, len(rows))
	for i := range rows {
		out[rows[i].EmployeeID] = &rows[i]
	}
	return out, nil
}

// ════════════════════════════════════════════════════════════
// 单人月度计算
// ════════════════════════════════════════════════════════════

// summarizeMonth 汇总一名员工一个月的每日汇总（days 按日期升序）
func summarizeMonth(policy *MonthPolicy, period Period, days []*model.DailyEventSummary) model.MonthlyEventSummary {
	row := model.MonthlyEventSummary{
		EmployeeID:           days[0].EmployeeID,
		EmployeeNumber:       days[0].EmployeeNumber,
		YearMonth:            period.YearMonth,
		AverageWorkMinutes:   decimal.Zero,
		DeductedLeaveUnits:   decimal.Zero,
		AttendanceTypeCounts: []model.AttendanceTypeCount{},
		LateDetails:          []model.LateDetail{},
		AbsenceDetails:       []model.AbsenceDetail{},
		EarlyLeaveDetails:    []model.EarlyLeaveDetail{},
	}

	typeCounts := make(map[string]*model.AttendanceTypeCount)
	for _, d := range days {
		if d.WorkTime != nil || hasRecognizedApplied(d.AppliedAttendances) {
			row.WorkDaysCount++
		}
		if d.WorkTime != nil {
			row.TotalWorkMinutes += *d.WorkTime
		}
		if d.IsLate {
			row.LateCount++
			row.LateDetails = append(row.LateDetails, model.LateDetail{
				Date: d.Date, EnterTime: d.EnterTime, RawEnterTime: d.RawEnterTime, Note: d.Note,
			})
		}
		if d.IsAbsent {
			row.AbsenceCount++
			row.AbsenceDetails = append(row.AbsenceDetails, model.AbsenceDetail{Date: d.Date, Note: d.Note})
		}
		if d.IsEarlyLeave {
			row.EarlyLeaveCount++
			row.EarlyLeaveDetails = append(row.EarlyLeaveDetails, model.EarlyLeaveDetail{
				Date: d.Date, LeaveTime: d.LeaveTime, RawLeaveTime: d.RawLeaveTime, Note: d.Note,
			})
		}
		for _, applied := range d.AppliedAttendances {
			c, ok := typeCounts[applied.AttendanceTypeID]
			if !ok {
				c = &model.AttendanceTypeCount{AttendanceTypeID: applied.AttendanceTypeID, Title: applied.Title}
				typeCounts[applied.AttendanceTypeID] = c
			}
			c.Count++
			if t, ok := policy.Type(applied.AttendanceTypeID); ok {
				row.DeductedLeaveUnits = row.DeductedLeaveUnits.Add(t.DeductedLeaveUnits)
			}
		}
	}

	if row.WorkDaysCount > 0 {
		row.AverageWorkMinutes = decimal.NewFromInt(int64(row.TotalWorkMinutes)).
			Div(decimal.NewFromInt(int64(row.WorkDaysCount))).
			Round(2)
	}
	for _, c := range typeCounts {
		row.AttendanceTypeCounts = append(row.AttendanceTypeCounts, *c)
	}
	sort.Slice(row.AttendanceTypeCounts, func(i, j int) bool {
		return row.AttendanceTypeCounts[i].AttendanceTypeID < row.AttendanceTypeCounts[j].AttendanceTypeID
	})
	row.WeeklyWorkTimes = weeklyBreakdown(period, days)
	return row
}

// weeklyBreakdown 按 ISO 周统计，周的起止截取到本月
func weeklyBreakdown(period Period, days []*model.DailyEventSummary) []model.WeeklyWorkTime {
	byDate := make(map[string]*model.DailyEventSummary, len(days))
	for _, d := range days {
		byDate[d.Date] = d
	}

	var weeks []model.WeeklyWorkTime
	for t := period.First; !t.After(period.Last); t = t.AddDate(0, 0, 1) {
		date := t.Format(model.DateLayout)
		year, week := t.ISOWeek()
		if n := len(weeks); n == 0 || weeks[n-1].ISOYear != year || weeks[n-1].ISOWeek != week {
			weeks = append(weeks, model.WeeklyWorkTime{ISOYear: year, ISOWeek: week, StartDate: date})
		}
		w := &weeks[len(weeks)-1]
		w.EndDate = date
		if d, ok := byDate[date]; ok {
			w.WorkMinutes += WeeklyContribution(secPtr(d.RawEnterTime), secPtr(d.RawLeaveTime), recognizedMinutes(d.AppliedAttendances))
		}
	}
	return weeks
}

// countWeekdays 本月周一至周五的天数
func countWeekdays(period Period) int {
	n := 0
	for t := period.First; !t.After(period.Last); t = t.AddDate(0, 0, 1) {
		if wd := t.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n++
		}
	}
	return n
}

func recognizedMinutes(applied []model.AppliedAttendance) int {
	total := 0
	for _, a := range applied {
		if a.IsRecognizedAsWorkTime {
			total += a.NominalDurationMinutes
		}
	}
	return total
}

func hasRecognizedApplied(applied []model.AppliedAttendance) bool {
	for _, a := range applied {
		if a.IsRecognizedAsWorkTime {
			return true
		}
	}
	return false
}

// groupDailies 按员工分组，返回员工 ID 升序
func groupDailies(dailies []model.DailyEventSummary) (map[string][]*model.DailyEventSummary, []string) {
	out := make(map[string][]*model.DailyEventSummary)
	var order []string
	for i := range dailies {
		d := &dailies[i]
		if _, ok := out[d.EmployeeID]; !ok {
			order = append(order, d.EmployeeID)
		}
		out[d.EmployeeID] = append(out[d.EmployeeID], d)
	}
	sort.Strings(order)
	for _, days := range out {
		sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	}
	return out, order
}

func adoptMonthlyIdentity(row *model.MonthlyEventSummary, existing *model.MonthlyEventSummary, actor string) {
	if existing != nil {
		row.MonthlyEventSummaryID = existing.MonthlyEventSummaryID
		row.CreatedAt = existing.CreatedAt
		row.CreatedBy = existing.CreatedBy
	} else {
		row.MonthlyEventSummaryID = model.NewID()
		row.CreatedBy = &actor
	}
	row.UpdatedBy = &actor
}
