package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"attendance-engine/backend/internal/model"
	"attendance-engine/backend/internal/repository"
	pkgerrors "attendance-engine/backend/pkg/errors"
)

// GenerationMode 每日汇总生成模式
type GenerationMode string

const (
	GenerationModeLive     GenerationMode = "LIVE"     // 由门禁事件与使用记录重新计算
	GenerationModeSnapshot GenerationMode = "SNAPSHOT" // 以快照载荷原样回放
)

// generationOutcome 一次生成的结果
type generationOutcome struct {
	Mode          GenerationMode
	Rows          []model.DailyEventSummary
	EmployeeCount int
	IssueCount    int // 生成后处于待处理状态的问题数
	NewIssueCount int
}

// dailyGenerator 每日汇总生成器
// 所有方法在调用方的事务内执行，不自行开启事务
type dailyGenerator struct {
	policy    *PolicyProvider
	detector  *issueDetector
	batchSize int
	logger    *zap.Logger
}

func newDailyGenerator(policy *PolicyProvider, batchSize int, logger *zap.Logger) *dailyGenerator {
	return &dailyGenerator{
		policy:    policy,
		detector:  &issueDetector{batchSize: batchSize, logger: logger},
		batchSize: batchSize,
		logger:    logger,
	}
}

// ════════════════════════════════════════════════════════════
// LIVE 模式
// ════════════════════════════════════════════════════════════
//
// 1. 软删除本月全部每日汇总、考勤问题、修改记录
// 2. 批量读取本月门禁事件与使用记录
// 3. 员工集合 = 有刷卡的员工 ∪ 有使用记录的员工
// 4. 逐员工逐日计算时刻、工作时长与判定结果
// 5. 按自然键 (date, employee_id) 复活旧行或创建新行
// 6. 问题检测：复活同一每日汇总上的已有问题，仅对新异常创建 REQUEST
// 7. 复活被重新生成的每日汇总上的修改记录

func (g *dailyGenerator) runLive(ctx context.Context, repo *repository.Repository, period Period, actor string) (*generationOutcome, error) {
	log := g.logger.With(zap.String("year_month", period.YearMonth))

	policy, err := g.policy.Load(ctx, repo, period)
	if err != nil {
		return nil, err
	}

	// 1. 软删除
	if _, err := repo.DailySummary.SoftDeleteByPeriod(ctx, period.From(), period.To(), nil, actor); err != nil {
		log.Error("软删除每日汇总失败", zap.Error(err))
		return nil, err
	}
	if _, err := repo.Issue.SoftDeleteByPeriod(ctx, period.From(), period.To(), nil, actor); err != nil {
		log.Error("软删除考勤问题失败", zap.Error(err))
		return nil, err
	}
	if _, err := repo.ChangeHistory.SoftDeleteByPeriod(ctx, period.From(), period.To(), nil, actor); err != nil {
		log.Error("软删除修改记录失败", zap.Error(err))
		return nil, err
	}

	// 2. 批量读取原始输入
	events, err := repo.AccessEvent.List(ctx, repository.AccessEventFilter{
		From: model.CompactDate(period.From()),
		To:   model.CompactDate(period.To()),
	})
	if err != nil {
		log.Error("查询门禁事件失败", zap.Error(err))
		return nil, err
	}
	usages, err := repo.UsedAttendance.List(ctx, repository.UsedAttendanceFilter{From: period.From(), To: period.To()})
	if err != nil {
		log.Error("查询考勤类型使用记录失败", zap.Error(err))
		return nil, err
	}

	// 3. 员工集合
	employees, err := g.resolveEmployees(ctx, repo, events, usages)
	if err != nil {
		log.Error("查询员工失败", zap.Error(err))
		return nil, err
	}

	eventIndex := indexEvents(events, g.logger)
	usageIndex := indexUsages(usages)

	existing, err := g.existingByKey(ctx, repo, period, employeeIDsOf(employees))
	if err != nil {
		log.Error("查询已有每日汇总失败", zap.Error(err))
		return nil, err
	}

	// 4-5. 计算并对齐自然键
	dates := period.Dates()
	rows := make([]model.DailyEventSummary, 0, len(employees)*len(dates))
	for _, emp := range employees {
		for _, date := range dates {
			row := computeDay(policy, emp, date, eventIndex[emp.EmployeeNumber][date], usageIndex[emp.EmployeeID][date])
			adoptIdentity(&row, existing[row.NaturalKey()], actor)
			rows = append(rows, row)
		}
	}

	// 6. 问题检测（可能把已应用的修正时刻重新写回 rows）
	detection, err := g.detector.detect(ctx, repo, policy, rows, actor)
	if err != nil {
		return nil, err
	}

	if err := repo.DailySummary.BatchUpsert(ctx, rows, g.batchSize); err != nil {
		log.Error("写入每日汇总失败", zap.Error(err))
		return nil, err
	}
	if err := repo.Issue.BatchUpsert(ctx, detection.issues, g.batchSize); err != nil {
		log.Error("写入考勤问题失败", zap.Error(err))
		return nil, err
	}

	// 7. 修改记录
	if err := g.reviveHistories(ctx, repo, period, rows, actor); err != nil {
		log.Error("复活修改记录失败", zap.Error(err))
		return nil, err
	}

	log.Info("每日汇总生成完成",
		zap.Int("employees", len(employees)),
		zap.Int("summaries", len(rows)),
		zap.Int("open_issues", detection.open),
		zap.Int("new_issues", detection.created),
	)

	return &generationOutcome{
		Mode:          GenerationModeLive,
		Rows:          rows,
		EmployeeCount: len(employees),
		IssueCount:    detection.open,
		NewIssueCount: detection.created,
	}, nil
}

// resolveEmployees 由门禁工号与使用记录员工 ID 求员工并集（按工号排序）
func (g *dailyGenerator) resolveEmployees(ctx context.Context, repo *repository.Repository, events []model.AccessEvent, usages []model.UsedAttendance) ([]*model.Employee, error) {
	numberSet := make(map[string]struct{})
	for _, e := range events {
		numberSet[e.EmployeeNumber] = struct{}{}
	}
	idSet := make(map[string]struct{})
	for _, u := range usages {
		idSet[u.EmployeeID] = struct{}{}
	}

	byID := make(map[string]*model.Employee)
	if len(numberSet) > 0 {
		emps, err := repo.Employee.List(ctx, repository.EmployeeFilter{EmployeeNumbers: keysOf(numberSet)})
		if err != nil {
			return nil, err
		}
		for i := range emps {
			byID[emps[i].EmployeeID] = &emps[i]
			delete(numberSet, emps[i].EmployeeNumber)
		}
		if len(numberSet) > 0 {
			g.logger.Warn("门禁事件中存在花名册外的工号，已忽略", zap.Strings("employee_numbers", keysOf(numberSet)))
		}
	}

	var missing []string
	for id := range idSet {
		if _, ok := byID[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		emps, err := repo.Employee.List(ctx, repository.EmployeeFilter{EmployeeIDs: missing})
		if err != nil {
			return nil, err
		}
		for i := range emps {
			byID[emps[i].EmployeeID] = &emps[i]
		}
		for _, id := range missing {
			if _, ok := byID[id]; !ok {
				// 花名册缺失时仍生成汇总，在职区间视为无限
				g.logger.Warn("使用记录引用的员工不在花名册中", zap.String("employee_id", id))
				byID[id] = &model.Employee{EmployeeID: id}
			}
		}
	}

	out := make([]*model.Employee, 0, len(byID))
	for _, e := range byID {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EmployeeNumber != out[j].EmployeeNumber {
			return out[i].EmployeeNumber < out[j].EmployeeNumber
		}
		return out[i].EmployeeID < out[j].EmployeeID
	})
	return out, nil
}

// existingByKey 本月已有每日汇总（含软删除）按自然键索引
func (g *dailyGenerator) existingByKey(ctx context.Context, repo *repository.Repository, period Period, employeeIDs []string) (map[string]*model.DailyEventSummary, error) {
	rows, err := repo.DailySummary.List(ctx, repository.DailySummaryFilter{
		From:           period.From(),
		To:             period.To(),
		EmployeeIDs:    employeeIDs,
		IncludeDeleted: true,
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string]*model.DailyEventSummary, len(rows))
	for i := range rows {
		key := rows[i].NaturalKey()
		// 同一自然键出现多行时保留有效行
		if prev, ok := out[key]; ok && !prev.IsDeleted() {
			continue
		}
		out[key] = &rows[i]
	}
	return out, nil
}

// reviveHistories 复活挂在本次重新生成的每日汇总上的修改记录
func (g *dailyGenerator) reviveHistories(ctx context.Context, repo *repository.Repository, period Period, rows []model.DailyEventSummary, actor string) error {
	if len(rows) == 0 {
		return nil
	}
	regenerated := make(map[string]struct{}, len(rows))
	empSet := make(map[string]struct{})
	for _, r := range rows {
		regenerated[r.DailyEventSummaryID] = struct{}{}
		empSet[r.EmployeeID] = struct{}{}
	}

	histories, err := repo.ChangeHistory.List(ctx, repository.ChangeHistoryFilter{
		From:           period.From(),
		To:             period.To(),
		EmployeeIDs:    keysOf(empSet),
		IncludeDeleted: true,
	})
	if err != nil {
		return err
	}
	var revived []model.ChangeHistory
	for _, h := range histories {
		if !h.IsDeleted() {
			continue
		}
		if _, ok := regenerated[h.DailyEventSummaryID]; !ok {
			continue
		}
		h.Revive()
		h.UpdatedBy = &actor
		revived = append(revived, h)
	}
	return repo.ChangeHistory.BatchUpsert(ctx, revived, g.batchSize)
}

// ════════════════════════════════════════════════════════════
// SNAPSHOT 模式
// ════════════════════════════════════════════════════════════
//
// 仅软删除载荷中员工的本月每日汇总，按自然键复活或创建，字段原样信任载荷

func (g *dailyGenerator) runSnapshot(ctx context.Context, repo *repository.Repository, period Period, payload []model.EmployeeSnapshot, actor string) (*generationOutcome, error) {
	log := g.logger.With(zap.String("year_month", period.YearMonth))

	empIDs := make([]string, 0, len(payload))
	for _, p := range payload {
		empIDs = append(empIDs, p.EmployeeID)
	}

	if _, err := repo.DailySummary.SoftDeleteByPeriod(ctx, period.From(), period.To(), empIDs, actor); err != nil {
		log.Error("软删除每日汇总失败", zap.Error(err))
		return nil, err
	}
	existing, err := g.existingByKey(ctx, repo, period, empIDs)
	if err != nil {
		log.Error("查询已有每日汇总失败", zap.Error(err))
		return nil, err
	}

	byKey := make(map[string]int)
	var rows []model.DailyEventSummary
	for _, p := range payload {
		for _, d := range p.DailySummaries {
			if !period.Contains(d.Date) {
				return nil, pkgerrors.Validation("快照中的每日汇总 %s 不属于 %s", d.Date, period.YearMonth)
			}
			if d.EmployeeID != p.EmployeeID {
				return nil, pkgerrors.Validation("快照中的每日汇总员工不一致: %s", d.EmployeeID)
			}
			row := d
			row.Revive()
			row.MonthlyEventSummaryID = nil
			if row.AppliedAttendances == nil {
				row.AppliedAttendances = []model.AppliedAttendance{}
			}
			if ex := existing[row.NaturalKey()]; ex != nil {
				row.DailyEventSummaryID = ex.DailyEventSummaryID
				row.CreatedAt = ex.CreatedAt
				row.CreatedBy = ex.CreatedBy
			} else if row.DailyEventSummaryID == "" {
				row.DailyEventSummaryID = model.NewID()
			}
			row.UpdatedBy = &actor

			if idx, dup := byKey[row.NaturalKey()]; dup {
				rows[idx] = row
				continue
			}
			byKey[row.NaturalKey()] = len(rows)
			rows = append(rows, row)
		}
	}

	if err := repo.DailySummary.BatchUpsert(ctx, rows, g.batchSize); err != nil {
		log.Error("写入每日汇总失败", zap.Error(err))
		return nil, err
	}

	log.Info("每日汇总回放完成", zap.Int("employees", len(payload)), zap.Int("summaries", len(rows)))

	return &generationOutcome{
		Mode:          GenerationModeSnapshot,
		Rows:          rows,
		EmployeeCount: len(payload),
	}, nil
}

// ════════════════════════════════════════════════════════════
// 单日计算
// ════════════════════════════════════════════════════════════

// computeDay 计算某员工某天的每日汇总（不含主键与审计字段）
//
//	rawEnter/rawLeave = 最早/最晚刷卡
//	上班候选 = {rawEnter} ∪ {认定类型的窗口开始}，下班候选 = {rawLeave} ∪ {认定类型的窗口结束}
//	有刷卡：工作时长 = 候选区间 − 法定休息；仅有认定类型：名义时长合计；否则为空
func computeDay(policy *MonthPolicy, emp *model.Employee, date string, eventSecs []int, usages []model.UsedAttendance) model.DailyEventSummary {
	row := model.DailyEventSummary{
		Date:               date,
		EmployeeID:         emp.EmployeeID,
		EmployeeNumber:     emp.EmployeeNumber,
		IsHoliday:          policy.IsHoliday(date),
		AppliedAttendances: []model.AppliedAttendance{},
	}
	if name := policy.HolidayName(date); name != "" {
		row.Note = name
	}

	var rawEnter, rawLeave *int
	for i := range eventSecs {
		sec := eventSecs[i]
		if rawEnter == nil || sec < *rawEnter {
			rawEnter = &sec
		}
		if rawLeave == nil || sec > *rawLeave {
			v := sec
			rawLeave = &v
		}
	}

	enter, leave := rawEnter, rawLeave
	types := make([]*model.AttendanceType, 0, len(usages))
	recognized := false
	recognizedMinutes := 0
	for _, u := range usages {
		t, ok := policy.Type(u.AttendanceTypeID)
		if !ok {
			continue
		}
		types = append(types, t)
		row.AppliedAttendances = append(row.AppliedAttendances, appliedFrom(u, t))
		if !t.IsRecognizedAsWorkTime {
			continue
		}
		recognized = true
		recognizedMinutes += t.NominalDurationMinutes
		if s, e, ok := t.Window(); ok {
			if enter == nil || s < *enter {
				v := s
				enter = &v
			}
			if leave == nil || e > *leave {
				v := e
				leave = &v
			}
		}
	}

	window := policy.WindowFor(date)
	j := Judge(JudgmentInput{
		IsHoliday:        row.IsHoliday,
		Employed:         emp.EmployedOn(date),
		Window:           window,
		LateGraceSeconds: policy.LateGraceSeconds(),
		HasEvents:        rawEnter != nil,
		EnterSec:         enter,
		LeaveSec:         leave,
		Types:            types,
	})

	switch {
	case rawEnter != nil:
		w := WorkMinutes(*enter, *leave)
		row.WorkTime = &w
	case recognized:
		w := recognizedMinutes
		row.WorkTime = &w
	}

	row.RawEnterTime = clockPtr(rawEnter)
	row.RawLeaveTime = clockPtr(rawLeave)
	row.EnterTime = clockPtr(enter)
	row.LeaveTime = clockPtr(leave)
	applyJudgment(&row, j)
	return row
}

// applyCorrectedTimes 以考勤问题的修正时刻覆盖当天时刻并重新判定，已审核标记置为 true
func applyCorrectedTimes(policy *MonthPolicy, row *model.DailyEventSummary, correctedEnter, correctedLeave *string) {
	overrideTimes(policy, row, correctedEnter, correctedLeave)
	row.IsChecked = true
}

// overrideTimes 覆盖上下班时刻，重算工作时长并重新判定
// 人工给出的时刻视为当天确有出勤
func overrideTimes(policy *MonthPolicy, row *model.DailyEventSummary, correctedEnter, correctedLeave *string) {
	if correctedEnter != nil {
		v := *correctedEnter
		row.EnterTime = &v
	}
	if correctedLeave != nil {
		v := *correctedLeave
		row.LeaveTime = &v
	}
	enter := secPtr(row.EnterTime)
	leave := secPtr(row.LeaveTime)

	if enter != nil && leave != nil {
		w := WorkMinutes(*enter, *leave)
		row.WorkTime = &w
	}

	j := Judge(JudgmentInput{
		IsHoliday:        row.IsHoliday,
		Employed:         true,
		Window:           policy.WindowFor(row.Date),
		LateGraceSeconds: policy.LateGraceSeconds(),
		HasEvents:        enter != nil || leave != nil,
		EnterSec:         enter,
		LeaveSec:         leave,
		Types:            typesOfApplied(policy, row.AppliedAttendances),
	})
	applyJudgment(row, j)
}

func applyJudgment(row *model.DailyEventSummary, j Judgment) {
	row.IsAbsent = j.IsAbsent
	row.IsLate = j.IsLate
	row.IsEarlyLeave = j.IsEarlyLeave
	row.HasTypeConflict = j.HasTypeConflict
	row.HasTypeOverlap = j.HasTypeOverlap
}

// adoptIdentity 沿用已有行（含软删除）的主键、创建信息与月度关联
func adoptIdentity(row *model.DailyEventSummary, existing *model.DailyEventSummary, actor string) {
	if existing != nil {
		row.DailyEventSummaryID = existing.DailyEventSummaryID
		row.CreatedAt = existing.CreatedAt
		row.CreatedBy = existing.CreatedBy
		row.MonthlyEventSummaryID = existing.MonthlyEventSummaryID
	} else {
		row.DailyEventSummaryID = model.NewID()
		row.CreatedBy = &actor
	}
	row.UpdatedBy = &actor
}

func appliedFrom(u model.UsedAttendance, t *model.AttendanceType) model.AppliedAttendance {
	return model.AppliedAttendance{
		UsedAttendanceID:       u.UsedAttendanceID,
		AttendanceTypeID:       t.AttendanceTypeID,
		Title:                  t.Title,
		Category:               t.Category,
		IsRecognizedAsWorkTime: t.IsRecognizedAsWorkTime,
		NominalDurationMinutes: t.NominalDurationMinutes,
		WindowStart:            t.WindowStart,
		WindowEnd:              t.WindowEnd,
	}
}

// typesOfApplied 由冗余快照还原考勤类型；策略中仍存在时以策略为准
func typesOfApplied(policy *MonthPolicy, applied []model.AppliedAttendance) []*model.AttendanceType {
	out := make([]*model.AttendanceType, 0, len(applied))
	for _, a := range applied {
		if t, ok := policy.Type(a.AttendanceTypeID); ok {
			out = append(out, t)
			continue
		}
		out = append(out, &model.AttendanceType{
			AttendanceTypeID:       a.AttendanceTypeID,
			Title:                  a.Title,
			Category:               a.Category,
			IsRecognizedAsWorkTime: a.IsRecognizedAsWorkTime,
			NominalDurationMinutes: a.NominalDurationMinutes,
			WindowStart:            a.WindowStart,
			WindowEnd:              a.WindowEnd,
		})
	}
	return out
}

// ── 索引辅助 ──

// indexEvents 工号 → 日期(yyyy-MM-dd) → 刷卡时刻（秒）
func indexEvents(events []model.AccessEvent, logger *zap.Logger) map[string]map[string][]int {
	out := make(map[string]map[string][]int)
	for _, e := range events {
		sec, err := model.ParseClock(model.ExpandEventTime(e.EventTime))
		if err != nil {
			logger.Warn("忽略时刻无效的门禁事件",
				zap.String("employee_number", e.EmployeeNumber),
				zap.String("event_date", e.EventDate),
				zap.String("event_time", e.EventTime))
			continue
		}
		date := model.ExpandDate(e.EventDate)
		if out[e.EmployeeNumber] == nil {
			out[e.EmployeeNumber] = make(map[string][]int)
		}
		out[e.EmployeeNumber][date] = append(out[e.EmployeeNumber][date], sec)
	}
	return out
}

// indexUsages 员工 ID → 日期 → 使用记录
func indexUsages(usages []model.UsedAttendance) map[string]map[string][]model.UsedAttendance {
	out := make(map[string]map[string][]model.UsedAttendance)
	for _, u := range usages {
		if out[u.EmployeeID] == nil {
			out[u.EmployeeID] = make(map[string][]model.UsedAttendance)
		}
		out[u.EmployeeID][u.UsedDate] = append(out[u.EmployeeID][u.UsedDate], u)
	}
	return out
}

func employeeIDsOf(emps []*model.Employee) []string {
	out := make([]string, 0, len(emps))
	for _, e := range emps {
		out = append(out, e.EmployeeID)
	}
	return out
}

func keysOf(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func clockPtr(sec *int) *string {
	if sec == nil {
		return nil
	}
	s := model.FormatClock(*sec)
	return &s
}

func secPtr(clock *string) *int {
	if clock == nil {
		return nil
	}
	sec, err := model.ParseClock(*clock)
	if err != nil {
		return nil
	}
	return &sec
}
