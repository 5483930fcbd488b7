package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"attendance-engine/backend/internal/dto"
	"attendance-engine/backend/internal/model"
	"attendance-engine/backend/internal/repository"
	pkgerrors "attendance-engine/backend/pkg/errors"
)

// ── 快照模块业务错误 ──

var (
	ErrSnapshotNotFound   = pkgerrors.NotFound("快照不存在")
	ErrDepartmentNotFound = pkgerrors.NotFound("部门不存在")
)

const defaultSnapshotType = "MONTHLY"

// SnapshotService 快照业务接口
type SnapshotService interface {
	// SaveSnapshot 保存快照；范围内没有月度汇总时返回 (nil, nil)
	SaveSnapshot(ctx context.Context, req *dto.SaveSnapshotRequest, actor string) (*dto.SnapshotResponse, error)
	// SaveDepartmentSnapshots 逐部门保存快照，单个部门失败记录日志后继续
	SaveDepartmentSnapshots(ctx context.Context, req *dto.SaveDepartmentSnapshotsRequest, actor string) (*dto.DepartmentSnapshotsResponse, error)
	// RestoreFromSnapshot 以快照恢复该月在线数据（幂等）
	RestoreFromSnapshot(ctx context.Context, snapshotID, actor string) (*dto.RestoreSnapshotResponse, error)
	ListSnapshots(ctx context.Context, query *dto.SnapshotQuery) ([]dto.SnapshotResponse, error)
	GetSnapshot(ctx context.Context, snapshotID string) (*dto.SnapshotDetailResponse, error)
	DeleteSnapshot(ctx context.Context, snapshotID, actor string) error
}

type snapshotService struct {
	repo            *repository.Repository
	generator       *dailyGenerator
	aggregator      *monthlyAggregator
	batchSize       int
	includeRawInput bool
	logger          *zap.Logger
}

// NewSnapshotService 创建 SnapshotService 实例
func NewSnapshotService(repo *repository.Repository, policy *PolicyProvider, batchSize int, includeRawInput bool, logger *zap.Logger) SnapshotService {
	return &snapshotService{
		repo:            repo,
		generator:       newDailyGenerator(policy, batchSize, logger),
		aggregator:      newMonthlyAggregator(policy, batchSize, logger),
		batchSize:       batchSize,
		includeRawInput: includeRawInput,
		logger:          logger,
	}
}

// ════════════════════════════════════════════════════════════
// Save
// ════════════════════════════════════════════════════════════

func (s *snapshotService) SaveSnapshot(ctx context.Context, req *dto.SaveSnapshotRequest, actor string) (*dto.SnapshotResponse, error) {
	period, err := PeriodOf(req.Year, req.Month)
	if err != nil {
		return nil, err
	}
	scope := model.SnapshotScope(req.Scope)
	deptID := ""
	switch scope {
	case model.SnapshotScopeCompany:
	case model.SnapshotScopeDepartment:
		deptID = req.DepartmentID
	default:
		return nil, pkgerrors.Validation("快照范围无效: %s", req.Scope)
	}

	var saved *model.DataSnapshotInfo
	err = s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		var employeeIDs []string
		if scope == model.SnapshotScopeDepartment {
			if deptID == "" {
				return pkgerrors.Validation("部门快照必须指定部门")
			}
			if _, err := tx.Department.GetByID(ctx, deptID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrDepartmentNotFound
				}
				s.logger.Error("查询部门失败", zap.String("department_id", deptID), zap.Error(err))
				return err
			}
			ids, err := departmentEmployeeIDs(ctx, tx, deptID)
			if err != nil {
				s.logger.Error("查询部门员工失败", zap.String("department_id", deptID), zap.Error(err))
				return err
			}
			employeeIDs = ids
		}

		children, err := s.collectChildren(ctx, tx, period, employeeIDs)
		if err != nil {
			return err
		}
		if len(children) == 0 {
			return nil
		}

		current, err := tx.Snapshot.MaxVersion(ctx, req.Year, req.Month, scope, deptID)
		if err != nil {
			s.logger.Error("查询快照最大版本失败", zap.String("year_month", period.YearMonth), zap.Error(err))
			return err
		}
		version, err := model.NextSnapshotVersion(current)
		if err != nil {
			return err
		}

		info := &model.DataSnapshotInfo{
			DataSnapshotInfoID: model.NewID(),
			Name:               req.Name,
			SnapshotType:       req.SnapshotType,
			Year:               req.Year,
			Month:              req.Month,
			Scope:              scope,
			DepartmentID:       deptID,
			Version:            version,
			Description:        req.Description,
			ApprovedBy:         req.ApprovedBy,
			EmployeeCount:      len(children),
			Children:           children,
		}
		if info.Name == "" {
			info.Name = fmt.Sprintf("%s 考勤快照 %s", period.YearMonth, version)
		}
		if info.SnapshotType == "" {
			info.SnapshotType = defaultSnapshotType
		}
		if info.ApprovedBy != nil {
			now := time.Now()
			info.ApprovedAt = &now
		}
		info.CreatedBy = &actor
		info.UpdatedBy = &actor
		for i := range info.Children {
			info.Children[i].DataSnapshotInfoID = info.DataSnapshotInfoID
			info.Children[i].CreatedBy = &actor
		}

		if err := tx.Snapshot.Create(ctx, info, s.batchSize); err != nil {
			s.logger.Error("保存快照失败", zap.String("year_month", period.YearMonth), zap.String("version", version), zap.Error(err))
			return err
		}
		saved = info
		return nil
	})
	if err != nil {
		return nil, err
	}
	if saved == nil {
		s.logger.Info("范围内没有月度汇总，未生成快照",
			zap.String("year_month", period.YearMonth), zap.String("scope", req.Scope), zap.String("department_id", deptID))
		return nil, nil
	}

	s.logger.Info("快照已保存",
		zap.String("snapshot_id", saved.DataSnapshotInfoID),
		zap.String("year_month", period.YearMonth),
		zap.String("version", saved.Version),
		zap.Int("employees", saved.EmployeeCount))
	return toSnapshotResponse(saved), nil
}

// collectChildren 读取范围内的月度汇总子树并序列化为快照明细
func (s *snapshotService) collectChildren(ctx context.Context, repo *repository.Repository, period Period, employeeIDs []string) ([]model.DataSnapshotChild, error) {
	log := s.logger.With(zap.String("year_month", period.YearMonth))

	monthlies, err := repo.MonthlySummary.List(ctx, repository.MonthlySummaryFilter{YearMonth: period.YearMonth, EmployeeIDs: employeeIDs})
	if err != nil {
		log.Error("查询月度汇总失败", zap.Error(err))
		return nil, err
	}
	if len(monthlies) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(monthlies))
	numbers := make([]string, 0, len(monthlies))
	for _, m := range monthlies {
		ids = append(ids, m.EmployeeID)
		if m.EmployeeNumber != "" {
			numbers = append(numbers, m.EmployeeNumber)
		}
	}

	dailies, err := repo.DailySummary.List(ctx, repository.DailySummaryFilter{From: period.From(), To: period.To(), EmployeeIDs: ids})
	if err != nil {
		log.Error("查询每日汇总失败", zap.Error(err))
		return nil, err
	}
	issues, err := repo.Issue.List(ctx, repository.IssueFilter{From: period.From(), To: period.To(), EmployeeIDs: ids})
	if err != nil {
		log.Error("查询考勤问题失败", zap.Error(err))
		return nil, err
	}
	histories, err := repo.ChangeHistory.List(ctx, repository.ChangeHistoryFilter{From: period.From(), To: period.To(), EmployeeIDs: ids})
	if err != nil {
		log.Error("查询修改记录失败", zap.Error(err))
		return nil, err
	}

	payloads := make(map[string]*model.EmployeeSnapshot, len(monthlies))
	for _, m := range monthlies {
		monthly := m
		monthly.DailySummaries = nil
		payloads[m.EmployeeID] = &model.EmployeeSnapshot{
			EmployeeID:      m.EmployeeID,
			EmployeeNumber:  m.EmployeeNumber,
			YearMonth:       period.YearMonth,
			Monthly:         monthly,
			DailySummaries:  []model.DailyEventSummary{},
			Issues:          []model.AttendanceIssue{},
			ChangeHistories: []model.ChangeHistory{},
		}
	}
	for _, d := range dailies {
		if p := payloads[d.EmployeeID]; p != nil {
			p.DailySummaries = append(p.DailySummaries, d)
		}
	}
	for _, i := range issues {
		if p := payloads[i.EmployeeID]; p != nil {
			p.Issues = append(p.Issues, i)
		}
	}
	for _, h := range histories {
		if p := payloads[h.EmployeeID]; p != nil {
			p.ChangeHistories = append(p.ChangeHistories, h)
		}
	}

	var raw map[string]*model.RawInputSnapshot
	if s.includeRawInput {
		raw, err = s.collectRawInput(ctx, repo, period, monthlies, numbers, ids)
		if err != nil {
			return nil, err
		}
	}

	children := make([]model.DataSnapshotChild, 0, len(monthlies))
	for _, m := range monthlies {
		body, err := json.Marshal(payloads[m.EmployeeID])
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.KindInternal, "序列化快照载荷失败", err)
		}
		child := model.DataSnapshotChild{
			DataSnapshotChildID: model.NewID(),
			EmployeeID:          m.EmployeeID,
			Payload:             string(body),
		}
		if r := raw[m.EmployeeID]; r != nil {
			rawBody, err := json.Marshal(r)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.KindInternal, "序列化原始输入失败", err)
			}
			rawText := string(rawBody)
			child.RawInput = &rawText
		}
		children = append(children, child)
	}
	return children, nil
}

// collectRawInput 读取快照时刻的门禁事件与使用记录
func (s *snapshotService) collectRawInput(ctx context.Context, repo *repository.Repository, period Period, monthlies []model.MonthlyEventSummary, numbers, ids []string) (map[string]*model.RawInputSnapshot, error) {
	events, err := repo.AccessEvent.List(ctx, repository.AccessEventFilter{
		From:            model.CompactDate(period.From()),
		To:              model.CompactDate(period.To()),
		EmployeeNumbers: numbers,
	})
	if err != nil {
		s.logger.Error("查询门禁事件失败", zap.String("year_month", period.YearMonth), zap.Error(err))
		return nil, err
	}
	usages, err := repo.UsedAttendance.List(ctx, repository.UsedAttendanceFilter{From: period.From(), To: period.To(), EmployeeIDs: ids})
	if err != nil {
		s.logger.Error("查询考勤类型使用记录失败", zap.String("year_month", period.YearMonth), zap.Error(err))
		return nil, err
	}

	out := make(map[string]*model.RawInputSnapshot, len(monthlies))
	byNumber := make(map[string]string, len(monthlies))
	for _, m := range monthlies {
		out[m.EmployeeID] = &model.RawInputSnapshot{
			AccessEvents:    []model.AccessEvent{},
			UsedAttendances: []model.UsedAttendance{},
		}
		byNumber[m.EmployeeNumber] = m.EmployeeID
	}
	for _, e := range events {
		if r := out[byNumber[e.EmployeeNumber]]; r != nil {
			r.AccessEvents = append(r.AccessEvents, e)
		}
	}
	for _, u := range usages {
		if r := out[u.EmployeeID]; r != nil {
			u.AttendanceType = nil
			r.UsedAttendances = append(r.UsedAttendances, u)
		}
	}
	return out, nil
}

// ────────────────────── SaveDepartmentSnapshots ──────────────────────

func (s *snapshotService) SaveDepartmentSnapshots(ctx context.Context, req *dto.SaveDepartmentSnapshotsRequest, actor string) (*dto.DepartmentSnapshotsResponse, error) {
	departments, err := s.repo.Department.List(ctx)
	if err != nil {
		s.logger.Error("查询部门列表失败", zap.Error(err))
		return nil, err
	}

	result := &dto.DepartmentSnapshotsResponse{
		Saved:               []dto.SnapshotResponse{},
		SkippedDepartments:  []string{},
		FailedDepartmentIDs: []string{},
	}
	for _, dept := range departments {
		saved, err := s.SaveSnapshot(ctx, &dto.SaveSnapshotRequest{
			Year:         req.Year,
			Month:        req.Month,
			Scope:        string(model.SnapshotScopeDepartment),
			DepartmentID: dept.DepartmentID,
			Name:         req.Name,
			SnapshotType: req.SnapshotType,
			Description:  req.Description,
			ApprovedBy:   req.ApprovedBy,
		}, actor)
		if err != nil {
			s.logger.Warn("部门快照保存失败，继续处理其他部门",
				zap.String("department_id", dept.DepartmentID), zap.Error(err))
			result.FailedDepartmentIDs = append(result.FailedDepartmentIDs, dept.DepartmentID)
			continue
		}
		if saved == nil {
			result.SkippedDepartments = append(result.SkippedDepartments, dept.DepartmentID)
			continue
		}
		result.Saved = append(result.Saved, *saved)
	}
	return result, nil
}

// ════════════════════════════════════════════════════════════
// Restore
// ════════════════════════════════════════════════════════════
//
// 1. 反序列化快照明细为 SNAPSHOT 模式载荷
// 2. 每日汇总生成器回放 → 月度汇总回放
// 3. 软删除载荷员工本月的考勤问题与修改记录，再按原主键恢复快照中的记录，
//    并通过 (date, employee_id) 映射重新关联到本次恢复的每日汇总

func (s *snapshotService) RestoreFromSnapshot(ctx context.Context, snapshotID, actor string) (*dto.RestoreSnapshotResponse, error) {
	var result *dto.RestoreSnapshotResponse
	err := s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		info, err := tx.Snapshot.GetByID(ctx, snapshotID, true)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSnapshotNotFound
			}
			s.logger.Error("查询快照失败", zap.String("snapshot_id", snapshotID), zap.Error(err))
			return err
		}
		period, err := PeriodOf(info.Year, info.Month)
		if err != nil {
			return err
		}
		payload, err := decodePayloads(info.Children)
		if err != nil {
			s.logger.Error("快照载荷解析失败", zap.String("snapshot_id", snapshotID), zap.Error(err))
			return err
		}
		if len(payload) == 0 {
			return pkgerrors.Validation("快照不包含任何员工数据")
		}

		outcome, err := s.generator.generate(ctx, tx, period, GenerationModeSnapshot, payload, actor)
		if err != nil {
			return err
		}
		monthlies, err := s.aggregator.replay(ctx, tx, period, payload, outcome.Rows, actor)
		if err != nil {
			return err
		}

		dailyIDs := make(map[string]string, len(outcome.Rows))
		for _, r := range outcome.Rows {
			dailyIDs[r.NaturalKey()] = r.DailyEventSummaryID
		}
		issues, histories, err := s.restoreReviewRecords(ctx, tx, snapshotID, period, payload, dailyIDs, actor)
		if err != nil {
			return err
		}

		result = &dto.RestoreSnapshotResponse{
			SnapshotID:        snapshotID,
			YearMonth:         period.YearMonth,
			RestoredDaily:     len(outcome.Rows),
			RestoredMonthly:   len(monthlies),
			RestoredIssues:    issues,
			RestoredHistories: histories,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("快照已恢复",
		zap.String("snapshot_id", snapshotID),
		zap.String("year_month", result.YearMonth),
		zap.Int("daily", result.RestoredDaily),
		zap.Int("monthly", result.RestoredMonthly))
	return result, nil
}

// restoreReviewRecords 恢复考勤问题与修改记录；恢复的修改记录标记来源快照
func (s *snapshotService) restoreReviewRecords(ctx context.Context, repo *repository.Repository, snapshotID string, period Period, payload []model.EmployeeSnapshot, dailyIDs map[string]string, actor string) (int, int, error) {
	empIDs := make([]string, 0, len(payload))
	for _, p := range payload {
		empIDs = append(empIDs, p.EmployeeID)
	}
	if _, err := repo.Issue.SoftDeleteByPeriod(ctx, period.From(), period.To(), empIDs, actor); err != nil {
		s.logger.Error("软删除考勤问题失败", zap.String("year_month", period.YearMonth), zap.Error(err))
		return 0, 0, err
	}
	if _, err := repo.ChangeHistory.SoftDeleteByPeriod(ctx, period.From(), period.To(), empIDs, actor); err != nil {
		s.logger.Error("软删除修改记录失败", zap.String("year_month", period.YearMonth), zap.Error(err))
		return 0, 0, err
	}

	var issues []model.AttendanceIssue
	var histories []model.ChangeHistory
	for _, p := range payload {
		for _, issue := range p.Issues {
			dailyID, ok := dailyIDs[model.DailyKey(issue.Date, issue.EmployeeID)]
			if !ok {
				s.logger.Warn("快照中的考勤问题找不到对应的每日汇总，已跳过",
					zap.String("attendance_issue_id", issue.AttendanceIssueID), zap.String("date", issue.Date))
				continue
			}
			issue.DailyEventSummaryID = dailyID
			issue.Revive()
			issue.UpdatedBy = &actor
			issues = append(issues, issue)
		}
		for _, h := range p.ChangeHistories {
			dailyID, ok := dailyIDs[model.DailyKey(h.Date, h.EmployeeID)]
			if !ok {
				s.logger.Warn("快照中的修改记录找不到对应的每日汇总，已跳过",
					zap.String("change_history_id", h.ChangeHistoryID), zap.String("date", h.Date))
				continue
			}
			h.DailyEventSummaryID = dailyID
			h.SnapshotID = &snapshotID
			h.Revive()
			h.UpdatedBy = &actor
			histories = append(histories, h)
		}
	}

	if err := repo.Issue.BatchUpsert(ctx, issues, s.batchSize); err != nil {
		s.logger.Error("恢复考勤问题失败", zap.String("year_month", period.YearMonth), zap.Error(err))
		return 0, 0, err
	}
	if err := repo.ChangeHistory.BatchUpsert(ctx, histories, s.batchSize); err != nil {
		s.logger.Error("恢复修改记录失败", zap.String("year_month", period.YearMonth), zap.Error(err))
		return 0, 0, err
	}
	return len(issues), len(histories), nil
}

func decodePayloads(children []model.DataSnapshotChild) ([]model.EmployeeSnapshot, error) {
	out := make([]model.EmployeeSnapshot, 0, len(children))
	for _, c := range children {
		var p model.EmployeeSnapshot
		if err := json.Unmarshal([]byte(c.Payload), &p); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.KindInternal, "快照载荷格式无效", err)
		}
		if p.EmployeeID == "" {
			p.EmployeeID = c.EmployeeID
		}
		out = append(out, p)
	}
	return out, nil
}

// ════════════════════════════════════════════════════════════
// 查询 / 删除
// ════════════════════════════════════════════════════════════

func (s *snapshotService) ListSnapshots(ctx context.Context, query *dto.SnapshotQuery) ([]dto.SnapshotResponse, error) {
	infos, err := s.repo.Snapshot.List(ctx, repository.SnapshotFilter{
		Year:         query.Year,
		Month:        query.Month,
		Scope:        model.SnapshotScope(query.Scope),
		DepartmentID: query.DepartmentID,
	})
	if err != nil {
		s.logger.Error("查询快照列表失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.SnapshotResponse, 0, len(infos))
	for i := range infos {
		result = append(result, *toSnapshotResponse(&infos[i]))
	}
	return result, nil
}

func (s *snapshotService) GetSnapshot(ctx context.Context, snapshotID string) (*dto.SnapshotDetailResponse, error) {
	info, err := s.repo.Snapshot.GetByID(ctx, snapshotID, true)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSnapshotNotFound
		}
		s.logger.Error("查询快照失败", zap.String("snapshot_id", snapshotID), zap.Error(err))
		return nil, err
	}

	detail := &dto.SnapshotDetailResponse{
		SnapshotResponse: *toSnapshotResponse(info),
		Children:         make([]dto.SnapshotChildSummary, 0, len(info.Children)),
	}
	payloads, err := decodePayloads(info.Children)
	if err != nil {
		s.logger.Error("快照载荷解析失败", zap.String("snapshot_id", snapshotID), zap.Error(err))
		return nil, err
	}
	for i, p := range payloads {
		detail.Children = append(detail.Children, dto.SnapshotChildSummary{
			EmployeeID:     p.EmployeeID,
			EmployeeNumber: p.EmployeeNumber,
			DailyCount:     len(p.DailySummaries),
			IssueCount:     len(p.Issues),
			HistoryCount:   len(p.ChangeHistories),
			HasRawInput:    info.Children[i].RawInput != nil,
		})
	}
	return detail, nil
}

func (s *snapshotService) DeleteSnapshot(ctx context.Context, snapshotID, actor string) error {
	err := s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		return tx.Snapshot.SoftDelete(ctx, snapshotID, actor)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSnapshotNotFound
		}
		s.logger.Error("删除快照失败", zap.String("snapshot_id", snapshotID), zap.Error(err))
		return err
	}
	s.logger.Info("快照已删除", zap.String("snapshot_id", snapshotID), zap.String("actor", actor))
	return nil
}

func toSnapshotResponse(info *model.DataSnapshotInfo) *dto.SnapshotResponse {
	return &dto.SnapshotResponse{
		ID:            info.DataSnapshotInfoID,
		Name:          info.Name,
		SnapshotType:  info.SnapshotType,
		Year:          info.Year,
		Month:         info.Month,
		Scope:         string(info.Scope),
		DepartmentID:  info.DepartmentID,
		Version:       info.Version,
		Description:   info.Description,
		ApprovedBy:    info.ApprovedBy,
		ApprovedAt:    info.ApprovedAt,
		EmployeeCount: info.EmployeeCount,
		CreatedAt:     info.CreatedAt.Format(time.RFC3339),
	}
}
