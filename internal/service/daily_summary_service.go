package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"attendance-engine/backend/internal/dto"
	"attendance-engine/backend/internal/model"
	"attendance-engine/backend/internal/repository"
	pkgerrors "attendance-engine/backend/pkg/errors"
)

// ── 每日汇总模块业务错误 ──

var (
	ErrDailySummaryNotFound = pkgerrors.NotFound("每日汇总不存在")
	ErrChangeReasonRequired = pkgerrors.Validation("修改原因不能为空")
	ErrNothingChanged       = pkgerrors.Validation("未修改任何字段")
)

// DailySummaryService 每日汇总业务接口
type DailySummaryService interface {
	// GenerateDailySummaries 生成指定月份的每日汇总；SNAPSHOT 模式以 payload 原样回放
	GenerateDailySummaries(ctx context.Context, yearMonth string, mode GenerationMode, payload []model.EmployeeSnapshot, actor string) (*dto.DailyGenerationResponse, error)
	ListDailySummaries(ctx context.Context, yearMonth, employeeID string) ([]model.DailyEventSummary, error)
	GetDailySummary(ctx context.Context, id string) (*model.DailyEventSummary, error)
	// UpdateDailySummary 人工修改并追加修改记录
	UpdateDailySummary(ctx context.Context, id string, req *dto.UpdateDailySummaryRequest, actor string) (*model.DailyEventSummary, error)
	ListChangeHistory(ctx context.Context, dailySummaryID string) ([]model.ChangeHistory, error)
}

type dailySummaryService struct {
	repo      *repository.Repository
	policy    *PolicyProvider
	generator *dailyGenerator
	logger    *zap.Logger
}

// NewDailySummaryService 创建 DailySummaryService 实例
func NewDailySummaryService(repo *repository.Repository, policy *PolicyProvider, batchSize int, logger *zap.Logger) DailySummaryService {
	return &dailySummaryService{
		repo:      repo,
		policy:    policy,
		generator: newDailyGenerator(policy, batchSize, logger),
		logger:    logger,
	}
}

// ────────────────────── GenerateDailySummaries ──────────────────────

func (s *dailySummaryService) GenerateDailySummaries(ctx context.Context, yearMonth string, mode GenerationMode, payload []model.EmployeeSnapshot, actor string) (*dto.DailyGenerationResponse, error) {
	period, err := ParsePeriod(yearMonth)
	if err != nil {
		return nil, err
	}

	var outcome *generationOutcome
	err = s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		var genErr error
		outcome, genErr = s.generator.generate(ctx, tx, period, mode, payload, actor)
		return genErr
	})
	if err != nil {
		return nil, err
	}
	return toGenerationResponse(period, outcome), nil
}

// generate 按模式分派（在调用方事务内执行）
func (g *dailyGenerator) generate(ctx context.Context, repo *repository.Repository, period Period, mode GenerationMode, payload []model.EmployeeSnapshot, actor string) (*generationOutcome, error) {
	switch mode {
	case GenerationModeLive, "":
		return g.runLive(ctx, repo, period, actor)
	case GenerationModeSnapshot:
		if len(payload) == 0 {
			return nil, pkgerrors.Validation("快照回放缺少载荷")
		}
		return g.runSnapshot(ctx, repo, period, payload, actor)
	default:
		return nil, pkgerrors.Validation("未知的生成模式: %s", mode)
	}
}

func toGenerationResponse(period Period, o *generationOutcome) *dto.DailyGenerationResponse {
	return &dto.DailyGenerationResponse{
		YearMonth:     period.YearMonth,
		Mode:          string(o.Mode),
		EmployeeCount: o.EmployeeCount,
		Count:         len(o.Rows),
		IssueCount:    o.IssueCount,
		NewIssueCount: o.NewIssueCount,
	}
}

// ────────────────────── 查询 ──────────────────────

func (s *dailySummaryService) ListDailySummaries(ctx context.Context, yearMonth, employeeID string) ([]model.DailyEventSummary, error) {
	period, err := ParsePeriod(yearMonth)
	if err != nil {
		return nil, err
	}
	filter := repository.DailySummaryFilter{From: period.From(), To: period.To()}
	if employeeID != "" {
		filter.EmployeeIDs = []string{employeeID}
	}
	rows, err := s.repo.DailySummary.List(ctx, filter)
	if err != nil {
		s.logger.Error("查询每日汇总失败", zap.String("year_month", yearMonth), zap.Error(err))
		return nil, err
	}
	return rows, nil
}

func (s *dailySummaryService) GetDailySummary(ctx context.Context, id string) (*model.DailyEventSummary, error) {
	row, err := s.repo.DailySummary.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDailySummaryNotFound
		}
		s.logger.Error("查询每日汇总失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return row, nil
}

func (s *dailySummaryService) ListChangeHistory(ctx context.Context, dailySummaryID string) ([]model.ChangeHistory, error) {
	if _, err := s.GetDailySummary(ctx, dailySummaryID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ChangeHistory.List(ctx, repository.ChangeHistoryFilter{DailyEventSummaryID: dailySummaryID})
	if err != nil {
		s.logger.Error("查询修改记录失败", zap.String("daily_event_summary_id", dailySummaryID), zap.Error(err))
		return nil, err
	}
	return rows, nil
}

// ────────────────────── UpdateDailySummary ──────────────────────

func (s *dailySummaryService) UpdateDailySummary(ctx context.Context, id string, req *dto.UpdateDailySummaryRequest, actor string) (*model.DailyEventSummary, error) {
	if strings.TrimSpace(req.Reason) == "" {
		return nil, ErrChangeReasonRequired
	}
	enter, err := normalizeOptionalClock(req.EnterTime, "上班时刻")
	if err != nil {
		return nil, err
	}
	leave, err := normalizeOptionalClock(req.LeaveTime, "下班时刻")
	if err != nil {
		return nil, err
	}

	var updated *model.DailyEventSummary
	err = s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		row, err := tx.DailySummary.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDailySummaryNotFound
			}
			s.logger.Error("查询每日汇总失败", zap.String("id", id), zap.Error(err))
			return err
		}

		var changes []string
		timeChanged := false
		if enter != nil && model.StrValue(row.EnterTime) != *enter {
			changes = append(changes, fmt.Sprintf("上班时刻: %s → %s", displayClock(row.EnterTime), *enter))
			timeChanged = true
		}
		if leave != nil && model.StrValue(row.LeaveTime) != *leave {
			changes = append(changes, fmt.Sprintf("下班时刻: %s → %s", displayClock(row.LeaveTime), *leave))
			timeChanged = true
		}
		if req.Note != nil && *req.Note != row.Note {
			changes = append(changes, fmt.Sprintf("备注: %q → %q", row.Note, *req.Note))
			row.Note = *req.Note
		}
		if req.IsChecked != nil && *req.IsChecked != row.IsChecked {
			changes = append(changes, fmt.Sprintf("已审核: %t → %t", row.IsChecked, *req.IsChecked))
			row.IsChecked = *req.IsChecked
		}
		if len(changes) == 0 {
			return ErrNothingChanged
		}

		if timeChanged {
			newEnter, newLeave := pickClock(enter, row.EnterTime), pickClock(leave, row.LeaveTime)
			if newEnter != nil && newLeave != nil && *newLeave <= *newEnter {
				return pkgerrors.Validation("下班时刻必须晚于上班时刻")
			}
			period, err := ParsePeriod(row.Date[:7])
			if err != nil {
				return err
			}
			policy, err := s.policy.Load(ctx, tx, period)
			if err != nil {
				return err
			}
			before := row.WorkTime
			overrideTimes(policy, row, enter, leave)
			if !intPtrEqual(before, row.WorkTime) {
				changes = append(changes, fmt.Sprintf("工作时长: %s → %s", displayMinutes(before), displayMinutes(row.WorkTime)))
			}
		}
		row.UpdatedBy = &actor

		if err := tx.DailySummary.Update(ctx, row); err != nil {
			s.logger.Error("更新每日汇总失败", zap.String("id", id), zap.Error(err))
			return err
		}

		history := &model.ChangeHistory{
			DailyEventSummaryID: row.DailyEventSummaryID,
			EmployeeID:          row.EmployeeID,
			Date:                row.Date,
			Actor:               actor,
			Reason:              req.Reason,
			Content:             strings.Join(changes, "; "),
		}
		history.CreatedBy = &actor
		history.UpdatedBy = &actor
		if err := tx.ChangeHistory.Create(ctx, history); err != nil {
			s.logger.Error("写入修改记录失败", zap.String("daily_event_summary_id", id), zap.Error(err))
			return err
		}

		updated = row
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("每日汇总已人工修改", zap.String("id", id), zap.String("actor", actor))
	return updated, nil
}

// ── 辅助函数 ──

func normalizeOptionalClock(v *string, field string) (*string, error) {
	if v == nil {
		return nil, nil
	}
	n, err := model.NormalizeClock(*v)
	if err != nil {
		return nil, pkgerrors.Validation("%s%s", field, err.Error())
	}
	return &n, nil
}

func pickClock(override, current *string) *string {
	if override != nil {
		return override
	}
	return current
}

func displayClock(v *string) string {
	if v == nil {
		return "-"
	}
	return *v
}

func displayMinutes(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d分钟", *v)
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
