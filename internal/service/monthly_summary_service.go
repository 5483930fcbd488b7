package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"attendance-engine/backend/internal/dto"
	"attendance-engine/backend/internal/model"
	"attendance-engine/backend/internal/repository"
	pkgerrors "attendance-engine/backend/pkg/errors"
)

// ── 月度汇总模块业务错误 ──

var ErrMonthlySummaryNotFound = pkgerrors.NotFound("月度汇总不存在")

// MonthlySummaryService 月度汇总业务接口
type MonthlySummaryService interface {
	GenerateMonthlySummaries(ctx context.Context, yearMonth, actor string) (*dto.MonthlyGenerationResponse, error)
	GenerateEmployeeMonthlySummary(ctx context.Context, employeeID, yearMonth, actor string) (*model.MonthlyEventSummary, error)
	GetMonthlySummary(ctx context.Context, employeeID, yearMonth string) (*model.MonthlyEventSummary, error)
	ListMonthlySummaries(ctx context.Context, yearMonth, departmentID string) ([]model.MonthlyEventSummary, error)
}

type monthlySummaryService struct {
	repo       *repository.Repository
	aggregator *monthlyAggregator
	logger     *zap.Logger
}

// NewMonthlySummaryService 创建 MonthlySummaryService 实例
func NewMonthlySummaryService(repo *repository.Repository, policy *PolicyProvider, batchSize int, logger *zap.Logger) MonthlySummaryService {
	return &monthlySummaryService{
		repo:       repo,
		aggregator: newMonthlyAggregator(policy, batchSize, logger),
		logger:     logger,
	}
}

// ────────────────────── Generate ──────────────────────

func (s *monthlySummaryService) GenerateMonthlySummaries(ctx context.Context, yearMonth, actor string) (*dto.MonthlyGenerationResponse, error) {
	period, err := ParsePeriod(yearMonth)
	if err != nil {
		return nil, err
	}

	var rows []model.MonthlyEventSummary
	err = s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		var aggErr error
		rows, aggErr = s.aggregator.aggregate(ctx, tx, period, nil, actor)
		return aggErr
	})
	if err != nil {
		return nil, err
	}
	return &dto.MonthlyGenerationResponse{YearMonth: period.YearMonth, Count: len(rows)}, nil
}

func (s *monthlySummaryService) GenerateEmployeeMonthlySummary(ctx context.Context, employeeID, yearMonth, actor string) (*model.MonthlyEventSummary, error) {
	period, err := ParsePeriod(yearMonth)
	if err != nil {
		return nil, err
	}

	var rows []model.MonthlyEventSummary
	err = s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		var aggErr error
		rows, aggErr = s.aggregator.aggregate(ctx, tx, period, []string{employeeID}, actor)
		return aggErr
	})
	if err != nil {
		return nil, err
	}
	return &rows[0], nil
}

// ────────────────────── 查询 ──────────────────────

func (s *monthlySummaryService) GetMonthlySummary(ctx context.Context, employeeID, yearMonth string) (*model.MonthlyEventSummary, error) {
	if _, err := ParsePeriod(yearMonth); err != nil {
		return nil, err
	}
	row, err := s.repo.MonthlySummary.GetByEmployeeMonth(ctx, employeeID, yearMonth)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMonthlySummaryNotFound
		}
		s.logger.Error("查询月度汇总失败",
			zap.String("employee_id", employeeID), zap.String("year_month", yearMonth), zap.Error(err))
		return nil, err
	}
	return row, nil
}

func (s *monthlySummaryService) ListMonthlySummaries(ctx context.Context, yearMonth, departmentID string) ([]model.MonthlyEventSummary, error) {
	if _, err := ParsePeriod(yearMonth); err != nil {
		return nil, err
	}
	filter := repository.MonthlySummaryFilter{YearMonth: yearMonth}
	if departmentID != "" {
		ids, err := departmentEmployeeIDs(ctx, s.repo, departmentID)
		if err != nil {
			s.logger.Error("查询部门员工失败", zap.String("department_id", departmentID), zap.Error(err))
			return nil, err
		}
		filter.EmployeeIDs = ids
	}
	rows, err := s.repo.MonthlySummary.List(ctx, filter)
	if err != nil {
		s.logger.Error("查询月度汇总失败", zap.String("year_month", yearMonth), zap.Error(err))
		return nil, err
	}
	return rows, nil
}

// departmentEmployeeIDs 部门内员工 ID（非 nil，无员工时为空切片）
func departmentEmployeeIDs(ctx context.Context, repo *repository.Repository, departmentID string) ([]string, error) {
	emps, err := repo.Employee.List(ctx, repository.EmployeeFilter{DepartmentID: departmentID})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(emps))
	for _, e := range emps {
		ids = append(ids, e.EmployeeID)
	}
	return ids, nil
}
